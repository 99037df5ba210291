// Package source loads the single document the corpus is built from.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hyperjump/kokoro/internal/extract"
	"github.com/hyperjump/kokoro/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrEmptyDocument is returned when the source yields no text.
	ErrEmptyDocument = errors.New("source document is empty")
	// ErrTooLarge is returned when the source exceeds the configured byte limit.
	ErrTooLarge = errors.New("source document exceeds size limit")
)

// Document is the fetched source text and the hash of its raw bytes.
type Document struct {
	Location    string
	Text        string
	ContentType string
	SHA256      string
}

// Fetcher reads a source from a URL or a local path.
type Fetcher struct {
	client    *http.Client
	extractor *extract.Extractor
	maxBytes  int64
	logger    *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = utils.OrNop(l) }
}

// NewFetcher returns a Fetcher that reads at most maxBytes and gives up on HTTP after timeout.
func NewFetcher(maxBytes int64, timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: timeout},
		extractor: extract.NewExtractor(),
		maxBytes:  maxBytes,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch loads path when it is set, otherwise url.
func (f *Fetcher) Fetch(ctx context.Context, url, path string) (*Document, error) {
	if path != "" {
		return f.FetchFile(path)
	}
	if url == "" {
		return nil, errors.New("no source url or path configured")
	}
	return f.FetchURL(ctx, url)
}

// FetchURL performs an HTTP GET. Non-2xx responses are errors. The body is
// decoded by its Content-Type; HTML and other text is used as-is.
func (f *Fetcher) FetchURL(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "kokoro/1.0")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	raw, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	contentType := resp.Header.Get("Content-Type")
	doc, err := f.decode(url, raw, extract.FormatForContentType(contentType))
	if err != nil {
		return nil, err
	}
	doc.ContentType = contentType
	f.logger.Info("Fetched source",
		zap.String("url", url),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

// FetchFile reads a local file and extracts it by extension.
func (f *Fetcher) FetchFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer file.Close()
	raw, err := f.readLimited(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := f.decode(path, raw, extract.FormatForPath(path))
	if err != nil {
		return nil, err
	}
	f.logger.Info("Read source file", zap.String("path", path), zap.Int("bytes", len(raw)))
	return doc, nil
}

// HashFile returns the hex sha256 of a file's contents.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > f.maxBytes {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, f.maxBytes)
	}
	return raw, nil
}

func (f *Fetcher) decode(location string, raw []byte, format extract.Format) (*Document, error) {
	text, err := f.extractor.ExtractBytes(raw, format)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", location, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, location)
	}
	sum := sha256.Sum256(raw)
	return &Document{
		Location: location,
		Text:     text,
		SHA256:   hex.EncodeToString(sum[:]),
	}, nil
}
