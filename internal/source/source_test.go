package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = "<html><body><p>Mental health includes emotional and social well-being.</p></body></html>"

func newFetcher(opts ...Option) *Fetcher {
	return NewFetcher(1<<20, 5*time.Second, opts...)
}

func TestFetchURL_bodyUsedAsIs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(article))
	}))
	defer srv.Close()

	doc, err := newFetcher().FetchURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, article, doc.Text)
	assert.Equal(t, srv.URL, doc.Location)
	assert.Equal(t, "text/html; charset=utf-8", doc.ContentType)
	sum := sha256.Sum256([]byte(article))
	assert.Equal(t, hex.EncodeToString(sum[:]), doc.SHA256)
}

func TestFetchURL_non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newFetcher().FetchURL(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchURL_tooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	f := NewFetcher(99, time.Second)
	_, err := f.FetchURL(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)

	f = NewFetcher(100, time.Second)
	doc, err := f.FetchURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, doc.Text, 100)
}

func TestFetchURL_empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := newFetcher().FetchURL(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestFetchURL_canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newFetcher().FetchURL(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_pathWinsOverURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "article.txt")
	require.NoError(t, os.WriteFile(path, []byte("local text"), 0600))

	doc, err := newFetcher().Fetch(context.Background(), "http://127.0.0.1:1/unused", path)
	require.NoError(t, err)
	assert.Equal(t, "local text", doc.Text)
	assert.Equal(t, path, doc.Location)

	hash, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.SHA256, hash)
}

func TestFetch_noSource(t *testing.T) {
	_, err := newFetcher().Fetch(context.Background(), "", "")
	assert.Error(t, err)
}

func TestFetchFile_missing(t *testing.T) {
	_, err := newFetcher().FetchFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type countingTransport struct {
	next  http.RoundTripper
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return c.next.RoundTrip(r)
}

func TestFetchURL_customClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "kokoro/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("article text"))
	}))
	defer srv.Close()

	rt := &countingTransport{next: srv.Client().Transport}
	f := newFetcher(WithHTTPClient(&http.Client{Transport: rt}))
	doc, err := f.FetchURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "article text", doc.Text)
	assert.Equal(t, 1, rt.calls, "request should go through the supplied client")
}

func TestFetchURL_clientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := newFetcher(WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := f.FetchURL(context.Background(), srv.URL)
	require.Error(t, err)
}
