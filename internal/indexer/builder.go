// Package indexer splits the source document into chunks and builds the embedding cache.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kokoro/internal/cachekey"
	"github.com/hyperjump/kokoro/internal/embedding"
	"github.com/hyperjump/kokoro/internal/metrics"
	"github.com/hyperjump/kokoro/internal/source"
	"github.com/hyperjump/kokoro/internal/store"
	"github.com/hyperjump/kokoro/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoChunks is returned when the source produces no chunks.
var ErrNoChunks = errors.New("source produced no chunks")

// Fetcher loads the source document.
type Fetcher interface {
	Fetch(ctx context.Context, url, path string) (*source.Document, error)
}

// Source names the document to index. Path takes precedence over URL.
type Source struct {
	URL  string
	Path string
}

// Location returns the path when set, otherwise the URL.
func (s Source) Location() string {
	if s.Path != "" {
		return s.Path
	}
	return s.URL
}

// Builder loads the corpus from the cache or builds and saves it.
type Builder struct {
	cache     store.Cache
	fetcher   Fetcher
	embedder  embedding.Embedder
	chunker   *Chunker
	source    Source
	batchSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger for cache decisions and embedding progress.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = utils.OrNop(l) }
}

// WithMetrics records cache events and stage durations.
func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// WithBatchSize overrides the embedding batch size.
func WithBatchSize(n int) BuilderOption {
	return func(b *Builder) { b.batchSize = n }
}

// NewBuilder creates a Builder for src.
func NewBuilder(cache store.Cache, fetcher Fetcher, embedder embedding.Embedder, chunker *Chunker, src Source, opts ...BuilderOption) *Builder {
	b := &Builder{
		cache:     cache,
		fetcher:   fetcher,
		embedder:  embedder,
		chunker:   chunker,
		source:    src,
		batchSize: embedding.DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Key computes the cache key for the current settings. Local files are hashed
// so that editing them invalidates the cache.
func (b *Builder) Key() (string, error) {
	var contentHash string
	if b.source.Path != "" {
		h, err := source.HashFile(b.source.Path)
		if err != nil {
			return "", fmt.Errorf("hash source: %w", err)
		}
		contentHash = h
	}
	return b.keyFor(contentHash), nil
}

func (b *Builder) keyFor(contentHash string) string {
	return cachekey.Compute(cachekey.Inputs{
		Source:         b.source.Location(),
		EmbeddingModel: b.embedder.Model(),
		ChunkSize:      b.chunker.Size(),
		ContentSHA256:  contentHash,
	})
}

// Ensure returns the cached record when its key matches, otherwise builds and
// saves a new one. force skips the cache lookup. A corrupt cache is returned as
// an error and never overwritten implicitly.
func (b *Builder) Ensure(ctx context.Context, force bool) (*store.Record, error) {
	key, err := b.Key()
	if err != nil {
		return nil, err
	}
	if force {
		b.logger.Info("Rebuilding embedding cache on request")
		b.metrics.CacheEvent(metrics.CacheRebuild)
		return b.Build(ctx)
	}

	rec, err := b.cache.Load(ctx, key)
	switch {
	case err == nil:
		b.metrics.CacheEvent(metrics.CacheHit)
		b.logger.Info("Loaded embedding cache",
			zap.Int("chunks", len(rec.Chunks)),
			zap.Int("dimensions", rec.Dimensions()),
			zap.String("build_id", rec.BuildID))
		return rec, nil
	case errors.Is(err, store.ErrNotFound):
		b.metrics.CacheEvent(metrics.CacheMiss)
		b.logger.Info("Embedding cache empty, building")
	case errors.Is(err, store.ErrKeyMismatch):
		b.metrics.CacheEvent(metrics.CacheMismatch)
		b.logger.Info("Embedding cache is stale, rebuilding", zap.Error(err))
	default:
		return nil, fmt.Errorf("load embedding cache: %w", err)
	}
	return b.Build(ctx)
}

// Build fetches, chunks and embeds the source, then saves the record.
// Nothing is written when any step fails.
func (b *Builder) Build(ctx context.Context) (*store.Record, error) {
	start := time.Now()
	doc, err := b.fetcher.Fetch(ctx, b.source.URL, b.source.Path)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}
	b.metrics.ObserveStage(metrics.StageFetch, start)

	chunks := b.chunker.Chunk(doc.Text)
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	b.logger.Info("Chunked source",
		zap.String("source", doc.Location),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", b.chunker.Size()))

	embedStart := time.Now()
	vectors, err := embedding.EmbedAll(ctx, b.embedder, chunks, b.batchSize, func(done, total int) {
		b.logger.Info("Embedding progress", zap.Int("done", done), zap.Int("total", total))
	})
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	b.metrics.ObserveStage(metrics.StageIndex, embedStart)

	var contentHash string
	if b.source.Path != "" {
		contentHash = doc.SHA256
	}
	rec := &store.Record{
		Key:            b.keyFor(contentHash),
		EmbeddingModel: b.embedder.Model(),
		Source:         b.source.Location(),
		ContentSHA256:  doc.SHA256,
		Chunks:         chunks,
		Vectors:        vectors,
	}
	if err := b.cache.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save embedding cache: %w", err)
	}
	b.metrics.CacheEvent(metrics.CacheSave)
	b.logger.Info("Saved embedding cache",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", rec.Dimensions()),
		zap.String("build_id", rec.BuildID),
		zap.Duration("elapsed", time.Since(start)))
	return rec, nil
}
