package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hyperjump/kokoro/internal/config"
	"github.com/hyperjump/kokoro/internal/embedding"
	"github.com/hyperjump/kokoro/internal/generation"
	"github.com/hyperjump/kokoro/internal/indexer"
	"github.com/hyperjump/kokoro/internal/metrics"
	"github.com/hyperjump/kokoro/internal/models"
	"github.com/hyperjump/kokoro/internal/rag"
	"github.com/hyperjump/kokoro/internal/source"
	"github.com/hyperjump/kokoro/internal/store"
	"go.uber.org/zap"
)

// Components holds everything built at startup. Pipeline is nil until LoadCorpus succeeds.
type Components struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Cache     *store.SQLiteCache
	Embedder  embedding.Embedder
	Generator generation.Generator
	Builder   *indexer.Builder
	Pipeline  *rag.Pipeline
}

// Close releases the cache and embedder.
func (c *Components) Close() {
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// initializeComponents wires config into concrete services. With requireCredential
// a missing API key is an error; status inspection passes false.
func initializeComponents(cfg *config.Config, logger *zap.Logger, requireCredential bool) (*Components, error) {
	apiKey, err := cfg.APIKey()
	if err != nil && requireCredential {
		return nil, err
	}

	cache, err := store.NewSQLiteCache(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	// Provider and source requests share one connection pool. Provider calls are
	// bounded per stage by context; the source fetch uses its own client timeout.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	httpClient := &http.Client{Transport: transport}
	var (
		embedder  embedding.Embedder
		generator generation.Generator
	)
	switch cfg.Provider.Name {
	case config.ProviderMock:
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		generator = generation.MockGenerator{}
	default:
		embedder = embedding.NewOpenAIEmbedder(apiKey, cfg.Provider.BaseURL, cfg.Embedding.Model, httpClient)
		generator = generation.NewOpenAIGenerator(apiKey, cfg.Provider.BaseURL, httpClient)
	}

	chunker, err := indexer.NewChunker(cfg.Chunking.Size)
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	m := metrics.New()
	fetcher := source.NewFetcher(cfg.Source.MaxBytes, cfg.Source.FetchTimeout,
		source.WithHTTPClient(&http.Client{Transport: transport, Timeout: cfg.Source.FetchTimeout}),
		source.WithLogger(logger))
	builder := indexer.NewBuilder(cache, fetcher, embedder, chunker,
		indexer.Source{URL: cfg.Source.URL, Path: cfg.Source.Path},
		indexer.WithBatchSize(cfg.Embedding.BatchSize),
		indexer.WithLogger(logger),
		indexer.WithMetrics(m),
	)

	return &Components{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Cache:     cache,
		Embedder:  embedder,
		Generator: generator,
		Builder:   builder,
	}, nil
}

// LoadCorpus ensures the embedding cache and builds the pipeline over it.
// opts are applied after the defaults.
func (c *Components) LoadCorpus(ctx context.Context, force bool, opts ...rag.Option) error {
	rec, err := c.Builder.Ensure(ctx, force)
	if err != nil {
		if errors.Is(err, store.ErrCorrupt) {
			return fmt.Errorf("%w (run 'kokoro index --force' to rebuild)", err)
		}
		return err
	}
	corpus, err := rag.NewCorpus(rec)
	if err != nil {
		return err
	}
	c.Metrics.SetCorpusChunks(corpus.Len())

	cfg := c.Config
	queryEmbedder := embedding.NewCachingEmbedder(c.Embedder, cfg.Embedding.CacheSize)
	options := append([]rag.Option{rag.WithLogger(c.Logger), rag.WithMetrics(c.Metrics)}, opts...)
	c.Pipeline = rag.NewPipeline(corpus, queryEmbedder, c.Generator, rag.Options{
		TopK:              cfg.Retrieval.TopK,
		Topic:             cfg.Retrieval.Topic,
		GenerationModel:   cfg.Generation.Model,
		EmbedTimeout:      cfg.Embedding.Timeout,
		GenerationTimeout: cfg.Generation.Timeout,
	}, options...)
	return nil
}

// Status reports the loaded corpus, or the stored cache when no corpus is loaded.
func (c *Components) Status(ctx context.Context) (*models.CorpusStatus, error) {
	var rec *store.Record
	if c.Pipeline != nil {
		rec = c.Pipeline.Corpus().Record()
	} else {
		stored, err := c.Cache.Load(ctx, "")
		if err != nil {
			return nil, err
		}
		rec = stored
	}
	st := &models.CorpusStatus{
		Chunks:          len(rec.Chunks),
		Dimensions:      rec.Dimensions(),
		EmbeddingModel:  rec.EmbeddingModel,
		GenerationModel: c.Config.Generation.Model,
		Source:          rec.Source,
		CacheKey:        rec.Key,
		BuildID:         rec.BuildID,
		ContentSHA256:   rec.ContentSHA256,
		BuiltAt:         rec.CreatedAt,
	}
	if key, err := c.Builder.Key(); err == nil {
		st.Stale = key != rec.Key
	}
	if n, err := store.DiskUsageBytes(c.Config.Cache.Path); err == nil {
		st.CacheBytes = &n
	}
	return st, nil
}
