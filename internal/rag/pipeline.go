package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/kokoro/internal/embedding"
	"github.com/hyperjump/kokoro/internal/generation"
	"github.com/hyperjump/kokoro/internal/metrics"
	"github.com/hyperjump/kokoro/internal/models"
	"github.com/hyperjump/kokoro/pkg/utils"
	"go.uber.org/zap"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 2

// Options holds per-pipeline settings. Zero values fall back to defaults.
type Options struct {
	TopK              int
	Topic             string
	GenerationModel   string
	EmbedTimeout      time.Duration
	GenerationTimeout time.Duration
}

// Pipeline answers questions against a Corpus. It holds no per-question state.
type Pipeline struct {
	corpus    *Corpus
	embedder  embedding.Embedder
	generator generation.Generator
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = utils.OrNop(l) }
}

// WithMetrics records question outcomes and stage durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline. The embedder must be the one the corpus was built with.
func NewPipeline(corpus *Corpus, embedder embedding.Embedder, generator generation.Generator, opts Options, options ...Option) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	p := &Pipeline{
		corpus:    corpus,
		embedder:  embedder,
		generator: generator,
		opts:      opts,
		logger:    zap.NewNop(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Corpus returns the corpus the pipeline searches.
func (p *Pipeline) Corpus() *Corpus { return p.corpus }

// Ask runs one question through embed, search, prompt and generate.
func (p *Pipeline) Ask(ctx context.Context, question string) (*models.Answer, error) {
	start := time.Now()
	if err := models.ValidateQuestion(question); err != nil {
		p.metrics.Question(metrics.OutcomeInvalid)
		return nil, err
	}

	ans, err := p.ask(ctx, question)
	if err != nil {
		p.metrics.Question(metrics.OutcomeError)
		p.logger.Error("Question failed", zap.Error(err))
		return nil, err
	}
	ans.Elapsed = time.Since(start)
	p.metrics.Question(metrics.OutcomeOK)
	p.logger.Debug("Question answered",
		zap.Int("context_chunks", len(ans.Context)),
		zap.Duration("elapsed", ans.Elapsed))
	return ans, nil
}

func (p *Pipeline) ask(ctx context.Context, q string) (*models.Answer, error) {
	stage := time.Now()
	embedCtx, cancel := withTimeout(ctx, p.opts.EmbedTimeout)
	vec, err := p.embedder.Embed(embedCtx, q)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	p.metrics.ObserveStage(metrics.StageEmbed, stage)

	stage = time.Now()
	hits, err := p.corpus.index.Search(ctx, vec, p.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	p.metrics.ObserveStage(metrics.StageSearch, stage)

	retrieved := make([]models.RetrievedChunk, len(hits))
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = p.corpus.chunks[h.Position]
		retrieved[i] = models.RetrievedChunk{Position: h.Position, Distance: h.Distance, Content: texts[i]}
	}
	prompt := BuildPrompt(texts, q, p.opts.Topic)

	stage = time.Now()
	genCtx, cancel := withTimeout(ctx, p.opts.GenerationTimeout)
	text, err := p.generator.Generate(genCtx, prompt, p.opts.GenerationModel)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	p.metrics.ObserveStage(metrics.StageGenerate, stage)

	return &models.Answer{
		Question: q,
		Answer:   text,
		Prompt:   prompt,
		Context:  retrieved,
	}, nil
}

// Answer is Ask for interactive front ends: failures come back as a message
// rather than an error.
func (p *Pipeline) Answer(ctx context.Context, question string) string {
	ans, err := p.Ask(ctx, question)
	if err != nil {
		return ErrorMessage(err)
	}
	return ans.Answer
}

// ErrorMessage renders err the way Answer reports failures.
func ErrorMessage(err error) string {
	return "An error occurred: " + err.Error()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
