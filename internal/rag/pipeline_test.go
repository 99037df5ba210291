package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kokoro/internal/metrics"
	"github.com/hyperjump/kokoro/internal/models"
	"github.com/hyperjump/kokoro/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keywords = []string{"sleep", "melatonin", "anxiety", "exercise", "diet"}

// keywordEmbedder counts keyword occurrences, so distances are predictable.
// It records the texts passed to Embed.
type keywordEmbedder struct {
	err  error
	mu   sync.Mutex
	seen []string
}

func (k *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(keywords))
	for i, w := range keywords {
		v[i] = float32(strings.Count(lower, w))
	}
	return v
}

func (k *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	k.mu.Lock()
	k.seen = append(k.seen, text)
	k.mu.Unlock()
	if k.err != nil {
		return nil, k.err
	}
	return k.vector(text), nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = k.vector(t)
	}
	return out, nil
}

func (k *keywordEmbedder) Model() string { return "keyword" }
func (k *keywordEmbedder) Close() error  { return nil }

// scriptedGenerator fails on the calls listed in failOn (1-based) and records prompts.
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   int
	failOn  map[int]bool
	prompts []string
	models  []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.models = append(g.models, model)
	if g.failOn[g.calls] {
		return "", errors.New("service unavailable")
	}
	return "answer " + model, nil
}

var corpusChunks = []string{
	"Anxiety disorders are common. ",
	"Melatonin is a hormone that regulates sleep. ",
	"Regular exercise improves mood. ",
	"A balanced diet supports the brain.",
}

func newTestPipeline(t *testing.T, emb *keywordEmbedder, gen *scriptedGenerator, opts ...Option) *Pipeline {
	t.Helper()
	vecs, err := emb.EmbedBatch(context.Background(), corpusChunks)
	require.NoError(t, err)
	corpus, err := NewCorpus(&store.Record{Key: "k", Chunks: corpusChunks, Vectors: vecs})
	require.NoError(t, err)
	return NewPipeline(corpus, emb, gen, Options{GenerationModel: "mistral-medium"}, opts...)
}

func TestPipeline_retrievesMelatoninForSleep(t *testing.T) {
	gen := &scriptedGenerator{}
	emb := &keywordEmbedder{}
	p := newTestPipeline(t, emb, gen)

	const question = "  What helps with sleep?\n"
	ans, err := p.Ask(context.Background(), question)
	require.NoError(t, err)
	assert.Equal(t, question, ans.Question, "question is echoed verbatim")
	assert.Contains(t, ans.Prompt, "Query: "+question+"\nAnswer:")
	assert.Equal(t, []string{question}, emb.seen, "question is embedded verbatim")
	assert.Equal(t, "answer mistral-medium", ans.Answer)
	require.Len(t, ans.Context, DefaultTopK)
	assert.Equal(t, 1, ans.Context[0].Position, "melatonin chunk should be nearest")
	assert.Contains(t, ans.Prompt, corpusChunks[1])
	// anxiety and exercise tie; the earlier position wins.
	assert.Equal(t, 0, ans.Context[1].Position)
	assert.Equal(t, []string{"mistral-medium"}, gen.models)
	assert.Equal(t, ans.Prompt, gen.prompts[0])
}

func TestPipeline_failureIsolation(t *testing.T) {
	gen := &scriptedGenerator{failOn: map[int]bool{1: true}}
	m := metrics.New()
	p := newTestPipeline(t, &keywordEmbedder{}, gen, WithMetrics(m))

	msg := p.Answer(context.Background(), "What helps with sleep?")
	assert.Equal(t, "An error occurred: generate answer: service unavailable", msg)

	msg = p.Answer(context.Background(), "Does exercise help anxiety?")
	assert.Equal(t, "answer mistral-medium", msg)
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "Query: Does exercise help anxiety?")
}

func TestPipeline_idempotentPrompts(t *testing.T) {
	gen := &scriptedGenerator{}
	p := newTestPipeline(t, &keywordEmbedder{}, gen)
	for i := 0; i < 3; i++ {
		_, err := p.Ask(context.Background(), "Does exercise help anxiety?")
		require.NoError(t, err)
	}
	require.Len(t, gen.prompts, 3)
	assert.Equal(t, gen.prompts[0], gen.prompts[1])
	assert.Equal(t, gen.prompts[1], gen.prompts[2])
}

func TestPipeline_invalidQuestion(t *testing.T) {
	gen := &scriptedGenerator{}
	p := newTestPipeline(t, &keywordEmbedder{}, gen)

	_, err := p.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrEmptyQuestion)
	_, err = p.Ask(context.Background(), strings.Repeat("x", models.MaxQuestionLength+1))
	assert.ErrorIs(t, err, models.ErrQuestionTooLong)
	assert.Zero(t, gen.calls, "invalid questions must not reach the generator")
	assert.Equal(t, "An error occurred: question cannot be empty", p.Answer(context.Background(), ""))
}

func TestPipeline_embedFailure(t *testing.T) {
	gen := &scriptedGenerator{}
	p := newTestPipeline(t, &keywordEmbedder{}, gen)
	p.embedder = &keywordEmbedder{err: errors.New("401 unauthorized")}

	msg := p.Answer(context.Background(), "What helps with sleep?")
	assert.Equal(t, "An error occurred: embed question: 401 unauthorized", msg)
	assert.Zero(t, gen.calls)
}

type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestPipeline_generationTimeout(t *testing.T) {
	emb := &keywordEmbedder{}
	vecs, _ := emb.EmbedBatch(context.Background(), corpusChunks)
	corpus, err := NewCorpus(&store.Record{Key: "k", Chunks: corpusChunks, Vectors: vecs})
	require.NoError(t, err)
	p := NewPipeline(corpus, emb, slowGenerator{}, Options{GenerationTimeout: 20 * time.Millisecond})

	_, err = p.Ask(context.Background(), "sleep?")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeline_topKLargerThanCorpus(t *testing.T) {
	emb := &keywordEmbedder{}
	vecs, _ := emb.EmbedBatch(context.Background(), corpusChunks)
	corpus, err := NewCorpus(&store.Record{Key: "k", Chunks: corpusChunks, Vectors: vecs})
	require.NoError(t, err)
	p := NewPipeline(corpus, emb, &scriptedGenerator{}, Options{TopK: 10})

	ans, err := p.Ask(context.Background(), "diet")
	require.NoError(t, err)
	assert.Len(t, ans.Context, len(corpusChunks))
	for i := 1; i < len(ans.Context); i++ {
		assert.LessOrEqual(t, ans.Context[i-1].Distance, ans.Context[i].Distance)
	}
}

func TestPipeline_concurrentQuestions(t *testing.T) {
	gen := &scriptedGenerator{}
	p := newTestPipeline(t, &keywordEmbedder{}, gen)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Ask(context.Background(), "What helps with sleep?")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, gen.calls)
}

func TestNewCorpus_rejectsInvalidRecord(t *testing.T) {
	_, err := NewCorpus(&store.Record{Chunks: []string{"a"}, Vectors: nil})
	assert.ErrorIs(t, err, store.ErrCorrupt)

	c, err := NewCorpus(&store.Record{Chunks: []string{"a", "b"}, Vectors: [][]float32{{1}, {2}}})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "b", c.Chunk(1))
	assert.Equal(t, 1, c.Dimensions())
}
