// Package embedding turns text into vectors through an embedding service.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCountMismatch is returned when the service returns a different number of
	// vectors than texts submitted.
	ErrCountMismatch = errors.New("embedding count mismatch")
	// ErrDimensionMismatch is returned when vectors in one collection differ in length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 10

// Embedder produces vector embeddings for text.
type Embedder interface {
	// Embed embeds a single text as a one-item batch.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts in one service call; the result has the input's order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Model returns the embedding model identifier.
	Model() string
	Close() error
}

// ProgressFunc is called after each batch with the number of texts embedded so far.
type ProgressFunc func(done, total int)

// EmbedAll embeds texts in consecutive batches of batchSize and concatenates the
// results in submission order. The first failing batch aborts the run; nothing is retried.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int, progress ProgressFunc) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	dims := -1
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: batch %d-%d returned %d vectors for %d texts",
				ErrCountMismatch, start, end-1, len(vecs), end-start)
		}
		for i, v := range vecs {
			if dims < 0 {
				dims = len(v)
			}
			if len(v) == 0 || len(v) != dims {
				return nil, fmt.Errorf("%w: text %d has %d dimensions, expected %d",
					ErrDimensionMismatch, start+i, len(v), dims)
			}
		}
		out = append(out, vecs...)
		if progress != nil {
			progress(len(out), len(texts))
		}
	}
	return out, nil
}

func single(vecs [][]float32, err error) ([]float32, error) {
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for 1 text", ErrCountMismatch, len(vecs))
	}
	return vecs[0], nil
}
