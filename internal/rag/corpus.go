// Package rag answers questions from the indexed corpus: embed, retrieve, prompt, generate.
package rag

import (
	"fmt"

	"github.com/hyperjump/kokoro/internal/store"
	"github.com/hyperjump/kokoro/internal/vector"
)

// Corpus is the immutable chunk list and its vector index. Safe for concurrent reads.
type Corpus struct {
	chunks []string
	index  vector.Index
	record *store.Record
}

// NewCorpus builds the index from a cache record.
func NewCorpus(rec *store.Record) (*Corpus, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrCorrupt, err)
	}
	idx, err := vector.Build(rec.Vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	chunks := make([]string, len(rec.Chunks))
	copy(chunks, rec.Chunks)
	return &Corpus{chunks: chunks, index: idx, record: rec}, nil
}

// Len returns the number of chunks.
func (c *Corpus) Len() int { return len(c.chunks) }

// Chunk returns the chunk at position i.
func (c *Corpus) Chunk(i int) string { return c.chunks[i] }

// Dimensions returns the vector dimension.
func (c *Corpus) Dimensions() int { return c.index.Dimensions() }

// Record returns the cache record the corpus was built from.
func (c *Corpus) Record() *store.Record { return c.record }
