// Package store persists the embedding cache: the ordered chunk list and one vector per chunk.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by Load when no record is stored.
	ErrNotFound = errors.New("embedding cache is empty")
	// ErrKeyMismatch is returned by Load when the stored record was built for another key.
	ErrKeyMismatch = errors.New("embedding cache key mismatch")
	// ErrCorrupt is returned when the stored data violates record invariants.
	ErrCorrupt = errors.New("embedding cache is corrupt")
	// ErrInvalidRecord is returned by Save for records that violate invariants.
	ErrInvalidRecord = errors.New("invalid cache record")
)

// Record is the whole cached corpus. Chunks[i] corresponds to Vectors[i].
type Record struct {
	Key            string
	BuildID        string
	EmbeddingModel string
	Source         string
	ContentSHA256  string
	CreatedAt      time.Time
	Chunks         []string
	Vectors        [][]float32
}

// Dimensions returns the vector dimension, or 0 for an empty record.
func (r *Record) Dimensions() int {
	if len(r.Vectors) == 0 {
		return 0
	}
	return len(r.Vectors[0])
}

// Validate checks that the record is non-empty, chunks and vectors have equal length
// and every vector has the same non-zero dimension.
func (r *Record) Validate() error {
	if len(r.Chunks) == 0 {
		return errors.New("record has no chunks")
	}
	if len(r.Chunks) != len(r.Vectors) {
		return fmt.Errorf("record has %d chunks but %d vectors", len(r.Chunks), len(r.Vectors))
	}
	dims := r.Dimensions()
	if dims == 0 {
		return errors.New("record vectors have zero dimensions")
	}
	for i, v := range r.Vectors {
		if len(v) != dims {
			return fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), dims)
		}
	}
	return nil
}

// Cache loads and saves a single Record.
type Cache interface {
	// Load returns the stored record. A non-empty key must match the stored key.
	Load(ctx context.Context, key string) (*Record, error)
	// Save replaces any stored record with rec.
	Save(ctx context.Context, rec *Record) error
	Close() error
}
