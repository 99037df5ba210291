// Package vector provides exact nearest-neighbour search over embedding vectors.
package vector

import "context"

// Index is a read-only vector index addressed by insertion position.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Size() int
	Dimensions() int
}

// Result is a single search hit.
type Result struct {
	Position int
	Distance float64 // squared Euclidean distance
}
