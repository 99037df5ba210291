package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/kokoro/pkg/utils"
)

// ErrEmptyIndex is returned when building an index from no vectors.
var ErrEmptyIndex = errors.New("cannot build index from zero vectors")

// FlatIndex is an exact brute-force index by squared Euclidean distance.
// It is immutable after Build, so concurrent searches need no locking.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
}

// Build copies vectors into a new index. All vectors must share one non-zero dimension.
func Build(vectors [][]float32) (*FlatIndex, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("vector 0 has zero dimensions")
	}
	own := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector dimension mismatch at %d: got %d, expected %d", i, len(v), dims)
		}
		own[i] = append([]float32(nil), v...)
	}
	return &FlatIndex{dimensions: dims, vectors: own}, nil
}

// Search returns the min(k, Size()) nearest vectors ordered by ascending distance.
// Equal distances keep position order.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	if k <= 0 {
		return []Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]Result, len(f.vectors))
	for i, vec := range f.vectors {
		results[i] = Result{Position: i, Distance: utils.SquaredL2(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k > len(results) {
		k = len(results)
	}
	return results[:k:k], nil
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	return len(f.vectors)
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}
