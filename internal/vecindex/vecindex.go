// Package vecindex provides a brute-force cosine similarity index over
// fixed-dimension float32 vectors. The index is immutable after Build and
// safe for concurrent readers.
package vecindex

import (
	"errors"
	"math"
	"sort"
)

// Hit is a single similarity match: the ID supplied at build time and the
// cosine similarity score against the probe vector.
type Hit struct {
	ID    int
	Score float32
}

// Index holds L2-normalized vectors keyed by caller-supplied IDs.
type Index struct {
	dimension int
	ids       []int
	vectors   [][]float32
}

var (
	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyBuild is returned when Build is called with mismatched inputs.
	ErrEmptyBuild = errors.New("ids and vectors length mismatch")
)

// Build constructs an index from parallel id/vector slices. Vectors are
// normalized on insert so Search can score with a plain dot product.
func Build(dimension int, ids []int, vectors [][]float32) (*Index, error) {
	if len(ids) != len(vectors) {
		return nil, ErrEmptyBuild
	}
	if dimension <= 0 {
		return nil, ErrDimensionMismatch
	}
	idx := &Index{
		dimension: dimension,
		ids:       make([]int, len(ids)),
		vectors:   make([][]float32, len(vectors)),
	}
	copy(idx.ids, ids)
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, ErrDimensionMismatch
		}
		idx.vectors[i] = Normalize(v)
	}
	return idx, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int { return len(idx.ids) }

// Dimension returns the vector dimension of the index.
func (idx *Index) Dimension() int { return idx.dimension }

// Search returns up to k hits sorted by descending score, ties broken by
// ascending ID for determinism. An empty index yields an empty result.
func (idx *Index) Search(probe []float32, k int) ([]Hit, error) {
	if len(probe) != idx.dimension {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 || len(idx.ids) == 0 {
		return []Hit{}, nil
	}
	q := Normalize(probe)
	hits := make([]Hit, len(idx.ids))
	for i, v := range idx.vectors {
		hits[i] = Hit{ID: idx.ids[i], Score: Dot(v, q)}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Dot computes the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Normalize returns the L2-normalized copy of v. The zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
