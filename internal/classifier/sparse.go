package classifier

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

// SparseVector is a document's feature vector with sorted, unique indices.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// fromCounts builds a sorted sparse vector from an index to value map.
func fromCounts(counts map[int]float64) SparseVector {
	idx := make([]int, 0, len(counts))
	for i := range counts {
		idx = append(idx, i)
	}
	slices.Sort(idx)

	vals := make([]float64, len(idx))
	for j, i := range idx {
		vals[j] = counts[i]
	}
	return SparseVector{Indices: idx, Values: vals}
}

// Dot returns the inner product with the dense vector w.
func (v SparseVector) Dot(w []float64) float64 {
	var sum float64
	for j, i := range v.Indices {
		sum += v.Values[j] * w[i]
	}
	return sum
}

// AddScaledTo adds alpha*v into the dense vector dst.
func (v SparseVector) AddScaledTo(dst []float64, alpha float64) {
	for j, i := range v.Indices {
		dst[i] += alpha * v.Values[j]
	}
}

// normalizeL2 scales v to unit Euclidean length in place.
func (v SparseVector) normalizeL2() {
	n := floats.Norm(v.Values, 2)
	if n == 0 {
		return
	}
	floats.Scale(1/n, v.Values)
}
