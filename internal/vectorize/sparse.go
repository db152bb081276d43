package vectorize

import "math"

// SparseVector is a feature vector that stores only non-zero entries.
// Indices are strictly increasing.
type SparseVector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// NewSparseVector creates an empty vector of the given dimension
func NewSparseVector(dim int) SparseVector {
	return SparseVector{Dim: dim}
}

// NNZ returns the number of stored entries
func (v SparseVector) NNZ() int {
	return len(v.Indices)
}

// Dot returns the inner product with a dense vector. Entries beyond len(w)
// contribute nothing.
func (v SparseVector) Dot(w []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		if idx < len(w) {
			sum += v.Values[i] * w[idx]
		}
	}
	return sum
}

// AddScaledTo adds alpha*v into the dense vector dst
func (v SparseVector) AddScaledTo(dst []float64, alpha float64) {
	for i, idx := range v.Indices {
		if idx < len(dst) {
			dst[idx] += alpha * v.Values[i]
		}
	}
}

// At returns the value at index idx
func (v SparseVector) At(idx int) float64 {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case v.Indices[mid] == idx:
			return v.Values[mid]
		case v.Indices[mid] < idx:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// L2Norm returns the Euclidean norm
func (v SparseVector) L2Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dense expands the vector into a full slice of length Dim
func (v SparseVector) Dense() []float64 {
	out := make([]float64, v.Dim)
	for i, idx := range v.Indices {
		out[idx] = v.Values[i]
	}
	return out
}
