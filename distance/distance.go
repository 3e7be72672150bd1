package distance

import (
	"fmt"

	"gonum.org/v1/gonum/blas/gonum"
)

// blas is the pure-Go BLAS implementation; Sdot dispatches to assembly
// kernels where gonum provides them.
var blas = gonum.Implementation{}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return blas.Sdot(len(a), a, 1, b, 1)
}

// InnerProduct returns the inner-product distance 1 - a·b.
// Assumes vectors are the same length (caller's responsibility).
func InnerProduct(a, b []float32) float32 {
	return 1 - Dot(a, b)
}

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// InnerProductSpace is the vector space of fixed-dimension float32 vectors
// under inner-product similarity. It holds no state beyond the dimension.
type InnerProductSpace struct {
	dim int
}

// NewInnerProductSpace returns a space for vectors of length dim.
func NewInnerProductSpace(dim int) (InnerProductSpace, error) {
	if dim <= 0 {
		return InnerProductSpace{}, &ErrInvalidDimension{Dimension: dim}
	}
	return InnerProductSpace{dim: dim}, nil
}

// Dim returns the dimensionality of the space.
func (s InnerProductSpace) Dim() int { return s.dim }

// Check returns an *ErrDimensionMismatch if v does not belong to the space.
func (s InnerProductSpace) Check(v []float32) error {
	if len(v) != s.dim {
		return &ErrDimensionMismatch{Expected: s.dim, Actual: len(v)}
	}
	return nil
}

// Similarity returns a·b. Both vectors must have length Dim.
func (s InnerProductSpace) Similarity(a, b []float32) float32 {
	return Dot(a, b)
}

// Distance returns 1 - a·b. Both vectors must have length Dim.
func (s InnerProductSpace) Distance(a, b []float32) float32 {
	return InnerProduct(a, b)
}

// Func returns the distance function of the space.
func (s InnerProductSpace) Func() Func {
	return InnerProduct
}

// SimilarityFromDistance converts a distance in this space back to a·b.
func SimilarityFromDistance(d float32) float32 {
	return 1 - d
}
