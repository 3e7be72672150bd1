package annindex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/annindex/distance"
	"github.com/hupe1980/annindex/internal/hnsw"
)

var (
	// ErrCapacityExceeded is returned when an insertion would exceed maxElements.
	ErrCapacityExceeded = hnsw.ErrCapacityExceeded

	// ErrInvalidCapacity is returned when maxElements is not positive.
	ErrInvalidCapacity = hnsw.ErrInvalidCapacity

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = hnsw.ErrInvalidK

	// ErrInvalidM is returned when M is below 2.
	ErrInvalidM = hnsw.ErrInvalidM

	// ErrInvalidEf is returned when ef or efConstruction is not positive.
	ErrInvalidEf = hnsw.ErrInvalidEf

	// ErrInvalidSeed is returned when the random seed does not fit in int32.
	ErrInvalidSeed = hnsw.ErrInvalidSeed

	// ErrInvalidMatrix is returned when a matrix's data does not match its shape.
	ErrInvalidMatrix = errors.New("invalid matrix")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch = distance.ErrDimensionMismatch

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension = distance.ErrInvalidDimension

// CapacityError reports an insertion that would exceed the index capacity.
// It matches ErrCapacityExceeded with errors.Is.
type CapacityError struct {
	Capacity  int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: %d points requested, capacity %d", e.Requested, e.Capacity)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }
