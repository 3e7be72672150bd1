package hnsw

import (
	"errors"
	"fmt"
)

var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrInvalidK         = errors.New("k must be positive")
	ErrInvalidEf        = errors.New("ef must be positive")
	ErrInvalidM         = errors.New("m must be at least 2")
	ErrInvalidCapacity  = errors.New("max elements must be positive")
	ErrInvalidSeed      = errors.New("random seed must fit in int32")
)

type ErrDuplicateID struct {
	ID uint32
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("point %d already inserted", e.ID)
}

type ErrIDOutOfRange struct {
	ID       uint32
	Capacity int
}

func (e *ErrIDOutOfRange) Error() string {
	return fmt.Sprintf("point id %d out of range for capacity %d", e.ID, e.Capacity)
}

func (e *ErrIDOutOfRange) Unwrap() error {
	return ErrCapacityExceeded
}

// SearchResult is a point id with its distance to the query.
type SearchResult struct {
	ID       uint32
	Distance float32
}

type LevelStats struct {
	Level          int
	Nodes          int
	Connections    int
	AvgConnections float64
	MaxConnections int
}

type Stats struct {
	Points     int
	Capacity   int
	EntryPoint int
	MaxLevel   int
	M          int
	MaxM0      int
	Ef         int
	// Reachable counts points reachable from the entry point on layer 0.
	Reachable int
	Levels    []LevelStats
}
