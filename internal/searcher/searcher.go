package searcher

import "sync"

// Searcher is a reusable execution context for one graph traversal.
//
// Searcher is NOT thread-safe. It is owned by a single goroutine between
// Get and Put.
type Searcher struct {
	// Visited tracks nodes already scored during the traversal.
	Visited *VisitedSet

	// Results is a bounded max-heap holding the best ef nodes found so far.
	Results *PriorityQueue

	// Candidates is a min-heap of nodes still to be expanded.
	Candidates *PriorityQueue

	// Scratch is a reusable buffer for draining heaps in sorted order.
	Scratch []PriorityQueueItem

	// Neighbors is a reusable buffer for snapshotting adjacency lists.
	Neighbors []uint32
}

var searcherPool = sync.Pool{
	New: func() any {
		return NewSearcher(1024, 64)
	},
}

// NewSearcher creates a searcher with the given initial capacities.
func NewSearcher(visitedCap, queueCap int) *Searcher {
	return &Searcher{
		Visited:    NewVisitedSet(visitedCap),
		Results:    &PriorityQueue{isMaxHeap: true, items: make([]PriorityQueueItem, 0, queueCap)},
		Candidates: &PriorityQueue{isMaxHeap: false, items: make([]PriorityQueueItem, 0, queueCap)},
		Scratch:    make([]PriorityQueueItem, 0, queueCap),
		Neighbors:  make([]uint32, 0, 64),
	}
}

// Get takes a searcher from the pool, sized for at least nodes entries.
func Get(nodes int) *Searcher {
	s := searcherPool.Get().(*Searcher)
	s.Visited.EnsureCapacity(nodes)
	return s
}

// Put resets s and returns it to the pool.
func Put(s *Searcher) {
	s.Reset()
	searcherPool.Put(s)
}

// Reset clears all per-traversal state while keeping allocations.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Results.Reset()
	s.Candidates.Reset()
	s.Scratch = s.Scratch[:0]
	s.Neighbors = s.Neighbors[:0]
}
