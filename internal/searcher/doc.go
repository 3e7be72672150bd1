// Package searcher provides the pooled scratch state used by graph traversal.
//
// A Searcher owns two heaps and a visited set. Searchers are taken from a
// sync.Pool for each query and returned afterwards, so steady-state queries
// do not allocate scratch memory.
package searcher
