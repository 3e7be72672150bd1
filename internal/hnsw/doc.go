// Package hnsw implements Hierarchical Navigable Small World graphs under
// inner-product distance.
//
// # Concurrency
//
//   - Lock-free search path: adjacency lists are immutable slices published
//     through atomic pointers and replaced copy-on-write
//   - 1024-way sharded mutexes serialize writers touching the same node
//   - A global mutex is held for a whole insert only when the new point
//     raises the top layer
//   - Lock-free RNG (xorshift64*) seeded per graph
//
// # Parameters
//
//   - M: Max connections per node on upper layers; 2*M on layer 0 (default: 16)
//   - EfConstruction: Construction candidate list size (default: 200)
//   - Ef: Search candidate list size, effective value is max(Ef, k) (default: 10)
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw
