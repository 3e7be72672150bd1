// Package annindex provides an in-memory approximate nearest-neighbor index
// over dense float32 vectors under inner-product similarity.
//
// The index is a Hierarchical Navigable Small World graph. Points are added
// in bulk from a row-major matrix, where the row order assigns labels, and
// queried for their k nearest neighbors. Distance is 1 - a·b, so smaller is
// closer and results come back closest first.
//
// # Quick Start
//
//	idx, _ := annindex.New(128, 100_000, annindex.WithM(16), annindex.WithEfConstruction(200))
//	_ = idx.AddItems(ctx, annindex.Matrix{Rows: n, Cols: 128, Data: data})
//	_ = idx.SetEf(64)
//	neighbors, _ := idx.KNNQuery(ctx, query, 10)
//	for _, nb := range neighbors {
//	    fmt.Println(nb.Label, nb.Similarity())
//	}
//
// # Concurrency
//
// Queries are lock-free and may run concurrently with each other and with
// AddItems. AddItems inserts rows in parallel; concurrent AddItems calls are
// serialized so that each call receives a contiguous label range.
//
// # Persistence
//
// Save and Load use a compact stream without magic number or checksum so it
// can be embedded inside a larger file. Load still validates the structure
// and reports persistence.ErrCorrupt or persistence.ErrTruncated. SaveFile
// and LoadFile write a standalone, checksummed and optionally compressed file.
package annindex
