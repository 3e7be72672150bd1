package benchmark_test

import (
	"context"
	"testing"

	"github.com/hupe1980/annindex"
	"github.com/hupe1980/annindex/testutil"
)

const benchSeed = 4711

func buildIndex(b *testing.B, data [][]float32, opts ...annindex.Option) *annindex.Index {
	b.Helper()

	idx, err := annindex.New(len(data[0]), len(data), opts...)
	if err != nil {
		b.Fatalf("new: %v", err)
	}
	m := annindex.Matrix{Rows: len(data), Cols: len(data[0]), Data: testutil.Flatten(data)}
	if err := idx.AddItems(context.Background(), m); err != nil {
		b.Fatalf("insert: %v", err)
	}
	return idx
}

// recallAtK averages recall@k of idx over queries against exact search.
func recallAtK(b *testing.B, idx *annindex.Index, data, queries [][]float32, k int) float64 {
	b.Helper()

	var total float64
	for _, q := range queries {
		res, err := idx.KNNQuery(context.Background(), q, k)
		if err != nil {
			b.Fatalf("search: %v", err)
		}
		approx := make([]testutil.SearchResult, len(res))
		for i, r := range res {
			approx[i] = testutil.SearchResult{ID: r.Label, Distance: r.Distance}
		}
		total += testutil.ComputeRecall(testutil.BruteForceSearch(data, q, k), approx)
	}
	return total / float64(len(queries))
}
