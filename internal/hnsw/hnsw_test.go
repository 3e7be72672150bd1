package hnsw

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annindex/distance"
	"github.com/hupe1980/annindex/internal/searcher"
	"github.com/hupe1980/annindex/testutil"
)

func newTestGraph(t testing.TB, dim, capacity int, optFns ...func(o *Options)) *Graph {
	t.Helper()
	g, err := New(append([]func(o *Options){func(o *Options) {
		o.Dimension = dim
		o.MaxElements = capacity
	}}, optFns...)...)
	require.NoError(t, err)
	return g
}

func buildGraph(t testing.TB, vectors [][]float32, optFns ...func(o *Options)) *Graph {
	t.Helper()
	g := newTestGraph(t, len(vectors[0]), len(vectors), optFns...)
	for i, v := range vectors {
		require.NoError(t, g.Insert(uint32(i), v))
	}
	return g
}

func toTestutil(rs []SearchResult) []testutil.SearchResult {
	out := make([]testutil.SearchResult, len(rs))
	for i, r := range rs {
		out[i] = testutil.SearchResult{ID: r.ID, Distance: r.Distance}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		opts   func(o *Options)
		target error
	}{
		{"ZeroDimension", func(o *Options) { o.Dimension = 0; o.MaxElements = 10 }, nil},
		{"ZeroCapacity", func(o *Options) { o.Dimension = 4 }, ErrInvalidCapacity},
		{"MTooSmall", func(o *Options) { o.Dimension = 4; o.MaxElements = 10; o.M = 1 }, ErrInvalidM},
		{"ZeroEfConstruction", func(o *Options) { o.Dimension = 4; o.MaxElements = 10; o.EfConstruction = 0 }, ErrInvalidEf},
		{"ZeroEf", func(o *Options) { o.Dimension = 4; o.MaxElements = 10; o.Ef = 0 }, ErrInvalidEf},
		{"SeedAboveInt32", func(o *Options) { o.Dimension = 4; o.MaxElements = 10; o.RandomSeed = 1 << 40 }, ErrInvalidSeed},
		{"SeedBelowInt32", func(o *Options) { o.Dimension = 4; o.MaxElements = 10; o.RandomSeed = math.MinInt32 - 1 }, ErrInvalidSeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			} else {
				var dimErr *distance.ErrInvalidDimension
				assert.ErrorAs(t, err, &dimErr)
			}
		})
	}

	g := newTestGraph(t, 4, 10)
	assert.Equal(t, 4, g.Dimension())
	assert.Equal(t, 10, g.Capacity())
	assert.Equal(t, DefaultM, g.M())
	assert.Equal(t, DefaultEfConstruction, g.EfConstruction())
	assert.Equal(t, DefaultEf, g.Ef())
	assert.Equal(t, int64(DefaultRandomSeed), g.RandomSeed())
	assert.Equal(t, 0, g.Len())
}

func TestSearch_TwoClusters(t *testing.T) {
	vectors := [][]float32{
		{-1, 0},
		{1, 0},
		{-0.95, 0.1},
		{0.95, 0.1},
		{-0.9, -0.1},
	}
	g := buildGraph(t, vectors)

	res, err := g.Search(context.Background(), []float32{0.98, 0.05}, 2, 0)
	require.NoError(t, err)
	require.Len(t, res, 2)

	got := []uint32{res[0].ID, res[1].ID}
	assert.ElementsMatch(t, []uint32{1, 3}, got)
	assert.LessOrEqual(t, res[0].Distance, res[1].Distance)
}

func TestSearch_SinglePoint(t *testing.T) {
	g := buildGraph(t, [][]float32{{0.5, 0.5, 0}})

	for _, k := range []int{1, 5} {
		res, err := g.Search(context.Background(), []float32{1, 2, 3}, k, 0)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, uint32(0), res[0].ID)
		assert.Equal(t, distance.InnerProduct([]float32{1, 2, 3}, []float32{0.5, 0.5, 0}), res[0].Distance)
	}
}

func TestInsert_FirstPointOnLayerZero(t *testing.T) {
	g := newTestGraph(t, 2, 4)
	state := g.RNGState()

	require.NoError(t, g.Insert(2, []float32{1, 0}))

	id, level, ok := g.EntryPoint()
	require.True(t, ok)
	assert.Equal(t, uint32(2), id)
	assert.Equal(t, 0, level)
	assert.Equal(t, state, g.RNGState())
}

func TestSearch_FewerPointsThanK(t *testing.T) {
	g := buildGraph(t, [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}})

	res, err := g.Search(context.Background(), []float32{1, 1}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, res, 3)
}

func TestSearch_EmptyGraph(t *testing.T) {
	g := newTestGraph(t, 2, 10)

	res, err := g.Search(context.Background(), []float32{1, 1}, 3, 0)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestSearch_Errors(t *testing.T) {
	g := buildGraph(t, [][]float32{{1, 0}})

	_, err := g.Search(context.Background(), []float32{1, 0}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = g.Search(context.Background(), []float32{1, 0, 0}, 1, 0)
	var dimErr *distance.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Search(ctx, []float32{1, 0}, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_Ordering(t *testing.T) {
	rng := testutil.NewRNG(1)
	vectors := rng.UniformRangeVectors(500, 16)
	g := buildGraph(t, vectors)

	for _, q := range rng.UniformRangeVectors(20, 16) {
		res, err := g.Search(context.Background(), q, 25, 50)
		require.NoError(t, err)
		require.Len(t, res, 25)
		for i := 1; i < len(res); i++ {
			assert.LessOrEqual(t, res[i-1].Distance, res[i].Distance)
			if res[i-1].Distance == res[i].Distance {
				assert.Less(t, res[i-1].ID, res[i].ID)
			}
		}
	}
}

func TestSearch_DuplicateVectorsTieBreak(t *testing.T) {
	v := []float32{0.3, 0.4}
	g := buildGraph(t, [][]float32{v, v, v, v})

	res, err := g.Search(context.Background(), v, 4, 0)
	require.NoError(t, err)
	require.Len(t, res, 4)
	for i, r := range res {
		assert.Equal(t, uint32(i), r.ID)
	}
}

func TestInsert_Errors(t *testing.T) {
	g := newTestGraph(t, 2, 2)

	require.NoError(t, g.Insert(0, []float32{1, 0}))

	err := g.Insert(0, []float32{0, 1})
	var dupErr *ErrDuplicateID
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, uint32(0), dupErr.ID)

	err = g.Insert(2, []float32{0, 1})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	err = g.Insert(1, []float32{0, 1, 2})
	var dimErr *distance.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 2, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Actual)

	require.NoError(t, g.Insert(1, []float32{0, 1}))
	assert.Equal(t, 2, g.Len())
}

func TestInsert_CopiesVector(t *testing.T) {
	g := newTestGraph(t, 2, 1)
	v := []float32{1, 0}
	require.NoError(t, g.Insert(0, v))
	v[0] = 42

	stored, ok := g.Vector(0)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, stored)

	_, ok = g.Vector(1)
	assert.False(t, ok)
}

func TestDeterminism(t *testing.T) {
	vectors := testutil.NewRNG(7).UnitVectors(400, 12)

	g1 := buildGraph(t, vectors, func(o *Options) { o.M = 6; o.EfConstruction = 40; o.RandomSeed = 5 })
	g2 := buildGraph(t, vectors, func(o *Options) { o.M = 6; o.EfConstruction = 40; o.RandomSeed = 5 })

	ep1, top1, _ := g1.EntryPoint()
	ep2, top2, _ := g2.EntryPoint()
	assert.Equal(t, ep1, ep2)
	assert.Equal(t, top1, top2)
	assert.Equal(t, g1.RNGState(), g2.RNGState())

	for i := range vectors {
		id := uint32(i)
		require.Equal(t, g1.Level(id), g2.Level(id), "level of %d", id)
		for l := 0; l <= g1.Level(id); l++ {
			require.Equal(t, g1.Neighbors(id, l), g2.Neighbors(id, l), "links of %d on layer %d", id, l)
		}
	}

	q := testutil.NewRNG(8).UnitVector(12)
	r1, err := g1.Search(context.Background(), q, 10, 0)
	require.NoError(t, err)
	r2, err := g2.Search(context.Background(), q, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestDrawLevel_Distribution(t *testing.T) {
	g := newTestGraph(t, 2, 1, func(o *Options) { o.M = 16 })

	const draws = 20000
	above := 0
	for range draws {
		l := g.drawLevel(0)
		require.GreaterOrEqual(t, l, 0)
		require.LessOrEqual(t, l, maxLevelJump)
		if l > 0 {
			above++
		}
	}

	// P(level >= 1) = 1/M.
	assert.InDelta(t, 1.0/16, float64(above)/draws, 0.01)
}

func TestDrawLevel_Capped(t *testing.T) {
	g := newTestGraph(t, 2, 1, func(o *Options) { o.M = 2 })
	for range 5000 {
		assert.LessOrEqual(t, g.drawLevel(-1), maxLevelJump)
		assert.LessOrEqual(t, g.drawLevel(MaxLevel), MaxLevel)
	}
}

func TestSelectNeighbors_Heuristic(t *testing.T) {
	// Candidates 1 and 2 point the same way, so 2 is closer to 1 than to the
	// base point and gets rejected. Candidate 4 is redundant with 3.
	vectors := [][]float32{
		{1, 0},
		{2, 0.1},
		{2, 0.2},
		{0, -1},
		{0, -1.1},
	}
	g := buildGraph(t, vectors)

	base := vectors[0]
	var candidates []searcher.PriorityQueueItem
	for _, id := range []uint32{1, 2, 3, 4} {
		candidates = append(candidates, searcher.PriorityQueueItem{Node: id, Distance: g.dist(base, vectors[id])})
	}

	nodes := func(items []searcher.PriorityQueueItem) []uint32 {
		out := make([]uint32, len(items))
		for i, it := range items {
			out[i] = it.Node
		}
		return out
	}

	assert.Equal(t, []uint32{1, 3}, nodes(g.selectNeighbors(candidates, 2)))
	// Backfill takes the first rejected candidate.
	assert.Equal(t, []uint32{1, 3, 2}, nodes(g.selectNeighbors(candidates, 3)))
	// All candidates fit: returned unchanged.
	assert.Equal(t, []uint32{1, 2, 3, 4}, nodes(g.selectNeighbors(candidates, 4)))
}

func TestFillUpNeighbors(t *testing.T) {
	result := []searcher.PriorityQueueItem{{Node: 1}}
	discarded := []searcher.PriorityQueueItem{{Node: 2}, {Node: 3}, {Node: 4}}

	got := fillUpNeighbors(result, discarded, 3)
	assert.Equal(t, []searcher.PriorityQueueItem{{Node: 1}, {Node: 2}, {Node: 3}}, got)
}

func TestRecall(t *testing.T) {
	const (
		n   = 2000
		dim = 32
		k   = 10
	)
	rng := testutil.NewRNG(42)
	vectors := rng.UnitVectors(n, dim)
	queries := rng.UnitVectors(50, dim)

	g := buildGraph(t, vectors)
	require.NoError(t, g.Validate())

	recallAt := func(ef int) float64 {
		var total float64
		for _, q := range queries {
			res, err := g.Search(context.Background(), q, k, ef)
			require.NoError(t, err)
			total += testutil.ComputeRecall(testutil.BruteForceSearch(vectors, q, k), toTestutil(res))
		}
		return total / float64(len(queries))
	}

	low := recallAt(k)
	high := recallAt(200)
	t.Logf("recall@%d ef=%d: %.3f, ef=200: %.3f", k, k, low, high)

	assert.GreaterOrEqual(t, high, 0.95)
	assert.GreaterOrEqual(t, high, low)
}

func TestConcurrentInsert(t *testing.T) {
	const (
		n       = 3000
		dim     = 16
		workers = 8
	)
	vectors := testutil.NewRNG(3).UnitVectors(n, dim)
	g := newTestGraph(t, dim, n, func(o *Options) { o.M = 8; o.EfConstruction = 100 })

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < n; i += workers {
				if err := g.Insert(uint32(i), vectors[i]); err != nil {
					errCh <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	assert.Equal(t, n, g.Len())
	require.NoError(t, g.Validate())

	st := g.Stats()
	assert.GreaterOrEqual(t, float64(st.Reachable), 0.99*n)

	var total float64
	for _, q := range testutil.NewRNG(4).UnitVectors(30, dim) {
		res, err := g.Search(context.Background(), q, 10, 100)
		require.NoError(t, err)
		total += testutil.ComputeRecall(testutil.BruteForceSearch(vectors, q, 10), toTestutil(res))
	}
	assert.GreaterOrEqual(t, total/30, 0.9)
}

func TestConcurrentInsertAndSearch(t *testing.T) {
	const (
		n   = 1000
		dim = 8
	)
	vectors := testutil.NewRNG(5).UnitVectors(n, dim)
	g := newTestGraph(t, dim, n, func(o *Options) { o.M = 8; o.EfConstruction = 50 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var readers sync.WaitGroup
	readErr := make(chan error, 4)
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func(seed int64) {
			defer readers.Done()
			rng := testutil.NewRNG(seed)
			for ctx.Err() == nil {
				res, err := g.Search(context.Background(), rng.UnitVector(dim), 5, 20)
				if err != nil {
					readErr <- err
					return
				}
				for i := 1; i < len(res); i++ {
					if res[i].Distance < res[i-1].Distance {
						readErr <- fmt.Errorf("unordered results at %d", i)
						return
					}
				}
			}
		}(int64(r))
	}

	var writers sync.WaitGroup
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := w; i < n; i += 4 {
				assert.NoError(t, g.Insert(uint32(i), vectors[i]))
			}
		}(w)
	}
	writers.Wait()
	cancel()
	readers.Wait()
	close(readErr)

	for err := range readErr {
		require.NoError(t, err)
	}
	require.NoError(t, g.Validate())
}

func TestStats(t *testing.T) {
	empty := newTestGraph(t, 4, 10)
	st := empty.Stats()
	assert.Equal(t, 0, st.Points)
	assert.Equal(t, -1, st.EntryPoint)
	assert.Equal(t, -1, st.MaxLevel)
	assert.Empty(t, st.Levels)

	vectors := testutil.NewRNG(11).UnitVectors(300, 4)
	g := buildGraph(t, vectors, func(o *Options) { o.M = 4 })
	st = g.Stats()

	assert.Equal(t, 300, st.Points)
	assert.Equal(t, 300, st.Capacity)
	assert.Equal(t, 4, st.M)
	assert.Equal(t, 8, st.MaxM0)
	assert.Equal(t, st.MaxLevel+1, len(st.Levels))
	assert.Equal(t, 300, st.Levels[0].Nodes)
	assert.LessOrEqual(t, st.Levels[0].MaxConnections, 8)
	for _, ls := range st.Levels[1:] {
		assert.LessOrEqual(t, ls.MaxConnections, 4)
		assert.LessOrEqual(t, ls.Nodes, st.Levels[0].Nodes)
	}
	assert.Positive(t, st.Levels[0].AvgConnections)
	assert.Positive(t, st.Reachable)
}

func TestValidate_DetectsViolations(t *testing.T) {
	vectors := testutil.NewRNG(12).UnitVectors(50, 4)

	t.Run("SelfLink", func(t *testing.T) {
		g := buildGraph(t, vectors, func(o *Options) { o.M = 4 })
		g.getNode(3).setNeighbors(0, []uint32{3})
		assert.ErrorIs(t, g.Validate(), ErrInvalidGraph)
	})

	t.Run("DuplicateLink", func(t *testing.T) {
		g := buildGraph(t, vectors, func(o *Options) { o.M = 4 })
		g.getNode(3).setNeighbors(0, []uint32{1, 1})
		assert.ErrorIs(t, g.Validate(), ErrInvalidGraph)
	})

	t.Run("DegreeBound", func(t *testing.T) {
		g := buildGraph(t, vectors, func(o *Options) { o.M = 2 })
		g.getNode(3).setNeighbors(0, []uint32{0, 1, 2, 4, 5})
		assert.ErrorIs(t, g.Validate(), ErrInvalidGraph)
	})
}

func TestErrIDOutOfRange(t *testing.T) {
	err := error(&ErrIDOutOfRange{ID: 5, Capacity: 5})
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Contains(t, err.Error(), "capacity 5")
}

func BenchmarkInsert(b *testing.B) {
	const dim = 64
	vectors := testutil.NewRNG(1).UnitVectors(b.N, dim)
	g := newTestGraph(b, dim, max(b.N, 1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := g.Insert(uint32(i), vectors[i]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	const dim = 64
	rng := testutil.NewRNG(1)
	g := buildGraph(b, rng.UnitVectors(10000, dim))
	queries := rng.UnitVectors(100, dim)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.Search(context.Background(), queries[i%len(queries)], 10, 64); err != nil {
			b.Fatal(err)
		}
	}
}
