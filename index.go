package annindex

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/annindex/distance"
	"github.com/hupe1980/annindex/internal/conv"
	"github.com/hupe1980/annindex/internal/hnsw"
	"github.com/hupe1980/annindex/persistence"
)

// Neighbor is a single k-NN query result.
type Neighbor struct {
	// Label is the row index the point was inserted under.
	Label uint32
	// Distance is 1 - <query, point>. Smaller is closer.
	Distance float32
}

// Similarity returns the inner product the distance was derived from.
func (n Neighbor) Similarity() float32 {
	return distance.SimilarityFromDistance(n.Distance)
}

// Stats describes the shape of an index graph.
type Stats = hnsw.Stats

// LevelStats describes one layer of an index graph.
type LevelStats = hnsw.LevelStats

// Index is an approximate nearest-neighbor index over inner-product distance.
//
// Queries are safe to run concurrently with each other and with AddItems.
// AddItems, AddItemsSequential and Save serialize against each other.
type Index struct {
	graph   *hnsw.Graph
	workers int
	logger  *Logger
	metrics MetricsCollector

	writeMu sync.Mutex
}

// New creates an empty index for vectors of length dim holding at most
// maxElements points.
func New(dim, maxElements int, opts ...Option) (*Index, error) {
	o := applyOptions(opts)

	graph, err := hnsw.New(func(g *hnsw.Options) {
		g.Dimension = dim
		g.MaxElements = maxElements
		g.M = o.M
		g.EfConstruction = o.EfConstruction
		g.Ef = o.Ef
		g.RandomSeed = o.RandomSeed
	})
	if err != nil {
		return nil, err
	}

	return newIndex(graph, o), nil
}

func newIndex(graph *hnsw.Graph, o Options) *Index {
	return &Index{
		graph:   graph,
		workers: o.Workers,
		logger:  o.Logger.WithDimension(graph.Dimension()),
		metrics: o.Metrics,
	}
}

// Dim returns the vector dimension.
func (idx *Index) Dim() int { return idx.graph.Dimension() }

// Capacity returns the maximum number of points.
func (idx *Index) Capacity() int { return idx.graph.Capacity() }

// Len returns the number of inserted points.
func (idx *Index) Len() int { return idx.graph.Len() }

// Ef returns the current query candidate list size.
func (idx *Index) Ef() int { return idx.graph.Ef() }

// SetEf changes the query candidate list size for subsequent queries.
func (idx *Index) SetEf(ef int) error { return idx.graph.SetEf(ef) }

// Config returns the configuration the index was built with.
func (idx *Index) Config() Config {
	return Config{
		Dim:            idx.graph.Dimension(),
		MaxElements:    idx.graph.Capacity(),
		M:              idx.graph.M(),
		EfConstruction: idx.graph.EfConstruction(),
		Ef:             idx.graph.Ef(),
		RandomSeed:     idx.graph.RandomSeed(),
		Workers:        idx.workers,
	}
}

// Stats returns graph statistics.
func (idx *Index) Stats() Stats { return idx.graph.Stats() }

// Validate checks the structural invariants of the graph.
func (idx *Index) Validate() error { return idx.graph.Validate() }

// AddItems inserts every row of m in parallel. Row i receives label
// Len()+i, so a fresh index labels rows 0..Rows-1.
//
// The whole batch must fit: if Len()+Rows exceeds the capacity nothing is
// inserted and a *CapacityError is returned. Cancelling ctx stops scheduling
// further rows; rows already started are completed, so the inserted labels
// always form a prefix of the batch.
func (idx *Index) AddItems(ctx context.Context, m Matrix) error {
	return idx.addItems(ctx, m, idx.workers)
}

// AddItemsSequential inserts the rows of m one by one on the calling
// goroutine. With a fixed seed the resulting graph is reproducible.
func (idx *Index) AddItemsSequential(ctx context.Context, m Matrix) error {
	return idx.addItems(ctx, m, 1)
}

func (idx *Index) addItems(ctx context.Context, m Matrix, workers int) error {
	if err := m.validate(idx.Dim()); err != nil {
		return err
	}
	if m.Rows == 0 {
		return nil
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	start := time.Now()
	base := idx.graph.Len()

	if base+m.Rows > idx.graph.Capacity() {
		err := &CapacityError{Capacity: idx.graph.Capacity(), Requested: base + m.Rows}
		idx.logger.LogBatchInsert(ctx, m.Rows, m.Rows, err)
		idx.metrics.RecordBatchInsert(m.Rows, m.Rows, time.Since(start))
		return err
	}

	inserted, err := idx.insertRows(ctx, m, uint32(base), workers)

	failed := m.Rows - inserted
	if err == nil && failed > 0 {
		err = ctx.Err()
	}
	if err != nil {
		err = fmt.Errorf("add items: %w", err)
	}

	if workers == 1 {
		idx.logger.LogInsert(ctx, uint32(base), inserted, err)
		idx.metrics.RecordInsert(inserted, time.Since(start), err)
	} else {
		idx.logger.LogBatchInsert(ctx, m.Rows, failed, err)
		idx.metrics.RecordBatchInsert(m.Rows, failed, time.Since(start))
	}
	idx.metrics.RecordIndexSize(idx.graph.Len())

	return err
}

// insertRows inserts rows in order until ctx is done and returns how many
// were inserted successfully. Started inserts always complete.
func (idx *Index) insertRows(ctx context.Context, m Matrix, base uint32, workers int) (int, error) {
	if workers <= 1 {
		for i := 0; i < m.Rows; i++ {
			if ctx.Err() != nil {
				return i, nil
			}
			if err := idx.graph.Insert(base+uint32(i), m.Row(i)); err != nil {
				return i, err
			}
		}
		return m.Rows, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var inserted atomic.Int64
	for i := 0; i < m.Rows; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := idx.graph.Insert(base+uint32(i), m.Row(i)); err != nil {
				return err
			}
			inserted.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return int(inserted.Load()), err
}

// KNNQuery returns up to k neighbors of vec ordered by ascending distance,
// ties broken by ascending label. An empty index yields an empty result.
func (idx *Index) KNNQuery(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	start := time.Now()

	res, err := idx.graph.Search(ctx, vec, k, 0)
	if err != nil {
		idx.logger.LogSearch(ctx, k, 0, err)
		idx.metrics.RecordSearch(k, time.Since(start), err)
		return nil, err
	}

	out := make([]Neighbor, len(res))
	for i, r := range res {
		out[i] = Neighbor{Label: r.ID, Distance: r.Distance}
	}

	idx.logger.LogSearch(ctx, k, len(out), nil)
	idx.metrics.RecordSearch(k, time.Since(start), nil)

	return out, nil
}

// KNNQueryBatch runs KNNQuery for every row of queries in parallel. Result i
// belongs to row i.
func (idx *Index) KNNQueryBatch(ctx context.Context, queries Matrix, k int) ([][]Neighbor, error) {
	if err := queries.validate(idx.Dim()); err != nil {
		return nil, err
	}

	results := make([][]Neighbor, queries.Rows)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for i := 0; i < queries.Rows; i++ {
		g.Go(func() error {
			res, err := idx.KNNQuery(gctx, queries.Row(i), k)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Save writes the index to w as five little-endian int32 values (dim,
// maxElements, M, efConstruction, randomSeed) followed by the graph payload.
// The stream carries no magic number or checksum so it can be embedded in a
// larger file. Save returns the number of bytes written.
func (idx *Index) Save(w io.Writer) (int64, error) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	start := time.Now()
	buf := bufio.NewWriterSize(w, saveBufferSize)
	bw := persistence.NewWriter(buf)

	err := idx.save(bw)
	if err == nil {
		err = buf.Flush()
	}
	if err != nil {
		err = fmt.Errorf("save index: %w", err)
	}

	idx.logger.LogSave(context.Background(), "stream", bw.BytesWritten(), err)
	idx.metrics.RecordSave(bw.BytesWritten(), time.Since(start), err)

	return bw.BytesWritten(), err
}

const saveBufferSize = 64 << 10

func (idx *Index) save(bw *persistence.Writer) error {
	header := []int{idx.graph.Dimension(), idx.graph.Capacity(), idx.graph.M(), idx.graph.EfConstruction(), int(idx.graph.RandomSeed())}
	for _, v := range header {
		v32, err := conv.IntToInt32(v)
		if err != nil {
			return err
		}
		if err := bw.WriteInt32(v32); err != nil {
			return err
		}
	}

	return idx.graph.WritePayload(bw)
}

// Load reads an index written by Save. The stream is validated: malformed
// parameters or graph structure fail with persistence.ErrCorrupt and short
// input with persistence.ErrTruncated. Graph parameters come from the
// stream; opts only supply workers, logger and metrics.
func Load(r io.Reader, opts ...Option) (*Index, error) {
	return load(r, "stream", opts)
}

func load(r io.Reader, source string, opts []Option) (*Index, error) {
	o := applyOptions(opts)
	start := time.Now()
	br := persistence.NewReader(r)

	idx, err := readIndex(br, o)
	if err != nil {
		err = fmt.Errorf("load index: %w", err)
		o.Logger.LogLoad(context.Background(), source, 0, err)
		o.Metrics.RecordLoad(br.BytesRead(), time.Since(start), err)
		return nil, err
	}

	idx.logger.LogLoad(context.Background(), source, idx.Len(), nil)
	idx.metrics.RecordLoad(br.BytesRead(), time.Since(start), nil)
	idx.metrics.RecordIndexSize(idx.Len())

	return idx, nil
}

func readIndex(br *persistence.Reader, o Options) (*Index, error) {
	var header [5]int32
	for i := range header {
		v, err := br.ReadInt32()
		if err != nil {
			return nil, err
		}
		header[i] = v
	}

	graph, err := hnsw.New(func(g *hnsw.Options) {
		g.Dimension = int(header[0])
		g.MaxElements = int(header[1])
		g.M = int(header[2])
		g.EfConstruction = int(header[3])
		g.RandomSeed = int64(header[4])
	})
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", persistence.ErrCorrupt, err)
	}

	if err := graph.ReadPayload(br); err != nil {
		return nil, err
	}

	return newIndex(graph, o), nil
}
