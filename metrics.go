package annindex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// metrics/prommetrics for a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each sequential insert run.
	// count is the number of rows inserted.
	RecordInsert(count int, duration time.Duration, err error)

	// RecordBatchInsert is called after each parallel batch insert.
	// count is the number of rows attempted, failed the number not inserted.
	RecordBatchInsert(count, failed int, duration time.Duration)

	// RecordSearch is called after each k-NN query.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordSave is called after each serialization with the bytes written.
	RecordSave(bytes int64, duration time.Duration, err error)

	// RecordLoad is called after each deserialization with the bytes read.
	RecordLoad(bytes int64, duration time.Duration, err error)

	// RecordIndexSize reports the current number of indexed points.
	RecordIndexSize(points int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordBatchInsert(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordSave(int64, time.Duration, error)    {}
func (NoopMetricsCollector) RecordLoad(int64, time.Duration, error)    {}
func (NoopMetricsCollector) RecordIndexSize(int)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount       atomic.Int64
	InsertItems       atomic.Int64
	InsertErrors      atomic.Int64
	BatchInsertCount  atomic.Int64
	BatchInsertItems  atomic.Int64
	BatchInsertFailed atomic.Int64
	BatchInsertNanos  atomic.Int64
	SearchCount       atomic.Int64
	SearchErrors      atomic.Int64
	SearchTotalNanos  atomic.Int64
	SaveCount         atomic.Int64
	SaveBytes         atomic.Int64
	SaveErrors        atomic.Int64
	LoadCount         atomic.Int64
	LoadBytes         atomic.Int64
	LoadErrors        atomic.Int64
	IndexSize         atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(count int, _ time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertItems.Add(int64(count))
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordBatchInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchInsert(count, failed int, duration time.Duration) {
	b.BatchInsertCount.Add(1)
	b.BatchInsertItems.Add(int64(count))
	b.BatchInsertFailed.Add(int64(failed))
	b.BatchInsertNanos.Add(duration.Nanoseconds())
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(bytes int64, _ time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveBytes.Add(bytes)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(bytes int64, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadBytes.Add(bytes)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordIndexSize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndexSize(points int) {
	b.IndexSize.Store(int64(points))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:       b.InsertCount.Load(),
		InsertItems:       b.InsertItems.Load(),
		InsertErrors:      b.InsertErrors.Load(),
		BatchInsertCount:  b.BatchInsertCount.Load(),
		BatchInsertItems:  b.BatchInsertItems.Load(),
		BatchInsertFailed: b.BatchInsertFailed.Load(),
		SearchCount:       b.SearchCount.Load(),
		SearchErrors:      b.SearchErrors.Load(),
		SearchAvgNanos:    avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		SaveCount:         b.SaveCount.Load(),
		SaveBytes:         b.SaveBytes.Load(),
		SaveErrors:        b.SaveErrors.Load(),
		LoadCount:         b.LoadCount.Load(),
		LoadBytes:         b.LoadBytes.Load(),
		LoadErrors:        b.LoadErrors.Load(),
		IndexSize:         b.IndexSize.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount       int64
	InsertItems       int64
	InsertErrors      int64
	BatchInsertCount  int64
	BatchInsertItems  int64
	BatchInsertFailed int64
	SearchCount       int64
	SearchErrors      int64
	SearchAvgNanos    int64
	SaveCount         int64
	SaveBytes         int64
	SaveErrors        int64
	LoadCount         int64
	LoadBytes         int64
	LoadErrors        int64
	IndexSize         int64
}
