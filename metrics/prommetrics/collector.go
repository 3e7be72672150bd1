// Package prommetrics exports index metrics to Prometheus.
package prommetrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/annindex"
)

var _ annindex.MetricsCollector = (*Collector)(nil)

var errBatchFailed = errors.New("batch insert incomplete")

// Collector implements annindex.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency    *prometheus.HistogramVec
	ops          *prometheus.CounterVec
	items        *prometheus.CounterVec
	failedItems  prometheus.Counter
	bytes        *prometheus.CounterVec
	indexedItems prometheus.Gauge
}

// New creates a Collector and registers its metrics with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of index operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total index operations",
		}, []string{"op", "status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inserted_items_total",
			Help:      "Total rows inserted",
		}, []string{"mode"}),
		failedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_items_total",
			Help:      "Total rows of batch inserts that were not inserted",
		}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persisted_bytes_total",
			Help:      "Total bytes written by save or read by load",
		}, []string{"op"}),
		indexedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_items",
			Help:      "Current number of indexed points",
		}),
	}

	reg.MustRegister(c.opLatency, c.ops, c.items, c.failedItems, c.bytes, c.indexedItems)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordInsert implements annindex.MetricsCollector.
func (c *Collector) RecordInsert(count int, d time.Duration, err error) {
	c.observe("insert", d, err)
	c.items.WithLabelValues("sequential").Add(float64(count))
}

// RecordBatchInsert implements annindex.MetricsCollector.
func (c *Collector) RecordBatchInsert(count, failed int, d time.Duration) {
	var err error
	if failed > 0 {
		err = errBatchFailed
	}
	c.observe("batch_insert", d, err)
	c.items.WithLabelValues("batch").Add(float64(count - failed))
	c.failedItems.Add(float64(failed))
}

// RecordSearch implements annindex.MetricsCollector.
func (c *Collector) RecordSearch(_ int, d time.Duration, err error) {
	c.observe("search", d, err)
}

// RecordSave implements annindex.MetricsCollector.
func (c *Collector) RecordSave(bytes int64, d time.Duration, err error) {
	c.observe("save", d, err)
	c.bytes.WithLabelValues("save").Add(float64(bytes))
}

// RecordLoad implements annindex.MetricsCollector.
func (c *Collector) RecordLoad(bytes int64, d time.Duration, err error) {
	c.observe("load", d, err)
	c.bytes.WithLabelValues("load").Add(float64(bytes))
}

// RecordIndexSize implements annindex.MetricsCollector.
func (c *Collector) RecordIndexSize(points int) {
	c.indexedItems.Set(float64(points))
}
