package annindex

import (
	"runtime"

	"github.com/hupe1980/annindex/internal/hnsw"
)

// Options configures an Index.
type Options struct {
	// M is the maximum number of links per point on upper layers; layer 0
	// allows 2*M. Must be at least 2.
	M int

	// EfConstruction is the candidate list size used while inserting.
	EfConstruction int

	// Ef is the candidate list size used while querying. The effective value
	// is max(Ef, k). It can be changed later with SetEf.
	Ef int

	// RandomSeed seeds the layer assignment generator.
	RandomSeed int64

	// Workers bounds the goroutines used by AddItems and KNNQueryBatch.
	Workers int

	Logger  *Logger
	Metrics MetricsCollector
}

// DefaultOptions contains the default options for an Index.
var DefaultOptions = Options{
	M:              hnsw.DefaultM,
	EfConstruction: hnsw.DefaultEfConstruction,
	Ef:             hnsw.DefaultEf,
	RandomSeed:     hnsw.DefaultRandomSeed,
}

// Option configures New, Load and their variants.
type Option func(*Options)

func applyOptions(opts []Option) Options {
	o := DefaultOptions
	o.Workers = runtime.GOMAXPROCS(0)
	for _, fn := range opts {
		fn(&o)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = NoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetricsCollector{}
	}
	return o
}

// WithM sets the maximum number of links per point.
func WithM(m int) Option {
	return func(o *Options) { o.M = m }
}

// WithEfConstruction sets the construction candidate list size.
func WithEfConstruction(ef int) Option {
	return func(o *Options) { o.EfConstruction = ef }
}

// WithEf sets the initial query candidate list size.
func WithEf(ef int) Option {
	return func(o *Options) { o.Ef = ef }
}

// WithRandomSeed sets the layer assignment seed.
func WithRandomSeed(seed int64) Option {
	return func(o *Options) { o.RandomSeed = seed }
}

// WithWorkers bounds the parallelism of AddItems and KNNQueryBatch.
// A value of 1 makes AddItems single-threaded and reproducible.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithLogger sets the logger. If nil, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetricsCollector sets the metrics collector. If nil, metrics are disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *Options) { o.Metrics = mc }
}
