package annindex

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is a declarative index configuration, loadable from YAML:
//
//	dim: 128
//	max_elements: 100000
//	m: 16
//	ef_construction: 200
//	ef: 64
//	random_seed: 100
//	workers: 8
type Config struct {
	Dim            int   `yaml:"dim"`
	MaxElements    int   `yaml:"max_elements"`
	M              int   `yaml:"m"`
	EfConstruction int   `yaml:"ef_construction"`
	Ef             int   `yaml:"ef"`
	RandomSeed     int64 `yaml:"random_seed"`
	Workers        int   `yaml:"workers,omitempty"`
}

// DefaultConfig returns a Config with the default graph parameters and no
// dimension or capacity set.
func DefaultConfig() Config {
	return Config{
		M:              DefaultOptions.M,
		EfConstruction: DefaultOptions.EfConstruction,
		Ef:             DefaultOptions.Ef,
		RandomSeed:     DefaultOptions.RandomSeed,
	}
}

type configOptions struct {
	expandEnv bool
}

// ConfigOption configures LoadConfig and LoadConfigFile.
type ConfigOption func(*configOptions)

// WithEnvExpansion replaces ${VAR} and $VAR references in the document with
// the values of the process environment before decoding. Unset variables
// expand to the empty string. Expansion is off by default.
func WithEnvExpansion() ConfigOption {
	return func(o *configOptions) {
		o.expandEnv = true
	}
}

// LoadConfig decodes YAML from r on top of DefaultConfig using strict
// parsing, so unknown keys are rejected. The document is used verbatim
// unless WithEnvExpansion is given.
func LoadConfig(r io.Reader, opts ...ConfigOption) (Config, error) {
	cfg := DefaultConfig()

	var o configOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	doc := string(data)
	if o.expandEnv {
		doc = os.ExpandEnv(doc)
	}

	decoder := yaml.NewDecoder(strings.NewReader(doc))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("YAML syntax error in index config: %w", err)
	}

	return cfg, cfg.Validate()
}

// LoadConfigFile reads a YAML config from path.
func LoadConfigFile(path string, opts ...ConfigOption) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to open index config: %w", err)
	}
	defer f.Close()

	return LoadConfig(f, opts...)
}

// Validate checks the configuration without allocating an index.
func (c Config) Validate() error {
	switch {
	case c.Dim <= 0:
		return &ErrInvalidDimension{Dimension: c.Dim}
	case c.MaxElements <= 0:
		return ErrInvalidCapacity
	case c.M < 2:
		return ErrInvalidM
	case c.EfConstruction < 1 || c.Ef < 1:
		return ErrInvalidEf
	case c.RandomSeed < math.MinInt32 || c.RandomSeed > math.MaxInt32:
		return ErrInvalidSeed
	}
	return nil
}

// Options converts c into index options. Extra options are applied after.
func (c Config) Options(extra ...Option) []Option {
	opts := []Option{
		WithM(c.M),
		WithEfConstruction(c.EfConstruction),
		WithEf(c.Ef),
		WithRandomSeed(c.RandomSeed),
	}
	if c.Workers > 0 {
		opts = append(opts, WithWorkers(c.Workers))
	}
	return append(opts, extra...)
}

// NewFromConfig creates an empty index from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(cfg.Dim, cfg.MaxElements, cfg.Options(opts...)...)
}
