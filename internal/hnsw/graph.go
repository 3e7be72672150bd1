package hnsw

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/annindex/distance"
)

const (
	// mmax0Multiplier is the multiplier for calculating maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// DefaultM is the default number of bidirectional links.
	DefaultM = 16

	// DefaultEfConstruction is the default construction candidate list size.
	DefaultEfConstruction = 200

	// DefaultEf is the default search candidate list size.
	DefaultEf = 10

	// DefaultRandomSeed seeds the layer generator when none is given.
	DefaultRandomSeed = 100

	// MaxLevel is the highest layer a point can be assigned.
	MaxLevel = 64

	// maxLevelJump caps how far one insert can raise the top layer.
	maxLevelJump = 16

	lockShards = 1024

	nodeSegmentBits = 12
	nodeSegmentSize = 1 << nodeSegmentBits
	nodeSegmentMask = nodeSegmentSize - 1
)

// Options represents the options for configuring a Graph.
type Options struct {
	Dimension      int
	MaxElements    int
	M              int
	EfConstruction int
	Ef             int
	RandomSeed     int64
}

// DefaultOptions contains the default options for a Graph.
var DefaultOptions = Options{
	M:              DefaultM,
	EfConstruction: DefaultEfConstruction,
	Ef:             DefaultEf,
	RandomSeed:     DefaultRandomSeed,
}

type node struct {
	level int
	vec   []float32
	// links holds one copy-on-write adjacency list per layer 0..level.
	links []atomic.Pointer[[]uint32]
}

func newNode(vec []float32, level int) *node {
	return &node{
		level: level,
		vec:   vec,
		links: make([]atomic.Pointer[[]uint32], level+1),
	}
}

// neighbors returns the adjacency list at layer. The slice must not be modified.
func (n *node) neighbors(layer int) []uint32 {
	if layer > n.level {
		return nil
	}
	if p := n.links[layer].Load(); p != nil {
		return *p
	}
	return nil
}

func (n *node) setNeighbors(layer int, ids []uint32) {
	n.links[layer].Store(&ids)
}

type nodeSegment [nodeSegmentSize]atomic.Pointer[node]

// entryPoint is published as a unit so readers never see an id paired with
// another node's level.
type entryPoint struct {
	id    uint32
	level int
}

// Graph is a Hierarchical Navigable Small World graph over fixed-dimension
// vectors. Point ids are dense in [0, MaxElements).
type Graph struct {
	dim            int
	capacity       int
	m              int
	mMax0          int
	efConstruction int
	randomSeed     int64
	layerMult      float64
	distFunc       distance.Func

	ef    atomic.Int64
	rng   atomic.Uint64
	count atomic.Int64

	entry atomic.Pointer[entryPoint]
	// epMu serializes updates of entry.
	epMu sync.Mutex

	// segments is sized for capacity up front; individual segments are
	// allocated on first use.
	segments []atomic.Pointer[nodeSegment]
	segMu    sync.Mutex

	locks [lockShards]sync.Mutex
}

// New creates an empty graph.
func New(optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	space, err := distance.NewInnerProductSpace(opts.Dimension)
	if err != nil {
		return nil, err
	}
	if opts.MaxElements <= 0 || opts.MaxElements > math.MaxInt32 {
		return nil, ErrInvalidCapacity
	}
	if opts.M < minimumM {
		return nil, ErrInvalidM
	}
	if opts.EfConstruction < 1 || opts.Ef < 1 {
		return nil, ErrInvalidEf
	}
	// The seed is persisted as int32.
	if opts.RandomSeed < math.MinInt32 || opts.RandomSeed > math.MaxInt32 {
		return nil, ErrInvalidSeed
	}

	g := &Graph{
		dim:            opts.Dimension,
		capacity:       opts.MaxElements,
		m:              opts.M,
		mMax0:          opts.M * mmax0Multiplier,
		efConstruction: opts.EfConstruction,
		randomSeed:     opts.RandomSeed,
		layerMult:      1 / math.Log(float64(opts.M)),
		distFunc:       space.Func(),
		segments:       make([]atomic.Pointer[nodeSegment], (opts.MaxElements+nodeSegmentMask)>>nodeSegmentBits),
	}
	g.ef.Store(int64(opts.Ef))
	g.rng.Store(uint64(opts.RandomSeed))

	return g, nil
}

// Dimension returns the vector dimension.
func (g *Graph) Dimension() int { return g.dim }

// Capacity returns the maximum number of points.
func (g *Graph) Capacity() int { return g.capacity }

// M returns the upper-layer degree bound.
func (g *Graph) M() int { return g.m }

// EfConstruction returns the construction candidate list size.
func (g *Graph) EfConstruction() int { return g.efConstruction }

// RandomSeed returns the seed the layer generator was created with.
func (g *Graph) RandomSeed() int64 { return g.randomSeed }

// Len returns the number of fully inserted points.
func (g *Graph) Len() int { return int(g.count.Load()) }

// Ef returns the search candidate list size.
func (g *Graph) Ef() int { return int(g.ef.Load()) }

// SetEf changes the search candidate list size.
func (g *Graph) SetEf(ef int) error {
	if ef < 1 {
		return ErrInvalidEf
	}
	g.ef.Store(int64(ef))
	return nil
}

// EntryPoint returns the entry point id and the top layer, or ok=false for
// an empty graph.
func (g *Graph) EntryPoint() (id uint32, level int, ok bool) {
	ep := g.entry.Load()
	if ep == nil {
		return 0, -1, false
	}
	return ep.id, ep.level, true
}

// Vector returns the stored vector for id. The slice must not be modified.
func (g *Graph) Vector(id uint32) ([]float32, bool) {
	n := g.getNode(id)
	if n == nil {
		return nil, false
	}
	return n.vec, true
}

// Neighbors returns a copy of id's adjacency list at layer.
func (g *Graph) Neighbors(id uint32, layer int) []uint32 {
	n := g.getNode(id)
	if n == nil {
		return nil
	}
	return append([]uint32(nil), n.neighbors(layer)...)
}

// Level returns the top layer of id, or -1 if id is not present.
func (g *Graph) Level(id uint32) int {
	n := g.getNode(id)
	if n == nil {
		return -1
	}
	return n.level
}

func (g *Graph) maxConns(layer int) int {
	if layer == 0 {
		return g.mMax0
	}
	return g.m
}

func (g *Graph) lockFor(id uint32) *sync.Mutex {
	return &g.locks[id%lockShards]
}

func (g *Graph) getNode(id uint32) *node {
	idx := int(id >> nodeSegmentBits)
	if idx >= len(g.segments) {
		return nil
	}
	seg := g.segments[idx].Load()
	if seg == nil {
		return nil
	}
	return seg[id&nodeSegmentMask].Load()
}

// slot returns the storage cell for id, allocating its segment on first use.
func (g *Graph) slot(id uint32) *atomic.Pointer[node] {
	idx := int(id >> nodeSegmentBits)
	seg := g.segments[idx].Load()
	if seg == nil {
		g.segMu.Lock()
		if seg = g.segments[idx].Load(); seg == nil {
			seg = new(nodeSegment)
			g.segments[idx].Store(seg)
		}
		g.segMu.Unlock()
	}
	return &seg[id&nodeSegmentMask]
}

// drawLevel samples floor(-ln(u) / ln(M)) using a lock-free xorshift64*
// step over a Weyl sequence, so the draw order alone determines levels.
func (g *Graph) drawLevel(top int) int {
	seed := g.rng.Add(0x9E3779B97F4A7C15)
	seed ^= seed >> 12
	seed ^= seed << 25
	seed ^= seed >> 27
	r := float64((seed*0x2545F4914F6CDD1D)>>11) / float64(1<<53)

	level := int(-math.Log(1-r) * g.layerMult)
	return min(level, max(top, 0)+maxLevelJump, MaxLevel)
}

// RNGState returns the layer generator state.
func (g *Graph) RNGState() uint64 { return g.rng.Load() }

func (g *Graph) dist(a, b []float32) float32 {
	return g.distFunc(a, b)
}
