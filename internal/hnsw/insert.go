package hnsw

import (
	"slices"

	"github.com/hupe1980/annindex/distance"
	"github.com/hupe1980/annindex/internal/searcher"
)

// Insert adds vec to the graph under id. The vector is copied.
//
// Insert is safe for concurrent use with other inserts and with searches.
// Once the slot for id is claimed the insert always runs to completion.
func (g *Graph) Insert(id uint32, vec []float32) error {
	if len(vec) != g.dim {
		return &distance.ErrDimensionMismatch{Expected: g.dim, Actual: len(vec)}
	}
	if int(id) >= g.capacity {
		return &ErrIDOutOfRange{ID: id, Capacity: g.capacity}
	}

	// The first point starts on layer 0; later points draw their level.
	level := 0
	if ep := g.entry.Load(); ep != nil {
		level = g.drawLevel(ep.level)
	}

	n := newNode(slices.Clone(vec), level)
	if !g.slot(id).CompareAndSwap(nil, n) {
		return &ErrDuplicateID{ID: id}
	}

	g.insertNode(id, n)
	g.count.Add(1)
	return nil
}

func (g *Graph) insertNode(id uint32, n *node) {
	g.epMu.Lock()
	ep := g.entry.Load()

	if ep == nil {
		for l := 0; l <= n.level; l++ {
			n.setNeighbors(l, nil)
		}
		g.entry.Store(&entryPoint{id: id, level: n.level})
		g.epMu.Unlock()
		return
	}

	// Keep the entry point locked for the whole insert only when this point
	// becomes the new top.
	raisesTop := n.level > ep.level
	if !raisesTop {
		g.epMu.Unlock()
	} else {
		defer g.epMu.Unlock()
	}

	s := searcher.Get(g.Len() + 1)
	defer searcher.Put(s)

	cur := searcher.PriorityQueueItem{Node: ep.id, Distance: g.dist(n.vec, g.getNode(ep.id).vec)}
	if n.level < ep.level {
		cur = g.greedyDescent(n.vec, cur, ep.level, n.level)
	}

	for layer := min(n.level, ep.level); layer >= 0; layer-- {
		g.searchLayer(s, n.vec, cur, layer, g.efConstruction)
		s.Scratch = s.Results.DrainAscending(s.Scratch[:0])
		if len(s.Scratch) == 0 {
			continue
		}
		cur = s.Scratch[0]

		selected := g.selectNeighbors(s.Scratch, g.maxConns(layer))
		ids := make([]uint32, len(selected))
		for i, c := range selected {
			ids[i] = c.Node
		}

		// A concurrent insert that descended through this node may already
		// have linked itself here.
		mu := g.lockFor(id)
		mu.Lock()
		if existing := n.neighbors(layer); len(existing) > 0 {
			for _, e := range existing {
				if !slices.Contains(ids, e) {
					ids = append(ids, e)
				}
			}
			if len(ids) > g.maxConns(layer) {
				ids = g.prune(n, ids, g.maxConns(layer))
			}
		}
		n.setNeighbors(layer, ids)
		mu.Unlock()

		for _, nb := range ids {
			g.addConnection(nb, id, layer)
		}
	}

	if raisesTop {
		g.entry.Store(&entryPoint{id: id, level: n.level})
	}
}

// addConnection links source to target at layer, re-pruning source's list
// with the diversity heuristic when it would exceed the degree bound.
func (g *Graph) addConnection(source, target uint32, layer int) {
	src := g.getNode(source)
	if src == nil || layer > src.level {
		return
	}

	mu := g.lockFor(source)
	mu.Lock()
	defer mu.Unlock()

	conns := src.neighbors(layer)
	if slices.Contains(conns, target) {
		return
	}

	next := make([]uint32, len(conns), len(conns)+1)
	copy(next, conns)
	next = append(next, target)
	if maxM := g.maxConns(layer); len(next) > maxM {
		next = g.prune(src, next, maxM)
	}
	src.setNeighbors(layer, next)
}

// prune reduces ids to at most maxM entries chosen by the diversity
// heuristic relative to n.
func (g *Graph) prune(n *node, ids []uint32, maxM int) []uint32 {
	candidates := make([]searcher.PriorityQueueItem, 0, len(ids))
	for _, id := range ids {
		other := g.getNode(id)
		candidates = append(candidates, searcher.PriorityQueueItem{Node: id, Distance: g.dist(n.vec, other.vec)})
	}
	slices.SortFunc(candidates, compareItems)

	selected := g.selectNeighbors(candidates, maxM)
	out := make([]uint32, len(selected))
	for i, c := range selected {
		out[i] = c.Node
	}
	return out
}

func compareItems(a, b searcher.PriorityQueueItem) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
