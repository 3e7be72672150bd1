package hnsw

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrInvalidGraph is wrapped by every structural violation found by Validate.
var ErrInvalidGraph = errors.New("invalid graph")

// Stats returns statistics about the graph. It reads a live graph, so
// counts taken during concurrent inserts are approximate.
func (g *Graph) Stats() Stats {
	st := Stats{
		Points:     g.Len(),
		Capacity:   g.capacity,
		EntryPoint: -1,
		MaxLevel:   -1,
		M:          g.m,
		MaxM0:      g.mMax0,
		Ef:         g.Ef(),
	}

	ep := g.entry.Load()
	if ep == nil {
		return st
	}
	st.EntryPoint = int(ep.id)
	st.MaxLevel = ep.level

	st.Levels = make([]LevelStats, ep.level+1)
	for l := range st.Levels {
		st.Levels[l].Level = l
	}

	g.forEachNode(func(_ uint32, n *node) {
		for l := 0; l <= n.level && l < len(st.Levels); l++ {
			deg := len(n.neighbors(l))
			ls := &st.Levels[l]
			ls.Nodes++
			ls.Connections += deg
			ls.MaxConnections = max(ls.MaxConnections, deg)
		}
	})
	for l := range st.Levels {
		if st.Levels[l].Nodes > 0 {
			st.Levels[l].AvgConnections = float64(st.Levels[l].Connections) / float64(st.Levels[l].Nodes)
		}
	}

	st.Reachable = int(g.reachable(ep.id).GetCardinality())
	return st
}

// Validate checks the structural invariants of a quiescent graph: every
// point below Len is present, adjacency lists respect the degree bounds,
// hold no self or duplicate links, reference only present points that live
// on that layer, and the entry point sits on the highest layer.
func (g *Graph) Validate() error {
	count := g.Len()
	ep := g.entry.Load()

	if count == 0 {
		if ep != nil {
			return fmt.Errorf("%w: empty graph has entry point %d", ErrInvalidGraph, ep.id)
		}
		return nil
	}
	if ep == nil {
		return fmt.Errorf("%w: %d points but no entry point", ErrInvalidGraph, count)
	}
	if epNode := g.getNode(ep.id); epNode == nil || epNode.level != ep.level {
		return fmt.Errorf("%w: entry point %d is not on layer %d", ErrInvalidGraph, ep.id, ep.level)
	}

	seen := roaring.New()
	for i := 0; i < count; i++ {
		id := uint32(i)
		n := g.getNode(id)
		if n == nil {
			return fmt.Errorf("%w: point %d missing", ErrInvalidGraph, id)
		}
		if n.level > ep.level {
			return fmt.Errorf("%w: point %d on layer %d above entry layer %d", ErrInvalidGraph, id, n.level, ep.level)
		}

		for l := 0; l <= n.level; l++ {
			ids := n.neighbors(l)
			if len(ids) > g.maxConns(l) {
				return fmt.Errorf("%w: point %d layer %d has %d links, max %d", ErrInvalidGraph, id, l, len(ids), g.maxConns(l))
			}

			seen.Clear()
			for _, nb := range ids {
				switch other := g.getNode(nb); {
				case nb == id:
					return fmt.Errorf("%w: point %d links to itself on layer %d", ErrInvalidGraph, id, l)
				case int(nb) >= count || other == nil:
					return fmt.Errorf("%w: point %d layer %d links to missing point %d", ErrInvalidGraph, id, l, nb)
				case other.level < l:
					return fmt.Errorf("%w: point %d layer %d links to %d which tops out at layer %d", ErrInvalidGraph, id, l, nb, other.level)
				case !seen.CheckedAdd(nb):
					return fmt.Errorf("%w: point %d layer %d links to %d twice", ErrInvalidGraph, id, l, nb)
				}
			}
		}
	}
	return nil
}

// reachable returns the set of points reachable from start on layer 0.
func (g *Graph) reachable(start uint32) *roaring.Bitmap {
	visited := roaring.New()
	visited.Add(start)

	queue := []uint32{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		n := g.getNode(id)
		if n == nil {
			continue
		}
		for _, nb := range n.neighbors(0) {
			if visited.CheckedAdd(nb) {
				queue = append(queue, nb)
			}
		}
	}
	return visited
}

func (g *Graph) forEachNode(fn func(id uint32, n *node)) {
	for idx := range g.segments {
		seg := g.segments[idx].Load()
		if seg == nil {
			continue
		}
		for j := range seg {
			if n := seg[j].Load(); n != nil {
				fn(uint32(idx<<nodeSegmentBits|j), n)
			}
		}
	}
}
