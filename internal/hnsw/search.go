package hnsw

import (
	"context"

	"github.com/hupe1980/annindex/distance"
	"github.com/hupe1980/annindex/internal/searcher"
)

// greedyDescent walks from ep down to layer target+1, moving to the closest
// neighbor on each layer until no neighbor improves on the current point.
func (g *Graph) greedyDescent(q []float32, ep searcher.PriorityQueueItem, top, target int) searcher.PriorityQueueItem {
	cur := ep
	for layer := top; layer > target; layer-- {
		for changed := true; changed; {
			changed = false
			for _, id := range g.getNode(cur.Node).neighbors(layer) {
				next := searcher.PriorityQueueItem{Node: id, Distance: g.dist(q, g.getNode(id).vec)}
				if next.Less(cur) {
					cur = next
					changed = true
				}
			}
		}
	}
	return cur
}

// searchLayer runs a beam search on layer starting at ep. On return
// s.Results holds up to ef closest points in a max-heap.
func (g *Graph) searchLayer(s *searcher.Searcher, q []float32, ep searcher.PriorityQueueItem, layer, ef int) {
	s.Visited.Reset()
	s.Results.Reset()
	s.Candidates.Reset()

	s.Visited.Visit(ep.Node)
	s.Candidates.PushItem(ep)
	s.Results.PushItem(ep)

	for s.Candidates.Len() > 0 {
		c, _ := s.Candidates.PopItem()
		worst, _ := s.Results.TopItem()
		if c.Distance > worst.Distance {
			break
		}

		s.Neighbors = append(s.Neighbors[:0], g.getNode(c.Node).neighbors(layer)...)
		for _, id := range s.Neighbors {
			if !s.Visited.Visit(id) {
				continue
			}
			item := searcher.PriorityQueueItem{Node: id, Distance: g.dist(q, g.getNode(id).vec)}

			worst, _ = s.Results.TopItem()
			if s.Results.Len() < ef || item.Less(worst) {
				s.Candidates.PushItem(item)
				s.Results.PushItemBounded(item, ef)
			}
		}
	}
}

// Search returns up to k points closest to q ordered by ascending distance,
// ties broken by lower id. The candidate list size is max(ef, k); ef <= 0
// uses the graph's configured value.
func (g *Graph) Search(ctx context.Context, q []float32, k, ef int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(q) != g.dim {
		return nil, &distance.ErrDimensionMismatch{Expected: g.dim, Actual: len(q)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ep := g.entry.Load()
	if ep == nil {
		return []SearchResult{}, nil
	}
	if ef <= 0 {
		ef = g.Ef()
	}
	ef = max(ef, k)

	s := searcher.Get(g.Len())
	defer searcher.Put(s)

	cur := searcher.PriorityQueueItem{Node: ep.id, Distance: g.dist(q, g.getNode(ep.id).vec)}
	cur = g.greedyDescent(q, cur, ep.level, 0)

	g.searchLayer(s, q, cur, 0, ef)
	s.Scratch = s.Results.DrainAscending(s.Scratch[:0])

	n := min(k, len(s.Scratch))
	results := make([]SearchResult, n)
	for i := range results {
		results[i] = SearchResult{ID: s.Scratch[i].Node, Distance: s.Scratch[i].Distance}
	}
	return results, nil
}
