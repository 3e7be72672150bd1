package hnsw

import "github.com/hupe1980/annindex/internal/searcher"

// selectNeighbors picks up to m neighbors from candidates, which must be
// sorted closest first. A candidate is accepted only if it is at least as
// close to the base point as to every neighbor accepted before it. Remaining
// slots are backfilled with the rejected candidates in order.
func (g *Graph) selectNeighbors(candidates []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	if len(candidates) <= m {
		return candidates
	}

	result := make([]searcher.PriorityQueueItem, 0, m)
	discarded := make([]searcher.PriorityQueueItem, 0, len(candidates))

	for _, c := range candidates {
		if len(result) >= m {
			break
		}
		cv := g.getNode(c.Node).vec

		good := true
		for _, r := range result {
			if g.dist(cv, g.getNode(r.Node).vec) < c.Distance {
				good = false
				break
			}
		}

		if good {
			result = append(result, c)
		} else {
			discarded = append(discarded, c)
		}
	}

	return fillUpNeighbors(result, discarded, m)
}

// fillUpNeighbors tops result up to m entries from discarded.
func fillUpNeighbors(result, discarded []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	for _, c := range discarded {
		if len(result) >= m {
			break
		}
		result = append(result, c)
	}
	return result
}
