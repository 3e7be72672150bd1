package hnsw

import (
	"fmt"

	"github.com/hupe1980/annindex/internal/conv"
	"github.com/hupe1980/annindex/persistence"
)

// WritePayload serializes the graph:
//
//	int32 count, int32 entryPoint (-1 if empty), int32 maxLevel (-1 if empty),
//	int32 ef, uint64 rngState, then per point 0..count-1:
//	int32 level, float32[dim] vector, per layer 0..level: int32 n, int32[n] ids.
//
// Callers must not insert concurrently.
func (g *Graph) WritePayload(w *persistence.Writer) error {
	count := g.Len()
	count32, err := conv.IntToInt32(count)
	if err != nil {
		return err
	}
	ef32, err := conv.IntToInt32(g.Ef())
	if err != nil {
		return err
	}

	epID, maxLevel := int32(-1), int32(-1)
	if ep := g.entry.Load(); ep != nil {
		if epID, err = conv.Uint32ToInt32(ep.id); err != nil {
			return err
		}
		maxLevel = int32(ep.level)
	}

	for _, v := range []int32{count32, epID, maxLevel, ef32} {
		if err := w.WriteInt32(v); err != nil {
			return err
		}
	}
	if err := w.WriteUint64(g.rng.Load()); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		n := g.getNode(uint32(i))
		if n == nil {
			return persistence.Corruptf("point %d missing from graph of %d points", i, count)
		}
		if err := w.WriteInt32(int32(n.level)); err != nil {
			return err
		}
		if err := w.WriteFloat32Slice(n.vec); err != nil {
			return err
		}
		for layer := 0; layer <= n.level; layer++ {
			ids := n.neighbors(layer)
			if err := w.WriteInt32(int32(len(ids))); err != nil {
				return err
			}
			if err := w.WriteUint32Slice(ids); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadPayload fills an empty graph from a stream written by WritePayload.
// Structural violations are reported as persistence.ErrCorrupt and short
// input as persistence.ErrTruncated.
func (g *Graph) ReadPayload(r *persistence.Reader) error {
	count, err := r.ReadInt32()
	if err != nil {
		return err
	}
	epID, err := r.ReadInt32()
	if err != nil {
		return err
	}
	maxLevel, err := r.ReadInt32()
	if err != nil {
		return err
	}
	ef, err := r.ReadInt32()
	if err != nil {
		return err
	}
	rngState, err := r.ReadUint64()
	if err != nil {
		return err
	}

	switch {
	case count < 0 || int(count) > g.capacity:
		return persistence.Corruptf("point count %d outside [0, %d]", count, g.capacity)
	case ef < 1:
		return persistence.Corruptf("ef %d", ef)
	case count == 0 && (epID != -1 || maxLevel != -1):
		return persistence.Corruptf("empty graph with entry point %d at level %d", epID, maxLevel)
	case count > 0 && (epID < 0 || epID >= count):
		return persistence.Corruptf("entry point %d outside [0, %d)", epID, count)
	case count > 0 && (maxLevel < 0 || maxLevel > MaxLevel):
		return persistence.Corruptf("max level %d outside [0, %d]", maxLevel, MaxLevel)
	}

	for i := int32(0); i < count; i++ {
		level, err := r.ReadInt32()
		if err != nil {
			return err
		}
		if level < 0 || level > maxLevel {
			return persistence.Corruptf("point %d level %d outside [0, %d]", i, level, maxLevel)
		}

		vec, err := r.ReadFloat32Slice(g.dim)
		if err != nil {
			return err
		}

		n := newNode(vec, int(level))
		for layer := 0; layer <= int(level); layer++ {
			size, err := r.ReadInt32()
			if err != nil {
				return err
			}
			if size < 0 || int(size) > g.maxConns(layer) {
				return persistence.Corruptf("point %d layer %d degree %d exceeds %d", i, layer, size, g.maxConns(layer))
			}
			ids, err := r.ReadUint32Slice(int(size))
			if err != nil {
				return err
			}
			for _, id := range ids {
				if id >= uint32(count) {
					return persistence.Corruptf("point %d layer %d links to %d outside [0, %d)", i, layer, id, count)
				}
			}
			n.setNeighbors(layer, ids)
		}
		g.slot(uint32(i)).Store(n)
	}

	if count > 0 {
		g.entry.Store(&entryPoint{id: uint32(epID), level: int(maxLevel)})
	}
	g.count.Store(int64(count))
	g.ef.Store(int64(ef))
	g.rng.Store(rngState)

	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrCorrupt, err)
	}
	return nil
}
