package searcher

// PriorityQueueItem is a node id paired with its distance to the query.
type PriorityQueueItem struct {
	Node     uint32
	Distance float32
}

// Less orders items by distance, breaking ties by the lower node id.
func (a PriorityQueueItem) Less(b PriorityQueueItem) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Node < b.Node
}

// PriorityQueue is a value-based binary heap of PriorityQueueItems.
// It does not implement container/heap to avoid interface overhead.
type PriorityQueue struct {
	isMaxHeap bool
	items     []PriorityQueueItem
}

// NewPriorityQueue creates a new priority queue. A max heap keeps the
// farthest item on top, a min heap the closest.
func NewPriorityQueue(isMaxHeap bool) *PriorityQueue {
	return &PriorityQueue{
		isMaxHeap: isMaxHeap,
		items:     make([]PriorityQueueItem, 0, 16),
	}
}

// Reset clears the queue for reuse.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

// Len returns the number of elements in the heap.
func (pq *PriorityQueue) Len() int {
	return len(pq.items)
}

// TopItem returns the top element of the heap.
func (pq *PriorityQueue) TopItem() (PriorityQueueItem, bool) {
	if len(pq.items) == 0 {
		return PriorityQueueItem{}, false
	}
	return pq.items[0], true
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(item PriorityQueueItem) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PushItemBounded inserts an item into a heap holding at most capacity
// items. When full, a max heap replaces its top only with a closer item and
// a min heap only with a farther one.
func (pq *PriorityQueue) PushItemBounded(item PriorityQueueItem, capacity int) {
	if len(pq.items) < capacity {
		pq.PushItem(item)
		return
	}
	if capacity <= 0 {
		return
	}

	top := pq.items[0]
	if pq.isMaxHeap {
		if !item.Less(top) {
			return
		}
	} else if !top.Less(item) {
		return
	}
	pq.items[0] = item
	pq.siftDown(0)
}

// PopItem removes and returns the top element from the heap.
func (pq *PriorityQueue) PopItem() (PriorityQueueItem, bool) {
	n := len(pq.items)
	if n == 0 {
		return PriorityQueueItem{}, false
	}

	item := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]

	if len(pq.items) > 0 {
		pq.siftDown(0)
	}
	return item, true
}

// Items exposes the heap storage in heap order. The slice is only valid
// until the next mutation.
func (pq *PriorityQueue) Items() []PriorityQueueItem {
	return pq.items
}

// DrainAscending pops every element into dst ordered closest first and
// returns the extended slice. The queue is empty afterwards.
func (pq *PriorityQueue) DrainAscending(dst []PriorityQueueItem) []PriorityQueueItem {
	start := len(dst)
	for pq.Len() > 0 {
		item, _ := pq.PopItem()
		dst = append(dst, item)
	}
	if pq.isMaxHeap {
		out := dst[start:]
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return dst
}

func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[j].Less(pq.items[i])
	}
	return pq.items[i].Less(pq.items[j])
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.less(i, parent) {
			break
		}
		pq.items[i], pq.items[parent] = pq.items[parent], pq.items[i]
		i = parent
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && pq.less(right, left) {
			child = right
		}
		if !pq.less(child, i) {
			break
		}
		pq.items[i], pq.items[child] = pq.items[child], pq.items[i]
		i = child
	}
}
