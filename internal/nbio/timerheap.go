package nbio

import "container/heap"

// timerHeap is a min-heap of pending timeout/with_timeout completions,
// ordered by deadline. It implements container/heap.Interface directly on
// a slice of *Completion, tracking each element's index so Remove can
// splice an arbitrary entry out in O(log n).
type timerHeap []*Completion

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].timerIdx = i
	h[j].timerIdx = j
}

func (h *timerHeap) Push(x any) {
	c := x.(*Completion)
	c.timerIdx = len(*h)
	*h = append(*h, c)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.timerIdx = -1
	*h = old[:n-1]
	return c
}

func (h *timerHeap) insert(c *Completion) {
	heap.Push(h, c)
}

func (h *timerHeap) removeAt(c *Completion) {
	if c.timerIdx < 0 || c.timerIdx >= len(*h) {
		return
	}
	heap.Remove(h, c.timerIdx)
}

func (h timerHeap) peek() *Completion {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
