package ksched

import (
	"container/heap"
	"time"
)

// timerKey is the timer tree's sort key: wall-clock seconds and
// microseconds, compared lexicographically, with ties broken by insertion
// sequence so that two tasks scheduled for the identical instant resume in
// the order they were inserted (FIFO at a given instant). A node with a key
// equal to an existing node's is therefore always ordered strictly after
// it — the comparator never reports two distinct nodes as equal.
type timerKey struct {
	sec  int64
	usec int64
	seq  uint64
}

func timerKeyFor(t time.Time, seq uint64) timerKey {
	return timerKey{sec: t.Unix(), usec: int64(t.Nanosecond() / 1000), seq: seq}
}

func (a timerKey) less(b timerKey) bool {
	if a.sec != b.sec {
		return a.sec < b.sec
	}
	if a.usec != b.usec {
		return a.usec < b.usec
	}
	return a.seq < b.seq
}

// timerHeap is a min-heap of tasks ordered by target resumption time. It is
// the Go-idiomatic stand-in for the source's balanced ordered tree: both
// give O(log n) insert/remove-min and an observable "is this task currently
// scheduled" boolean (Task.scheduled), which is all the design requires.
type timerHeap []*Task

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].target.less(h[j].target) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Task)
	t.heapIndex = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIndex = -1
	*h = old[:n-1]
	return t
}

// peek returns the task with the smallest target time, or nil if empty.
func (h timerHeap) peek() *Task {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

func (h *timerHeap) removeTask(t *Task) {
	if t.heapIndex < 0 || t.heapIndex >= len(*h) {
		return
	}
	heap.Remove(h, t.heapIndex)
}

func (h *timerHeap) insertTask(t *Task) {
	heap.Push(h, t)
}
