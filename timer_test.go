package ksched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTask(id uint64) *Task {
	return &Task{id: id, heapIndex: -1}
}

func TestTimerHeap_OrdersByTargetThenSequence(t *testing.T) {
	var h timerHeap

	t3 := newTestTask(3)
	t3.target = timerKeyFor(time.Unix(10, 0), 3)
	h.insertTask(t3)

	t1 := newTestTask(1)
	t1.target = timerKeyFor(time.Unix(5, 0), 1)
	h.insertTask(t1)

	t2 := newTestTask(2)
	t2.target = timerKeyFor(time.Unix(5, 0), 2)
	h.insertTask(t2)

	require.Equal(t, t1, h.peek())
	h.removeTask(t1)
	require.Equal(t, t2, h.peek())
	h.removeTask(t2)
	require.Equal(t, t3, h.peek())
	h.removeTask(t3)
	require.Nil(t, h.peek())
}

func TestTimerHeap_EqualInstantsPreserveInsertionOrder(t *testing.T) {
	var h timerHeap
	same := time.Unix(100, 0)

	tasks := make([]*Task, 5)
	for i := range tasks {
		tk := newTestTask(uint64(i))
		tk.target = timerKeyFor(same, uint64(i))
		tasks[i] = tk
		h.insertTask(tk)
	}

	for i := range tasks {
		top := h.peek()
		require.Equal(t, tasks[i], top, "task %d out of order", i)
		h.removeTask(top)
	}
}

func TestTimerHeap_RemoveTaskIsIdempotent(t *testing.T) {
	var h timerHeap
	tk := newTestTask(1)
	tk.target = timerKeyFor(time.Unix(1, 0), 1)
	h.insertTask(tk)
	h.removeTask(tk)
	require.NotPanics(t, func() { h.removeTask(tk) })
}
