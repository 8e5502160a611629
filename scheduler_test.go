package ksched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Nested run: Main starts T1; T1 creates T2 and runs it synchronously; T2
// creates T3 and runs it synchronously; T3 sets checker=3 and stops the
// scheduler.
func TestNestedRun(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	var checker int

	err = s.Start(func(t1 *Task) {
		t2 := s.Create(func(t2 *Task) {
			t3 := s.Create(func(t3 *Task) {
				checker = 3
				s.Stop()
			})
			ret, err := s.Run(t3)
			require.NoError(t, err)
			require.Equal(t, 1, ret)
		})
		ret, err := s.Run(t2)
		require.NoError(t, err)
		require.Equal(t, 1, ret)
	})
	require.NoError(t, err)

	require.NoError(t, s.Loop())
	require.Equal(t, 3, checker)
}

// At t=0 schedule A for +30ms and B for +10ms: expect B then A, with at
// least 20ms real time between the two resumptions, less 2ms of slack for
// B resuming slightly after its target.
func TestTimerPairOrdering(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	var order []string
	var bAt, aAt time.Time

	require.NoError(t, s.Start(func(tk *Task) {
		s.Wait(tk, 30)
		aAt = time.Now()
		order = append(order, "A")
		if len(order) == 2 {
			s.Stop()
		}
	}))
	require.NoError(t, s.Start(func(tk *Task) {
		s.Wait(tk, 10)
		bAt = time.Now()
		order = append(order, "B")
		if len(order) == 2 {
			s.Stop()
		}
	}))

	require.NoError(t, s.Loop())
	require.Equal(t, []string{"B", "A"}, order)
	require.GreaterOrEqual(t, aAt.Sub(bAt), 18*time.Millisecond)
}

// N tasks each loop K times calling wait(0) and incrementing a shared
// counter; final counter must equal N*K.
func TestYieldFairness(t *testing.T) {
	const numTasks, iterations = 4, 25

	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	counter := 0
	remaining := numTasks
	for i := 0; i < numTasks; i++ {
		require.NoError(t, s.Start(func(tk *Task) {
			for j := 0; j < iterations; j++ {
				counter++
				s.Wait(tk, 0)
			}
			remaining--
			if remaining == 0 {
				s.Stop()
			}
		}))
	}

	require.NoError(t, s.Loop())
	require.Equal(t, numTasks*iterations, counter)
}

func TestRunRejectsInvalidTask(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	ret, err := s.Run(nil)
	require.Error(t, err)
	require.Equal(t, -1, ret)
	require.ErrorIs(t, err, ErrInvalidTask)
}

func TestAdvanceReturnsIdleTimeoutWhenEmpty(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, DefaultIdleTimeoutMs, s.Advance())
}

func TestWithIdleTimeoutConfiguresAdvance(t *testing.T) {
	s, err := New(WithIdleTimeout(250))
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, 250, s.Advance())
}

func TestWithIdleTimeoutFallsBackToDefaultWhenNonPositive(t *testing.T) {
	s, err := New(WithIdleTimeout(0))
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, DefaultIdleTimeoutMs, s.Advance())
}

func TestScheduleUnschedule(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	ran := false
	tk := s.Create(func(tk *Task) { ran = true })
	require.NoError(t, s.Schedule(tk, nil))
	require.Equal(t, 1, s.NumPending())
	s.Unschedule(tk)
	require.Equal(t, 0, s.NumPending())
	require.False(t, ran)
}
