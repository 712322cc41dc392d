package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRunsTasksInOrder(t *testing.T) {
	w := New("order", 0)
	w.Start()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, w.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestWorkerPostBeforeStart(t *testing.T) {
	w := New("idle", 0)
	assert.False(t, w.Post(func() {}))
	assert.False(t, w.Running())
}

func TestWorkerStopDrainsQueue(t *testing.T) {
	w := New("drain", 0)
	w.Start()

	var (
		mu    sync.Mutex
		count int
	)
	for i := 0; i < 50; i++ {
		w.Post(func() {
			time.Sleep(time.Millisecond)
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, count)
	assert.False(t, w.Running())
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	w := New("twice", 0)
	w.Start()
	w.Stop()
	w.Stop()
	assert.False(t, w.Running())
}

func TestWorkerCrashStopsConsumption(t *testing.T) {
	w := New("crash", 0)

	faults := make(chan error, 1)
	w.OnTerminated(func(err error) { faults <- err })
	w.Start()

	ran := make(chan struct{}, 1)
	require.True(t, w.Post(func() { panic("boom") }))

	select {
	case err := <-faults:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("termination callback never fired")
	}

	assert.True(t, w.Crashed())
	assert.False(t, w.Running())
	assert.False(t, w.Post(func() { ran <- struct{}{} }))

	// A restart clears the crash flag and consumes again.
	w.Start()
	require.True(t, w.Post(func() { ran <- struct{}{} }))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("restarted worker never ran the task")
	}
	assert.False(t, w.Crashed())
	w.Stop()
}

func TestWorkerRestartDiscardsStaleQueue(t *testing.T) {
	w := New("stale", 0)
	w.Start()
	w.Stop()

	// A post racing the stop can land its task behind the stop marker. It
	// must not run on the next session.
	stale := make(chan struct{}, 1)
	w.tasks <- item{run: func() { stale <- struct{}{} }}

	w.Start()
	ran := make(chan struct{}, 1)
	require.True(t, w.Post(func() { ran <- struct{}{} }))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("restarted worker never ran the task")
	}
	select {
	case <-stale:
		t.Fatal("stale task from the previous session ran")
	default:
	}
	w.Stop()
}

func TestWorkerCleanStopNotifiesNil(t *testing.T) {
	w := New("clean", 0)

	faults := make(chan error, 1)
	w.OnTerminated(func(err error) { faults <- err })
	w.Start()
	w.Stop()

	select {
	case err := <-faults:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("termination callback never fired")
	}
}
