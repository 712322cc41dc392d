package worker

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/pkg/exception"
)

const _defaultQueueCapacity = 1024

// Task is one unit of side-effecting work.
type Task func()

type item struct {
	run     Task
	stop    bool
	drained chan struct{}
}

// Worker runs posted tasks on a single background goroutine, strictly in
// submission order. It is the only place side-effecting work for its owner
// executes, so callers get serialization without holding locks themselves.
//
// A panicking task is fatal: the goroutine stops consuming and every later
// Post is dropped. Owners should treat that as a crash signal; there is no
// automatic restart.
type Worker struct {
	name  string
	tasks chan item

	running atomic.Bool
	crashed atomic.Bool

	mu           sync.Mutex
	done         chan struct{}
	onTerminated func(error)
}

// New creates a stopped worker. capacity <= 0 uses the default queue size.
func New(name string, capacity int) *Worker {
	if capacity <= 0 {
		capacity = _defaultQueueCapacity
	}
	return &Worker{
		name:  name,
		tasks: make(chan item, capacity),
	}
}

// Post enqueues a task. It reports false when the task was dropped: the
// worker is stopped, crashed, or its queue is full.
func (w *Worker) Post(fn Task) bool {
	if fn == nil || !w.running.Load() || w.crashed.Load() {
		return false
	}

	select {
	case w.tasks <- item{run: fn}:
		return true
	default:
		logs.Warnf("worker %s dropped task, queue is full", w.name)
		return false
	}
}

// Start spawns the consumer goroutine. It is idempotent while running.
// Starting after a stop or a crash discards the stale queue and clears the
// crash flag.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return
	}

	// Anything still queued belongs to a previous session. A post racing a
	// stop can land its task behind the stop marker and survive the drain.
	w.drainStale()
	w.crashed.Store(false)

	done := make(chan struct{})
	w.done = done
	w.running.Store(true)
	go w.consume(done)
}

// Stop enqueues a stop marker, waits until the queue drains through it, and
// forgets the goroutine. Stopping a stopped or crashed worker returns
// immediately.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running.Load() {
		w.mu.Unlock()
		return
	}
	done := w.done
	w.mu.Unlock()

	drained := make(chan struct{})
	select {
	case w.tasks <- item{stop: true, drained: drained}:
	case <-done:
		w.running.Store(false)
		return
	}

	select {
	case <-drained:
	case <-done:
	}
	w.running.Store(false)
}

// OnTerminated registers a callback observing the consumer's exit: nil on a
// clean stop, the recovered fault on a crash.
func (w *Worker) OnTerminated(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTerminated = fn
}

// Running reports whether the consumer goroutine is alive.
func (w *Worker) Running() bool {
	return w.running.Load() && !w.crashed.Load()
}

// Crashed reports whether a task fault terminated the consumer.
func (w *Worker) Crashed() bool {
	return w.crashed.Load()
}

func (w *Worker) consume(done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			w.crashed.Store(true)
			w.running.Store(false)
			logs.Errorf("worker %s crashed, err: %+v", w.name, r)
			w.notifyTerminated(errors.Wrap(exception.ErrWorkerCrashed, fmt.Sprintf("worker %s: %v", w.name, r)))
		}
	}()

	for t := range w.tasks {
		if t.stop {
			w.notifyTerminated(nil)
			close(t.drained)
			return
		}
		t.run()
	}
}

func (w *Worker) notifyTerminated(err error) {
	w.mu.Lock()
	fn := w.onTerminated
	w.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (w *Worker) drainStale() {
	for {
		select {
		case t := <-w.tasks:
			if t.stop {
				close(t.drained)
			}
		default:
			return
		}
	}
}
