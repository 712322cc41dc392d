package exception

import "errors"

// ErrWorkerCrashed is reported through OnTerminated when a task panic kills
// the consumer goroutine.
var ErrWorkerCrashed = errors.New("worker: crashed")
