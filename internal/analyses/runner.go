package analyses

import (
	"sync"
	"sync/atomic"
)

const defaultMaxConcurrent = 4

// Runner schedules background pipeline runs with a bounded concurrency
// level. Tasks beyond the bound wait for a slot instead of being rejected,
// and the in-flight count stays observable for the queue snapshot and
// metrics.
type Runner struct {
	sem      chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewRunner constructs a Runner executing at most maxConcurrent tasks at
// once. Non-positive values fall back to the default bound.
func NewRunner(maxConcurrent int) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Runner{sem: make(chan struct{}, maxConcurrent)}
}

// Go schedules a task. It returns immediately; the task runs as soon as a
// slot frees up.
func (r *Runner) Go(task func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		r.inFlight.Add(1)
		defer r.inFlight.Add(-1)
		task()
	}()
}

// InFlight returns the number of tasks currently executing.
func (r *Runner) InFlight() int {
	return int(r.inFlight.Load())
}

// Wait blocks until all scheduled tasks have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
