package common

import (
	"context"
	"sync"
)

// RunQueue runs a job at most once at a time. A trigger arriving while the
// job is running waits for it and then gets exactly one extra run, shared by
// every trigger that arrived in the meantime.
type RunQueue struct {
	job func(ctx context.Context)
	// base gives the context of the extra run, which belongs to no caller
	base func() context.Context

	mu      sync.Mutex
	running bool
	next    chan struct{}
	waiting int
}

// NewRunQueue queues job. base is the context of the extra runs; a nil base
// lets them run to completion whatever happens to the callers.
func NewRunQueue(job func(ctx context.Context), base func() context.Context) *RunQueue {
	return &RunQueue{job: job, base: base}
}

// Trigger runs the job, or joins the single pending run if one is in flight.
// It returns once a run that started after this call has finished, or when
// the context is done.
func (q *RunQueue) Trigger(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		if q.next == nil {
			q.next = make(chan struct{})
		}
		next := q.next
		q.waiting++
		q.mu.Unlock()
		defer func() {
			q.mu.Lock()
			q.waiting--
			q.mu.Unlock()
		}()
		select {
		case <-next:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.running = true
	q.mu.Unlock()

	q.job(ctx)
	for {
		q.mu.Lock()
		next := q.next
		q.next = nil
		if next == nil {
			q.running = false
			q.mu.Unlock()
			return nil
		}
		q.mu.Unlock()
		q.job(q.followUpContext(ctx))
		close(next)
	}
}

// followUpContext is not tied to ctx: waiters may have live contexts even
// if the first caller's ended.
func (q *RunQueue) followUpContext(ctx context.Context) context.Context {
	if q.base != nil {
		return q.base()
	}
	return context.WithoutCancel(ctx)
}

// Running tells whether a run is in flight.
func (q *RunQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Waiting is the number of triggers parked on the pending run.
func (q *RunQueue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting
}
