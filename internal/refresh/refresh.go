package refresh

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of background work. Jobs sharing a Key are never queued
// or run twice at the same time.
type Job[T any] struct {
	Key     string
	Payload T
}

// Refresher runs jobs on a fixed pool of workers with a bounded queue.
type Refresher[T any] struct {
	ch      chan Job[T]
	inFly   sync.Map // key -> struct{}
	timeout time.Duration
	do      func(ctx context.Context, j Job[T])

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func New[T any](capacity, workerCount int, timeout time.Duration, do func(ctx context.Context, j Job[T])) *Refresher[T] {
	if capacity <= 0 {
		capacity = 256
	}
	if workerCount <= 0 {
		workerCount = 2
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	r := &Refresher[T]{ch: make(chan Job[T], capacity), timeout: timeout, do: do}
	for i := 0; i < workerCount; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Enqueue schedules j unless a job with the same key is pending or running,
// the queue is full, or the refresher is closed. It reports whether j was
// accepted.
func (r *Refresher[T]) Enqueue(j Job[T]) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	if _, exists := r.inFly.LoadOrStore(j.Key, struct{}{}); exists {
		return false
	}
	select {
	case r.ch <- j:
		return true
	default:
		// drop if saturated
		r.inFly.Delete(j.Key)
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (r *Refresher[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Refresher[T]) worker() {
	defer r.wg.Done()
	for j := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		func() {
			defer func() {
				r.inFly.Delete(j.Key)
				cancel()
			}()
			if r.do != nil {
				r.do(ctx, j)
			}
		}()
	}
}
