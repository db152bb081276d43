// Package worker runs independent jobs on a bounded number of goroutines.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work producing a result of type R
type Job[R any] interface {
	Execute(ctx context.Context) R
}

// JobFunc adapts a function to Job
type JobFunc[R any] func(ctx context.Context) R

// Execute calls f
func (f JobFunc[R]) Execute(ctx context.Context) R {
	return f(ctx)
}

type task[R any] struct {
	index int
	job   Job[R]
}

// Pool executes submitted jobs concurrently. Wait returns the results in
// submission order regardless of completion order.
type Pool[R any] struct {
	workers int
	queue   chan task[R]
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	results []R

	// sendMu orders Submit against closing the queue
	sendMu sync.RWMutex
	closed bool
}

// NewPool creates a pool with the given number of workers bound to ctx
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[R]{
		workers: workers,
		queue:   make(chan task[R], workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Workers returns the pool size
func (p *Pool[R]) Workers() int {
	return p.workers
}

// Start launches the workers
func (p *Pool[R]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()

	for t := range p.queue {
		// Jobs still queued after cancellation are drained without running
		if p.ctx.Err() != nil {
			continue
		}
		r := t.job.Execute(p.ctx)

		p.mu.Lock()
		p.results[t.index] = r
		p.mu.Unlock()
	}
}

// Submit queues a job. It returns false once the pool is closed or cancelled.
func (p *Pool[R]) Submit(job Job[R]) bool {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	idx := len(p.results)
	var zero R
	p.results = append(p.results, zero)
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- task[R]{index: idx, job: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns one result per
// submitted job. The error is the context error if the pool was cancelled;
// results of jobs that never ran are zero values then.
func (p *Pool[R]) Wait() ([]R, error) {
	p.close()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results, p.ctx.Err()
}

// Shutdown cancels running jobs and waits for the workers to exit
func (p *Pool[R]) Shutdown() {
	p.cancel()
	p.close()
	p.wg.Wait()
}

func (p *Pool[R]) close() {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}

// Run executes jobs on a fresh pool and returns their results in order
func Run[R any](ctx context.Context, workers int, jobs []Job[R]) ([]R, error) {
	p := NewPool[R](ctx, workers)
	p.Start()
	defer p.cancel()

	for _, j := range jobs {
		if !p.Submit(j) {
			break
		}
	}
	return p.Wait()
}
