package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// sleepJob returns its id after an optional delay
type sleepJob struct {
	id       int
	duration time.Duration
	executed *int32
}

func (j *sleepJob) Execute(ctx context.Context) int {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return -1
		}
	}
	return j.id
}

func TestNewPool(t *testing.T) {
	if p := NewPool[int](context.Background(), 5); p.Workers() != 5 {
		t.Errorf("expected 5 workers, got %d", p.Workers())
	}
	if p := NewPool[int](context.Background(), 0); p.Workers() != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p.Workers())
	}
	if p := NewPool[int](context.Background(), -1); p.Workers() != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p.Workers())
	}
}

func TestPool_ResultsInSubmissionOrder(t *testing.T) {
	pool := NewPool[int](context.Background(), 4)
	pool.Start()

	var executed int32
	count := 20
	for i := 0; i < count; i++ {
		// Earlier jobs sleep longer so they finish last
		pool.Submit(&sleepJob{id: i, duration: time.Duration(count-i) * time.Millisecond, executed: &executed})
	}

	results, err := pool.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(results) != count {
		t.Fatalf("expected %d results, got %d", count, len(results))
	}
	for i, r := range results {
		if r != i {
			t.Errorf("results[%d] = %d", i, r)
		}
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 5
	pool := NewPool[struct{}](context.Background(), workers)
	pool.Start()

	var current, maxConcurrent int32
	var mu sync.Mutex

	for i := 0; i < 30; i++ {
		pool.Submit(JobFunc[struct{}](func(ctx context.Context) struct{} {
			curr := atomic.AddInt32(&current, 1)
			mu.Lock()
			if curr > maxConcurrent {
				maxConcurrent = curr
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return struct{}{}
		}))
	}

	if _, err := pool.Wait(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxConcurrent > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", maxConcurrent, workers)
	}
}

func TestPool_SubmitAfterWait(t *testing.T) {
	pool := NewPool[int](context.Background(), 2)
	pool.Start()
	pool.Submit(&sleepJob{id: 1})
	if _, err := pool.Wait(); err != nil {
		t.Fatal(err)
	}

	if pool.Submit(&sleepJob{id: 2}) {
		t.Error("Submit after Wait should be rejected")
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool[int](context.Background(), 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(JobFunc[int](func(ctx context.Context) int {
		close(started)
		<-ctx.Done()
		return -1
	}))
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown timed out")
	}

	if pool.Submit(&sleepJob{id: 3}) {
		t.Error("Submit after Shutdown should be rejected")
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job[int]{&sleepJob{id: 1}, &sleepJob{id: 2}}
	if _, err := Run(ctx, 2, jobs); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun(t *testing.T) {
	jobs := []Job[int]{&sleepJob{id: 7}, &sleepJob{id: 8}, &sleepJob{id: 9}}
	results, err := Run(context.Background(), 2, jobs)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[0] != 7 || results[2] != 9 {
		t.Errorf("unexpected results %v", results)
	}
}
