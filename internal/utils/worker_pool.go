package utils

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned when submitting to a pool that has been shut down.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Job represents a task to be executed by a worker.
type Job struct {
	Task func()
}

// WorkerPool manages a fixed set of workers executing submitted jobs.
type WorkerPool struct {
	workers   int
	jobQueue  chan Job
	quit      chan struct{}
	closeOnce sync.Once
	waitGroup sync.WaitGroup
}

// NewWorkerPool creates a new WorkerPool with the specified number of workers.
func NewWorkerPool(workers int) *WorkerPool {
	pool := &WorkerPool{
		workers:  workers,
		jobQueue: make(chan Job, workers),
		quit:     make(chan struct{}),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// worker processes jobs from the jobQueue until the pool shuts down.
func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for {
		select {
		case job := <-wp.jobQueue:
			job.Task()
		case <-wp.quit:
			return
		}
	}
}

// Submit queues a task. It waits for queue space, giving up when ctx is done
// or the pool shuts down.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.quit:
		return ErrPoolClosed
	default:
	}

	select {
	case wp.jobQueue <- Job{Task: task}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.quit:
		return ErrPoolClosed
	}
}

// Shutdown stops the workers and waits for running jobs to return.
// Jobs still queued are dropped.
func (wp *WorkerPool) Shutdown() {
	wp.closeOnce.Do(func() { close(wp.quit) })
	wp.waitGroup.Wait()
}
