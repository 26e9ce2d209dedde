// Package workerpool provides the bounded goroutine pool that dispatches
// candidate requests. The pool size is the campaign's concurrency limit:
// at most Cap tasks run at once, and Submit blocks while the queue is full
// so producers cannot outrun the workers.
package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("workerpool: pool closed")

// Pool manages a fixed number of worker goroutines.
type Pool struct {
	// Number of workers
	workers int32

	// Task channel
	tasks chan func()

	// Running worker count
	running int32

	// Closed flag
	closed int32

	completed atomic.Int64
	panics    atomic.Int64
	onPanic   func(any)

	// mu orders Submit's send against Close's close(tasks).
	mu sync.RWMutex
	wg sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

// WithPanicHandler sets a function called with the value of any task panic.
// The worker survives the panic either way.
func WithPanicHandler(fn func(any)) Option {
	return func(p *Pool) { p.onPanic = fn }
}

// New creates a pool with the given number of workers. Workers are started
// lazily as tasks are submitted.
func New(workers int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		workers: int32(workers),
		tasks:   make(chan func(), workers),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit queues task, blocking until a slot is free or ctx is done.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for {
		running := atomic.LoadInt32(&p.running)
		if running >= p.workers {
			break
		}
		if atomic.CompareAndSwapInt32(&p.running, running, running+1) {
			p.wg.Add(1)
			go p.worker()
			break
		}
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer func() {
		atomic.AddInt32(&p.running, -1)
		p.wg.Done()
	}()
	for task := range p.tasks {
		if task != nil {
			p.run(task)
		}
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			if p.onPanic != nil {
				p.onPanic(r)
			}
		}
		p.completed.Add(1)
	}()
	task()
}

// Cap returns the worker capacity.
func (p *Pool) Cap() int {
	return int(p.workers)
}

// Completed returns the number of tasks that have finished, including
// those that panicked.
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}

// Panics returns the number of tasks that panicked.
func (p *Pool) Panics() int64 {
	return p.panics.Load()
}

// Close stops accepting tasks and waits for queued and running tasks to
// finish. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		p.mu.Unlock()
		return
	}
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
