package worker

import (
	"context"
	"sync"
)

// Task is a unit of work producing an R
type Task[R any] func(ctx context.Context) R

// Pool runs tasks on a fixed number of goroutines and collects their results
type Pool[R any] struct {
	workers   int
	tasks     chan Task[R]
	results   chan R
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	queueOnce sync.Once
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[R]{
		workers: workers,
		tasks:   make(chan Task[R], workers*2),
		results: make(chan R, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool[R]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool[R]) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			r := task(p.ctx)
			select {
			case p.results <- r:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a task. It returns false once the pool has been shut down.
func (p *Pool[R]) Submit(task Task[R]) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- task:
		return true
	}
}

// Wait closes the queue and returns every result in completion order.
// Submit must not be called concurrently with or after Wait.
func (p *Pool[R]) Wait() []R {
	p.closeQueue()
	return p.collect()
}

// Run starts the pool, feeds it tasks and waits for all of them. Results are
// collected while tasks are still being queued, so any number of tasks fits.
func (p *Pool[R]) Run(tasks []Task[R]) []R {
	p.Start()
	go func() {
		defer p.closeQueue()
		for _, task := range tasks {
			if !p.Submit(task) {
				return
			}
		}
	}()
	return p.collect()
}

func (p *Pool[R]) collect() []R {
	go func() {
		p.wg.Wait()
		p.closeResults()
		p.cancel()
	}()

	var out []R
	for r := range p.results {
		out = append(out, r)
	}
	return out
}

func (p *Pool[R]) closeQueue() {
	p.queueOnce.Do(func() {
		close(p.tasks)
	})
}

// Shutdown stops the workers without draining the queue
func (p *Pool[R]) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool[R]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
