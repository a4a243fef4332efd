package worker

import (
	"context"
	"log"
	"sync"

	"circle-search/src/geometry"
	"circle-search/src/session"
)

// ProcessFunc runs the post-selection pipeline for one rectangle.
type ProcessFunc func(ctx context.Context, rect geometry.Rectangle) (session.Result, error)

// ResultCallback is invoked on completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(res session.Result, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	process ProcessFunc
	jobs    chan job
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type job struct {
	ctx  context.Context
	rect geometry.Rectangle
	cb   ResultCallback
}

// New creates a worker pool running process. Size defaults to 1 when size<=0.
func New(size int, process ProcessFunc) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{process: process, jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker %d: processing region %dx%d at (%d,%d)", id, j.rect.Width, j.rect.Height, j.rect.Left, j.rect.Top)
				res, err := p.run(j)
				if j.cb != nil {
					j.cb(res, err)
				}
			}
		}(i)
	}
}

func (p *Pool) run(j job) (session.Result, error) {
	if err := j.ctx.Err(); err != nil {
		return session.Result{}, err
	}
	return p.process(j.ctx, j.rect)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, rect geometry.Rectangle, cb ResultCallback) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job{ctx: ctx, rect: rect, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
