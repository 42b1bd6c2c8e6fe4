package searcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"treesearch/environment"
	"treesearch/meta"

	"github.com/rs/zerolog/log"
)

var (
	ErrPoolClosed  = errors.New("search pool closed")
	ErrSearchPanic = errors.New("search panicked")
)

// Future is the pending outcome of a search submitted to a Pool.
type Future struct {
	done   chan struct{}
	result Result
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(result Result, err error) {
	f.result, f.err = result, err
	close(f.done)
}

// Done is closed once the search has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the search finishes or ctx is done. Giving up does not
// stop the search: it still runs to completion on its worker.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type job struct {
	env     environment.Environment
	state   environment.State
	cfg     Config
	options []Option
	future  *Future
}

// Pool runs searches on a fixed set of worker goroutines. Each search owns
// its tree and generator, so workers share nothing.
type Pool struct {
	jobs    chan job
	workers sync.WaitGroup
	senders sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewPool(workers, queue int) *Pool {
	if workers < 1 {
		panic("search pool needs at least one worker")
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{jobs: make(chan job, queue)}
	for i := 0; i < workers; i++ {
		p.workers.Add(1)
		go p.work()
	}
	log.Debug().Int("workers", workers).Int("queue", queue).Msg("search pool started")
	return p
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// DefaultPool returns the process-wide pool, creating it on first use.
func DefaultPool() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(meta.AsyncWorkers, meta.AsyncQueue)
	})
	return defaultPool
}

// SearchAsync runs a search on the default pool and waits for it.
func SearchAsync(ctx context.Context, env environment.Environment, state environment.State, cfg Config, options ...Option) (Result, error) {
	return DefaultPool().Submit(env, state, cfg, options...).Wait(ctx)
}

// Submit queues a search and returns immediately.
func (p *Pool) Submit(env environment.Environment, state environment.State, cfg Config, options ...Option) *Future {
	f := newFuture()
	j := job{env: env, state: state, cfg: cfg, options: options, future: f}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		f.complete(Result{}, ErrPoolClosed)
		return f
	}

	select {
	case p.jobs <- j:
	default:
		// Queue is full; hand off so the caller never blocks.
		p.senders.Add(1)
		go func() {
			defer p.senders.Done()
			p.jobs <- j
		}()
	}
	return f
}

// Close rejects new submissions and waits for queued searches to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.senders.Wait()
	close(p.jobs)
	p.workers.Wait()
}

func (p *Pool) work() {
	defer p.workers.Done()
	for j := range p.jobs {
		j.future.complete(run(j))
	}
}

func run(j job) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("search panicked")
			result, err = Result{}, fmt.Errorf("%w: %v", ErrSearchPanic, r)
		}
	}()
	return NewMCTS(j.options...).Search(j.env, j.state, j.cfg)
}
