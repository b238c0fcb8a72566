// Package taskqueue runs stage tasks on a bounded pool of goroutines. It is
// the TaskDispatcher the workflow engine executes stages on.
package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/time/rate"

	"orderflow/internal/core/ports"
)

var (
	// ErrPoolStopped is delivered for tasks dispatched after Stop.
	ErrPoolStopped = errors.New("task pool is stopped")

	// ErrTaskPanicked is delivered when a task's Run panics.
	ErrTaskPanicked = errors.New("task panicked")
)

type job struct {
	ctx    context.Context
	task   ports.Task
	result chan error
}

// Pool executes tasks on a fixed number of workers. Each task gets its own
// timeout; a task that overruns it is reported as ports.ErrTaskTimeout and
// its context is cancelled.
type Pool struct {
	concurrency int
	queueSize   int
	limiter     *rate.Limiter
	logger      *slog.Logger

	jobs   chan job
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopped bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithQueueSize sets how many tasks may wait for a free worker.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.queueSize = n
		}
	}
}

// WithRateLimit caps how many tasks per second start across all workers.
// A non-positive limit disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(p *Pool) {
		if perSecond <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	p := &Pool{
		concurrency: 10,
		queueSize:   100,
		logger:      logger.With("component", "task_pool"),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.jobs = make(chan job, p.queueSize)
	return p
}

// Start launches the workers. It returns immediately.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}
	if p.running {
		return nil
	}
	p.running = true

	for range p.concurrency {
		p.wg.Add(1)
		go p.worker()
	}

	p.logger.InfoContext(ctx, "task pool started", "concurrency", p.concurrency, "queue_size", p.queueSize)
	return nil
}

// Stop stops accepting tasks and waits for running ones. Tasks still queued
// receive ErrPoolStopped.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		p.logger.InfoContext(ctx, "task pool stopped")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "task pool stop timed out")
		err = ctx.Err()
	}

	p.drain()
	return err
}

// Dispatch queues t and returns a channel that receives its outcome.
// A task is either queued before Stop drains the queue or rejected with
// ErrPoolStopped, so its result is always delivered.
func (p *Pool) Dispatch(ctx context.Context, t ports.Task) <-chan error {
	result := make(chan error, 1)
	j := job{ctx: ctx, task: t, result: result}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		result <- ErrPoolStopped
		return result
	}
	select {
	case p.jobs <- j:
		p.mu.Unlock()
		return result
	default:
	}
	p.mu.Unlock()

	// Queue full: wait for room without blocking the caller.
	go func() {
		select {
		case p.jobs <- j:
			p.mu.Lock()
			stopped := p.stopped
			p.mu.Unlock()
			if stopped {
				// Stop may have drained before this send landed.
				p.drain()
			}
		case <-ctx.Done():
			result <- ctx.Err()
		case <-p.stopCh:
			result <- ErrPoolStopped
		}
	}()
	return result
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case j := <-p.jobs:
			j.result <- p.execute(j)
		}
	}
}

func (p *Pool) execute(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(j.ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(j.ctx, j.task.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.ErrorContext(ctx, "task panicked",
					"task", j.task.Name, "order_id", j.task.OrderID.String(), "panic", r, "stack", string(debug.Stack()))
				done <- fmt.Errorf("%w: %s: %v", ErrTaskPanicked, j.task.Name, r)
			}
		}()
		done <- j.task.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && j.ctx.Err() == nil {
			return fmt.Errorf("%w: %s after %s: %w", ports.ErrTaskTimeout, j.task.Name, j.task.Timeout, err)
		}
		return err
	case <-ctx.Done():
		if j.ctx.Err() != nil {
			return j.ctx.Err()
		}
		return fmt.Errorf("%w: %s after %s", ports.ErrTaskTimeout, j.task.Name, j.task.Timeout)
	}
}

func (p *Pool) drain() {
	for {
		select {
		case j := <-p.jobs:
			j.result <- ErrPoolStopped
		default:
			return
		}
	}
}
