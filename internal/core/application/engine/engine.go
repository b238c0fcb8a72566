// Package engine drives order workflows: it owns the run registry, walks each
// run through the pipeline one stage at a time, retries failed stages with
// backoff and persists every boundary on the order.
//
// Each order has at most one active run. The goroutine driving a run is the
// only writer of that order's workflow columns, so progress is applied in
// stage order without locking the order record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/model/workflow"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
)

const tracerName = "orderflow/internal/core/application/engine"

// Engine runs order workflows.
//
// Example:
//
//	eng, err := engine.New(uowFactory, registry, pool, sink, pipeline, engine.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	run, err := eng.Start(ctx, orderID)
//	if errors.Is(err, engine.ErrAlreadyRunning) {
//	    // another run owns the order
//	}
//	p, _ := eng.Poll(run.RunID)
type Engine struct {
	uowFactory ports.UnitOfWorkFactory
	registry   ports.RunRegistry
	dispatcher ports.TaskDispatcher
	sink       ports.NotificationSink
	pipeline   workflow.Pipeline
	cfg        Config
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	runs   map[kernel.UUID]*runState
	active map[kernel.UUID]*runState
	closed bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTracerProvider replaces the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// New builds an engine. Runs are detached from the callers of Start and only
// stop on Cancel or Shutdown.
func New(
	uowFactory ports.UnitOfWorkFactory,
	registry ports.RunRegistry,
	dispatcher ports.TaskDispatcher,
	sink ports.NotificationSink,
	pipeline workflow.Pipeline,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) (*Engine, error) {
	if err := errors.Join(pipeline.Validate(), cfg.Validate()); err != nil {
		return nil, err
	}
	if uowFactory == nil || registry == nil || dispatcher == nil || sink == nil {
		return nil, errs.NewValueIsRequiredError("engine collaborators")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		uowFactory: uowFactory,
		registry:   registry,
		dispatcher: dispatcher,
		sink:       sink,
		pipeline:   pipeline,
		cfg:        cfg,
		logger:     logger.With("component", "workflow_engine"),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		runs:       make(map[kernel.UUID]*runState),
		active:     make(map[kernel.UUID]*runState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start creates a run for orderID, moves it to in_progress, persists that and
// launches the pipeline in the background.
//
// Errors:
//   - ErrOrderNotFound: the order does not exist
//   - ErrAlreadyRunning: another run owns the order
//   - ErrOrderNotStartable: the order is not pending or its workflow already ran
//   - ErrEngineClosed: Shutdown was called
func (e *Engine) Start(ctx context.Context, orderID kernel.UUID) (workflow.Progress, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return workflow.Progress{}, ErrEngineClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	launched := false
	defer func() {
		if !launched {
			e.wg.Done()
		}
	}()

	if _, err := e.loadOrder(ctx, orderID); err != nil {
		return workflow.Progress{}, err
	}

	runID := kernel.NewUUID()
	if err := e.registry.Claim(ctx, orderID, runID); err != nil {
		if errors.Is(err, ports.ErrRunAlreadyClaimed) {
			return workflow.Progress{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, orderID)
		}
		return workflow.Progress{}, fmt.Errorf("claim order %s: %w", orderID, err)
	}

	rs, err := e.begin(ctx, runID, orderID)
	if err != nil {
		e.release(orderID, runID)
		return workflow.Progress{}, err
	}

	e.mu.Lock()
	e.runs[runID] = rs
	e.active[orderID] = rs
	e.mu.Unlock()

	launched = true
	go e.drive(rs)

	e.logger.InfoContext(ctx, "workflow started", "order_id", orderID.String(), "run_id", runID.String())
	return rs.snapshot(), nil
}

// Cancel stops a run. Poll reports cancelled immediately with progress frozen
// at the last committed stage; the in-flight stage is signalled, and once it
// returns the run persists the cancellation and releases its claim.
func (e *Engine) Cancel(ctx context.Context, runID kernel.UUID) error {
	rs, ok := e.lookup(runID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.run.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, runID, rs.run.Status())
	}
	if err := rs.run.Cancel(e.now()); err != nil {
		return err
	}
	rs.publish()
	rs.signalCancel()

	e.logger.InfoContext(ctx, "workflow cancel requested",
		"order_id", rs.run.OrderID().String(),
		"run_id", runID.String(),
		"progress", rs.run.Progress(),
	)
	return nil
}

// Poll returns the latest snapshot of a run without waiting on it.
// Finished runs stay pollable until Prune drops them.
func (e *Engine) Poll(runID kernel.UUID) (workflow.Progress, error) {
	rs, ok := e.lookup(runID)
	if !ok {
		return workflow.Progress{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return rs.snapshot(), nil
}

// Wait blocks until the run finished and its outcome was persisted.
func (e *Engine) Wait(ctx context.Context, runID kernel.UUID) (workflow.Progress, error) {
	rs, ok := e.lookup(runID)
	if !ok {
		return workflow.Progress{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	select {
	case <-rs.done:
		return rs.snapshot(), nil
	case <-ctx.Done():
		return rs.snapshot(), ctx.Err()
	}
}

// ActiveRun returns the run currently driving orderID, if any.
func (e *Engine) ActiveRun(orderID kernel.UUID) (workflow.Progress, bool) {
	e.mu.RLock()
	rs, ok := e.active[orderID]
	e.mu.RUnlock()
	if !ok {
		return workflow.Progress{}, false
	}
	return rs.snapshot(), true
}

// Prune forgets finished runs that ended before olderThan and returns how
// many were dropped.
func (e *Engine) Prune(olderThan time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	pruned := 0
	for id, rs := range e.runs {
		if !rs.isDone() {
			continue
		}
		if rs.snapshot().FinishedAt.Before(olderThan) {
			delete(e.runs, id)
			pruned++
		}
	}
	return pruned
}

// Shutdown stops accepting new runs and waits for active ones. When ctx
// expires first, the remaining runs are interrupted: their order keeps the
// last committed progress with the workflow still in_progress.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.logger.WarnContext(ctx, "shutdown deadline reached, interrupting workflows")
		e.cancel()
		<-done
		return ctx.Err()
	}
}

func (e *Engine) lookup(runID kernel.UUID) (*runState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rs, ok := e.runs[runID]
	return rs, ok
}

func (e *Engine) loadOrder(ctx context.Context, orderID kernel.UUID) (*order.Order, error) {
	o, err := e.uowFactory.Create().OrderRepository().Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, err
	}
	return o, nil
}

// begin creates the run, moves both the run and the order to in_progress
// and persists the order.
func (e *Engine) begin(ctx context.Context, runID, orderID kernel.UUID) (*runState, error) {
	now := e.now()
	run, err := workflow.NewRun(runID, orderID, e.pipeline, now)
	if err != nil {
		return nil, err
	}
	if err = run.Begin(); err != nil {
		return nil, err
	}

	md := order.Metadata{RunID: runID.String(), StartedAt: &now}
	err = e.persist(ctx, orderID, nil, func(o *order.Order) error {
		if startErr := o.StartWorkflow(md); startErr != nil {
			return fmt.Errorf("%w: %w", ErrOrderNotStartable, startErr)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, err
	}

	return newRunState(run), nil
}

func (e *Engine) release(orderID, runID kernel.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	defer cancel()
	if err := e.registry.Release(ctx, orderID, runID); err != nil {
		e.logger.ErrorContext(ctx, "failed to release run claim",
			"order_id", orderID.String(), "run_id", runID.String(), "error", err)
	}
}

// notify hands an event to the sink. Failures are logged and dropped.
func (e *Engine) notify(ctx context.Context, orderID kernel.UUID, eventType notification.EventType, payload map[string]string) {
	if err := e.sink.Notify(ctx, orderID, eventType, payload); err != nil {
		e.logger.WarnContext(ctx, "notification dropped",
			"order_id", orderID.String(), "event_type", string(eventType), "error", err)
	}
}
