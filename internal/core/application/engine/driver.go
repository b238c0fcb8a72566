package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/core/domain/model/execution"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/model/workflow"
	"orderflow/internal/core/ports"
)

// drive walks the pipeline until the run is terminal. It is the only
// goroutine that writes the order's workflow columns while the run is active.
func (e *Engine) drive(rs *runState) {
	orderID := rs.run.OrderID()
	runID := rs.run.ID()

	ctx, span := e.tracer.Start(e.ctx, "workflow.run", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("run.id", runID.String()),
	))
	logger := e.logger.With("order_id", orderID.String(), "run_id", runID.String())

	defer func() {
		e.mu.Lock()
		if e.active[orderID] == rs {
			delete(e.active, orderID)
		}
		e.mu.Unlock()
		e.release(orderID, runID)

		final := rs.snapshot()
		span.SetAttributes(
			attribute.String("workflow.status", final.WorkflowStatus.String()),
			attribute.Int("workflow.progress", final.Progress),
		)
		if final.WorkflowStatus == order.WorkflowFailed {
			span.SetStatus(codes.Error, final.Error)
		}
		span.End()

		close(rs.done)
		e.wg.Done()
	}()

	policy := e.cfg.backoff()
	backOff := policy.NewBackOff()
	var exec *execution.StageExecution

	for {
		rs.mu.Lock()
		if rs.run.IsTerminal() {
			e.finishCancelled(ctx, rs, exec)
			rs.mu.Unlock()
			return
		}
		stage, index, _ := rs.run.CurrentStage()
		attempt := rs.run.Attempt()
		stageCtx, cancelStage := context.WithCancel(ctx)
		rs.stageCancel = cancelStage
		rs.mu.Unlock()

		if attempt == 1 {
			backOff.Reset()
			exec = e.openExecution(ctx, rs, stage.Name)
		}

		stageErr := e.runStage(stageCtx, rs, stage, attempt)
		cancelStage()

		if e.ctx.Err() != nil {
			logger.WarnContext(ctx, "workflow interrupted by shutdown", "stage", stage.Name, "attempt", attempt)
			e.closeExecution(exec, (*execution.StageExecution).Cancel)
			return
		}

		rs.mu.Lock()
		rs.stageCancel = nil
		if rs.run.IsTerminal() {
			// Cancelled while the stage was running. The attempt has returned,
			// but its result is not committed.
			e.finishCancelled(ctx, rs, exec)
			rs.mu.Unlock()
			return
		}

		if exec != nil {
			_ = exec.RecordAttempt(stageErr)
		}

		if stageErr == nil {
			last, statusChanged, err := e.commitStage(ctx, rs, exec)
			snap := rs.snapshot()
			rs.mu.Unlock()
			if err != nil {
				logger.ErrorContext(ctx, "failed to persist stage", "stage", stage.Name, "error", err)
				e.abort(ctx, rs, exec, err)
				return
			}
			logger.InfoContext(ctx, "stage committed",
				"stage", stage.Name, "attempt", attempt, "progress", e.pipeline.CumulativeWeight(index))
			if statusChanged {
				e.notify(ctx, orderID, notification.OrderStatusUpdate, map[string]string{
					notification.PayloadStatus:         order.Confirmed.String(),
					notification.PayloadWorkflowStatus: snap.WorkflowStatus.String(),
					notification.PayloadProgress:       strconv.Itoa(snap.Progress),
					notification.PayloadStage:          stage.Name,
					notification.PayloadRunID:          runID.String(),
				})
			}
			if last {
				logger.InfoContext(ctx, "workflow completed")
				return
			}
			continue
		}

		exhausted, err := rs.run.RecordFailure(stageErr)
		if err != nil {
			rs.mu.Unlock()
			e.abort(ctx, rs, exec, err)
			return
		}
		if exhausted {
			final := &RetriesExhaustedError{Stage: stage.Name, Attempts: attempt, Last: stageErr}
			persistErr := e.failRun(ctx, rs, exec, final)
			rs.mu.Unlock()
			if persistErr != nil {
				logger.ErrorContext(ctx, "failed to persist workflow failure", "error", persistErr)
			}
			logger.WarnContext(ctx, "workflow failed", "stage", stage.Name, "attempts", attempt, "error", stageErr)
			e.notify(ctx, orderID, notification.WorkflowFailed, map[string]string{
				notification.PayloadStatus:         order.Failed.String(),
				notification.PayloadWorkflowStatus: order.WorkflowFailed.String(),
				notification.PayloadProgress:       strconv.Itoa(rs.snapshot().Progress),
				notification.PayloadStage:          stage.Name,
				notification.PayloadError:          final.Error(),
				notification.PayloadRunID:          runID.String(),
			})
			return
		}
		rs.publish()
		rs.mu.Unlock()

		e.saveExecution(ctx, exec)
		delay := backOff.NextBackOff()
		logger.InfoContext(ctx, "stage failed, retrying",
			"stage", stage.Name, "attempt", attempt, "retry_in", delay, "error", stageErr)

		if !e.sleep(ctx, rs, delay) {
			logger.WarnContext(ctx, "workflow interrupted by shutdown", "stage", stage.Name)
			e.closeExecution(exec, (*execution.StageExecution).Cancel)
			return
		}
	}
}

// runStage dispatches one attempt and waits for its outcome. Cancelling the
// run only signals ctx: the attempt still reports back, bounded by the stage
// timeout, so the run ends at a stage boundary. Shutdown stops the wait.
func (e *Engine) runStage(ctx context.Context, rs *runState, stage workflow.Stage, attempt int) error {
	ctx, span := e.tracer.Start(ctx, "workflow.stage", trace.WithAttributes(
		attribute.String("stage.name", stage.Name),
		attribute.Int("stage.attempt", attempt),
	))
	defer span.End()

	o, err := e.loadOrder(ctx, rs.run.OrderID())
	if err != nil {
		err = &StageFailureError{Stage: stage.Name, Attempt: attempt, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	in := workflow.NewStageInput(o, attempt)

	results := e.dispatcher.Dispatch(ctx, ports.Task{
		Name:    stage.Name,
		OrderID: rs.run.OrderID(),
		Attempt: attempt,
		Timeout: stage.Timeout,
		Run: func(taskCtx context.Context) error {
			return stage.Operation(taskCtx, in)
		},
	})

	select {
	case err = <-results:
	case <-e.ctx.Done():
		err = e.ctx.Err()
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, ports.ErrTaskTimeout) || errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", ErrStageTimeout, stage.Timeout, err)
	}
	err = &StageFailureError{Stage: stage.Name, Attempt: attempt, Err: err}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// sleep waits out a backoff delay. It returns early and true when the run is
// cancelled, and false when the engine shuts down.
func (e *Engine) sleep(ctx context.Context, rs *runState, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-rs.cancelled:
		return true
	case <-ctx.Done():
		return false
	}
}

// commitStage persists the current stage's cumulative progress, or the
// completion of the workflow for the last stage, then applies it to the run.
// It reports whether the stage was the last one and whether it changed the
// customer-visible status. It must be called with rs.mu held.
func (e *Engine) commitStage(ctx context.Context, rs *runState, exec *execution.StageExecution) (bool, bool, error) {
	stage, index, _ := rs.run.CurrentStage()
	last := index == e.pipeline.Len()-1
	progress := e.pipeline.CumulativeWeight(index)
	now := e.now()

	var record *execution.StageExecution
	if exec != nil {
		record = exec.Clone()
		_ = record.Succeed(now)
	}

	statusChanged := false
	err := e.persist(ctx, rs.run.OrderID(), record, func(o *order.Order) error {
		before := o.Status()
		md := o.Workflow().Metadata
		md.LastStage = stage.Name
		md.Error = ""
		md.RetryCount = 0

		var mutateErr error
		switch {
		case last:
			md.FinishedAt = &now
			mutateErr = o.CompleteWorkflow(md)
		case stage.Reaches != order.Unknown:
			if mutateErr = o.RecordProgress(progress, md); mutateErr == nil {
				mutateErr = o.ReachStatus(stage.Reaches)
			}
		default:
			mutateErr = o.RecordProgress(progress, md)
		}
		statusChanged = o.Status() != before
		return mutateErr
	})
	if err != nil {
		return false, false, err
	}
	if exec != nil {
		_ = exec.Succeed(now)
	}

	if _, _, err = rs.run.CommitStage(); err != nil {
		return false, false, err
	}
	if last {
		if err = rs.run.Complete(now); err != nil {
			return false, false, err
		}
	}
	rs.publish()
	return last, statusChanged, nil
}

// failRun applies and persists a failed outcome. It must be called with rs.mu held.
func (e *Engine) failRun(ctx context.Context, rs *runState, exec *execution.StageExecution, cause error) error {
	now := e.now()
	stage, _, _ := rs.run.CurrentStage()
	failures := rs.run.Attempt() - 1
	if err := rs.run.Fail(now); err != nil {
		return err
	}
	rs.publish()

	if exec != nil {
		_ = exec.Fail(now)
	}
	return e.persist(ctx, rs.run.OrderID(), exec, func(o *order.Order) error {
		md := o.Workflow().Metadata
		md.LastStage = stage.Name
		md.Error = cause.Error()
		md.RetryCount = failures
		md.FinishedAt = &now
		return o.FailWorkflow(md)
	})
}

// finishCancelled persists a cancellation requested through Cancel. It must
// be called with rs.mu held.
func (e *Engine) finishCancelled(ctx context.Context, rs *runState, exec *execution.StageExecution) {
	snap := rs.snapshot()
	if exec != nil && exec.Status() == execution.Running {
		_ = exec.Cancel(snap.FinishedAt)
	}

	err := e.persist(ctx, rs.run.OrderID(), exec, func(o *order.Order) error {
		md := o.Workflow().Metadata
		md.FinishedAt = &snap.FinishedAt
		return o.CancelWorkflow(md)
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to persist workflow cancellation",
			"order_id", snap.OrderID.String(), "run_id", snap.RunID.String(), "error", err)
	}

	e.logger.InfoContext(ctx, "workflow cancelled",
		"order_id", snap.OrderID.String(), "run_id", snap.RunID.String(), "progress", snap.Progress)
	e.notify(ctx, snap.OrderID, notification.WorkflowCancelled, map[string]string{
		notification.PayloadStatus:         order.Cancelled.String(),
		notification.PayloadWorkflowStatus: order.WorkflowCancelled.String(),
		notification.PayloadProgress:       strconv.Itoa(snap.Progress),
		notification.PayloadRunID:          snap.RunID.String(),
	})
}

// abort fails a run whose bookkeeping broke, for example because the order
// store rejected a write.
func (e *Engine) abort(ctx context.Context, rs *runState, exec *execution.StageExecution, cause error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.run.IsTerminal() {
		return
	}
	if err := e.failRun(ctx, rs, exec, cause); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist workflow abort",
			"order_id", rs.run.OrderID().String(), "run_id", rs.run.ID().String(), "error", err)
	}
}

// persist loads the order inside a transaction, applies mutate and writes
// the workflow columns, the status when it changed, and the execution record.
// Writes use their own timeout and survive cancellation of ctx.
func (e *Engine) persist(
	ctx context.Context,
	orderID kernel.UUID,
	exec *execution.StageExecution,
	mutate func(o *order.Order) error,
) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.PersistTimeout)
	defer cancel()

	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	before := o.Status()
	if err = mutate(o); err != nil {
		return err
	}

	if err = repo.UpdateWorkflow(ctx, orderID, o.Workflow()); err != nil {
		return err
	}
	if o.Status() != before {
		if err = repo.UpdateStatus(ctx, orderID, o.Status()); err != nil {
			return err
		}
	}
	if exec != nil {
		if err = uow.StageExecutionRepository().Add(ctx, exec); err != nil {
			return err
		}
	}

	return uow.Commit(ctx)
}

func (e *Engine) openExecution(ctx context.Context, rs *runState, stage string) *execution.StageExecution {
	exec, err := execution.NewStageExecution(kernel.NewUUID(), rs.run.ID(), rs.run.OrderID(), stage, e.now())
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to open stage execution", "stage", stage, "error", err)
		return nil
	}
	e.saveExecution(ctx, exec)
	return exec
}

func (e *Engine) closeExecution(exec *execution.StageExecution, finish func(*execution.StageExecution, time.Time) error) {
	if exec == nil || exec.Status() != execution.Running {
		return
	}
	_ = finish(exec, e.now())
	e.saveExecution(e.ctx, exec)
}

// saveExecution writes the audit record on its own. Failures are logged
// only; the execution log never decides the outcome of a run.
func (e *Engine) saveExecution(ctx context.Context, exec *execution.StageExecution) {
	if exec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.PersistTimeout)
	defer cancel()

	if err := e.uowFactory.Create().StageExecutionRepository().Add(ctx, exec); err != nil {
		e.logger.WarnContext(ctx, "failed to save stage execution",
			"order_id", exec.OrderID().String(), "stage", exec.Stage(), "error", err)
	}
}
