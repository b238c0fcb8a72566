package workflow

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// Progress is a point-in-time view of a Run, safe to hand out to callers.
type Progress struct {
	RunID          kernel.UUID
	OrderID        kernel.UUID
	WorkflowStatus order.WorkflowStatus
	Progress       int
	// CurrentStage is the stage being executed, or the last one attempted
	// once the run is terminal. Empty before the first stage starts.
	CurrentStage string
	RetryCount   int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Run is one execution of a pipeline for one order. It lives only while the
// engine drives it; the outcome is persisted on the order.
type Run struct {
	id       kernel.UUID
	orderID  kernel.UUID
	pipeline Pipeline

	status     order.WorkflowStatus
	stageIndex int
	retries    []int
	progress   int
	lastError  string
	startedAt  time.Time
	finishedAt time.Time
}

// NewRun creates a run in the initiated state.
func NewRun(id kernel.UUID, orderID kernel.UUID, pipeline Pipeline, now time.Time) (*Run, error) {
	if err := errors.Join(id.Validate(), orderID.Validate(), pipeline.Validate()); err != nil {
		return nil, err
	}
	return &Run{
		id:        id,
		orderID:   orderID,
		pipeline:  pipeline,
		status:    order.WorkflowInitiated,
		retries:   make([]int, pipeline.Len()),
		startedAt: now,
	}, nil
}

func (r *Run) ID() kernel.UUID { return r.id }

func (r *Run) OrderID() kernel.UUID { return r.orderID }

func (r *Run) Status() order.WorkflowStatus { return r.status }

func (r *Run) Progress() int { return r.progress }

func (r *Run) StartedAt() time.Time { return r.startedAt }

func (r *Run) FinishedAt() time.Time { return r.finishedAt }

func (r *Run) IsTerminal() bool { return r.status.IsTerminal() }

// Begin moves the run from initiated to in progress.
func (r *Run) Begin() error {
	next, err := r.status.Begin()
	if err != nil {
		return err
	}
	r.status = next
	return nil
}

// CurrentStage returns the stage to execute next and its index. ok is false
// once every stage committed.
func (r *Run) CurrentStage() (stage Stage, index int, ok bool) {
	if r.stageIndex >= r.pipeline.Len() {
		return Stage{}, r.stageIndex, false
	}
	return r.pipeline.Stage(r.stageIndex), r.stageIndex, true
}

// Attempt is the 1-indexed attempt number of the current stage.
func (r *Run) Attempt() int {
	if r.stageIndex >= len(r.retries) {
		return 0
	}
	return r.retries[r.stageIndex] + 1
}

// RecordFailure counts a failed attempt of the current stage and reports
// whether the stage exhausted its retries.
func (r *Run) RecordFailure(cause error) (bool, error) {
	if err := r.requireRunning(); err != nil {
		return false, err
	}
	stage, _, ok := r.CurrentStage()
	if !ok {
		return false, errs.NewValueIsInvalidErrorWithCause("run stage", errors.New("no stage left to fail"))
	}
	r.retries[r.stageIndex]++
	if cause != nil {
		r.lastError = cause.Error()
	}
	return r.retries[r.stageIndex] >= stage.MaxRetries, nil
}

// CommitStage marks the current stage successful and moves to the next one.
// It returns the cumulative progress reached and whether that was the last
// stage. The final stage leaves progress below 100 until Complete.
func (r *Run) CommitStage() (progress int, last bool, err error) {
	if err := r.requireRunning(); err != nil {
		return 0, false, err
	}
	if r.stageIndex >= r.pipeline.Len() {
		return 0, false, errs.NewValueIsInvalidErrorWithCause("run stage", errors.New("no stage left to commit"))
	}
	progress = r.pipeline.CumulativeWeight(r.stageIndex)
	r.stageIndex++
	last = r.stageIndex == r.pipeline.Len()
	if !last {
		r.progress = progress
	}
	r.lastError = ""
	return progress, last, nil
}

// Complete finishes the run at 100 percent.
func (r *Run) Complete(now time.Time) error {
	if _, _, ok := r.CurrentStage(); ok {
		return errs.NewValueIsInvalidErrorWithCause("run stage", fmt.Errorf("%d stages left", r.pipeline.Len()-r.stageIndex))
	}
	if err := r.finish(order.WorkflowCompleted, now); err != nil {
		return err
	}
	r.progress = order.MaxProgress
	return nil
}

// Fail finishes the run as failed. Progress stays at the last committed stage.
func (r *Run) Fail(now time.Time) error {
	return r.finish(order.WorkflowFailed, now)
}

// Cancel finishes the run as cancelled. Progress stays at the last committed stage.
func (r *Run) Cancel(now time.Time) error {
	return r.finish(order.WorkflowCancelled, now)
}

// Snapshot copies the current state for readers.
func (r *Run) Snapshot() Progress {
	p := Progress{
		RunID:          r.id,
		OrderID:        r.orderID,
		WorkflowStatus: r.status,
		Progress:       r.progress,
		Error:          r.lastError,
		StartedAt:      r.startedAt,
		FinishedAt:     r.finishedAt,
	}
	if r.status == order.WorkflowInitiated {
		return p
	}
	idx := r.stageIndex
	if idx >= r.pipeline.Len() {
		idx = r.pipeline.Len() - 1
	}
	p.CurrentStage = r.pipeline.Stage(idx).Name
	p.RetryCount = r.retries[idx]
	return p
}

func (r *Run) finish(terminal order.WorkflowStatus, now time.Time) error {
	next, err := r.status.Finish(terminal)
	if err != nil {
		return err
	}
	r.status = next
	r.finishedAt = now
	return nil
}

func (r *Run) requireRunning() error {
	if r.status != order.WorkflowInProgress {
		return errs.NewValueIsInvalidErrorWithCause(
			"workflow status is invalid",
			fmt.Errorf("run is %s", r.status),
		)
	}
	return nil
}
