// Package execution records how each stage of a workflow run went: one
// StageExecution per stage started, with every failed attempt's error.
package execution

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// Status of a single stage execution.
type Status int

const (
	Unknown Status = iota
	Running
	Succeeded
	Failed
	Cancelled
)

var statusNames = map[Status]string{
	Running:   "running",
	Succeeded: "succeeded",
	Failed:    "failed",
	Cancelled: "cancelled",
}

func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid execution status", name))
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) Validate() error {
	if _, ok := statusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid execution status", s))
	}
	return nil
}

func (s Status) IsTerminal() bool { return s != Unknown && s != Running }

var ErrStageExecutionIsNotConstructed = errors.New("StageExecution must be created via NewStageExecution constructor")

// StageExecution is the audit record of one stage within one run.
type StageExecution struct {
	id         kernel.UUID
	runID      kernel.UUID
	orderID    kernel.UUID
	stage      string
	status     Status
	attempts   int
	errors     []string
	startedAt  time.Time
	finishedAt *time.Time

	isConstructed bool
}

// NewStageExecution starts a running record with no attempts yet.
func NewStageExecution(id, runID, orderID kernel.UUID, stage string, now time.Time) (*StageExecution, error) {
	if err := errors.Join(id.Validate(), runID.Validate(), orderID.Validate()); err != nil {
		return nil, err
	}
	if strings.TrimSpace(stage) == "" {
		return nil, errs.NewValueIsRequiredError("stage")
	}
	return &StageExecution{
		id:            id,
		runID:         runID,
		orderID:       orderID,
		stage:         stage,
		status:        Running,
		startedAt:     now,
		isConstructed: true,
	}, nil
}

// RestoreStageExecution rebuilds a record read back from storage.
func RestoreStageExecution(
	id, runID, orderID kernel.UUID,
	stage string,
	status Status,
	attempts int,
	attemptErrors []string,
	startedAt time.Time,
	finishedAt *time.Time,
) (*StageExecution, error) {
	e, err := NewStageExecution(id, runID, orderID, stage, startedAt)
	if err != nil {
		return nil, err
	}
	if err := status.Validate(); err != nil {
		return nil, err
	}
	if attempts < 0 {
		return nil, errs.NewValueIsInvalidErrorWithCause("attempts", fmt.Errorf("%d is negative", attempts))
	}
	e.status = status
	e.attempts = attempts
	e.errors = append([]string(nil), attemptErrors...)
	e.finishedAt = finishedAt
	return e, nil
}

// Clone returns an independent copy, so a transition can be written out
// before it is applied to the live record.
func (e *StageExecution) Clone() *StageExecution {
	c := *e
	c.errors = append([]string(nil), e.errors...)
	if e.finishedAt != nil {
		t := *e.finishedAt
		c.finishedAt = &t
	}
	return &c
}

func (e *StageExecution) Validate() error {
	if e == nil || !e.isConstructed {
		return ErrStageExecutionIsNotConstructed
	}
	return nil
}

func (e *StageExecution) ID() kernel.UUID { return e.id }

func (e *StageExecution) RunID() kernel.UUID { return e.runID }

func (e *StageExecution) OrderID() kernel.UUID { return e.orderID }

func (e *StageExecution) Stage() string { return e.stage }

func (e *StageExecution) Status() Status { return e.status }

// Attempts counts every invocation of the stage operation, successful or not.
func (e *StageExecution) Attempts() int { return e.attempts }

// Errors holds one message per failed attempt, oldest first.
func (e *StageExecution) Errors() []string { return append([]string(nil), e.errors...) }

// LastError is the message of the most recent failed attempt.
func (e *StageExecution) LastError() string {
	if len(e.errors) == 0 {
		return ""
	}
	return e.errors[len(e.errors)-1]
}

func (e *StageExecution) StartedAt() time.Time { return e.startedAt }

func (e *StageExecution) FinishedAt() *time.Time { return e.finishedAt }

// RecordAttempt registers one invocation. A nil cause means it succeeded.
func (e *StageExecution) RecordAttempt(cause error) error {
	if e.status != Running {
		return e.transitionError("record an attempt")
	}
	e.attempts++
	if cause != nil {
		e.errors = append(e.errors, cause.Error())
	}
	return nil
}

func (e *StageExecution) Succeed(now time.Time) error { return e.finish(Succeeded, now) }

func (e *StageExecution) Fail(now time.Time) error { return e.finish(Failed, now) }

func (e *StageExecution) Cancel(now time.Time) error { return e.finish(Cancelled, now) }

func (e *StageExecution) finish(to Status, now time.Time) error {
	if e.status != Running {
		return e.transitionError("finish as " + to.String())
	}
	e.status = to
	e.finishedAt = &now
	return nil
}

func (e *StageExecution) transitionError(action string) error {
	return errs.NewValueIsInvalidErrorWithCause(
		"status is invalid",
		fmt.Errorf("%s is not a valid status to %s", e.status, action),
	)
}
