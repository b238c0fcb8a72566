package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned by Start for an unknown order id. No run is created.
	ErrOrderNotFound = errors.New("order not found")

	// ErrAlreadyRunning is returned by Start while another run owns the order.
	ErrAlreadyRunning = errors.New("workflow already running for order")

	// ErrRunNotFound is returned for a run id the engine does not know.
	ErrRunNotFound = errors.New("workflow run not found")

	// ErrAlreadyTerminal is returned by Cancel once the run completed, failed or was cancelled.
	ErrAlreadyTerminal = errors.New("workflow run already terminal")

	// ErrStageTimeout marks a stage attempt that exceeded its timeout. It is
	// retried like any other stage failure.
	ErrStageTimeout = errors.New("stage timed out")

	// ErrOrderNotStartable is returned by Start when the order is not pending
	// or its workflow already left the initiated state.
	ErrOrderNotStartable = errors.New("order cannot start a workflow")

	// ErrEngineClosed is returned by Start after Shutdown.
	ErrEngineClosed = errors.New("workflow engine is shut down")
)

// StageFailureError is one failed attempt of a stage. It stays inside the
// retry loop and never reaches the order unless retries run out.
type StageFailureError struct {
	Stage   string
	Attempt int
	Err     error
}

func (e *StageFailureError) Error() string {
	return fmt.Sprintf("stage %s attempt %d failed: %v", e.Stage, e.Attempt, e.Err)
}

func (e *StageFailureError) Unwrap() error { return e.Err }

// RetriesExhaustedError ends a run: the stage failed MaxRetries consecutive
// times. Last is the final StageFailureError.
type RetriesExhaustedError struct {
	Stage    string
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("stage %s failed %d times: %v", e.Stage, e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }
