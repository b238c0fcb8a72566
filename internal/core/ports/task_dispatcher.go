package ports

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

// Task is one unit of stage work handed to a dispatcher.
type Task struct {
	Name    string
	OrderID kernel.UUID
	Attempt int
	// Timeout bounds Run. Exceeding it is reported as a failure.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// TaskDispatcher executes tasks on its own workers.
type TaskDispatcher interface {
	// Dispatch schedules t and returns a channel that receives exactly one
	// value, nil on success, once t finished, failed or timed out.
	// Cancelling ctx is forwarded to the running task.
	Dispatch(ctx context.Context, t Task) <-chan error
}

// ErrTaskTimeout is sent by a dispatcher when a task exceeded its Timeout.
var ErrTaskTimeout = errors.New("task timed out")
