package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// WorkflowStatus is the internal lifecycle of the processing workflow,
// distinct from the customer-visible Status.
//
//	Initiated ──> InProgress ──┬──> Completed
//	                           ├──> Failed
//	                           └──> Cancelled
//
// The three right-hand states are terminal.
type WorkflowStatus int

const (
	WorkflowUnknown WorkflowStatus = iota
	WorkflowInitiated
	WorkflowInProgress
	WorkflowCompleted
	WorkflowFailed
	WorkflowCancelled
)

var workflowStatusNames = map[WorkflowStatus]string{
	WorkflowInitiated:  "initiated",
	WorkflowInProgress: "in_progress",
	WorkflowCompleted:  "completed",
	WorkflowFailed:     "failed",
	WorkflowCancelled:  "cancelled",
}

// ParseWorkflowStatus maps a persisted name back to a WorkflowStatus.
func ParseWorkflowStatus(name string) (WorkflowStatus, error) {
	for s, n := range workflowStatusNames {
		if n == name {
			return s, nil
		}
	}
	return WorkflowUnknown, errs.NewValueIsInvalidErrorWithCause(
		"workflow status is invalid",
		fmt.Errorf("%q is not a valid workflow status", name),
	)
}

func (s WorkflowStatus) Validate() error {
	if _, ok := workflowStatusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause(
			"workflow status is invalid",
			fmt.Errorf("%d is not a valid workflow status", s),
		)
	}
	return nil
}

func (s WorkflowStatus) String() string {
	if name, ok := workflowStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether the workflow reached completed, failed or cancelled.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed || s == WorkflowCancelled
}

// Begin transitions Initiated to InProgress when a run starts.
//
// Valid transitions:
//   - Initiated -> InProgress
//
// Invalid transitions:
//   - InProgress -> InProgress (a run already owns the workflow)
//   - any terminal status, a finished workflow never restarts
//
// Returns:
//   - (WorkflowInProgress, nil) on a valid transition
//   - (WorkflowUnknown, error) otherwise
//
// Example:
//
//	s, err := order.WorkflowInitiated.Begin() // WorkflowInProgress, nil
func (s WorkflowStatus) Begin() (WorkflowStatus, error) {
	if s != WorkflowInitiated {
		return WorkflowUnknown, s.transitionError(WorkflowInProgress)
	}
	return WorkflowInProgress, nil
}

// Finish transitions InProgress to one of the terminal states.
//
// Valid transitions:
//   - InProgress -> Completed
//   - InProgress -> Failed
//   - InProgress -> Cancelled
//
// Invalid transitions:
//   - Initiated -> any terminal status, the workflow never ran
//   - a terminal source, the outcome is final
//   - a non-terminal target such as Initiated
//
// Returns:
//   - (terminal, nil) on a valid transition
//   - (WorkflowUnknown, error) otherwise
//
// Example:
//
//	s, err := order.WorkflowInProgress.Finish(order.WorkflowFailed) // WorkflowFailed, nil
func (s WorkflowStatus) Finish(terminal WorkflowStatus) (WorkflowStatus, error) {
	if s != WorkflowInProgress || !terminal.IsTerminal() {
		return WorkflowUnknown, s.transitionError(terminal)
	}
	return terminal, nil
}

func (s WorkflowStatus) transitionError(to WorkflowStatus) error {
	return errs.NewValueIsInvalidErrorWithCause(
		"workflow status is invalid",
		fmt.Errorf("%s cannot transition to %s", s, to),
	)
}
