package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// Status is the customer-visible state of an order.
//
// Happy path (one step at a time, never backwards):
//
//	Pending ──> Confirmed ──> Preparing ──> Ready ──> OutForDelivery ──> Delivered
//	   │            │             │           │              │
//	   └────────────┴─────────────┴───────────┴──────────────┴──> Cancelled | Failed
//
// Delivered, Cancelled and Failed are terminal.
type Status int

const (
	// Unknown (0) catches uninitialized values.
	Unknown Status = iota
	Pending
	Confirmed
	Preparing
	Ready
	OutForDelivery
	Delivered
	Cancelled
	Failed
)

var statusNames = map[Status]string{
	Pending:        "pending",
	Confirmed:      "confirmed",
	Preparing:      "preparing",
	Ready:          "ready",
	OutForDelivery: "out_for_delivery",
	Delivered:      "delivered",
	Cancelled:      "cancelled",
	Failed:         "failed",
}

// happyPath lists the monotonic progression; the index is the rank.
var happyPath = []Status{Pending, Confirmed, Preparing, Ready, OutForDelivery, Delivered}

// ParseStatus maps a persisted or wire name back to a Status.
//
// Returns:
//   - (status, nil) for one of the lowercase names String produces
//   - (Unknown, error) for anything else, "unknown" included
//
// Example:
//
//	s, err := order.ParseStatus("out_for_delivery") // OutForDelivery, nil
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", name))
}

// Validate rejects Unknown and out-of-range values coming from storage.
func (s Status) Validate() error {
	if _, ok := statusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String implements fmt.Stringer. Invalid values print as "unknown".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether no further transition is possible.
//
// Returns true for Delivered, Cancelled and Failed. Unknown is not terminal,
// but every transition from it is still rejected.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled || s == Failed
}

// Advance moves one step forward along the happy path.
//
// Valid transitions:
//   - Pending -> Confirmed
//   - Confirmed -> Preparing
//   - Preparing -> Ready
//   - Ready -> OutForDelivery
//   - OutForDelivery -> Delivered
//
// Invalid transitions:
//   - backward moves (Preparing -> Confirmed)
//   - skipped steps (Pending -> Preparing)
//   - any move out of Delivered, Cancelled or Failed
//   - Cancelled or Failed as the target, use Cancel and Fail instead
//
// Returns:
//   - (next, nil) on a valid transition
//   - (Unknown, error) otherwise
//
// Example:
//
//	next, err := order.Confirmed.Advance(order.Preparing) // Preparing, nil
//	_, err = order.Confirmed.Advance(order.Ready)         // error: skips Preparing
func (s Status) Advance(next Status) (Status, error) {
	from := s.rank()
	to := next.rank()
	if from < 0 || s.IsTerminal() {
		return Unknown, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to advance from", s),
		)
	}
	if to != from+1 {
		return Unknown, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s cannot advance to %s", s, next),
		)
	}
	return next, nil
}

// Cancel transitions the status to Cancelled.
//
// Valid transitions:
//   - Pending, Confirmed, Preparing, Ready, OutForDelivery -> Cancelled
//
// Invalid transitions:
//   - Delivered, Cancelled or Failed -> Cancelled
//   - Unknown -> Cancelled
//
// Returns:
//   - (Cancelled, nil) on a valid transition
//   - (Unknown, error) otherwise
//
// Example:
//
//	s, err := order.Preparing.Cancel() // Cancelled, nil
func (s Status) Cancel() (Status, error) {
	if err := s.validateNonTerminal("cancel"); err != nil {
		return Unknown, err
	}
	return Cancelled, nil
}

// Fail transitions the status to Failed. The workflow engine uses it when
// a run exhausts its retries.
//
// Valid transitions:
//   - Pending, Confirmed, Preparing, Ready, OutForDelivery -> Failed
//
// Invalid transitions:
//   - Delivered, Cancelled or Failed -> Failed
//   - Unknown -> Failed
//
// Returns:
//   - (Failed, nil) on a valid transition
//   - (Unknown, error) otherwise
//
// Example:
//
//	s, err := order.Pending.Fail() // Failed, nil
func (s Status) Fail() (Status, error) {
	if err := s.validateNonTerminal("fail"); err != nil {
		return Unknown, err
	}
	return Failed, nil
}

func (s Status) validateNonTerminal(action string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.IsTerminal() {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to %s", s, action),
		)
	}
	return nil
}

func (s Status) rank() int {
	for i, step := range happyPath {
		if step == s {
			return i
		}
	}
	return -1
}
