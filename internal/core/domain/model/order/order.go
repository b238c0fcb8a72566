package order

import (
	"errors"
	"fmt"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

const (
	// MinProgress and MaxProgress bound WorkflowState.Progress.
	MinProgress = 0
	MaxProgress = 100
)

var (
	// ErrOrderIsNotConstructed is returned when an Order was not built by
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")
)

// WorkflowState groups the three workflow columns of an order. The engine
// writes it as one unit so that progress and status never disagree.
type WorkflowState struct {
	Status   WorkflowStatus
	Progress int
	Metadata Metadata
}

// Validate checks the cross-field invariants:
//   - progress lies in [0, 100]
//   - progress is 100 if and only if the workflow completed
func (w WorkflowState) Validate() error {
	if err := w.Status.Validate(); err != nil {
		return err
	}
	if w.Progress < MinProgress || w.Progress > MaxProgress {
		return errs.NewValueIsOutOfRangeError("workflow progress", w.Progress, MinProgress, MaxProgress)
	}
	if (w.Progress == MaxProgress) != (w.Status == WorkflowCompleted) {
		return errs.NewValueIsInvalidErrorWithCause(
			"workflow progress",
			fmt.Errorf("progress %d is inconsistent with workflow status %s", w.Progress, w.Status),
		)
	}
	return nil
}

// Order is the aggregate root for a food delivery order. Besides its
// customer-visible Status it carries the state of the processing workflow
// that confirms it (validation, payment, restaurant, courier, confirmation).
//
// Invariants:
//   - workflow progress is 100 if and only if the workflow completed
//   - a failed workflow implies a failed order
//   - progress never decreases while the workflow is in progress
//   - the workflow can only start for a pending order
//   - preparing..delivered are only reachable after the workflow completed
type Order struct {
	id              kernel.UUID
	customerID      kernel.UUID
	restaurantID    kernel.UUID
	totalAmount     int64
	deliveryAddress string

	status   Status
	workflow WorkflowState

	isConstructed bool
}

// NewOrder creates a pending order whose workflow is initiated at 0%.
//
// Example:
//
//	o, err := order.NewOrder(kernel.NewUUID(), customerID, restaurantID, 2599, "12 Baker St")
//	if err != nil {
//	    return err
//	}
func NewOrder(
	id kernel.UUID,
	customerID kernel.UUID,
	restaurantID kernel.UUID,
	totalAmount int64,
	deliveryAddress string,
) (*Order, error) {
	o := &Order{
		status:        Pending,
		workflow:      WorkflowState{Status: WorkflowInitiated},
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerID(customerID),
		o.setRestaurantID(restaurantID),
		o.setTotalAmount(totalAmount),
		o.setDeliveryAddress(deliveryAddress),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreOrder rebuilds an order read back from storage, validating every
// field and the status/workflow consistency rules.
func RestoreOrder(
	id kernel.UUID,
	customerID kernel.UUID,
	restaurantID kernel.UUID,
	totalAmount int64,
	deliveryAddress string,
	status Status,
	workflow WorkflowState,
) (*Order, error) {
	o := &Order{isConstructed: true}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerID(customerID),
		o.setRestaurantID(restaurantID),
		o.setTotalAmount(totalAmount),
		o.setDeliveryAddress(deliveryAddress),
		status.Validate(),
		workflow.Validate(),
	); err != nil {
		return nil, err
	}

	if workflow.Status == WorkflowFailed && status != Failed {
		return nil, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("failed workflow requires failed status, got %s", status),
		)
	}

	o.status = status
	o.workflow = workflow
	o.workflow.Metadata = workflow.Metadata.Clone()
	return o, nil
}

// Validate ensures the order was built by a constructor.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) ID() kernel.UUID { return o.id }

func (o *Order) CustomerID() kernel.UUID { return o.customerID }

func (o *Order) RestaurantID() kernel.UUID { return o.restaurantID }

// TotalAmount is expressed in minor currency units.
func (o *Order) TotalAmount() int64 { return o.totalAmount }

func (o *Order) DeliveryAddress() string { return o.deliveryAddress }

func (o *Order) Status() Status { return o.status }

// Workflow returns a copy of the workflow state.
func (o *Order) Workflow() WorkflowState {
	w := o.workflow
	w.Metadata = o.workflow.Metadata.Clone()
	return w
}

// StartWorkflow moves the workflow from initiated to in progress at 0%.
// Only pending orders can start.
func (o *Order) StartWorkflow(md Metadata) error {
	if o.status != Pending {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to start the workflow", o.status),
		)
	}
	next, err := o.workflow.Status.Begin()
	if err != nil {
		return err
	}
	o.workflow = WorkflowState{Status: next, Progress: MinProgress, Metadata: md.Clone()}
	return nil
}

// RecordProgress stores the cumulative weight of the last committed stage.
// 100 is reserved for CompleteWorkflow, and progress may not go backwards.
func (o *Order) RecordProgress(progress int, md Metadata) error {
	if o.workflow.Status != WorkflowInProgress {
		return errs.NewValueIsInvalidErrorWithCause(
			"workflow status is invalid",
			fmt.Errorf("cannot record progress while %s", o.workflow.Status),
		)
	}
	if progress < o.workflow.Progress || progress >= MaxProgress {
		return errs.NewValueIsOutOfRangeError("workflow progress", progress, o.workflow.Progress, MaxProgress-1)
	}
	o.workflow.Progress = progress
	o.workflow.Metadata = md.Clone()
	return nil
}

// CompleteWorkflow finishes the workflow at 100% and confirms the order.
// An order a stage already confirmed keeps its status.
//
// Valid transitions:
//   - workflow: in_progress -> completed
//   - status:   pending -> confirmed, or confirmed unchanged
//
// Returns an error when the workflow is not in progress or the status is
// neither pending nor confirmed.
func (o *Order) CompleteWorkflow(md Metadata) error {
	next, err := o.workflow.Status.Finish(WorkflowCompleted)
	if err != nil {
		return err
	}
	status := o.status
	if status != Confirmed {
		if status, err = o.status.Advance(Confirmed); err != nil {
			return err
		}
	}
	o.status = status
	o.workflow = WorkflowState{Status: next, Progress: MaxProgress, Metadata: md.Clone()}
	return nil
}

// ReachStatus applies the customer-visible status a committed stage maps
// to while the workflow is still running. Only Confirmed can be reached
// this way; the statuses after it require a completed workflow.
//
// Example:
//
//	if err := o.RecordProgress(40, md); err != nil {
//	    return err
//	}
//	if err := o.ReachStatus(order.Confirmed); err != nil {
//	    return err
//	}
func (o *Order) ReachStatus(next Status) error {
	if o.workflow.Status != WorkflowInProgress {
		return errs.NewValueIsInvalidErrorWithCause(
			"workflow status is invalid",
			fmt.Errorf("cannot reach %s while workflow is %s", next, o.workflow.Status),
		)
	}
	if next != Confirmed {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s cannot be reached before the workflow completed", next),
		)
	}
	status, err := o.status.Advance(next)
	if err != nil {
		return err
	}
	o.status = status
	return nil
}

// FailWorkflow marks the workflow and the order as failed. Progress stays
// at the last committed stage.
func (o *Order) FailWorkflow(md Metadata) error {
	next, err := o.workflow.Status.Finish(WorkflowFailed)
	if err != nil {
		return err
	}
	status, err := o.status.Fail()
	if err != nil {
		return err
	}
	o.status = status
	o.workflow.Status = next
	o.workflow.Metadata = md.Clone()
	return nil
}

// CancelWorkflow marks the workflow and the order as cancelled. Progress
// stays at the last committed stage.
func (o *Order) CancelWorkflow(md Metadata) error {
	next, err := o.workflow.Status.Finish(WorkflowCancelled)
	if err != nil {
		return err
	}
	status, err := o.status.Cancel()
	if err != nil {
		return err
	}
	o.status = status
	o.workflow.Status = next
	o.workflow.Metadata = md.Clone()
	return nil
}

// AdvanceStatus moves a confirmed order one step along the delivery path
// (preparing, ready, out_for_delivery, delivered).
func (o *Order) AdvanceStatus(next Status) error {
	if o.workflow.Status != WorkflowCompleted {
		return errs.NewValueIsInvalidErrorWithCause(
			"workflow status is invalid",
			fmt.Errorf("order status cannot advance while workflow is %s", o.workflow.Status),
		)
	}
	status, err := o.status.Advance(next)
	if err != nil {
		return err
	}
	o.status = status
	return nil
}

// Cancel cancels an order no workflow run is driving. An in-progress
// workflow found here is left over from a crashed run and is cancelled too.
func (o *Order) Cancel() error {
	if o.workflow.Status == WorkflowInProgress {
		return o.CancelWorkflow(o.workflow.Metadata)
	}
	status, err := o.status.Cancel()
	if err != nil {
		return err
	}
	o.status = status
	return nil
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setCustomerID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("customer id", err)
	}
	o.customerID = id
	return nil
}

func (o *Order) setRestaurantID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("restaurant id", err)
	}
	o.restaurantID = id
	return nil
}

func (o *Order) setTotalAmount(amount int64) error {
	if amount <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("total amount is invalid", fmt.Errorf("%d is not greater than 0", amount))
	}
	o.totalAmount = amount
	return nil
}

func (o *Order) setDeliveryAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return errs.NewValueIsRequiredError("delivery address")
	}
	o.deliveryAddress = address
	return nil
}
