package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"orderflow/internal/core/application/engine"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/guard"
)

var ErrCancelOrderCommandIsNotConstructed = errors.New(
	"CancelOrderCommand must be created via NewCancelOrderCommand constructor",
)

// CancelOrderCommand cancels an order whatever its workflow is doing.
type CancelOrderCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewCancelOrderCommand(orderID kernel.UUID) (CancelOrderCommand, error) {
	if err := orderID.Validate(); err != nil {
		return CancelOrderCommand{}, err
	}
	return CancelOrderCommand{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (c CancelOrderCommand) Validate() error {
	return c.guard.Validate(ErrCancelOrderCommandIsNotConstructed)
}

func (c CancelOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// CancelOrderCommandHandler routes the cancellation through the engine while
// a run owns the order, so the run stays the only writer of its workflow.
// Otherwise it claims the order in the run registry and cancels the aggregate
// directly; that also covers a run left in_progress by an interrupted
// process. A claim held elsewhere, by another instance's run, is reported as
// engine.ErrAlreadyRunning.
type CancelOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	engine     WorkflowEngine
	registry   ports.RunRegistry
	sink       ports.NotificationSink
	logger     *slog.Logger
}

func NewCancelOrderCommandHandler(
	uowFactory OrderUoWFactory,
	engine WorkflowEngine,
	registry ports.RunRegistry,
	sink ports.NotificationSink,
	logger *slog.Logger,
) CancelOrderCommandHandler {
	return CancelOrderCommandHandler{
		uowFactory: uowFactory,
		engine:     engine,
		registry:   registry,
		sink:       sink,
		logger:     logger.With("component", "cancel_order"),
	}
}

func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if run, ok := h.engine.ActiveRun(cmd.OrderID()); ok {
		return h.engine.Cancel(ctx, run.RunID)
	}

	claimID := kernel.NewUUID()
	if err := h.registry.Claim(ctx, cmd.OrderID(), claimID); err != nil {
		if errors.Is(err, ports.ErrRunAlreadyClaimed) {
			return fmt.Errorf("%w: %s is claimed by another run", engine.ErrAlreadyRunning, cmd.OrderID())
		}
		return fmt.Errorf("claim order %s: %w", cmd.OrderID(), err)
	}
	defer func() {
		if err := h.registry.Release(context.WithoutCancel(ctx), cmd.OrderID(), claimID); err != nil {
			h.logger.WarnContext(ctx, "failed to release claim", "order_id", cmd.OrderID().String(), "error", err)
		}
	}()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()
	o, err := orderRepo.Get(ctx, cmd.OrderID())
	if err != nil {
		return err
	}

	if err = o.Cancel(); err != nil {
		return err
	}

	if err = orderRepo.Update(ctx, o); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	payload := map[string]string{
		notification.PayloadStatus:         o.Status().String(),
		notification.PayloadWorkflowStatus: o.Workflow().Status.String(),
	}
	if err = h.sink.Notify(ctx, o.ID(), notification.OrderStatusUpdate, payload); err != nil {
		h.logger.WarnContext(ctx, "notification dropped", "order_id", o.ID().String(), "error", err)
	}
	return nil
}
