package commands

import (
	"context"
	"log/slog"

	"orderflow/internal/core/domain/model/notification"
	"orderflow/internal/core/ports"
)

// AdvanceOrderStatusCommandHandler applies the transition, persists the
// status column and emits an order_status_update event once committed.
type AdvanceOrderStatusCommandHandler struct {
	uowFactory OrderUoWFactory
	sink       ports.NotificationSink
	logger     *slog.Logger
}

func NewAdvanceOrderStatusCommandHandler(
	uowFactory OrderUoWFactory,
	sink ports.NotificationSink,
	logger *slog.Logger,
) AdvanceOrderStatusCommandHandler {
	return AdvanceOrderStatusCommandHandler{
		uowFactory: uowFactory,
		sink:       sink,
		logger:     logger.With("component", "advance_order_status"),
	}
}

func (h *AdvanceOrderStatusCommandHandler) Handle(ctx context.Context, cmd AdvanceOrderStatusCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

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

	if err = o.AdvanceStatus(cmd.Next()); err != nil {
		return err
	}

	if err = orderRepo.UpdateStatus(ctx, o.ID(), o.Status()); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	payload := map[string]string{notification.PayloadStatus: o.Status().String()}
	if err = h.sink.Notify(ctx, o.ID(), notification.OrderStatusUpdate, payload); err != nil {
		h.logger.WarnContext(ctx, "notification dropped", "order_id", o.ID().String(), "error", err)
	}
	return nil
}
