package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"orderflow/internal/core/application/engine"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	DefaultAwaitingWorkflowsBatch = 50
	MaxAwaitingWorkflowsBatch     = 1000
)

var (
	ErrStartAwaitingWorkflowsCommandIsNotConstructed = errors.New(
		"StartAwaitingWorkflowsCommand must be created via NewStartAwaitingWorkflowsCommand constructor",
	)

	// ErrNoAwaitingOrders is returned when no pending order is waiting for its workflow.
	ErrNoAwaitingOrders = errors.New("no orders awaiting workflow")
)

// StartAwaitingWorkflowsCommand starts the workflow of pending orders that
// were created but never picked up.
type StartAwaitingWorkflowsCommand struct { //nolint:recvcheck //using for validation
	batchSize int

	guard guard.ConstructorGuard
}

func NewStartAwaitingWorkflowsCommand(batchSize int) (StartAwaitingWorkflowsCommand, error) {
	if batchSize <= 0 || batchSize > MaxAwaitingWorkflowsBatch {
		return StartAwaitingWorkflowsCommand{}, errs.NewValueIsOutOfRangeError(
			"batch size", batchSize, 1, MaxAwaitingWorkflowsBatch,
		)
	}
	return StartAwaitingWorkflowsCommand{batchSize: batchSize, guard: guard.NewConstructorGuard()}, nil
}

func (c StartAwaitingWorkflowsCommand) Validate() error {
	return c.guard.Validate(ErrStartAwaitingWorkflowsCommandIsNotConstructed)
}

func (c StartAwaitingWorkflowsCommand) BatchSize() int {
	return c.batchSize
}

// StartAwaitingWorkflowsCommandHandler hands awaiting orders to the engine.
// Orders another run already owns, or that stopped being startable since
// they were read, are skipped.
type StartAwaitingWorkflowsCommandHandler struct {
	uowFactory OrderUoWFactory
	engine     WorkflowEngine
	logger     *slog.Logger
}

func NewStartAwaitingWorkflowsCommandHandler(
	uowFactory OrderUoWFactory,
	engine WorkflowEngine,
	logger *slog.Logger,
) StartAwaitingWorkflowsCommandHandler {
	return StartAwaitingWorkflowsCommandHandler{
		uowFactory: uowFactory,
		engine:     engine,
		logger:     logger.With("component", "start_awaiting_workflows"),
	}
}

// Handle returns how many workflows were started. Failures to start single
// orders are logged and joined into the returned error.
func (h *StartAwaitingWorkflowsCommandHandler) Handle(ctx context.Context, cmd StartAwaitingWorkflowsCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	orders, err := h.uowFactory.Create().OrderRepository().GetAwaitingWorkflow(ctx, cmd.BatchSize())
	if err != nil {
		return 0, err
	}
	if len(orders) == 0 {
		return 0, ErrNoAwaitingOrders
	}

	var (
		started int
		failed  []error
	)
	for _, o := range orders {
		if ctx.Err() != nil {
			return started, ctx.Err()
		}

		progress, startErr := h.engine.Start(ctx, o.ID())
		if startErr != nil {
			if isSkippable(startErr) {
				h.logger.DebugContext(ctx, "order skipped", "order_id", o.ID().String(), "reason", startErr.Error())
				continue
			}
			h.logger.ErrorContext(ctx, "failed to start workflow", "order_id", o.ID().String(), "error", startErr)
			failed = append(failed, fmt.Errorf("order %s: %w", o.ID(), startErr))
			continue
		}

		started++
		h.logger.InfoContext(ctx, "workflow launched", "order_id", o.ID().String(), "run_id", progress.RunID.String())
	}

	return started, errors.Join(failed...)
}

func isSkippable(err error) bool {
	return errors.Is(err, engine.ErrAlreadyRunning) || errors.Is(err, engine.ErrOrderNotStartable)
}
