package commands_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"orderflow/internal/adapters/out/memory"
	"orderflow/internal/core/application/engine"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/model/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func restoreOrder(t *testing.T, status order.Status, wf order.WorkflowState) *order.Order {
	t.Helper()
	o, err := order.RestoreOrder(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), 1200, "Main St", status, wf)
	require.NoError(t, err)
	return o
}

func TestStartOrderWorkflowCommandHandler(t *testing.T) {
	t.Run("should return the first snapshot", func(t *testing.T) {
		ctx := t.Context()
		orderID := kernel.NewUUID()
		want := workflow.Progress{RunID: kernel.NewUUID(), OrderID: orderID, WorkflowStatus: order.WorkflowInProgress}

		eng := new(MockWorkflowEngine)
		eng.On("Start", ctx, orderID).Return(want, nil).Once()

		cmd, err := commands.NewStartOrderWorkflowCommand(orderID)
		require.NoError(t, err)
		got, err := commands.NewStartOrderWorkflowCommandHandler(eng).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		eng.AssertExpectations(t)
	})

	t.Run("should pass engine errors through", func(t *testing.T) {
		ctx := t.Context()
		orderID := kernel.NewUUID()

		eng := new(MockWorkflowEngine)
		eng.On("Start", ctx, orderID).Return(workflow.Progress{}, engine.ErrAlreadyRunning).Once()

		cmd, _ := commands.NewStartOrderWorkflowCommand(orderID)
		_, err := commands.NewStartOrderWorkflowCommandHandler(eng).Handle(ctx, cmd)

		assert.ErrorIs(t, err, engine.ErrAlreadyRunning)
	})

	t.Run("should reject a zero command", func(t *testing.T) {
		eng := new(MockWorkflowEngine)
		_, err := commands.NewStartOrderWorkflowCommandHandler(eng).Handle(t.Context(), commands.StartOrderWorkflowCommand{})

		assert.ErrorIs(t, err, commands.ErrStartOrderWorkflowCommandIsNotConstructed)
		eng.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	})
}

func TestCancelOrderWorkflowCommandHandler(t *testing.T) {
	ctx := t.Context()
	runID := kernel.NewUUID()

	eng := new(MockWorkflowEngine)
	eng.On("Cancel", ctx, runID).Return(engine.ErrAlreadyTerminal).Once()

	cmd, err := commands.NewCancelOrderWorkflowCommand(runID)
	require.NoError(t, err)
	err = commands.NewCancelOrderWorkflowCommandHandler(eng).Handle(ctx, cmd)

	assert.ErrorIs(t, err, engine.ErrAlreadyTerminal)
	eng.AssertExpectations(t)

	_, err = commands.NewCancelOrderWorkflowCommand(kernel.UUID{})
	assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
}

func TestAdvanceOrderStatusCommandHandler(t *testing.T) {
	completed := order.WorkflowState{Status: order.WorkflowCompleted, Progress: 100}

	t.Run("should persist the status and notify", func(t *testing.T) {
		ctx := t.Context()
		o := restoreOrder(t, order.Confirmed, completed)

		repo := new(MockOrderRepository)
		uow := new(MockOrderUoW)
		sink := new(MockNotificationSink)
		mock.InOrder(
			uow.On("Begin", ctx).Return(nil).Once(),
			uow.On("OrderRepository").Return(repo).Once(),
			repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
			repo.On("UpdateStatus", ctx, o.ID(), order.Preparing).Return(nil).Once(),
			uow.On("Commit", ctx).Return(nil).Once(),
			sink.On("Notify", ctx, o.ID(), notification.OrderStatusUpdate,
				map[string]string{notification.PayloadStatus: "preparing"}).Return(nil).Once(),
			uow.On("Rollback", ctx).Return(nil).Once(),
		)
		factory := new(MockOrderUoWFactory)
		factory.On("Create").Return(uow).Once()

		cmd, err := commands.NewAdvanceOrderStatusCommand(o.ID(), order.Preparing)
		require.NoError(t, err)
		h := commands.NewAdvanceOrderStatusCommandHandler(factory, sink, discardLogger())
		require.NoError(t, h.Handle(ctx, cmd))

		repo.AssertExpectations(t)
		uow.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("should reject a skipped step", func(t *testing.T) {
		ctx := t.Context()
		o := restoreOrder(t, order.Confirmed, completed)

		repo := new(MockOrderRepository)
		uow := new(MockOrderUoW)
		sink := new(MockNotificationSink)
		uow.On("Begin", ctx).Return(nil).Once()
		uow.On("OrderRepository").Return(repo).Once()
		repo.On("Get", ctx, o.ID()).Return(o, nil).Once()
		uow.On("Rollback", ctx).Return(nil).Once()
		factory := new(MockOrderUoWFactory)
		factory.On("Create").Return(uow).Once()

		cmd, _ := commands.NewAdvanceOrderStatusCommand(o.ID(), order.Ready)
		h := commands.NewAdvanceOrderStatusCommandHandler(factory, sink, discardLogger())
		require.Error(t, h.Handle(ctx, cmd))

		uow.AssertNotCalled(t, "Commit", mock.Anything)
		sink.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should ignore notification failures", func(t *testing.T) {
		ctx := t.Context()
		o := restoreOrder(t, order.Confirmed, completed)

		repo := new(MockOrderRepository)
		uow := new(MockOrderUoW)
		sink := new(MockNotificationSink)
		uow.On("Begin", ctx).Return(nil).Once()
		uow.On("OrderRepository").Return(repo).Once()
		repo.On("Get", ctx, o.ID()).Return(o, nil).Once()
		repo.On("UpdateStatus", ctx, o.ID(), order.Preparing).Return(nil).Once()
		uow.On("Commit", ctx).Return(nil).Once()
		uow.On("Rollback", ctx).Return(nil).Once()
		sink.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("down")).Once()
		factory := new(MockOrderUoWFactory)
		factory.On("Create").Return(uow).Once()

		cmd, _ := commands.NewAdvanceOrderStatusCommand(o.ID(), order.Preparing)
		h := commands.NewAdvanceOrderStatusCommandHandler(factory, sink, discardLogger())
		assert.NoError(t, h.Handle(ctx, cmd))
	})
}

func TestCancelOrderCommandHandler(t *testing.T) {
	t.Run("should cancel through the engine while a run is active", func(t *testing.T) {
		ctx := t.Context()
		orderID, runID := kernel.NewUUID(), kernel.NewUUID()

		eng := new(MockWorkflowEngine)
		registry := memory.NewRunRegistry()
		mock.InOrder(
			eng.On("ActiveRun", orderID).Return(workflow.Progress{RunID: runID, OrderID: orderID}, true).Once(),
			eng.On("Cancel", ctx, runID).Return(nil).Once(),
		)
		factory := new(MockOrderUoWFactory)
		sink := new(MockNotificationSink)

		cmd, err := commands.NewCancelOrderCommand(orderID)
		require.NoError(t, err)
		h := commands.NewCancelOrderCommandHandler(factory, eng, registry, sink, discardLogger())
		require.NoError(t, h.Handle(ctx, cmd))

		eng.AssertExpectations(t)
		factory.AssertNotCalled(t, "Create")
		_, claimed := registry.Owner(orderID)
		assert.False(t, claimed)
	})

	t.Run("should cancel the order directly without a run", func(t *testing.T) {
		ctx := t.Context()
		o := restoreOrder(t, order.Pending, order.WorkflowState{Status: order.WorkflowInitiated})

		eng := new(MockWorkflowEngine)
		registry := memory.NewRunRegistry()
		eng.On("ActiveRun", o.ID()).Return(workflow.Progress{}, false).Once()

		repo := new(MockOrderRepository)
		uow := new(MockOrderUoW)
		sink := new(MockNotificationSink)
		mock.InOrder(
			uow.On("Begin", ctx).Return(nil).Once(),
			uow.On("OrderRepository").Return(repo).Once(),
			repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
			repo.On("Update", ctx, mock.MatchedBy(func(got *order.Order) bool {
				return got.Status() == order.Cancelled
			})).Return(nil).Once(),
			uow.On("Commit", ctx).Return(nil).Once(),
			sink.On("Notify", ctx, o.ID(), notification.OrderStatusUpdate, map[string]string{
				notification.PayloadStatus:         "cancelled",
				notification.PayloadWorkflowStatus: "initiated",
			}).Return(nil).Once(),
			uow.On("Rollback", ctx).Return(nil).Once(),
		)
		factory := new(MockOrderUoWFactory)
		factory.On("Create").Return(uow).Once()

		cmd, _ := commands.NewCancelOrderCommand(o.ID())
		h := commands.NewCancelOrderCommandHandler(factory, eng, registry, sink, discardLogger())
		require.NoError(t, h.Handle(ctx, cmd))

		repo.AssertExpectations(t)
		uow.AssertExpectations(t)
		sink.AssertExpectations(t)
		_, claimed := registry.Owner(o.ID())
		assert.False(t, claimed, "the claim is released after the write")
	})

	t.Run("should refuse an order claimed by a run elsewhere", func(t *testing.T) {
		ctx := t.Context()
		orderID, foreignRun := kernel.NewUUID(), kernel.NewUUID()

		eng := new(MockWorkflowEngine)
		eng.On("ActiveRun", orderID).Return(workflow.Progress{}, false).Once()
		registry := memory.NewRunRegistry()
		require.NoError(t, registry.Claim(ctx, orderID, foreignRun))
		factory := new(MockOrderUoWFactory)
		sink := new(MockNotificationSink)

		cmd, _ := commands.NewCancelOrderCommand(orderID)
		h := commands.NewCancelOrderCommandHandler(factory, eng, registry, sink, discardLogger())
		err := h.Handle(ctx, cmd)

		require.ErrorIs(t, err, engine.ErrAlreadyRunning)
		factory.AssertNotCalled(t, "Create")
		sink.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		owner, claimed := registry.Owner(orderID)
		require.True(t, claimed)
		assert.Equal(t, foreignRun, owner, "the foreign claim must survive")
	})

	t.Run("should recover a workflow stranded in progress", func(t *testing.T) {
		ctx := t.Context()
		o := restoreOrder(t, order.Pending, order.WorkflowState{Status: order.WorkflowInProgress, Progress: 40})

		eng := new(MockWorkflowEngine)
		registry := memory.NewRunRegistry()
		eng.On("ActiveRun", o.ID()).Return(workflow.Progress{}, false).Once()

		repo := new(MockOrderRepository)
		uow := new(MockOrderUoW)
		sink := new(MockNotificationSink)
		uow.On("Begin", ctx).Return(nil).Once()
		uow.On("OrderRepository").Return(repo).Once()
		repo.On("Get", ctx, o.ID()).Return(o, nil).Once()
		repo.On("Update", ctx, mock.MatchedBy(func(got *order.Order) bool {
			return got.Workflow().Status == order.WorkflowCancelled && got.Workflow().Progress == 40
		})).Return(nil).Once()
		uow.On("Commit", ctx).Return(nil).Once()
		uow.On("Rollback", ctx).Return(nil).Once()
		sink.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		factory := new(MockOrderUoWFactory)
		factory.On("Create").Return(uow).Once()

		cmd, _ := commands.NewCancelOrderCommand(o.ID())
		h := commands.NewCancelOrderCommandHandler(factory, eng, registry, sink, discardLogger())
		require.NoError(t, h.Handle(ctx, cmd))
		repo.AssertExpectations(t)
	})

	t.Run("should refuse a terminal order", func(t *testing.T) {
		ctx := t.Context()
		o := restoreOrder(t, order.Delivered, order.WorkflowState{Status: order.WorkflowCompleted, Progress: 100})

		eng := new(MockWorkflowEngine)
		registry := memory.NewRunRegistry()
		eng.On("ActiveRun", o.ID()).Return(workflow.Progress{}, false).Once()
		repo := new(MockOrderRepository)
		uow := new(MockOrderUoW)
		uow.On("Begin", ctx).Return(nil).Once()
		uow.On("OrderRepository").Return(repo).Once()
		repo.On("Get", ctx, o.ID()).Return(o, nil).Once()
		uow.On("Rollback", ctx).Return(nil).Once()
		factory := new(MockOrderUoWFactory)
		factory.On("Create").Return(uow).Once()

		cmd, _ := commands.NewCancelOrderCommand(o.ID())
		h := commands.NewCancelOrderCommandHandler(factory, eng, registry, new(MockNotificationSink), discardLogger())
		require.Error(t, h.Handle(ctx, cmd))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		_, claimed := registry.Owner(o.ID())
		assert.False(t, claimed, "a refused cancel still releases its claim")
	})
}
