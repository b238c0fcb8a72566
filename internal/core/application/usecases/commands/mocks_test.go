package commands_test

import (
	"context"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/execution"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/model/workflow"
	"orderflow/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if o, ok := args.Get(0).(*order.Order); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id kernel.UUID, status order.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateWorkflow(ctx context.Context, id kernel.UUID, state order.WorkflowState) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockOrderRepository) GetAwaitingWorkflow(ctx context.Context, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockWorkflowEngine struct{ mock.Mock }

func (m *MockWorkflowEngine) Start(ctx context.Context, orderID kernel.UUID) (workflow.Progress, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(workflow.Progress), args.Error(1)
}

func (m *MockWorkflowEngine) Cancel(ctx context.Context, runID kernel.UUID) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

func (m *MockWorkflowEngine) ActiveRun(orderID kernel.UUID) (workflow.Progress, bool) {
	args := m.Called(orderID)
	return args.Get(0).(workflow.Progress), args.Bool(1)
}

type MockNotificationSink struct{ mock.Mock }

func (m *MockNotificationSink) Notify(ctx context.Context, orderID kernel.UUID, eventType notification.EventType, payload map[string]string) error {
	args := m.Called(ctx, orderID, eventType, payload)
	return args.Error(0)
}

type MockStageExecutionRepository struct{ mock.Mock }

func (m *MockStageExecutionRepository) Add(ctx context.Context, e *execution.StageExecution) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockStageExecutionRepository) GetFailed(ctx context.Context, limit int) ([]*execution.StageExecution, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*execution.StageExecution), args.Error(1)
}

func (m *MockStageExecutionRepository) DeleteFinishedBefore(ctx context.Context, t time.Time) (int64, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(int64), args.Error(1)
}

type MockExecutionUoW struct{ mock.Mock }

func (m *MockExecutionUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockExecutionUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockExecutionUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockExecutionUoW) StageExecutionRepository() ports.StageExecutionRepository {
	args := m.Called()
	return args.Get(0).(ports.StageExecutionRepository)
}

type MockExecutionUoWFactory struct{ mock.Mock }

func (m *MockExecutionUoWFactory) Create() commands.ExecutionUoW {
	args := m.Called()
	return args.Get(0).(commands.ExecutionUoW)
}

type MockRunPruner struct{ mock.Mock }

func (m *MockRunPruner) Prune(olderThan time.Time) int {
	args := m.Called(olderThan)
	return args.Int(0)
}
