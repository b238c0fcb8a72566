// Package commands contains business operations that modify system state.
// Implements the Command pattern for write operations in the CQRS architecture.
// Commands that touch the order store follow a consistent pattern: validation,
// transaction management, and persistence. Workflow commands delegate to the
// engine, which owns the order while a run is active.
package commands

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/workflow"
	"orderflow/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
type (
	// TxManager handles database transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// OrderRepoFactory provides access to order repository within a transaction.
	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	// OrderUoW manages transactions for order-only operations.
	OrderUoW interface {
		TxManager
		OrderRepoFactory
	}

	// OrderUoWFactory creates new order unit of work instances.
	OrderUoWFactory interface {
		Create() OrderUoW
	}

	// ExecutionRepoFactory provides access to the stage execution log.
	ExecutionRepoFactory interface {
		StageExecutionRepository() ports.StageExecutionRepository
	}

	// ExecutionUoW manages transactions over the stage execution log.
	ExecutionUoW interface {
		TxManager
		ExecutionRepoFactory
	}

	// ExecutionUoWFactory creates new execution unit of work instances.
	ExecutionUoWFactory interface {
		Create() ExecutionUoW
	}
)

// WorkflowEngine is the part of the engine the commands drive.
type WorkflowEngine interface {
	Start(ctx context.Context, orderID kernel.UUID) (workflow.Progress, error)
	Cancel(ctx context.Context, runID kernel.UUID) error
	ActiveRun(orderID kernel.UUID) (workflow.Progress, bool)
}

// RunPruner drops finished run snapshots kept for polling.
type RunPruner interface {
	Prune(olderThan time.Time) int
}
