// Package queries contains read-only operations over orders and the stage
// execution log. Handlers read through repositories so they work the same
// on every store driver.
package queries

import (
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/workflow"
	"orderflow/internal/core/ports"
)

type (
	// OrderReaderFactory hands out an order repository for reads.
	OrderReaderFactory interface {
		Create() OrderReader
	}

	OrderReader interface {
		OrderRepository() ports.OrderRepository
	}

	// ExecutionReaderFactory hands out a stage execution repository for reads.
	ExecutionReaderFactory interface {
		Create() ExecutionReader
	}

	ExecutionReader interface {
		StageExecutionRepository() ports.StageExecutionRepository
	}

	// RunLookup exposes the engine's live view of an order's active run.
	RunLookup interface {
		ActiveRun(orderID kernel.UUID) (workflow.Progress, bool)
	}
)
