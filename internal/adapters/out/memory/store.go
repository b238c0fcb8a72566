// Package memory keeps orders, stage executions and notifications in process
// memory. It backs tests and STORE_DRIVER=memory local runs; data is lost on
// exit.
package memory

import (
	"sort"
	"sync"
	"time"

	"orderflow/internal/core/domain/model/execution"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
	"orderflow/internal/core/domain/model/order"
)

// orderRecord mirrors the columns of an order row.
type orderRecord struct {
	seq             int64
	id              kernel.UUID
	customerID      kernel.UUID
	restaurantID    kernel.UUID
	totalAmount     int64
	deliveryAddress string
	status          order.Status
	workflow        order.WorkflowState
}

func fromDomain(o *order.Order) orderRecord {
	return orderRecord{
		id:              o.ID(),
		customerID:      o.CustomerID(),
		restaurantID:    o.RestaurantID(),
		totalAmount:     o.TotalAmount(),
		deliveryAddress: o.DeliveryAddress(),
		status:          o.Status(),
		workflow:        o.Workflow(),
	}
}

func (rec orderRecord) toDomain() (*order.Order, error) {
	return order.RestoreOrder(
		rec.id, rec.customerID, rec.restaurantID, rec.totalAmount, rec.deliveryAddress, rec.status, rec.workflow,
	)
}

// Store is the shared state behind every unit of work created by a
// UnitOfWorkFactory. Aggregates are copied on the way in and out so callers
// never alias stored values.
type Store struct {
	mu            sync.RWMutex
	seq           int64
	orders        map[kernel.UUID]orderRecord
	executions    map[kernel.UUID]*execution.StageExecution
	notifications []*notification.Notification
}

func NewStore() *Store {
	return &Store{
		orders:     make(map[kernel.UUID]orderRecord),
		executions: make(map[kernel.UUID]*execution.StageExecution),
	}
}

// Notifications returns every stored notification for orderID, oldest first.
func (s *Store) Notifications(orderID kernel.UUID) []*notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*notification.Notification
	for _, n := range s.notifications {
		if n.OrderID().IsEqual(orderID) {
			out = append(out, n)
		}
	}
	return out
}

// Executions returns every stored execution of a run in start order.
func (s *Store) Executions(runID kernel.UUID) []*execution.StageExecution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*execution.StageExecution
	for _, e := range s.executions {
		if e.RunID().IsEqual(runID) {
			out = append(out, copyExecution(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt().Before(out[j].StartedAt()) })
	return out
}

func copyExecution(e *execution.StageExecution) *execution.StageExecution {
	var finishedAt *time.Time
	if f := e.FinishedAt(); f != nil {
		t := *f
		finishedAt = &t
	}
	// The source was valid, so restoring it cannot fail.
	c, _ := execution.RestoreStageExecution(
		e.ID(), e.RunID(), e.OrderID(), e.Stage(), e.Status(), e.Attempts(), e.Errors(), e.StartedAt(), finishedAt,
	)
	return c
}
