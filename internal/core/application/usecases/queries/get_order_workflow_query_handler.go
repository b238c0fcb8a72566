package queries

import (
	"context"
)

// GetOrderWorkflowQueryHandler reads the order from the store and overlays
// the active run's snapshot, which may be ahead of the last persisted stage.
type GetOrderWorkflowQueryHandler struct {
	readers OrderReaderFactory
	runs    RunLookup
}

func NewGetOrderWorkflowQueryHandler(readers OrderReaderFactory, runs RunLookup) GetOrderWorkflowQueryHandler {
	return GetOrderWorkflowQueryHandler{readers: readers, runs: runs}
}

func (h GetOrderWorkflowQueryHandler) Handle(ctx context.Context, query GetOrderWorkflowQuery) (GetOrderWorkflowQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderWorkflowQueryResponse{}, err
	}

	o, err := h.readers.Create().OrderRepository().Get(ctx, query.OrderID())
	if err != nil {
		return GetOrderWorkflowQueryResponse{}, err
	}

	wf := o.Workflow()
	resp := GetOrderWorkflowQueryResponse{
		OrderID:        o.ID(),
		Status:         o.Status(),
		WorkflowStatus: wf.Status,
		Progress:       wf.Progress,
		Metadata:       wf.Metadata,
	}

	if run, ok := h.runs.ActiveRun(o.ID()); ok {
		resp.Active = true
		resp.RunID = run.RunID
		resp.CurrentStage = run.CurrentStage
		resp.RetryCount = run.RetryCount
		resp.StartedAt = run.StartedAt
	}
	return resp, nil
}
