package memory

import (
	"context"
	"sort"
	"time"

	"orderflow/internal/core/domain/model/execution"
	"orderflow/internal/core/domain/model/kernel"
)

type StageExecutionRepository struct {
	uow *UnitOfWork
}

func (r *StageExecutionRepository) Add(_ context.Context, e *execution.StageExecution) error {
	if err := e.Validate(); err != nil {
		return err
	}
	c := copyExecution(e)
	r.uow.write(func(s *Store) {
		s.executions[c.ID()] = c
	})
	return nil
}

func (r *StageExecutionRepository) GetFailed(_ context.Context, limit int) ([]*execution.StageExecution, error) {
	r.uow.store.mu.RLock()
	var out []*execution.StageExecution
	for _, e := range r.uow.store.executions {
		if e.Status() == execution.Failed {
			out = append(out, copyExecution(e))
		}
	}
	r.uow.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt().After(out[j].StartedAt()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteFinishedBefore reports the records finished before t as of now; the
// delete itself goes through the unit of work like any other write.
func (r *StageExecutionRepository) DeleteFinishedBefore(_ context.Context, t time.Time) (int64, error) {
	r.uow.store.mu.RLock()
	var ids []kernel.UUID
	for id, e := range r.uow.store.executions {
		if f := e.FinishedAt(); f != nil && f.Before(t) {
			ids = append(ids, id)
		}
	}
	r.uow.store.mu.RUnlock()

	r.uow.write(func(s *Store) {
		for _, id := range ids {
			delete(s.executions, id)
		}
	})
	return int64(len(ids)), nil
}
