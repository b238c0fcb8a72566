// Package executionrepo persists the stage execution audit trail.
package executionrepo

import (
	"time"

	"orderflow/internal/core/domain/model/execution"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// StageExecutionDTO is one row per stage of a run. Errors keeps one entry
// per failed attempt in a text[] column.
type StageExecutionDTO struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	RunID      uuid.UUID      `gorm:"type:uuid;index"`
	OrderID    uuid.UUID      `gorm:"type:uuid;index"`
	Stage      string         `gorm:"type:varchar(64);not null"`
	Status     int            `gorm:"index"`
	Attempts   int            `gorm:"not null"`
	Errors     pq.StringArray `gorm:"type:text[]"`
	StartedAt  time.Time      `gorm:"not null"`
	FinishedAt *time.Time     `gorm:"index"`
}

func (StageExecutionDTO) TableName() string {
	return "stage_executions"
}

func fromDomain(e *execution.StageExecution) StageExecutionDTO {
	return StageExecutionDTO{
		ID:         e.ID().Bytes(),
		RunID:      e.RunID().Bytes(),
		OrderID:    e.OrderID().Bytes(),
		Stage:      e.Stage(),
		Status:     int(e.Status()),
		Attempts:   e.Attempts(),
		Errors:     pq.StringArray(e.Errors()),
		StartedAt:  e.StartedAt(),
		FinishedAt: e.FinishedAt(),
	}
}

func toDomain(dto StageExecutionDTO) (*execution.StageExecution, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	runID, err := kernel.UUIDFromBytes(dto.RunID[:])
	if err != nil {
		return nil, err
	}
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	return execution.RestoreStageExecution(
		id, runID, orderID, dto.Stage, execution.Status(dto.Status), dto.Attempts, dto.Errors, dto.StartedAt, dto.FinishedAt,
	)
}
