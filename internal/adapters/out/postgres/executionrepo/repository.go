package executionrepo

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/execution"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStageExecutionRepository implements StageExecutionRepository using GORM.
type GormStageExecutionRepository struct {
	db *gorm.DB
}

func NewGormStageExecutionRepository(db *gorm.DB) *GormStageExecutionRepository {
	return &GormStageExecutionRepository{db: db}
}

// Add upserts the record by id.
func (r *GormStageExecutionRepository) Add(ctx context.Context, e *execution.StageExecution) error {
	if err := e.Validate(); err != nil {
		return err
	}

	dto := fromDomain(e)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "attempts", "errors", "finished_at"}),
		}).
		Create(&dto).Error
}

func (r *GormStageExecutionRepository) GetFailed(ctx context.Context, limit int) ([]*execution.StageExecution, error) {
	var dtos []StageExecutionDTO
	query := r.db.WithContext(ctx).
		Where("status = ?", int(execution.Failed)).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&dtos).Error; err != nil {
		return nil, err
	}

	out := make([]*execution.StageExecution, 0, len(dtos))
	for _, dto := range dtos {
		e, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *GormStageExecutionRepository) DeleteFinishedBefore(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("finished_at IS NOT NULL AND finished_at < ?", t).
		Delete(&StageExecutionDTO{})
	return result.RowsAffected, result.Error
}
