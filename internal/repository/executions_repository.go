package repository

import (
	"context"

	"gorm.io/gorm"

	"golang-task-automation-engine/internal/models"
	"golang-task-automation-engine/internal/utils"
)

type ExecutionsRepository interface {
	Create(ctx context.Context, execution *models.TaskExecutionEntity, opts ...utils.DBOption) error
	Finish(ctx context.Context, execution *models.TaskExecutionEntity, opts ...utils.DBOption) error
	// PruneHistory keeps the most recent keepPerTask executions per task by
	// start time and deletes the rest.
	PruneHistory(ctx context.Context, keepPerTask int, opts ...utils.DBOption) (int64, error)
}

type executionsRepository struct {
	db *gorm.DB
}

func NewExecutionsRepository(db *gorm.DB) ExecutionsRepository {
	return &executionsRepository{db: db}
}

func (r *executionsRepository) Create(ctx context.Context, execution *models.TaskExecutionEntity, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Create(execution).Error
}

func (r *executionsRepository) Finish(ctx context.Context, execution *models.TaskExecutionEntity, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Model(&models.TaskExecutionEntity{}).
		Where("id = ?", execution.ID).
		Updates(map[string]interface{}{
			"completed_at":  execution.CompletedAt,
			"status":        execution.Status,
			"result":        execution.Result,
			"error_message": execution.ErrorMessage,
			"log":           execution.Log,
		}).Error
}

func (r *executionsRepository) PruneHistory(ctx context.Context, keepPerTask int, opts ...utils.DBOption) (int64, error) {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	result := db.Exec(`
		DELETE FROM task_executions
		WHERE id IN (
			SELECT id FROM (
				SELECT id,
				       ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC) AS rn
				FROM task_executions
			) ranked
			WHERE ranked.rn > ?
		)`, keepPerTask)
	return result.RowsAffected, result.Error
}
