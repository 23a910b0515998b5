package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"golang-task-automation-engine/internal/models"
	"golang-task-automation-engine/internal/utils"
)

type TasksRepository interface {
	Get(ctx context.Context, param *models.GetTaskParam, opts ...utils.DBOption) ([]models.ScheduledTaskEntity, error)
	// GetDueTasks selects up to limit dispatchable tasks with FOR UPDATE SKIP
	// LOCKED. Must run inside a transaction; rows stay invisible to concurrent
	// pollers only until commit, so callers claim them via ClaimTask before
	// the transaction ends.
	GetDueTasks(ctx context.Context, limit int, opts ...utils.DBOption) ([]models.ScheduledTaskEntity, error)
	// ClaimTask nulls next_run so the task cannot be reselected while an
	// execution is in flight. Every outcome path writes the next state.
	ClaimTask(ctx context.Context, taskID uint, opts ...utils.DBOption) error
	MarkCompleted(ctx context.Context, taskID uint, lastRun time.Time, runCount int, opts ...utils.DBOption) error
	MarkFailed(ctx context.Context, taskID uint, lastRun time.Time, runCount int, opts ...utils.DBOption) error
	RescheduleAt(ctx context.Context, taskID uint, nextRun time.Time, lastRun time.Time, runCount int, opts ...utils.DBOption) error
	// UpdateNextRun is the success path for recurring tasks: the next due
	// instant comes from the injected schedule resolver.
	UpdateNextRun(ctx context.Context, taskID uint, nextRun *time.Time, lastRun time.Time, runCount int, opts ...utils.DBOption) error
	// RunTaskNow makes a task due immediately.
	RunTaskNow(ctx context.Context, taskID uint, opts ...utils.DBOption) error
	Counts(ctx context.Context, dueWindow time.Duration, opts ...utils.DBOption) (*models.TaskCounts, error)
	// PruneCompleted deletes one-time completed tasks older than the retention
	// window. Active, paused and failed tasks are never touched.
	PruneCompleted(ctx context.Context, olderThanDays int, opts ...utils.DBOption) (int64, error)
}

type tasksRepository struct {
	db *gorm.DB
}

func NewTasksRepository(db *gorm.DB) TasksRepository {
	return &tasksRepository{db: db}
}

func (r *tasksRepository) Get(ctx context.Context, param *models.GetTaskParam, opts ...utils.DBOption) ([]models.ScheduledTaskEntity, error) {
	var tasks []models.ScheduledTaskEntity
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	db = db.Model(&models.ScheduledTaskEntity{})
	if param.Status != nil {
		db = db.Where("status = ?", *param.Status)
	}
	if len(param.IDs) > 0 {
		db = db.Where("id IN ?", param.IDs)
	}
	if param.Limit != nil {
		db = db.Limit(*param.Limit)
	}
	if param.WithHistory != nil {
		db = db.Preload("Executions", func(db *gorm.DB) *gorm.DB {
			db = db.Order("started_at DESC")
			if param.WithHistory.Limit != nil {
				db = db.Limit(*param.WithHistory.Limit)
			}
			return db
		})
	}
	result := db.Order("id ASC").Find(&tasks)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return tasks, nil
}

func (r *tasksRepository) GetDueTasks(ctx context.Context, limit int, opts ...utils.DBOption) ([]models.ScheduledTaskEntity, error) {
	var tasks []models.ScheduledTaskEntity
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	result := db.Model(&models.ScheduledTaskEntity{}).
		Where("status = ?", models.TaskStatusActive).
		Where("type IN ?", []models.TaskType{models.TaskTypeOneTime, models.TaskTypeRecurring}).
		Where("next_run IS NOT NULL AND next_run <= ?", time.Now()).
		Order("next_run ASC").
		Limit(limit).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

func (r *tasksRepository) ClaimTask(ctx context.Context, taskID uint, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Model(&models.ScheduledTaskEntity{}).
		Where("id = ?", taskID).
		Update("next_run", nil).Error
}

func (r *tasksRepository) MarkCompleted(ctx context.Context, taskID uint, lastRun time.Time, runCount int, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Model(&models.ScheduledTaskEntity{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":    models.TaskStatusCompleted,
			"last_run":  lastRun,
			"next_run":  nil,
			"run_count": runCount,
		}).Error
}

func (r *tasksRepository) MarkFailed(ctx context.Context, taskID uint, lastRun time.Time, runCount int, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Model(&models.ScheduledTaskEntity{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":    models.TaskStatusFailed,
			"last_run":  lastRun,
			"next_run":  nil,
			"run_count": runCount,
		}).Error
}

func (r *tasksRepository) RescheduleAt(ctx context.Context, taskID uint, nextRun time.Time, lastRun time.Time, runCount int, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Model(&models.ScheduledTaskEntity{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":    models.TaskStatusActive,
			"last_run":  lastRun,
			"next_run":  nextRun,
			"run_count": runCount,
		}).Error
}

func (r *tasksRepository) UpdateNextRun(ctx context.Context, taskID uint, nextRun *time.Time, lastRun time.Time, runCount int, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	updates := map[string]interface{}{
		"last_run":  lastRun,
		"run_count": runCount,
	}
	if nextRun != nil {
		updates["next_run"] = *nextRun
	}
	return db.Model(&models.ScheduledTaskEntity{}).
		Where("id = ?", taskID).
		Updates(updates).Error
}

func (r *tasksRepository) RunTaskNow(ctx context.Context, taskID uint, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Model(&models.ScheduledTaskEntity{}).
		Where("id = ?", taskID).
		Update("next_run", time.Now()).Error
}

func (r *tasksRepository) Counts(ctx context.Context, dueWindow time.Duration, opts ...utils.DBOption) (*models.TaskCounts, error) {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	var counts models.TaskCounts
	err := db.Raw(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'active')    AS active,
			COUNT(*) FILTER (WHERE status = 'paused')    AS paused,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'failed')    AS failed,
			COUNT(*) FILTER (
				WHERE status = 'active'
				AND next_run IS NOT NULL
				AND next_run <= ?
			) AS due
		FROM scheduled_tasks`, time.Now().Add(dueWindow)).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *tasksRepository) PruneCompleted(ctx context.Context, olderThanDays int, opts ...utils.DBOption) (int64, error) {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	result := db.Where("type = ?", models.TaskTypeOneTime).
		Where("status = ?", models.TaskStatusCompleted).
		Where("updated_at < ?", cutoff).
		Delete(&models.ScheduledTaskEntity{})
	return result.RowsAffected, result.Error
}
