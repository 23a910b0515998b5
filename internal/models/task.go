package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

type TaskType string

const (
	TaskTypeOneTime   TaskType = "one-time"
	TaskTypeRecurring TaskType = "recurring"
	TaskTypeTrigger   TaskType = "trigger"
)

// RetryPolicy is decoded from the task's retry_policy JSON column. A task
// without a policy fails permanently on its first failed attempt.
type RetryPolicy struct {
	MaxRetries int   `json:"maxRetries"`
	BackoffMs  int64 `json:"backoffMs"`
}

type ScheduledTaskEntity struct {
	ID           uint          `gorm:"primaryKey"`
	UserID       sql.NullInt64 // null for system tasks
	Name         string        `gorm:"type:varchar(255);not null"`
	Description  string        `gorm:"type:text"`
	Type         TaskType      `gorm:"type:varchar(20);not null"`
	Schedule     datatypes.JSON
	Action       datatypes.JSON `gorm:"not null"`
	Conditions   datatypes.JSON
	RetryPolicy  datatypes.JSON
	Notification datatypes.JSON
	Status       TaskStatus `gorm:"type:varchar(20);not null;default:active"`
	LastRun      sql.NullTime
	NextRun      sql.NullTime
	RunCount     int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Executions []TaskExecutionEntity `gorm:"foreignKey:TaskID;references:ID"`
}

func (ScheduledTaskEntity) TableName() string {
	return "scheduled_tasks"
}

// ParsedAction decodes the action JSON column into the TaskAction union.
func (t *ScheduledTaskEntity) ParsedAction() (*TaskAction, error) {
	if len(t.Action) == 0 {
		return nil, fmt.Errorf("task %d has no action", t.ID)
	}
	var action TaskAction
	if err := json.Unmarshal(t.Action, &action); err != nil {
		return nil, fmt.Errorf("failed to parse action for task %d: %w", t.ID, err)
	}
	return &action, nil
}

// ParsedRetryPolicy decodes the retry_policy JSON column. Returns nil when the
// task has no retry policy.
func (t *ScheduledTaskEntity) ParsedRetryPolicy() (*RetryPolicy, error) {
	if len(t.RetryPolicy) == 0 || string(t.RetryPolicy) == "null" {
		return nil, nil
	}
	var policy RetryPolicy
	if err := json.Unmarshal(t.RetryPolicy, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse retry policy for task %d: %w", t.ID, err)
	}
	return &policy, nil
}

type GetTaskParam struct {
	IDs         []uint
	Status      *TaskStatus
	Limit       *int
	WithHistory *GetTaskHistoryParam
}

type GetTaskHistoryParam struct {
	Limit *int
}

// TaskCounts is the aggregate view served by the scheduler stats endpoint.
type TaskCounts struct {
	Active    int64 `json:"active"`
	Paused    int64 `json:"paused"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Due       int64 `json:"due"`
}

// CleanupResult reports how many rows each cleanup pass removed.
type CleanupResult struct {
	TasksRemoved      int64 `json:"tasks_removed"`
	ExecutionsRemoved int64 `json:"executions_removed"`
}

// SchedulerStatus is a pure read over the worker's in-memory state.
type SchedulerStatus struct {
	Running      bool          `json:"running"`
	PollInterval time.Duration `json:"poll_interval"`
	BatchSize    int           `json:"batch_size"`
}
