package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type TaskExecutionStatus string

const (
	ExecutionStatusRunning   TaskExecutionStatus = "running"
	ExecutionStatusCompleted TaskExecutionStatus = "completed"
	ExecutionStatusFailed    TaskExecutionStatus = "failed"
	ExecutionStatusTimeout   TaskExecutionStatus = "timeout"
)

// TaskExecutionEntity is one attempt of a scheduled task, append-only.
type TaskExecutionEntity struct {
	ID           uint      `gorm:"primaryKey"`
	TaskID       uint      `gorm:"not null;index"`
	StartedAt    time.Time `gorm:"not null"`
	CompletedAt  sql.NullTime
	Status       TaskExecutionStatus `gorm:"type:varchar(50);not null"`
	Result       datatypes.JSON
	ErrorMessage sql.NullString `gorm:"type:text"`
	Log          pq.StringArray `gorm:"type:text[]"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
}

func (TaskExecutionEntity) TableName() string {
	return "task_executions"
}
