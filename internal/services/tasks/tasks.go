package tasks

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/config"
	"golang-task-automation-engine/internal/models"
	"golang-task-automation-engine/internal/repository"
	"golang-task-automation-engine/internal/utils"
)

type TaskService interface {
	Get(ctx context.Context, param *models.GetTaskParam, opts ...utils.DBOption) ([]models.ScheduledTaskEntity, error)
	RunTaskNow(ctx context.Context, taskID uint, opts ...utils.DBOption) error
}

type taskService struct {
	cfg             *config.Config
	log             *logrus.Logger
	tasksRepository repository.TasksRepository
}

func NewTaskService(cfg *config.Config, log *logrus.Logger, tasksRepository repository.TasksRepository) TaskService {
	return &taskService{
		cfg:             cfg,
		log:             log,
		tasksRepository: tasksRepository,
	}
}

func (s *taskService) Get(ctx context.Context, param *models.GetTaskParam, opts ...utils.DBOption) ([]models.ScheduledTaskEntity, error) {
	taskList, err := s.tasksRepository.Get(ctx, param, opts...)
	if err != nil {
		s.log.Error("failed to get tasks", logrus.Fields{
			"error": err,
		})
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	return taskList, nil
}

func (s *taskService) RunTaskNow(ctx context.Context, taskID uint, opts ...utils.DBOption) error {
	return s.tasksRepository.RunTaskNow(ctx, taskID, opts...)
}
