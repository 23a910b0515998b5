package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/models"
	"golang-task-automation-engine/internal/services/scheduler"
	"golang-task-automation-engine/internal/services/tasks"
	"golang-task-automation-engine/internal/utils"
)

// SchedulerHandler exposes the worker's operational surface: status, stats,
// cleanup and manual dispatch. Task CRUD for end clients is not part of this
// engine.
type SchedulerHandler struct {
	worker      *scheduler.Worker
	taskService tasks.TaskService
	logger      *logrus.Logger
}

func NewSchedulerHandler(worker *scheduler.Worker, taskService tasks.TaskService, logger *logrus.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		worker:      worker,
		taskService: taskService,
		logger:      logger,
	}
}

func (h *SchedulerHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.Status())
}

func (h *SchedulerHandler) GetStats(c *gin.Context) {
	counts, err := h.worker.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get scheduler stats")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "stats_failed",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *SchedulerHandler) Cleanup(c *gin.Context) {
	olderThanDays := 0
	if raw := c.Query("older_than_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_parameter",
				Message: "older_than_days must be a non-negative integer",
				Code:    http.StatusBadRequest,
			})
			return
		}
		olderThanDays = parsed
	}

	result, err := h.worker.Cleanup(c.Request.Context(), olderThanDays)
	if err != nil {
		h.logger.WithError(err).Error("Cleanup failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "cleanup_failed",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SchedulerHandler) ListTasks(c *gin.Context) {
	param := &models.GetTaskParam{
		WithHistory: &models.GetTaskHistoryParam{Limit: utils.ToPointer(5)},
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		param.Status = &status
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			param.Limit = &parsed
		}
	}

	taskList, err := h.taskService.Get(c.Request.Context(), param)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "list_failed",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": taskList})
}

// RunTask makes a task due immediately; the next poll cycle picks it up.
func (h *SchedulerHandler) RunTask(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_parameter",
			Message: "task id must be an integer",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := h.taskService.RunTaskNow(c.Request.Context(), uint(id)); err != nil {
		h.logger.WithError(err).WithField("task_id", id).Error("Failed to trigger task")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "run_failed",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "scheduled"})
}
