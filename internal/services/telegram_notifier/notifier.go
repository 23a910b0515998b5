package telegram_notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/models"
	"golang-task-automation-engine/pkg/ratelimit"
)

// preferences is the shape this sink understands inside the task's opaque
// notification column. Tasks with other channels are ignored here.
type preferences struct {
	Channel   string `json:"channel"`
	ChatID    int64  `json:"chatId"`
	OnSuccess bool   `json:"onSuccess"`
	OnFailure bool   `json:"onFailure"`
}

// Notifier delivers execution outcomes to telegram chats through the
// rate-limited sender.
type Notifier struct {
	log     *logrus.Logger
	limiter *ratelimit.TelegramRateLimiter
}

func New(log *logrus.Logger, limiter *ratelimit.TelegramRateLimiter) *Notifier {
	return &Notifier{
		log:     log,
		limiter: limiter,
	}
}

func (n *Notifier) NotifyExecution(ctx context.Context, task *models.ScheduledTaskEntity, execution *models.TaskExecutionEntity) {
	var prefs preferences
	if err := json.Unmarshal(task.Notification, &prefs); err != nil {
		n.log.WithError(err).WithField("task_id", task.ID).Debug("unreadable notification preferences")
		return
	}
	if prefs.Channel != "telegram" || prefs.ChatID == 0 {
		return
	}

	succeeded := execution.Status == models.ExecutionStatusCompleted
	if succeeded && !prefs.OnSuccess {
		return
	}
	if !succeeded && !prefs.OnFailure {
		return
	}

	message := n.buildMessage(task, execution)
	if _, err := n.limiter.Send(ctx, prefs.ChatID, message); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"task_id": task.ID,
			"chat_id": prefs.ChatID,
		}).Error("failed to send execution notification")
	}
}

func (n *Notifier) buildMessage(task *models.ScheduledTaskEntity, execution *models.TaskExecutionEntity) string {
	switch execution.Status {
	case models.ExecutionStatusCompleted:
		return fmt.Sprintf("✅ Task %q completed at %s", task.Name, execution.CompletedAt.Time.Format("15:04:05"))
	case models.ExecutionStatusTimeout:
		return fmt.Sprintf("⏱ Task %q timed out: %s", task.Name, execution.ErrorMessage.String)
	default:
		return fmt.Sprintf("❌ Task %q failed: %s", task.Name, execution.ErrorMessage.String)
	}
}
