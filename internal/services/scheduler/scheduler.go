package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"golang-task-automation-engine/internal/config"
	"golang-task-automation-engine/internal/models"
	"golang-task-automation-engine/internal/repository"
	"golang-task-automation-engine/internal/services/executor"
	"golang-task-automation-engine/internal/utils"
	"golang-task-automation-engine/pkg/redis"
)

// Worker lifecycle states.
const (
	stateStopped int32 = iota
	stateStarting
	stateRunning
)

const (
	statsCacheKey = "scheduler:stats"
	statsCacheTTL = 30 * time.Second

	// ExecutionStream receives one entry per finished execution.
	ExecutionStream = "task:executions"
)

// ActionExecutor runs one task action. Satisfied by executor.Executor.
type ActionExecutor interface {
	Execute(ctx context.Context, action *models.TaskAction, execLog *executor.Log) (interface{}, error)
}

// NextRunResolver computes the next due instant for a recurring task's
// schedule. Schedule parsing lives outside the engine.
type NextRunResolver interface {
	Next(schedule json.RawMessage, after time.Time) (time.Time, error)
}

// ScheduleInitializer performs the one-time setup of recurring schedules when
// the worker starts (for example, stamping next_run on rows that never ran).
type ScheduleInitializer interface {
	InitializeRecurring(ctx context.Context) error
}

// Notifier delivers execution outcomes according to the task's notification
// preferences.
type Notifier interface {
	NotifyExecution(ctx context.Context, task *models.ScheduledTaskEntity, execution *models.TaskExecutionEntity)
}

// Worker owns the poll loop: it claims due tasks, dispatches them with
// per-task isolation, and applies retry/terminal-failure policy.
type Worker struct {
	cfg            *config.SchedulerConfig
	log            *logrus.Logger
	tasksRepo      repository.TasksRepository
	executionsRepo repository.ExecutionsRepository
	unitOfWork     repository.UnitOfWork
	executor       ActionExecutor
	nextRun        NextRunResolver
	initializer    ScheduleInitializer
	notifier       Notifier
	redisClient    *redis.Client

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures optional collaborators on the worker.
type Option func(*Worker)

func WithNextRunResolver(resolver NextRunResolver) Option {
	return func(w *Worker) { w.nextRun = resolver }
}

func WithScheduleInitializer(initializer ScheduleInitializer) Option {
	return func(w *Worker) { w.initializer = initializer }
}

func WithNotifier(notifier Notifier) Option {
	return func(w *Worker) { w.notifier = notifier }
}

func WithRedis(client *redis.Client) Option {
	return func(w *Worker) { w.redisClient = client }
}

func NewWorker(
	cfg *config.SchedulerConfig,
	log *logrus.Logger,
	tasksRepo repository.TasksRepository,
	executionsRepo repository.ExecutionsRepository,
	unitOfWork repository.UnitOfWork,
	actionExecutor ActionExecutor,
	opts ...Option,
) *Worker {
	w := &Worker{
		cfg:            cfg,
		log:            log,
		tasksRepo:      tasksRepo,
		executionsRepo: executionsRepo,
		unitOfWork:     unitOfWork,
		executor:       actionExecutor,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start arms the poll timer and runs one poll cycle immediately. It is
// idempotent: a second call while running logs a warning and returns nil.
func (w *Worker) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(stateStopped, stateStarting) {
		w.log.Warn("scheduler already running, ignoring start")
		return nil
	}

	if w.initializer != nil {
		if err := w.initializer.InitializeRecurring(ctx); err != nil {
			w.log.WithError(err).Warn("failed to initialize recurring schedules")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	if !w.state.CompareAndSwap(stateStarting, stateRunning) {
		// Stop raced the startup window and won.
		cancel()
		return nil
	}

	w.log.WithFields(logrus.Fields{
		"poll_interval": w.cfg.PollInterval.String(),
		"batch_size":    w.cfg.BatchSize,
	}).Info("scheduler started")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.dispatch(runCtx)

		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				w.dispatch(runCtx)
			}
		}
	}()

	return nil
}

// dispatch runs one poll cycle off the ticker goroutine so a slow batch never
// delays the next tick's selection. Overlapping cycles are safe: selected rows
// have next_run nulled before the claiming transaction commits.
func (w *Worker) dispatch(ctx context.Context) {
	w.wg.Add(1)
	utils.SafeGo(func() {
		defer w.wg.Done()
		w.pollAndExecute(ctx)
	})
}

// Stop cancels the poll loop and waits for in-flight dispatches to settle.
// Idempotent when already stopped.
func (w *Worker) Stop() {
	if !w.state.CompareAndSwap(stateRunning, stateStopped) {
		w.state.CompareAndSwap(stateStarting, stateStopped)
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("scheduler stopped")
}

// Status is a pure read over the worker's in-memory state.
func (w *Worker) Status() models.SchedulerStatus {
	return models.SchedulerStatus{
		Running:      w.state.Load() == stateRunning,
		PollInterval: w.cfg.PollInterval,
		BatchSize:    w.cfg.BatchSize,
	}
}

// pollAndExecute runs one poll cycle: claim up to BatchSize due tasks in a
// single transaction, then dispatch them concurrently. One task's failure
// never affects a sibling's outcome; the whole batch is awaited before the
// cycle ends.
func (w *Worker) pollAndExecute(ctx context.Context) {
	if stop, _ := utils.ShouldStopCtx(ctx, w.log); stop {
		return
	}

	var due []models.ScheduledTaskEntity
	err := w.unitOfWork.Run(func(opts ...utils.DBOption) error {
		tasks, err := w.tasksRepo.GetDueTasks(ctx, w.cfg.BatchSize, opts...)
		if err != nil {
			return err
		}
		for i := range tasks {
			if err := w.tasksRepo.ClaimTask(ctx, tasks[i].ID, opts...); err != nil {
				return err
			}
		}
		due = tasks
		return nil
	})
	if err != nil {
		w.log.WithError(err).Error("failed to select due tasks")
		return
	}
	if len(due) == 0 {
		return
	}

	w.log.WithField("count", len(due)).Info("dispatching due tasks")

	g := new(errgroup.Group)
	for i := range due {
		task := due[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					w.log.WithField("task_id", task.ID).Errorf("task execution panicked: %v", r)
				}
			}()
			w.runTask(ctx, &task)
			return nil
		})
	}
	// runTask handles its own failures; Wait only provides the barrier.
	_ = g.Wait()
}

// runTask performs one attempt: record the execution, run the action under
// the execution timeout, then persist the outcome and apply failure policy.
func (w *Worker) runTask(ctx context.Context, task *models.ScheduledTaskEntity) {
	startedAt := time.Now()
	execution := &models.TaskExecutionEntity{
		TaskID:    task.ID,
		StartedAt: startedAt,
		Status:    models.ExecutionStatusRunning,
	}
	if err := w.executionsRepo.Create(ctx, execution); err != nil {
		w.log.WithError(err).WithField("task_id", task.ID).Error("failed to record execution start")
		w.handleFailure(ctx, task, execution, err)
		return
	}

	execLog := executor.NewLog()
	execLog.Appendf("task %q started", task.Name)

	result, execErr := w.executeAction(ctx, task, execLog)

	execution.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	execution.Log = execLog.Lines()

	if execErr != nil {
		execution.Status = models.ExecutionStatusFailed
		if errors.Is(execErr, context.DeadlineExceeded) {
			execution.Status = models.ExecutionStatusTimeout
		}
		execution.ErrorMessage = sql.NullString{String: execErr.Error(), Valid: true}
		w.handleFailure(ctx, task, execution, execErr)
		return
	}

	execution.Status = models.ExecutionStatusCompleted
	if resultJSON, err := json.Marshal(result); err == nil {
		execution.Result = resultJSON
	}
	w.handleSuccess(ctx, task, execution)
}

func (w *Worker) executeAction(ctx context.Context, task *models.ScheduledTaskEntity, execLog *executor.Log) (interface{}, error) {
	action, err := task.ParsedAction()
	if err != nil {
		execLog.Appendf("failed: %v", err)
		return nil, err
	}

	execCtx := ctx
	if w.cfg.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, w.cfg.ExecutionTimeout)
		defer cancel()
	}
	return w.executor.Execute(execCtx, action, execLog)
}

func (w *Worker) handleSuccess(ctx context.Context, task *models.ScheduledTaskEntity, execution *models.TaskExecutionEntity) {
	now := time.Now()
	runCount := task.RunCount + 1

	err := w.unitOfWork.Run(func(opts ...utils.DBOption) error {
		if err := w.executionsRepo.Finish(ctx, execution, opts...); err != nil {
			return err
		}
		if task.Type == models.TaskTypeOneTime {
			return w.tasksRepo.MarkCompleted(ctx, task.ID, now, runCount, opts...)
		}
		next := w.resolveNextRun(task, now)
		return w.tasksRepo.UpdateNextRun(ctx, task.ID, next, now, runCount, opts...)
	})
	if err != nil {
		w.log.WithError(err).WithField("task_id", task.ID).Error("failed to record task success")
		return
	}

	w.log.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_name": task.Name,
		"run_count": runCount,
	}).Info("task completed")

	w.publishOutcome(task, execution)
	w.notify(task, execution)
}

// handleFailure applies the retry policy: no policy means permanent failure,
// exhausted retries mean permanent failure, otherwise the task is rescheduled
// after a jittered exponential delay and stays active.
func (w *Worker) handleFailure(ctx context.Context, task *models.ScheduledTaskEntity, execution *models.TaskExecutionEntity, execErr error) {
	now := time.Now()
	runCount := task.RunCount + 1

	if execution.ID != 0 {
		if err := w.executionsRepo.Finish(ctx, execution); err != nil {
			w.log.WithError(err).WithField("task_id", task.ID).Error("failed to record execution outcome")
		}
	}

	policy, err := task.ParsedRetryPolicy()
	if err != nil {
		w.log.WithError(err).WithField("task_id", task.ID).Warn("unreadable retry policy, failing task")
		policy = nil
	}

	logEntry := w.log.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_name": task.Name,
		"run_count": runCount,
		"error":     execErr,
	})

	switch {
	case policy == nil:
		if err := w.tasksRepo.MarkFailed(ctx, task.ID, now, runCount); err != nil {
			logEntry.WithError(err).Error("failed to mark task failed")
			return
		}
		logEntry.Warn("task failed permanently (no retry policy)")
	case task.RunCount >= policy.MaxRetries:
		if err := w.tasksRepo.MarkFailed(ctx, task.ID, now, runCount); err != nil {
			logEntry.WithError(err).Error("failed to mark task failed")
			return
		}
		logEntry.Warn("task failed permanently (retries exhausted)")
	default:
		delay := Backoff(task.RunCount, time.Duration(policy.BackoffMs)*time.Millisecond)
		nextRun := now.Add(delay)
		if err := w.tasksRepo.RescheduleAt(ctx, task.ID, nextRun, now, runCount); err != nil {
			logEntry.WithError(err).Error("failed to reschedule task")
			return
		}
		logEntry.WithFields(logrus.Fields{
			"delay":    delay.String(),
			"next_run": nextRun,
		}).Info("task rescheduled for retry")
	}

	w.publishOutcome(task, execution)
	w.notify(task, execution)
}

func (w *Worker) resolveNextRun(task *models.ScheduledTaskEntity, after time.Time) *time.Time {
	if w.nextRun == nil {
		w.log.WithField("task_id", task.ID).Warn("no next-run resolver configured for recurring task")
		return nil
	}
	next, err := w.nextRun.Next(json.RawMessage(task.Schedule), after)
	if err != nil {
		w.log.WithError(err).WithField("task_id", task.ID).Warn("failed to compute next run")
		return nil
	}
	return &next
}

// publishOutcome emits the execution outcome to the redis stream so external
// consumers (dashboards, alerting) can follow along without polling.
func (w *Worker) publishOutcome(task *models.ScheduledTaskEntity, execution *models.TaskExecutionEntity) {
	if w.redisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := w.redisClient.XAdd(ctx, &goRedis.XAddArgs{
		Stream: ExecutionStream,
		Values: map[string]interface{}{
			"task_id":   task.ID,
			"task_name": task.Name,
			"status":    string(execution.Status),
		},
	}).Err(); err != nil {
		w.log.WithError(err).Error("failed to publish execution event")
	}
}

func (w *Worker) notify(task *models.ScheduledTaskEntity, execution *models.TaskExecutionEntity) {
	if w.notifier == nil || len(task.Notification) == 0 {
		return
	}
	taskCopy := *task
	execCopy := *execution
	utils.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		w.notifier.NotifyExecution(ctx, &taskCopy, &execCopy)
	})
}

// Cleanup removes completed one-time tasks older than the retention window
// and trims execution history to the configured cap per task. Invoked
// out-of-band, never on the poll timer.
func (w *Worker) Cleanup(ctx context.Context, olderThanDays int) (*models.CleanupResult, error) {
	if olderThanDays <= 0 {
		olderThanDays = w.cfg.RetentionDays
	}

	tasksRemoved, err := w.tasksRepo.PruneCompleted(ctx, olderThanDays)
	if err != nil {
		return nil, fmt.Errorf("failed to prune completed tasks: %w", err)
	}
	executionsRemoved, err := w.executionsRepo.PruneHistory(ctx, w.cfg.HistoryKeep)
	if err != nil {
		return nil, fmt.Errorf("failed to prune execution history: %w", err)
	}

	result := &models.CleanupResult{
		TasksRemoved:      tasksRemoved,
		ExecutionsRemoved: executionsRemoved,
	}
	w.log.WithFields(logrus.Fields{
		"tasks_removed":      tasksRemoved,
		"executions_removed": executionsRemoved,
	}).Info("cleanup finished")
	return result, nil
}

// Stats serves the aggregate task counts, cached in redis for a short TTL to
// keep the status endpoint cheap.
func (w *Worker) Stats(ctx context.Context) (*models.TaskCounts, error) {
	if w.redisClient != nil {
		cached, err := w.redisClient.Get(ctx, statsCacheKey).Result()
		if err == nil {
			var counts models.TaskCounts
			if jsonErr := json.Unmarshal([]byte(cached), &counts); jsonErr == nil {
				return &counts, nil
			}
		} else if err != goRedis.Nil {
			w.log.WithError(err).Debug("stats cache read failed")
		}
	}

	counts, err := w.tasksRepo.Counts(ctx, w.cfg.DueWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to get task counts: %w", err)
	}

	if w.redisClient != nil {
		if payload, err := json.Marshal(counts); err == nil {
			if err := w.redisClient.Set(ctx, statsCacheKey, payload, statsCacheTTL).Err(); err != nil {
				w.log.WithError(err).Debug("stats cache write failed")
			}
		}
	}
	return counts, nil
}
