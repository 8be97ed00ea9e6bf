package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"practice_app_echo/internal/models"
)

// Runner executes due ScheduledTask rows and books their history
type Runner struct {
	registry *Registry
	deps     Deps
	now      func() time.Time
}

func NewRunner(registry *Registry, deps Deps) *Runner {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Runner{registry: registry, deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// ProcessDue runs every active task whose due time has passed and returns how many ran
func (r *Runner) ProcessDue(ctx context.Context) (int, error) {
	var pendingTasks []models.ScheduledTask
	err := r.deps.DB.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due").
		Find(&pendingTasks).Error
	if err != nil {
		return 0, err
	}
	if len(pendingTasks) == 0 {
		r.deps.Log.Debug("no pending tasks")
		return 0, nil
	}

	r.deps.Log.Info("found pending tasks", zap.Int("count", len(pendingTasks)))
	ran := 0
	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		r.execute(ctx, task)
		ran++
	}
	return ran, nil
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) {
	log := r.deps.Log.With(zap.String("task", task.TaskName), zap.Uint("task_id", task.ID))
	db := r.deps.DB.WithContext(ctx)

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		now := r.now()
		log.Warn("task handler not found, marking as failure")
		r.updateTask(db, log, &task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		r.recordHistory(db, log, &models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          "handler_not_found",
			AttemptNumber:   1,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		})
		return
	}

	maxAttempt := task.MaxAttempt
	if maxAttempt < 1 {
		maxAttempt = 1
	}

	var (
		startTime time.Time
		err       error
	)
	for attempt := 1; attempt <= maxAttempt; attempt++ {
		startTime = r.now()
		var result map[string]interface{}
		result, err = handler(ctx, r.deps, task)
		runtimeMs := int(time.Since(startTime).Milliseconds())

		status := "success"
		if err != nil {
			status = "failure"
			result = map[string]interface{}{"error": err.Error()}
			log.Warn("task attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		r.recordHistory(db, log, &models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           startTime,
			Runtime:         runtimeMs,
			Status:          status,
			AttemptNumber:   attempt,
			Arguments:       task.Arguments,
			Result:          result,
		})
		if err == nil || ctx.Err() != nil {
			break
		}
	}

	taskUpdates := map[string]interface{}{"last_run": &startTime}
	switch {
	case err != nil:
		log.Error("task failed", zap.Error(err))
		taskUpdates["status"] = models.ScheduledTaskStatusFailure
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		nextDue := task.NextDueAfter(r.now())
		// a rule with no further occurrence ends the task
		if nextDue.After(task.Due) {
			taskUpdates["due"] = nextDue
		} else {
			taskUpdates["status"] = models.ScheduledTaskStatusDone
		}
		log.Info("task completed", zap.Time("next_due", nextDue))
	default:
		taskUpdates["status"] = models.ScheduledTaskStatusDone
		log.Info("task completed")
	}

	r.updateTask(db, log, &task, taskUpdates)
}

// updateTask persists the outcome of a run. A failed write leaves the task
// due, so it runs again on the next tick.
func (r *Runner) updateTask(db *gorm.DB, log *zap.Logger, task *models.ScheduledTask, updates map[string]interface{}) {
	if err := db.Model(task).Updates(updates).Error; err != nil {
		log.Error("failed to update task", zap.Any("updates", updates), zap.Error(err))
	}
}

func (r *Runner) recordHistory(db *gorm.DB, log *zap.Logger, history *models.ScheduledTaskHistory) {
	if err := db.Create(history).Error; err != nil {
		log.Error("failed to record task history", zap.Int("attempt", history.AttemptNumber), zap.Error(err))
	}
}
