package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"practice_app_echo/internal/models"
)

// ReconcileSessionPaymentsTaskDef replays the payment ledger against every
// session's is_paid flag. With "repair" (default true) drifted flags are rewritten.
type ReconcileSessionPaymentsTaskDef struct{}

func (t *ReconcileSessionPaymentsTaskDef) TaskID() string {
	return "reconcile_session_payments"
}

func (t *ReconcileSessionPaymentsTaskDef) HandleExecution(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	if deps.Payments == nil {
		return nil, errors.New("payment service not configured")
	}
	repair := true
	if v, ok := task.Arguments["repair"].(bool); ok {
		repair = v
	}

	report, err := deps.Payments.ReconcileSessions(ctx, repair)
	if err != nil {
		return nil, fmt.Errorf("reconcile sessions: %w", err)
	}

	drifts := make([]string, 0, len(report.Drifts))
	for _, ref := range report.Drifts {
		drifts = append(drifts, ref.String())
	}
	deps.Log.Info("session payments reconciled",
		zap.Int("checked", report.Checked),
		zap.Int("drifted", report.Drifted),
		zap.Int("repaired", report.Repaired),
	)

	return map[string]interface{}{
		"checked":  report.Checked,
		"drifted":  report.Drifted,
		"repaired": report.Repaired,
		"drifts":   drifts,
	}, nil
}

var ReconcileSessionPaymentsTask = &ReconcileSessionPaymentsTaskDef{}

// EnsureRecurringReconcile creates the recurring reconciliation task unless an
// active one already exists. It returns the task that will run.
func EnsureRecurringReconcile(ctx context.Context, db *gorm.DB, rule string, now time.Time) (*models.ScheduledTask, bool, error) {
	var existing models.ScheduledTask
	err := db.WithContext(ctx).
		Where("task_name = ? AND status = ?", ReconcileSessionPaymentsTask.TaskID(), models.ScheduledTaskStatusActive).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	candidate := models.ScheduledTask{TaskType: models.ScheduledTaskTypeRecurring, RecurringInterval: &rule, Due: now}
	due := candidate.NextDueAfter(now)
	if !due.After(now) {
		return nil, false, fmt.Errorf("rrule %q yields no occurrence after %s", rule, now.Format(time.RFC3339))
	}

	task, err := BuildScheduledTask(ReconcileSessionPaymentsTask.TaskID(), map[string]interface{}{"repair": true}, due, &rule, models.ScheduledTaskTypeRecurring, 3)
	if err != nil {
		return nil, false, err
	}
	if err := db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, false, err
	}
	return task, true, nil
}
