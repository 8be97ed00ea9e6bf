package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"practice_app_echo/internal/models"
	"practice_app_echo/internal/services"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestRunner(t *testing.T) (*Runner, *Registry, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := services.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	registry := NewRegistry()
	DefineTasks(registry)
	runner := NewRunner(registry, Deps{DB: db, Payments: services.NewPaymentService(db, nil, nil)})
	runner.now = func() time.Time { return testNow }
	return runner, registry, db
}

func createTask(t *testing.T, db *gorm.DB, name string, due time.Time, rule *string, maxAttempt int) models.ScheduledTask {
	t.Helper()
	taskType := models.ScheduledTaskTypeOneTime
	if rule != nil {
		taskType = models.ScheduledTaskTypeRecurring
	}
	task, err := BuildScheduledTask(name, map[string]interface{}{"repair": true}, due, rule, taskType, maxAttempt)
	if err != nil {
		t.Fatalf("BuildScheduledTask() error = %v", err)
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	return *task
}

func TestReconcileTaskRepairsDriftAndReschedules(t *testing.T) {
	runner, _, db := newTestRunner(t)

	// flagged paid without any ledger row
	meeting := models.Meeting{UserID: 1, ClientID: 1, MeetingDate: testNow, Price: decimal.RequireFromString("80"), IsActive: true}
	db.Create(&meeting)
	db.Model(&meeting).Update("is_paid", true)

	rule := "FREQ=DAILY;BYHOUR=2;BYMINUTE=0"
	task := createTask(t, db, ReconcileSessionPaymentsTask.TaskID(), time.Date(2026, 3, 9, 2, 0, 0, 0, time.UTC), &rule, 3)
	// not due yet, must be left alone
	createTask(t, db, LogInfoTask.TaskID(), testNow.Add(time.Hour), nil, 1)

	ran, err := runner.ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if ran != 1 {
		t.Fatalf("ran = %d; want 1", ran)
	}

	var reloaded models.Meeting
	db.First(&reloaded, meeting.ID)
	if reloaded.IsPaid {
		t.Error("drifted meeting was not repaired")
	}

	var stored models.ScheduledTask
	db.First(&stored, task.ID)
	wantDue := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)
	if stored.Status != models.ScheduledTaskStatusActive || !stored.Due.Equal(wantDue) {
		t.Errorf("task status/due = %s/%v; want active/%v", stored.Status, stored.Due, wantDue)
	}

	var history []models.ScheduledTaskHistory
	db.Where("scheduled_task_id = ?", task.ID).Find(&history)
	if len(history) != 1 || history[0].Status != "success" {
		t.Fatalf("history = %+v; want one success", history)
	}
	if drifted, _ := history[0].Result["drifted"].(float64); drifted != 1 {
		t.Errorf("history drifted = %v; want 1", history[0].Result["drifted"])
	}
}

func TestRunnerRetriesThenFails(t *testing.T) {
	runner, registry, db := newTestRunner(t)

	calls := 0
	registry.Register("flaky", func(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
		calls++
		return nil, errors.New("boom")
	})
	flaky := createTask(t, db, "flaky", testNow.Add(-time.Minute), nil, 2)
	unknown := createTask(t, db, "does_not_exist", testNow.Add(-time.Minute), nil, 1)

	if _, err := runner.ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("handler calls = %d; want 2", calls)
	}

	tests := []struct {
		task        models.ScheduledTask
		wantHistory int
		wantStatus  string
	}{
		{flaky, 2, "failure"},
		{unknown, 1, "handler_not_found"},
	}
	for _, tt := range tests {
		var stored models.ScheduledTask
		db.First(&stored, tt.task.ID)
		if stored.Status != models.ScheduledTaskStatusFailure {
			t.Errorf("%s status = %s; want failure", tt.task.TaskName, stored.Status)
		}
		var history []models.ScheduledTaskHistory
		db.Where("scheduled_task_id = ?", tt.task.ID).Order("attempt_number").Find(&history)
		if len(history) != tt.wantHistory {
			t.Fatalf("%s history rows = %d; want %d", tt.task.TaskName, len(history), tt.wantHistory)
		}
		if history[len(history)-1].Status != tt.wantStatus {
			t.Errorf("%s last history status = %s; want %s", tt.task.TaskName, history[len(history)-1].Status, tt.wantStatus)
		}
	}
}

func TestEnsureRecurringReconcile(t *testing.T) {
	_, _, db := newTestRunner(t)
	ctx := context.Background()
	rule := "FREQ=DAILY;BYHOUR=2;BYMINUTE=0"

	task, created, err := EnsureRecurringReconcile(ctx, db, rule, testNow)
	if err != nil {
		t.Fatalf("EnsureRecurringReconcile() error = %v", err)
	}
	if !created {
		t.Fatal("first call did not create the task")
	}
	if want := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC); !task.Due.Equal(want) {
		t.Errorf("due = %v; want %v", task.Due, want)
	}

	again, created, err := EnsureRecurringReconcile(ctx, db, rule, testNow)
	if err != nil {
		t.Fatalf("second EnsureRecurringReconcile() error = %v", err)
	}
	if created || again.ID != task.ID {
		t.Errorf("second call created=%v id=%d; want existing %d", created, again.ID, task.ID)
	}
}

func TestRunnerLogsFailedBookkeeping(t *testing.T) {
	runner, registry, db := newTestRunner(t)
	core, logs := observer.New(zapcore.ErrorLevel)
	runner.deps.Log = zap.New(core)

	registry.Register("noop", func(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	})
	task := createTask(t, db, "noop", testNow.Add(-time.Minute), nil, 1)

	failWrites := func(tx *gorm.DB) {
		if tx.Statement.Table == "scheduled_tasks" || tx.Statement.Table == "scheduled_task_histories" {
			tx.AddError(errors.New("database is read-only"))
		}
	}
	if err := db.Callback().Update().Before("gorm:update").Register("test:fail_task_update", failWrites); err != nil {
		t.Fatalf("Failed to register callback: %v", err)
	}
	if err := db.Callback().Create().Before("gorm:create").Register("test:fail_history", failWrites); err != nil {
		t.Fatalf("Failed to register callback: %v", err)
	}

	if _, err := runner.ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}

	for _, msg := range []string{"failed to update task", "failed to record task history"} {
		entries := logs.FilterMessage(msg).All()
		if len(entries) != 1 {
			t.Errorf("%q logged %d times; want 1", msg, len(entries))
			continue
		}
		if entries[0].ContextMap()["task_id"] != uint64(task.ID) {
			t.Errorf("%q task_id = %v; want %d", msg, entries[0].ContextMap()["task_id"], task.ID)
		}
	}

	// the status write failed, so the task is still due
	var stored models.ScheduledTask
	db.First(&stored, task.ID)
	if stored.Status != models.ScheduledTaskStatusActive {
		t.Errorf("status = %s; want active", stored.Status)
	}
}
