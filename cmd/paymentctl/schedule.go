package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"practice_app_echo/internal/models"
	"practice_app_echo/internal/tasks"
)

func scheduleTaskCmd() *cobra.Command {
	var (
		taskName   string
		argsJSON   string
		dueStr     string
		taskType   string
		recurring  string
		maxAttempt int
	)
	cmd := &cobra.Command{
		Use:   "schedule-task",
		Short: "Create a ScheduledTask row for the worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var args map[string]interface{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
					return fmt.Errorf("invalid JSON arguments: %w", err)
				}
			}
			due, err := parseDue(dueStr)
			if err != nil {
				return err
			}
			var recurringPtr *string
			if recurring != "" {
				recurringPtr = &recurring
			}

			task, err := tasks.BuildScheduledTask(taskName, args, due, recurringPtr, models.ScheduledTaskType(taskType), maxAttempt)
			if err != nil {
				return err
			}

			db, _, err := openDB()
			if err != nil {
				return err
			}
			if err := db.WithContext(cmd.Context()).Create(task).Error; err != nil {
				return fmt.Errorf("create task: %w", err)
			}

			fmt.Printf("Successfully created task ID: %d\n", task.ID)
			fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
			return nil
		},
	}
	cmd.Flags().StringVar(&taskName, "task-name", "", "Name of the task")
	cmd.Flags().StringVar(&argsJSON, "arguments", "", "JSON arguments for the task")
	cmd.Flags().StringVar(&dueStr, "due", "", "Due date (RFC 3339 or '2006-01-02 15:04' UTC)")
	cmd.Flags().StringVar(&taskType, "type", string(models.ScheduledTaskTypeOneTime), "onetime or recurring")
	cmd.Flags().StringVar(&recurring, "recurring", "", "RRULE for recurring tasks")
	cmd.Flags().IntVar(&maxAttempt, "max-attempt", 3, "Max attempts per run")
	cmd.MarkFlagRequired("task-name")
	cmd.MarkFlagRequired("due")
	return cmd
}

func scheduleReconcileCmd() *cobra.Command {
	var rule string
	cmd := &cobra.Command{
		Use:   "schedule-reconcile",
		Short: "Ensure a recurring ledger reconciliation task exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			task, created, err := tasks.EnsureRecurringReconcile(cmd.Context(), db, rule, time.Now().UTC())
			if err != nil {
				return err
			}
			if created {
				fmt.Printf("Created reconciliation task %d, first run %s\n", task.ID, task.Due.Format(time.RFC3339))
			} else {
				fmt.Printf("Reconciliation task %d already active, next run %s\n", task.ID, task.Due.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rule, "rrule", "FREQ=DAILY;BYHOUR=2;BYMINUTE=0", "RRULE for the reconciliation run")
	return cmd
}

func parseDue(s string) (time.Time, error) {
	if due, err := time.Parse(time.RFC3339, s); err == nil {
		return due.UTC(), nil
	}
	due, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: use RFC 3339 or '2006-01-02 15:04'", s)
	}
	return due, nil
}
