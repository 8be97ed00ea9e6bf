package tasks

import (
	"context"

	"go.uber.org/zap"

	"practice_app_echo/internal/models"
)

// LogInfoTaskDef writes its message argument to the worker log; used to
// check that a deployment's worker is picking tasks up
type LogInfoTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *LogInfoTaskDef) TaskID() string {
	return "log_info"
}

func (t *LogInfoTaskDef) HandleExecution(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	message, ok := task.Arguments["message"].(string)
	if !ok {
		message = "No message provided"
	}
	deps.Log.Info("log_info task", zap.Uint("task_id", task.ID), zap.String("message", message))

	return map[string]interface{}{
		"status":  "success",
		"message": message,
	}, nil
}

// LogInfoTask is the singleton instance of LogInfoTaskDef
var LogInfoTask = &LogInfoTaskDef{}
