package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"practice_app_echo/internal/models"
	"practice_app_echo/internal/services"
)

// Deps are the collaborators handed to every task handler
type Deps struct {
	DB       *gorm.DB
	Payments *services.PaymentService
	Log      *zap.Logger
}

// TaskHandler runs one scheduled task and returns a result map for the history row
type TaskHandler func(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error)

// Registry stores the mapping of task names to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]TaskHandler)}
}

// GlobalRegistry is the default global registry
var GlobalRegistry = NewRegistry()

// Register adds a handler for a task name
func (r *Registry) Register(name string, handler TaskHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Get retrieves a handler for a task name
func (r *Registry) Get(name string) (TaskHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	return handler, ok
}

// RegisterHandler is a helper to register to the global registry
func RegisterHandler(name string, handler TaskHandler) {
	GlobalRegistry.Register(name, handler)
}

// GetHandler is a helper to get from the global registry
func GetHandler(name string) (TaskHandler, bool) {
	return GlobalRegistry.Get(name)
}
