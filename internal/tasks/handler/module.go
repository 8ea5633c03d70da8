package handler

import (
	apphttp "nplvision_backend/internal/http"
	"nplvision_backend/internal/notification/sse"
	"nplvision_backend/internal/tasks/service"
	"nplvision_backend/platform/validator"
)

// Module represents the inbox bounded context: tasks, notifications, and the
// real-time stream.
type Module struct {
	handler *Handler
	Service *service.Service
}

// NewModule creates a new inbox module with all dependencies wired.
func NewModule(svc *service.Service, sseService *sse.Service, val *validator.Validator) *Module {
	return &Module{
		handler: New(svc, sseService, val),
		Service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "tasks"
}

// RegisterRoutes registers the module's routes under /api/v1/tasks and
// /api/v1/notifications.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/tasks"), ctx.V1.Group("/notifications"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
