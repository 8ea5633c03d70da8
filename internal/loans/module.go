// Package loans provides the loan domain module: loan records, foreclosure
// cases, collateral documents, and the write path that feeds the task engine.
package loans

import (
	"nplvision_backend/internal/events"
	apphttp "nplvision_backend/internal/http"
	"nplvision_backend/internal/loans/handler"
	"nplvision_backend/internal/loans/repository"
	"nplvision_backend/internal/loans/service"
	"nplvision_backend/internal/tasks"
	"nplvision_backend/platform/logger"
	"nplvision_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the loans domain module.
type Module struct {
	handler    *handler.Handler
	Service    *service.Service
	Repository *repository.Repository
}

// NewModule creates a new loans module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, engine *tasks.Engine, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, engine, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler:    h,
		Service:    svc,
		Repository: repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "loans"
}

// RegisterRoutes registers the module's routes under /api/v1/loans.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	loans := ctx.V1.Group("/loans")
	m.handler.RegisterRoutes(loans)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
