package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nplvision_backend/internal/events"
	apphttp "nplvision_backend/internal/http"
	"nplvision_backend/internal/http/router"
	"nplvision_backend/internal/loans"
	"nplvision_backend/internal/notification"
	"nplvision_backend/internal/notification/sse"
	"nplvision_backend/internal/tasks"
	taskhandler "nplvision_backend/internal/tasks/handler"
	taskrepo "nplvision_backend/internal/tasks/repository"
	taskservice "nplvision_backend/internal/tasks/service"
	"nplvision_backend/migrations"
	"nplvision_backend/platform/config"
	"nplvision_backend/platform/db"
	"nplvision_backend/platform/logger"
	"nplvision_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg.GetDatabaseURL(), migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Layer
	// ========================================================================

	// Task engine: classification, assignment, dedup, persistence.
	taskRepo := taskrepo.New(pool)
	assignee := tasks.NewOwnerFirstPolicy(taskRepo)
	engine := tasks.NewEngine(taskRepo, assignee, eventBus, log)

	loansModule := loans.NewModule(pool, engine, eventBus, val, log)

	taskSvc := taskservice.New(taskRepo, eventBus, log)

	// Real-time notifications: bus events fan out to connected SSE clients.
	sseSvc := sse.New(log)
	defer sseSvc.Close()

	notificationModule := notification.New(sseSvc, log)
	notificationModule.RegisterHandlers(eventBus)

	tasksModule := taskhandler.NewModule(taskSvc, sseSvc, val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			loansModule,
			tasksModule,
		},
	}

	ginEngine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- ginEngine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
