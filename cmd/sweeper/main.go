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
	loanrepo "nplvision_backend/internal/loans/repository"
	"nplvision_backend/internal/notification"
	"nplvision_backend/internal/notification/sse"
	"nplvision_backend/internal/scheduler"
	"nplvision_backend/internal/sweep"
	"nplvision_backend/internal/tasks"
	taskrepo "nplvision_backend/internal/tasks/repository"
	"nplvision_backend/platform/config"
	"nplvision_backend/platform/db"
	"nplvision_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting sweeper", "env", cfg.Env, "interval", cfg.GetSweepInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	// The sweeper has no HTTP surface, but the notification module still
	// subscribes so sweep completions reach any future transport.
	sseSvc := sse.New(log)
	defer sseSvc.Close()
	notification.New(sseSvc, log).RegisterHandlers(eventBus)

	taskRepo := taskrepo.New(pool)
	assignee := tasks.NewOwnerFirstPolicy(taskRepo)
	engine := tasks.NewEngine(taskRepo, assignee, eventBus, log)

	loansRepo := loanrepo.New(pool)
	sweeper := sweep.New(loansRepo, engine, db.NewTxRunner(pool), cfg, eventBus, log)

	interval := cfg.GetSweepInterval()
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if cfg.GetRedisURL() == "" {
		// No Redis means no asynq. Fall back to an in-process ticker so the
		// sweep still runs on single-instance deployments.
		log.Warn("REDIS_URL not configured; running sweep on a local ticker")
		runLocal(ctx, sweeper, interval, log)
		return
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	worker, err := scheduler.NewWorker(cfg, sweeper, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	go enqueueLoop(ctx, client, interval, log)

	worker.Run(ctx)
	log.Info("sweeper stopped")
}

// enqueueLoop schedules a sweep immediately and then once per interval.
// Uniqueness on the asynq task keeps multiple sweeper replicas from stacking
// runs.
func enqueueLoop(ctx context.Context, client *scheduler.Client, interval time.Duration, log *logger.Logger) {
	if err := client.ScheduleMissingDocumentSweep(ctx, time.Now().UTC()); err != nil {
		log.Error("failed to schedule sweep", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := client.ScheduleMissingDocumentSweep(ctx, now.UTC()); err != nil {
				log.Error("failed to schedule sweep", "error", err)
			}
		}
	}
}

func runLocal(ctx context.Context, sweeper *sweep.Sweeper, interval time.Duration, log *logger.Logger) {
	runOnce(ctx, sweeper, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			runOnce(ctx, sweeper, log)
		}
	}
}

func runOnce(ctx context.Context, sweeper *sweep.Sweeper, log *logger.Logger) {
	if _, err := sweeper.Run(ctx); err != nil {
		log.Error("sweep run failed", "error", err)
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
