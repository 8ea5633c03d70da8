// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LoanIDKey is the context key for the loan being processed
	LoanIDKey contextKey = "loan_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and loan_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("request_id", requestID)),
		}
	}

	if loanID, ok := ctx.Value(LoanIDKey).(string); ok && loanID != "" {
		newLogger = newLogger.WithLoanID(loanID)
	}

	return newLogger
}

// WithLoanID returns a logger scoped to one loan
func (l *Logger) WithLoanID(loanID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("loan_id", loanID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// TaskRaised logs a task created by the engine
func (l *Logger) TaskRaised(taskType, loanID string, priority string) {
	l.Info("task_raised",
		slog.String("task_type", taskType),
		slog.String("loan_id", loanID),
		slog.String("priority", priority),
	)
}

// TaskSkipped logs an engine decision that did not produce a task
func (l *Logger) TaskSkipped(taskType, loanID, reason string) {
	l.Debug("task_skipped",
		slog.String("task_type", taskType),
		slog.String("loan_id", loanID),
		slog.String("reason", reason),
	)
}

// SweepError logs a per-loan failure during the missing-document sweep.
// The sweep continues with the remaining loans, so this is a warning.
func (l *Logger) SweepError(loanID, category string, err error) {
	l.Warn("sweep_loan_failed",
		slog.String("loan_id", loanID),
		slog.String("category", category),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
