// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	var handler slog.Handler
	if os.Getenv("APP_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	RequestID LogContextKey = "request_id"
)

// WithRequestID returns a new context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestID, id)
}

// ExtractRequestID retrieves the request ID from the context.
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestID).(string); ok {
		return id
	}
	return ""
}

// StoreLogger provides structured logging for state-store operations. Each
// store constructs one for its key namespace.
type StoreLogger struct {
	namespace string
	logger    *Logger
}

// NewStoreLogger creates a new StoreLogger for the given key namespace.
func NewStoreLogger(namespace string) *StoreLogger {
	return &StoreLogger{
		namespace: namespace,
		logger:    GlobalLogger,
	}
}

// LogOp logs a successful store operation.
func (l *StoreLogger) LogOp(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("store", l.namespace),
		slog.String("operation", operation),
		slog.String("request_id", ExtractRequestID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "store operation", attrs...)
	StoreOps.WithLabelValues(l.namespace, operation).Inc()
}

// LogError logs a failed store operation.
func (l *StoreLogger) LogError(ctx context.Context, operation string, err error) {
	l.logger.ErrorContext(ctx, "store error",
		slog.String("store", l.namespace),
		slog.String("operation", operation),
		slog.String("request_id", ExtractRequestID(ctx)),
		slog.String("error", err.Error()),
	)
	StoreErrors.WithLabelValues(l.namespace, operation).Inc()
}

// LogCorruption logs a corrupt persisted record that was cleared during
// self-heal.
func (l *StoreLogger) LogCorruption(ctx context.Context, key string, err error) {
	l.logger.WarnContext(ctx, "corrupt record cleared",
		slog.String("store", l.namespace),
		slog.String("key", key),
		slog.String("request_id", ExtractRequestID(ctx)),
		slog.String("error", err.Error()),
	)
	CorruptRecords.WithLabelValues(l.namespace).Inc()
}
