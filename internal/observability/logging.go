// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the process.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetupLogger replaces GlobalLogger. Production gets JSON output, everything
// else a text handler. Log output goes to stderr so CLI stdout stays clean.
func SetupLogger(level, env string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	GlobalLogger = &Logger{Logger: slog.New(handler)}
	slog.SetDefault(GlobalLogger.Logger)
	return GlobalLogger
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
)

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// SyncLogger provides structured logging for realtime sync components.
type SyncLogger struct {
	component string
}

// NewSyncLogger creates a SyncLogger tagged with the given component name.
func NewSyncLogger(component string) *SyncLogger {
	return &SyncLogger{component: component}
}

func (l *SyncLogger) attrs(ctx context.Context, extra ...any) []any {
	base := []any{
		slog.String("component", l.component),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	return append(base, extra...)
}

// LogConnect logs an established socket connection.
func (l *SyncLogger) LogConnect(ctx context.Context, url, sid string) {
	GlobalLogger.InfoContext(ctx, "socket connected", l.attrs(ctx,
		slog.String("url", url),
		slog.String("sid", sid),
	)...)
}

// LogDisconnect logs a closed socket connection.
func (l *SyncLogger) LogDisconnect(ctx context.Context, reason string) {
	GlobalLogger.InfoContext(ctx, "socket disconnected", l.attrs(ctx,
		slog.String("reason", reason),
	)...)
}

// LogRoom logs a room join or leave.
func (l *SyncLogger) LogRoom(ctx context.Context, action, roomID string, refs int) {
	GlobalLogger.DebugContext(ctx, "room "+action, l.attrs(ctx,
		slog.String("room_id", roomID),
		slog.Int("refs", refs),
	)...)
}

// LogEvent logs a handled realtime event.
func (l *SyncLogger) LogEvent(ctx context.Context, event, roomID string) {
	GlobalLogger.DebugContext(ctx, "socket event", l.attrs(ctx,
		slog.String("event", event),
		slog.String("room_id", roomID),
	)...)
}

// LogError logs a failure while handling an event or operation.
func (l *SyncLogger) LogError(ctx context.Context, event, roomID string, err error) {
	GlobalLogger.ErrorContext(ctx, "sync error", l.attrs(ctx,
		slog.String("event", event),
		slog.String("room_id", roomID),
		slog.String("error", err.Error()),
	)...)
}

// LogLifecycle logs a component lifecycle event.
func (l *SyncLogger) LogLifecycle(ctx context.Context, event string, fields map[string]interface{}) {
	attrs := l.attrs(ctx, slog.String("event", event))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "sync lifecycle", attrs...)
}

// RepoLogger provides structured logging for archive repository operations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

// LogWrite logs a repository write.
func (l *RepoLogger) LogWrite(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.DebugContext(ctx, "repository "+operation, attrs...)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	GlobalLogger.ErrorContext(ctx, "repository error",
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
		slog.String("error", err.Error()),
	)
}
