package logging

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the logging level
type LogLevel zapcore.Level

const (
	DEBUG LogLevel = LogLevel(zapcore.DebugLevel)
	INFO  LogLevel = LogLevel(zapcore.InfoLevel)
	WARN  LogLevel = LogLevel(zapcore.WarnLevel)
	ERROR LogLevel = LogLevel(zapcore.ErrorLevel)
	FATAL LogLevel = LogLevel(zapcore.FatalLevel)
)

// contextKey defines a type for context keys
type contextKey string

const requestIDKey contextKey = "request_id"

const noRequestID = "no-request-id"

// ParseLevel maps a config value such as "debug" to a level. Unknown or empty
// values fall back to INFO.
func ParseLevel(s string) LogLevel {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return INFO
	}
	return LogLevel(lvl)
}

// NewLogger builds the JSON production logger shared by the binaries and
// installs it as the zap global.
func NewLogger(level LogLevel) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.Level(level))
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// WithRequestID adds request_id to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// NewRequest tags ctx with a fresh random request id.
func NewRequest(ctx context.Context) context.Context {
	return WithRequestID(ctx, uuid.NewString())
}

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}
	return noRequestID
}

// FromContext returns base with the request id of ctx attached.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.L()
	}
	return base.With(zap.String("request_id", RequestID(ctx)))
}
