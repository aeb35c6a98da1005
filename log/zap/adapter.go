// Package zap adapts a go.uber.org/zap.Logger to the
// github.com/flowmux/yamux/log.Logger interface a Session/Config expects,
// following the field-mapping shape of the github.com/jackc/pgx zap
// adapter. Every line it emits carries a "component":"yamux" field so a
// host application sharing its own *zap.Logger with a Session can filter
// the multiplexer's lines out of its own.
package zap

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel = int

// Log level constants matching the ones in github.com/flowmux/yamux/log
const (
	LogLevelTrace = 6
	LogLevelDebug = 5
	LogLevelInfo  = 4
	LogLevelWarn  = 3
	LogLevelError = 2
	LogLevelNone  = 1
)

type Logger struct {
	logger *zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (pl *Logger) Log(ctx context.Context, level LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zapcore.Field, 1, len(data)+1)
	fields[0] = zap.String("component", "yamux")
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	switch level {
	case LogLevelTrace:
		pl.logger.Debug(msg, append(fields, zap.Any("LOG_LEVEL", level))...)
	case LogLevelDebug:
		pl.logger.Debug(msg, fields...)
	case LogLevelInfo:
		pl.logger.Info(msg, fields...)
	case LogLevelWarn:
		pl.logger.Warn(msg, fields...)
	case LogLevelError:
		pl.logger.Error(msg, fields...)
	default:
		pl.logger.Error(msg, append(fields, zap.Any("INVALID_LOG_LEVEL", level))...)
	}
}
