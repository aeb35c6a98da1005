// Package log15 adapts a github.com/inconshreveable/log15.Logger to the
// github.com/flowmux/yamux/log.Logger interface a Session/Config expects,
// following the field-mapping shape of the github.com/jackc/pgx log15
// adapter. Every line it emits carries a component=yamux pair so a host
// application sharing its own log15 logger with a Session can filter the
// multiplexer's lines out of its own.
package log15

import (
	"context"

	"github.com/inconshreveable/log15"
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

// Logger wraps a log15.Logger with the yamux Logger interface's Log
// method. It also embeds log15.Logger directly, so callers that already
// hold one of these can still downcast to the underlying log15.Logger.
type Logger struct {
	log15.Logger
}

func NewLogger(l log15.Logger) *Logger {
	return &Logger{l}
}

func (l *Logger) Log(ctx context.Context, level LogLevel, msg string, data map[string]interface{}) {
	logArgs := make([]interface{}, 0, len(data)*2+2)
	logArgs = append(logArgs, "component", "yamux")
	for k, v := range data {
		logArgs = append(logArgs, k, v)
	}

	switch level {
	case LogLevelTrace:
		l.Debug(msg, append(logArgs, "LOG_LEVEL", level)...)
	case LogLevelDebug:
		l.Debug(msg, logArgs...)
	case LogLevelInfo:
		l.Info(msg, logArgs...)
	case LogLevelWarn:
		l.Warn(msg, logArgs...)
	case LogLevelError:
		l.Error(msg, logArgs...)
	default:
		l.Error(msg, append(logArgs, "INVALID_LOG_LEVEL", level)...)
	}
}
