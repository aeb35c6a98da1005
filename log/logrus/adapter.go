// Package logrus adapts a github.com/sirupsen/logrus.FieldLogger to the
// github.com/flowmux/yamux/log.Logger interface a Session/Config expects,
// following the field-mapping shape of the github.com/jackc/pgx logrus
// adapter. Every line it emits carries a "component":"yamux" field so a
// host application sharing its own logrus logger with a Session can
// filter the multiplexer's lines out of its own.
package logrus

import (
	"context"

	"github.com/sirupsen/logrus"
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
	l logrus.FieldLogger
}

func NewLogger(l logrus.FieldLogger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Log(ctx context.Context, level LogLevel, msg string, data map[string]interface{}) {
	fields := make(logrus.Fields, len(data)+1)
	fields["component"] = "yamux"
	for k, v := range data {
		fields[k] = v
	}
	logger := l.l.WithFields(fields)

	switch level {
	case LogLevelTrace:
		logger.WithField("LOG_LEVEL", level).Debug(msg)
	case LogLevelDebug:
		logger.Debug(msg)
	case LogLevelInfo:
		logger.Info(msg)
	case LogLevelWarn:
		logger.Warn(msg)
	case LogLevelError:
		logger.Error(msg)
	default:
		logger.WithField("INVALID_LOG_LEVEL", level).Error(msg)
	}
}
