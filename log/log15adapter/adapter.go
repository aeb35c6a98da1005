package log15adapter

import (
	"context"

	"github.com/inconshreveable/log15"
	"github.com/flowmux/yamux/log"
)

// Logger wraps a log15.Logger with the yamux Logger interface's Log
// method, statically asserted below against log.Logger rather than left
// to duck typing like the sibling log15/logrus/zap submodules. It also
// embeds log15.Logger directly, so callers that already hold one of
// these can still downcast to the underlying log15.Logger.
type Logger struct {
	log15.Logger
}

func NewLogger(l log15.Logger) *Logger {
	return &Logger{l}
}

var _ log.Logger = &Logger{}

func (l *Logger) Log(ctx context.Context, level log.LogLevel, msg string, data map[string]interface{}) {
	logArgs := make([]interface{}, 0, len(data)*2+2)
	logArgs = append(logArgs, "component", "yamux")
	for k, v := range data {
		logArgs = append(logArgs, k, v)
	}

	switch level {
	case log.LogLevelTrace:
		l.Debug(msg, append(logArgs, "LOG_LEVEL", level)...)
	case log.LogLevelDebug:
		l.Debug(msg, logArgs...)
	case log.LogLevelInfo:
		l.Info(msg, logArgs...)
	case log.LogLevelWarn:
		l.Warn(msg, logArgs...)
	case log.LogLevelError:
		l.Error(msg, logArgs...)
	default:
		l.Error(msg, append(logArgs, "INVALID_LOG_LEVEL", level)...)
	}
}
