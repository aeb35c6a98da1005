package log

import (
	"context"
	"fmt"
)

type LogLevel = int

type ErrInvalidLogLevel struct {
	Level any
}

func (e ErrInvalidLogLevel) Error() string {
	return fmt.Sprintf("invalid log level: %v", e.Level)
}

const (
	LogLevelTrace = 6
	LogLevelDebug = 5
	LogLevelInfo  = 4
	LogLevelWarn  = 3
	LogLevelError = 2
	LogLevelNone  = 1
)

// Logger is the seam Config.Logger and every Session use to report
// protocol-level events (session failure, missed keepalives). Its shape
// is heavily inspired by github.com/jackc/pgx's logger, with LogLevel as
// a type alias rather than a newtype so an adapter package can satisfy it
// structurally without importing this package at all - log15, logrus,
// and zap each do exactly that, tagging every record they emit with
// "component":"yamux" so it can be told apart in a shared logger; only
// log15adapter imports this interface directly, for callers who want the
// compiler to check the implementation for them. slog is provided too,
// wrapping the standard library's own structured logger.
type Logger interface {
	// Log a message at the given level with data key/value pairs. data may be nil.
	Log(context context.Context, level LogLevel, msg string, data map[string]interface{})
}

type noopLogger struct{}

func (noopLogger) Log(context.Context, LogLevel, string, map[string]interface{}) {}

// Noop returns a Logger that discards everything, used as the session
// default when the embedder doesn't wire up one of the adapters.
func Noop() Logger { return noopLogger{} }

func StringFromLogLevel(lvl LogLevel) (string, error) {
	switch lvl {
	case LogLevelTrace:
		return "trace", nil
	case LogLevelDebug:
		return "debug", nil
	case LogLevelInfo:
		return "info", nil
	case LogLevelWarn:
		return "warn", nil
	case LogLevelError:
		return "error", nil
	case LogLevelNone:
		return "none", nil
	default:
		return "invalid", ErrInvalidLogLevel{lvl}
	}
}

func LogLevelFromString(s string) (LogLevel, error) {
	switch s {
	case "trace":
		return LogLevelTrace, nil
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none":
		return LogLevelNone, nil
	default:
		return 0, ErrInvalidLogLevel{s}
	}
}
