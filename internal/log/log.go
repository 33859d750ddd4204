// Package log is the process-wide structured logger.
package log

import (
	"os"
	"strings"
	"sync"

	"github.com/paularlott/logger"
	logslog "github.com/paularlott/logger/slog"
)

var (
	mu      sync.RWMutex
	current logger.Logger = logslog.New(logslog.Config{
		Level:  "info",
		Format: "console",
		Writer: os.Stderr,
	})
)

// Configure replaces the global logger. Unknown levels fall back to info and
// unknown formats to console.
func Configure(level, format string) {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "trace", "debug", "info", "warn", "error":
	default:
		level = "info"
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" {
		format = "console"
	}

	l := logslog.New(logslog.Config{
		Level:  level,
		Format: format,
		Writer: os.Stderr,
	})

	mu.Lock()
	current = l
	mu.Unlock()
}

// Logger returns the configured logger for packages that want a scoped child.
func Logger() logger.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// With returns a child logger carrying the key/value pair.
func With(key string, value any) logger.Logger {
	return Logger().With(key, value)
}

func Trace(msg string, keysAndValues ...any) { Logger().Trace(msg, keysAndValues...) }
func Debug(msg string, keysAndValues ...any) { Logger().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { Logger().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { Logger().Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { Logger().Error(msg, keysAndValues...) }
