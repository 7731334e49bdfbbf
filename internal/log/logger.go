// Package log wraps log/slog with a per-component attribute and handler
// selection for the somiti binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the process-wide default logger. Level comes from LOG_LEVEL
// (debug, info, warn, error; default info); LOG_FORMAT=pretty switches the
// text handler for a colored tint handler, which is nicer on a dev terminal.
func Setup() {
	level := levelFromEnv()
	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "pretty") {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// WithComponent returns a logger tagged with a component attribute, so log
// lines from the ledger, storage, amqp and worker layers stay tellable apart.
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
