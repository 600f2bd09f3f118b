// Package logger builds the charmbracelet loggers injected into each
// component at construction. Components never reach for ambient logging
// state.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a prefixed logger writing to stdout at the global level.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stdout, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithLevel creates a prefixed logger with an explicit level.
func NewWithLevel(prefix string, level log.Level) *log.Logger {
	return log.NewWithOptions(os.Stdout, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           level,
	})
}

// Discard returns a logger that drops everything. Used by tests and as a
// nil-safe default inside components.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
