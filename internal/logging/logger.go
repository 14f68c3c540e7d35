// Package logging builds the charmbracelet loggers shared by every actl
// component. Output goes to stderr so command output on stdout stays
// machine readable.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the given level name. Unknown level
// names fall back to info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		Prefix:          "actl",
		ReportTimestamp: true,
	})
}

// NewNop returns a logger that discards everything.
func NewNop() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func ParseLevel(level string) log.Level {
	parsed, err := log.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil {
		return log.InfoLevel
	}

	return parsed
}

// Component tags every line of a service's logger.
func Component(logger *log.Logger, name string) *log.Logger {
	if logger == nil {
		logger = NewNop()
	}

	return logger.With("component", name)
}
