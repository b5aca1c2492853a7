// Package logging builds the structured logger shared by the CLI, HTTP
// server, engine and webhook notifier.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	charmLog "github.com/charmbracelet/log"
)

const appName = "phasegate"

type Config struct {
	Level  string
	Format string
}

// New returns a leveled logger writing to w (stderr when nil).
func New(cfg Config, w io.Writer) (*charmLog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	levelName := cfg.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := charmLog.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	formatter, err := parseFormatter(cfg.Format)
	if err != nil {
		return nil, err
	}
	return charmLog.NewWithOptions(w, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	}), nil
}

// Discard is a logger for tests and library callers that do not care.
func Discard() *charmLog.Logger {
	return charmLog.NewWithOptions(io.Discard, charmLog.Options{Level: charmLog.FatalLevel})
}

func parseFormatter(format string) (charmLog.Formatter, error) {
	switch format {
	case "", "text":
		return charmLog.TextFormatter, nil
	case "json":
		return charmLog.JSONFormatter, nil
	case "logfmt":
		return charmLog.LogfmtFormatter, nil
	default:
		return charmLog.TextFormatter, fmt.Errorf("unknown logging format %q", format)
	}
}
