// Package logging builds the process-wide slog logger from settings. The
// daemon logs to a rotating file or stderr at a configured level; one-shot
// CLI commands use a quiet warn-level logger so command output stays clean.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the daemon log file.
const (
	maxLogSizeMB  = 5
	maxLogBackups = 3
)

// Options selects the handler the process logs through.
type Options struct {
	Level  string // debug|info|warn|error
	Format string // text|json
	File   string // rotating log file path; empty logs to stderr
}

// Setup builds a logger from the options and installs it as the slog
// default. The logger is also returned for services that take one
// explicitly.
func Setup(opts Options) *slog.Logger {
	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
		}
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	if strings.ToLower(opts.Format) == "json" {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// Quiet returns a warn-level stderr logger for one-shot CLI commands.
func Quiet() *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// ParseLevel maps a settings string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
