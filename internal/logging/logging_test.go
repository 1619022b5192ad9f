package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prosync.log")
	log := Setup(Options{Level: "info", Format: "json", File: path})

	log.Info("sync finished", "connection", "conn-abc123")
	log.Debug("suppressed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"connection":"conn-abc123"`) {
		t.Errorf("log file missing entry: %s", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Errorf("debug entry should be filtered at info level: %s", out)
	}
}

func TestQuietFiltersInfo(t *testing.T) {
	log := Quiet()
	ctx := context.Background()
	if log.Enabled(ctx, slog.LevelInfo) {
		t.Error("quiet logger should drop info entries")
	}
	if !log.Enabled(ctx, slog.LevelWarn) {
		t.Error("quiet logger should keep warnings")
	}
}
