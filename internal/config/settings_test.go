package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirEnvOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "confhome")
	t.Setenv(EnvConfigDir, want)

	got, err := Dir()
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	fi, err := os.Stat(want)
	if err != nil || !fi.IsDir() {
		t.Fatalf("config dir not created: %v", err)
	}
}

func TestLoadSettingsMissing(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.LogLevel != "" || s.LogFormat != "" || s.LogFile != "" {
		t.Fatalf("missing file should yield zero settings, got %+v", s)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &Settings{LogLevel: "debug", LogFormat: "json", LogFile: "sync.log"}
	if err := SaveSettings(dir, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *out != *in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestGetLogLevelPriority(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROSYNC_LOG_LEVEL", "")

	if got := GetLogLevel(dir); got != "info" {
		t.Errorf("default: got %q, want info", got)
	}

	if err := SaveSettings(dir, &Settings{LogLevel: "warn"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := GetLogLevel(dir); got != "warn" {
		t.Errorf("from file: got %q, want warn", got)
	}

	t.Setenv("PROSYNC_LOG_LEVEL", "debug")
	if got := GetLogLevel(dir); got != "debug" {
		t.Errorf("env override: got %q, want debug", got)
	}
}

func TestGetLogFormatAndFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROSYNC_LOG_FORMAT", "")
	t.Setenv("PROSYNC_LOG_FILE", "")

	if got := GetLogFormat(dir); got != "text" {
		t.Errorf("default format: got %q, want text", got)
	}
	if got := GetLogFile(dir); got != "" {
		t.Errorf("default file: got %q, want empty", got)
	}

	if err := SaveSettings(dir, &Settings{LogFormat: "json", LogFile: "daemon.log"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := GetLogFormat(dir); got != "json" {
		t.Errorf("format: got %q, want json", got)
	}
	if got := GetLogFile(dir); got != "daemon.log" {
		t.Errorf("file: got %q, want daemon.log", got)
	}
}
