package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigDir overrides the default config directory. Tests and portable
// installs point it at a writable location.
const EnvConfigDir = "PROSYNC_CONFIG_DIR"

// Dir returns the ProSync config directory, creating it if necessary.
// Priority: PROSYNC_CONFIG_DIR env > ~/.config/prosync.
func Dir() (string, error) {
	dir := os.Getenv(EnvConfigDir)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "prosync")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// File locations inside the config directory. Callers resolve the directory
// once via Dir and pass it down, so tests can work in a temp dir without
// touching the environment.

// ConnectionsPath is the connection list file.
func ConnectionsPath(dir string) string { return filepath.Join(dir, "connections.json") }

// SettingsPath is the global settings file.
func SettingsPath(dir string) string { return filepath.Join(dir, "settings.json") }

// StatePath is where the daemon persists scheduler state between restarts.
func StatePath(dir string) string { return filepath.Join(dir, "state", "schedule.json") }

// IndexPath is the per-connection index database.
func IndexPath(dir, connectionID string) string {
	return filepath.Join(dir, "index", connectionID+".db")
}

// LockDir holds the per-connection run locks and the config lock.
func LockDir(dir string) string { return filepath.Join(dir, "locks") }

// LogFilePath is the default daemon log file.
func LogFilePath(dir string) string { return filepath.Join(dir, "logs", "prosync.log") }
