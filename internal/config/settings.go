package config

import (
	"encoding/json"
	"os"
)

// Settings are the global knobs stored in settings.json. Connection
// definitions live in their own file; see Store.
type Settings struct {
	LogLevel  string `json:"log_level,omitempty"`  // debug|info|warn|error
	LogFormat string `json:"log_format,omitempty"` // text|json
	LogFile   string `json:"log_file,omitempty"`   // empty logs to stderr
}

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// LoadSettings reads settings.json from the config directory. A missing
// file yields zero settings, not an error.
func LoadSettings(dir string) (*Settings, error) {
	data, err := os.ReadFile(SettingsPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSettings writes settings.json atomically.
func SaveSettings(dir string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(SettingsPath(dir), data)
}

// GetLogLevel returns the log level.
// Priority: PROSYNC_LOG_LEVEL env > settings.json > "info".
func GetLogLevel(dir string) string {
	if v := os.Getenv("PROSYNC_LOG_LEVEL"); v != "" {
		return v
	}
	s, err := LoadSettings(dir)
	if err == nil && s.LogLevel != "" {
		return s.LogLevel
	}
	return defaultLogLevel
}

// GetLogFormat returns the log output format.
// Priority: PROSYNC_LOG_FORMAT env > settings.json > "text".
func GetLogFormat(dir string) string {
	if v := os.Getenv("PROSYNC_LOG_FORMAT"); v != "" {
		return v
	}
	s, err := LoadSettings(dir)
	if err == nil && s.LogFormat != "" {
		return s.LogFormat
	}
	return defaultLogFormat
}

// GetLogFile returns the log file path, empty for stderr.
// Priority: PROSYNC_LOG_FILE env > settings.json > "".
func GetLogFile(dir string) string {
	if v := os.Getenv("PROSYNC_LOG_FILE"); v != "" {
		return v
	}
	s, err := LoadSettings(dir)
	if err == nil {
		return s.LogFile
	}
	return ""
}
