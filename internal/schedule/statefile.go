package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/lukisch/ProSync/internal/models"
)

// LoadStates reads persisted scheduler state. A missing file is not an
// error; the daemon starts fresh.
func LoadStates(path string) ([]models.ScheduleState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var states []models.ScheduleState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// SaveStates writes scheduler state using atomic write (temp file + rename)
// so a crash mid-save never corrupts the file.
func SaveStates(path string, states []models.ScheduleState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "schedule-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
