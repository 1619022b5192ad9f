package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind represents what a connection synchronizes
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
)

// Mode represents the synchronization semantics of a connection
type Mode string

const (
	ModeMirror    Mode = "mirror"
	ModeUpdate    Mode = "update"
	ModeTwoWay    Mode = "two_way"
	ModeOneWay    Mode = "one_way"
	ModeIndexOnly Mode = "index_only"
)

// ConflictPolicy represents how two-way conflicts are resolved
type ConflictPolicy string

const (
	PolicySource ConflictPolicy = "source"
	PolicyTarget ConflictPolicy = "target"
	PolicyNewest ConflictPolicy = "newest"
)

// AutoSyncMode represents how a connection is triggered automatically
type AutoSyncMode string

const (
	AutoSyncInterval  AutoSyncMode = "interval"
	AutoSyncScheduled AutoSyncMode = "scheduled"
)

// ValidIntervals lists the accepted interval lengths in minutes.
var ValidIntervals = []int{5, 15, 30, 60, 120}

// Schedule is a fixed time-of-day trigger on a set of weekdays.
type Schedule struct {
	Time string   `json:"time"` // "HH:MM", 24h
	Days []string `json:"days"` // lowercase weekday names
}

// AutoSync holds the automatic trigger settings of a connection.
type AutoSync struct {
	Enabled         bool         `json:"enabled"`
	Mode            AutoSyncMode `json:"mode"`
	IntervalMinutes int          `json:"interval_minutes,omitempty"`
	Schedule        *Schedule    `json:"schedule,omitempty"`
}

// DefaultAutoSync returns the autosync settings applied to new connections.
func DefaultAutoSync() AutoSync {
	return AutoSync{
		Enabled:         false,
		Mode:            AutoSyncInterval,
		IntervalMinutes: 15,
	}
}

// Connection is one sync job definition. The core treats it as read-only at
// run time; only the configuration layer creates and edits connections.
type Connection struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Kind                 Kind           `json:"type"`
	Source               string         `json:"source"`
	Target               string         `json:"target"`
	Mode                 Mode           `json:"mode"`
	ConflictPolicy       ConflictPolicy `json:"conflict_policy"`
	ExcludePatterns      []string       `json:"exclude_patterns,omitempty"`
	Indexing             bool           `json:"indexing"`
	CheckpointBeforeSync bool           `json:"checkpoint_before_sync"`
	AutoSync             AutoSync       `json:"autosync"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Clone returns a deep copy. Mode enforcement and config reloads hand out
// copies so the stored connection is never mutated in place.
func (c Connection) Clone() Connection {
	out := c
	if c.ExcludePatterns != nil {
		out.ExcludePatterns = append([]string(nil), c.ExcludePatterns...)
	}
	if c.AutoSync.Schedule != nil {
		s := *c.AutoSync.Schedule
		s.Days = append([]string(nil), c.AutoSync.Schedule.Days...)
		out.AutoSync.Schedule = &s
	}
	return out
}

// Validate checks the structural invariants of a connection. Schedule
// time/weekday contents are validated by the schedule package; database
// mode constraints are checked by the config store with filesystem probes.
func (c Connection) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrConfigInvalid)
	}
	switch c.Kind {
	case KindFolder, KindFile:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrConfigInvalid, c.Kind)
	}
	if c.Source == "" || c.Target == "" {
		return fmt.Errorf("%w: source and target are required", ErrConfigInvalid)
	}
	if c.Source == c.Target {
		return fmt.Errorf("%w: source and target are the same path", ErrConfigInvalid)
	}
	switch c.Mode {
	case ModeMirror, ModeUpdate, ModeTwoWay, ModeOneWay, ModeIndexOnly:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrConfigInvalid, c.Mode)
	}
	switch c.ConflictPolicy {
	case PolicySource, PolicyTarget, PolicyNewest:
	default:
		return fmt.Errorf("%w: unknown conflict policy %q", ErrConfigInvalid, c.ConflictPolicy)
	}
	if c.CheckpointBeforeSync && c.Kind != KindFile {
		return fmt.Errorf("%w: checkpoint_before_sync applies to file connections only", ErrConfigInvalid)
	}
	return c.AutoSync.Validate()
}

// Validate checks the trigger settings of one connection.
func (a AutoSync) Validate() error {
	switch a.Mode {
	case AutoSyncInterval:
		if !a.Enabled {
			return nil
		}
		for _, m := range ValidIntervals {
			if a.IntervalMinutes == m {
				return nil
			}
		}
		return fmt.Errorf("%w: interval_minutes must be one of %v, got %d",
			ErrConfigInvalid, ValidIntervals, a.IntervalMinutes)
	case AutoSyncScheduled:
		if a.Schedule == nil {
			return fmt.Errorf("%w: scheduled mode requires a schedule", ErrScheduleMisconfigured)
		}
		if a.Schedule.Time == "" || len(a.Schedule.Days) == 0 {
			return fmt.Errorf("%w: schedule requires a time and at least one day", ErrScheduleMisconfigured)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown autosync mode %q", ErrConfigInvalid, a.Mode)
	}
}
