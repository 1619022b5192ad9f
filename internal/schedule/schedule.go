// Package schedule decides when connections are due. Next-due timestamps are
// plain data computed from a clock, so the missed-run policy is testable
// without wall-clock waiting; the Scheduler service owns per-connection
// timing state and dispatches due runs.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lukisch/ProSync/internal/models"
)

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

// ParseTimeOfDay parses a 24h "HH:MM" string.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time must be HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// ParseWeekday parses a weekday name ("monday") or its three-letter form.
func ParseWeekday(s string) (time.Weekday, error) {
	if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// ValidateAutoSync checks the trigger settings beyond the structural checks
// the model itself does: parseable time, known weekdays.
func ValidateAutoSync(a models.AutoSync) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Mode != models.AutoSyncScheduled || a.Schedule == nil {
		return nil
	}
	if _, _, err := ParseTimeOfDay(a.Schedule.Time); err != nil {
		return fmt.Errorf("%w: %v", models.ErrScheduleMisconfigured, err)
	}
	for _, day := range a.Schedule.Days {
		if _, err := ParseWeekday(day); err != nil {
			return fmt.Errorf("%w: %v", models.ErrScheduleMisconfigured, err)
		}
	}
	return nil
}

// NextAfter computes the next due timestamp strictly after now. Interval
// connections are due a full interval from now; scheduled connections at the
// next matching weekday/time. Disabled autosync yields the zero time.
func NextAfter(now time.Time, a models.AutoSync) (time.Time, error) {
	if !a.Enabled {
		return time.Time{}, nil
	}
	switch a.Mode {
	case models.AutoSyncInterval:
		return now.Add(time.Duration(a.IntervalMinutes) * time.Minute), nil
	case models.AutoSyncScheduled:
		if a.Schedule == nil {
			return time.Time{}, fmt.Errorf("%w: scheduled mode without schedule", models.ErrScheduleMisconfigured)
		}
		hour, minute, err := ParseTimeOfDay(a.Schedule.Time)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", models.ErrScheduleMisconfigured, err)
		}
		days := make(map[time.Weekday]bool, len(a.Schedule.Days))
		for _, name := range a.Schedule.Days {
			d, err := ParseWeekday(name)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: %v", models.ErrScheduleMisconfigured, err)
			}
			days[d] = true
		}
		// Today counts if the time of day is still ahead; otherwise the
		// next matching weekday within a week wins.
		for offset := 0; offset <= 7; offset++ {
			day := now.AddDate(0, 0, offset)
			candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
			if days[candidate.Weekday()] && candidate.After(now) {
				return candidate, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: no matching weekday", models.ErrScheduleMisconfigured)
	default:
		return time.Time{}, fmt.Errorf("%w: unknown autosync mode %q", models.ErrScheduleMisconfigured, a.Mode)
	}
}
