package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/lukisch/ProSync/internal/models"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{"18:00", 18, 0, false},
		{"00:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{"7:30", 7, 30, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noonish", 0, 0, true},
		{"12", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tc := range cases {
		h, m, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if h != tc.hour || m != tc.minute {
			t.Errorf("ParseTimeOfDay(%q): got %d:%d, want %d:%d", tc.in, h, m, tc.hour, tc.minute)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	if d, err := ParseWeekday("monday"); err != nil || d != time.Monday {
		t.Errorf("monday: got %v, %v", d, err)
	}
	if d, err := ParseWeekday(" Friday "); err != nil || d != time.Friday {
		t.Errorf("mixed case with spaces: got %v, %v", d, err)
	}
	if d, err := ParseWeekday("wed"); err != nil || d != time.Wednesday {
		t.Errorf("three-letter form: got %v, %v", d, err)
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

func TestValidateAutoSync(t *testing.T) {
	good := models.AutoSync{
		Enabled: true,
		Mode:    models.AutoSyncScheduled,
		Schedule: &models.Schedule{
			Time: "18:00",
			Days: []string{"monday", "friday"},
		},
	}
	if err := ValidateAutoSync(good); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}

	badTime := good
	badTime.Schedule = &models.Schedule{Time: "25:00", Days: []string{"monday"}}
	if err := ValidateAutoSync(badTime); !errors.Is(err, models.ErrScheduleMisconfigured) {
		t.Errorf("bad time: got %v, want ErrScheduleMisconfigured", err)
	}

	badDay := good
	badDay.Schedule = &models.Schedule{Time: "18:00", Days: []string{"funday"}}
	if err := ValidateAutoSync(badDay); !errors.Is(err, models.ErrScheduleMisconfigured) {
		t.Errorf("bad day: got %v, want ErrScheduleMisconfigured", err)
	}
}

// 2026-01-07 is a Wednesday.
func wednesday(hour, minute int) time.Time {
	return time.Date(2026, 1, 7, hour, minute, 0, 0, time.UTC)
}

func TestNextAfterInterval(t *testing.T) {
	now := wednesday(10, 0)
	a := models.AutoSync{Enabled: true, Mode: models.AutoSyncInterval, IntervalMinutes: 60}

	next, err := NextAfter(now, a)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if want := wednesday(11, 0); !next.Equal(want) {
		t.Errorf("next: got %v, want %v", next, want)
	}
}

func TestNextAfterScheduled(t *testing.T) {
	a := models.AutoSync{
		Enabled:  true,
		Mode:     models.AutoSyncScheduled,
		Schedule: &models.Schedule{Time: "18:00", Days: []string{"wednesday"}},
	}

	// Before today's slot: due today.
	next, err := NextAfter(wednesday(17, 0), a)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if want := wednesday(18, 0); !next.Equal(want) {
		t.Errorf("before slot: got %v, want %v", next, want)
	}

	// Past today's slot: due next Wednesday.
	next, err = NextAfter(wednesday(19, 0), a)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if want := wednesday(18, 0).AddDate(0, 0, 7); !next.Equal(want) {
		t.Errorf("after slot: got %v, want %v", next, want)
	}

	// Several days: the nearest one wins.
	a.Schedule.Days = []string{"monday", "friday"}
	next, err = NextAfter(wednesday(12, 0), a)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if want := wednesday(18, 0).AddDate(0, 0, 2); !next.Equal(want) {
		t.Errorf("nearest day: got %v, want %v (friday)", next, want)
	}
}

func TestNextAfterDisabled(t *testing.T) {
	next, err := NextAfter(wednesday(10, 0), models.AutoSync{Enabled: false})
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !next.IsZero() {
		t.Errorf("disabled autosync should have no due time, got %v", next)
	}
}

func TestStateFileRoundTrip(t *testing.T) {
	path := t.TempDir() + "/schedule.json"

	missing, err := LoadStates(path)
	if err != nil || missing != nil {
		t.Fatalf("missing file: got %v, %v", missing, err)
	}

	in := []models.ScheduleState{
		{
			ConnectionID: "conn-abc123",
			State:        models.SchedIdle,
			LastRun:      wednesday(10, 0),
			NextDue:      wednesday(11, 0),
			LastResult:   &models.RunResult{ConnectionID: "conn-abc123", Status: models.StatusSuccess, Copied: 3},
		},
	}
	if err := SaveStates(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := LoadStates(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 1 || !out[0].NextDue.Equal(in[0].NextDue) {
		t.Fatalf("round trip: got %+v", out)
	}
	if out[0].LastResult == nil || out[0].LastResult.Copied != 3 {
		t.Errorf("last result lost: %+v", out[0].LastResult)
	}
}
