package cmd

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/lukisch/ProSync/internal/models"
)

func updateFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("update", pflag.ContinueOnError)
	f.String("name", "", "")
	f.String("source", "", "")
	f.String("target", "", "")
	f.String("type", "", "")
	f.String("mode", "", "")
	f.String("conflicts", "", "")
	f.StringArray("exclude", nil, "")
	f.Bool("index", true, "")
	f.Bool("checkpoint", false, "")
	f.Int("every", 0, "")
	f.String("at", "", "")
	f.String("days", "", "")
	f.Bool("no-autosync", false, "")
	return f
}

func baseConn() models.Connection {
	return models.Connection{
		ID:             "conn-abc123",
		Name:           "docs",
		Kind:           models.KindFolder,
		Source:         "/data/src",
		Target:         "/data/dst",
		Mode:           models.ModeMirror,
		ConflictPolicy: models.PolicyNewest,
		Indexing:       true,
		AutoSync: models.AutoSync{
			Enabled:         true,
			Mode:            models.AutoSyncInterval,
			IntervalMinutes: 15,
		},
	}
}

func TestApplyFlagEditsOnlyChangedFlags(t *testing.T) {
	f := updateFlagSet()
	if err := f.Parse([]string{"--mode", "update", "--name", "docs v2"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	conn := baseConn()
	applyFlagEdits(f, &conn)

	if conn.Mode != models.ModeUpdate {
		t.Errorf("mode: got %q, want update", conn.Mode)
	}
	if conn.Name != "docs v2" {
		t.Errorf("name: got %q", conn.Name)
	}
	// Untouched fields keep their values, including bools whose default
	// differs from the current value.
	if conn.Source != "/data/src" || conn.Target != "/data/dst" {
		t.Error("paths changed without flags")
	}
	if !conn.Indexing {
		t.Error("indexing flipped without --index")
	}
	if !conn.AutoSync.Enabled || conn.AutoSync.IntervalMinutes != 15 {
		t.Errorf("autosync changed without flags: %+v", conn.AutoSync)
	}
}

func TestApplyFlagEditsEveryZeroDisablesAutosync(t *testing.T) {
	f := updateFlagSet()
	if err := f.Parse([]string{"--every", "0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	conn := baseConn()
	applyFlagEdits(f, &conn)

	if conn.AutoSync.Enabled {
		t.Error("--every 0 should disable autosync")
	}
}

func TestApplyFlagEditsSwitchToSchedule(t *testing.T) {
	f := updateFlagSet()
	if err := f.Parse([]string{"--at", "06:30", "--days", "mon,thu"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	conn := baseConn()
	applyFlagEdits(f, &conn)

	if !conn.AutoSync.Enabled || conn.AutoSync.Mode != models.AutoSyncScheduled {
		t.Fatalf("got %+v, want enabled scheduled autosync", conn.AutoSync)
	}
	if conn.AutoSync.Schedule == nil || conn.AutoSync.Schedule.Time != "06:30" {
		t.Errorf("schedule: %+v", conn.AutoSync.Schedule)
	}
	if len(conn.AutoSync.Schedule.Days) != 2 {
		t.Errorf("days: %v", conn.AutoSync.Schedule.Days)
	}
}

func TestApplyFlagEditsNoAutosync(t *testing.T) {
	f := updateFlagSet()
	if err := f.Parse([]string{"--no-autosync"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	conn := baseConn()
	applyFlagEdits(f, &conn)

	if conn.AutoSync.Enabled {
		t.Error("--no-autosync should disable autosync")
	}
	if conn.AutoSync.IntervalMinutes != 15 {
		t.Error("interval settings should survive disabling")
	}
}
