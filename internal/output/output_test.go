package output

import (
	"strings"
	"testing"
	"time"

	"github.com/lukisch/ProSync/internal/models"
)

// TestFormatTimeAgoJustNow tests times less than a minute ago
func TestFormatTimeAgoJustNow(t *testing.T) {
	now := time.Now()
	tests := []time.Time{
		now,
		now.Add(-30 * time.Second),
		now.Add(-59 * time.Second),
	}

	for _, tm := range tests {
		result := FormatTimeAgo(tm)
		if result != "just now" {
			t.Errorf("FormatTimeAgo(%v) = %q, want 'just now'", tm, result)
		}
	}
}

// TestFormatTimeAgoUnits tests minute, hour and day buckets
func TestFormatTimeAgoUnits(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{1 * time.Minute, "1m ago"},
		{30 * time.Minute, "30m ago"},
		{1 * time.Hour, "1h ago"},
		{23 * time.Hour, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{6 * 24 * time.Hour, "6d ago"},
	}

	for _, tc := range tests {
		tm := time.Now().Add(-tc.duration)
		result := FormatTimeAgo(tm)
		if result != tc.expected {
			t.Errorf("FormatTimeAgo(-%v) = %q, want %q", tc.duration, result, tc.expected)
		}
	}
}

// TestFormatTimeAgoDate tests times 7+ days ago (returns date)
func TestFormatTimeAgoDate(t *testing.T) {
	tm := time.Now().Add(-8 * 24 * time.Hour)
	result := FormatTimeAgo(tm)
	expected := tm.Format("2006-01-02")
	if result != expected {
		t.Errorf("FormatTimeAgo(-8d) = %q, want %q", result, expected)
	}
}

// TestFormatTimeAgoZero tests the zero time
func TestFormatTimeAgoZero(t *testing.T) {
	if result := FormatTimeAgo(time.Time{}); result != "never" {
		t.Errorf("FormatTimeAgo(zero) = %q, want 'never'", result)
	}
}

// TestFormatUntil tests future time formatting
func TestFormatUntil(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{-1 * time.Minute, "now"},
		{30 * time.Second, "in <1m"},
		{5 * time.Minute, "in 5m"},
		{3 * time.Hour, "in 3h"},
		{2 * 24 * time.Hour, "in 2d"},
	}

	for _, tc := range tests {
		// Half a second of slack so the bucket does not flip mid-test.
		tm := time.Now().Add(tc.duration + 500*time.Millisecond)
		result := FormatUntil(tm)
		if result != tc.expected {
			t.Errorf("FormatUntil(+%v) = %q, want %q", tc.duration, result, tc.expected)
		}
	}
}

// TestFormatBytes tests byte count rendering
func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n        int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tc := range tests {
		if got := FormatBytes(tc.n); got != tc.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tc.n, got, tc.expected)
		}
	}
}

// TestFormatRunStatus tests all run status values
func TestFormatRunStatus(t *testing.T) {
	statuses := []models.RunStatus{
		models.StatusSuccess,
		models.StatusPartial,
		models.StatusFailed,
		models.StatusAbortedBySafety,
	}

	for _, s := range statuses {
		result := FormatRunStatus(s)
		if !strings.Contains(result, string(s)) {
			t.Errorf("FormatRunStatus(%q) = %q, should contain status", s, result)
		}
	}

	if result := FormatRunStatus(models.RunStatus("odd")); result != "odd" {
		t.Errorf("FormatRunStatus(odd) = %q, want 'odd'", result)
	}
}

// TestSchedBadge tests scheduler state badges with symbols
func TestSchedBadge(t *testing.T) {
	tests := []struct {
		state    models.SchedState
		contains string
	}{
		{models.SchedIdle, "○"},
		{models.SchedDue, "●"},
		{models.SchedRunning, "▶"},
		{models.SchedCooldown, "◌"},
	}

	for _, tc := range tests {
		result := SchedBadge(tc.state)
		if !strings.Contains(result, tc.contains) {
			t.Errorf("SchedBadge(%q) = %q, should contain %q", tc.state, result, tc.contains)
		}
		if !strings.Contains(result, string(tc.state)) {
			t.Errorf("SchedBadge(%q) should contain state name", tc.state)
		}
	}

	if result := SchedBadge(models.SchedState("odd")); !strings.Contains(result, "?") {
		t.Error("Unknown state should use ? symbol")
	}
}

// TestFormatSchedule tests autosync rendering
func TestFormatSchedule(t *testing.T) {
	manual := models.AutoSync{Enabled: false}
	if got := FormatSchedule(manual); got != "manual" {
		t.Errorf("disabled autosync: got %q, want 'manual'", got)
	}

	interval := models.AutoSync{Enabled: true, Mode: models.AutoSyncInterval, IntervalMinutes: 15}
	if got := FormatSchedule(interval); got != "every 15m" {
		t.Errorf("interval autosync: got %q, want 'every 15m'", got)
	}

	scheduled := models.AutoSync{
		Enabled: true,
		Mode:    models.AutoSyncScheduled,
		Schedule: &models.Schedule{
			Time: "18:00",
			Days: []string{"monday", "friday"},
		},
	}
	if got := FormatSchedule(scheduled); got != "mon,fri at 18:00" {
		t.Errorf("scheduled autosync: got %q, want 'mon,fri at 18:00'", got)
	}
}

// TestFormatConnectionShort tests the single-line list format
func TestFormatConnectionShort(t *testing.T) {
	conn := models.Connection{
		ID:       "conn-a1b2c3",
		Name:     "docs backup",
		Kind:     models.KindFolder,
		Mode:     models.ModeMirror,
		AutoSync: models.AutoSync{Enabled: true, Mode: models.AutoSyncInterval, IntervalMinutes: 60},
	}
	st := &models.ScheduleState{
		ConnectionID: conn.ID,
		State:        models.SchedIdle,
		LastResult: &models.RunResult{
			Status:   models.StatusSuccess,
			Finished: time.Now().Add(-2 * time.Minute),
		},
	}

	result := FormatConnectionShort(conn, st)

	for _, want := range []string{"conn-a1b2c3", "docs backup", "folder/mirror", "every 60m", "idle", "success", "2m ago"} {
		if !strings.Contains(result, want) {
			t.Errorf("short format missing %q: %q", want, result)
		}
	}
}

// TestFormatConnectionLong tests the detail format
func TestFormatConnectionLong(t *testing.T) {
	conn := models.Connection{
		ID:                   "conn-a1b2c3",
		Name:                 "ledger backup",
		Kind:                 models.KindFile,
		Source:               "/data/ledger.db",
		Target:               "/backup/ledger.db",
		Mode:                 models.ModeOneWay,
		ConflictPolicy:       models.PolicyNewest,
		ExcludePatterns:      []string{"*.tmp"},
		Indexing:             true,
		CheckpointBeforeSync: true,
		AutoSync:             models.DefaultAutoSync(),
		CreatedAt:            time.Now().Add(-48 * time.Hour),
		UpdatedAt:            time.Now().Add(-1 * time.Hour),
	}
	st := &models.ScheduleState{
		ConnectionID: conn.ID,
		State:        models.SchedIdle,
		NextDue:      time.Now().Add(10 * time.Minute),
	}

	result := FormatConnectionLong(conn, st)

	for _, want := range []string{
		"conn-a1b2c3: ledger backup",
		"Source: /data/ledger.db",
		"Target: /backup/ledger.db",
		"indexing",
		"checkpoint before sync",
		"Excludes: *.tmp",
		"Next due:",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("long format missing %q:\n%s", want, result)
		}
	}
}

// TestFormatRunResult tests the run summary line
func TestFormatRunResult(t *testing.T) {
	now := time.Now()
	res := &models.RunResult{
		ConnectionID: "conn-a1b2c3",
		Started:      now.Add(-2 * time.Second),
		Finished:     now,
		Copied:       3,
		Deleted:      1,
		Skipped:      2,
		Conflicted:   1,
		Status:       models.StatusPartial,
	}
	res.Errors = []models.RunError{{Path: "docs/a.txt", Message: "permission denied"}}

	result := FormatRunResult(res)

	for _, want := range []string{"partial", "3 copied", "1 deleted", "2 skipped", "1 conflicts resolved", "docs/a.txt: permission denied"} {
		if !strings.Contains(result, want) {
			t.Errorf("run result missing %q: %q", want, result)
		}
	}
}

// TestFormatPlan tests the dry-run preview
func TestFormatPlan(t *testing.T) {
	plan := &models.SyncPlan{
		ConnectionID: "conn-a1b2c3",
		Actions: []models.SyncAction{
			{Type: models.ActionCopy, RelPath: "docs/report.pdf", Size: 2048},
			{Type: models.ActionDelete, RelPath: "old/leftover.txt"},
			{Type: models.ActionConflict, RelPath: "notes.md", Winner: models.WinnerTarget},
			{Type: models.ActionSkip, RelPath: "secret.txt", Reason: models.SkipTargetNewer},
		},
	}

	result := FormatPlan(plan)

	for _, want := range []string{
		"plan for conn-a1b2c3",
		"1 copies, 1 deletes, 1 conflicts, 1 skips",
		"docs/report.pdf (2.0 KB)",
		"old/leftover.txt",
		"notes.md (winner: target)",
		"secret.txt (target_newer)",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("plan preview missing %q:\n%s", want, result)
		}
	}
}

// TestFormatPlanEmpty tests the no-op plan
func TestFormatPlanEmpty(t *testing.T) {
	plan := &models.SyncPlan{ConnectionID: "conn-a1b2c3"}
	result := FormatPlan(plan)
	if !strings.Contains(result, "nothing to do") {
		t.Errorf("empty plan should say so: %q", result)
	}
}

// TestTruncate tests line shortening
func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short, 10) = %q", got)
	}
	if got := truncate("a very long line of text", 10); got != "a very ..." {
		t.Errorf("truncate long = %q", got)
	}
	if got := truncate("abcdefgh", 2); got != "a..." {
		t.Errorf("truncate tiny width = %q", got)
	}
}
