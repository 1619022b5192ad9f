// Package output provides styled terminal output helpers (success, error,
// warning, connection and plan formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/lukisch/ProSync/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	statusStyles = map[models.RunStatus]lipgloss.Style{
		models.StatusSuccess:         lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.StatusPartial:         lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.StatusFailed:          lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.StatusAbortedBySafety: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}

	schedStyles = map[models.SchedState]lipgloss.Style{
		models.SchedIdle:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		models.SchedDue:      lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.SchedRunning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.SchedCooldown: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}

	actionStyles = map[models.ActionType]lipgloss.Style{
		models.ActionCopy:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.ActionDelete:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.ActionSkip:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		models.ActionConflict: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeInvalidConfig   = "invalid_config"
	ErrCodeAlreadyRunning  = "already_running"
	ErrCodeCheckpointError = "checkpoint_failed"
	ErrCodeBadSchedule     = "schedule_misconfigured"
	ErrCodeSyncError       = "sync_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	result := map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": message},
	}
	data, _ := json.Marshal(result)
	fmt.Println(string(data))
}

// FormatRunStatus formats a run status with color
func FormatRunStatus(s models.RunStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

// SchedBadge returns a scheduler state indicator with symbol
// e.g., "○ idle", "● due", "▶ running", "◌ cooldown"
func SchedBadge(s models.SchedState) string {
	symbols := map[models.SchedState]string{
		models.SchedIdle:     "○",
		models.SchedDue:      "●",
		models.SchedRunning:  "▶",
		models.SchedCooldown: "◌",
	}
	symbol, ok := symbols[s]
	if !ok {
		symbol = "?"
	}
	style, hasStyle := schedStyles[s]
	if hasStyle {
		return style.Render(fmt.Sprintf("%s %s", symbol, s))
	}
	return fmt.Sprintf("%s %s", symbol, s)
}

// FormatSchedule renders the autosync settings of a connection,
// e.g. "manual", "every 15m", "mon,fri at 18:00".
func FormatSchedule(a models.AutoSync) string {
	if !a.Enabled {
		return "manual"
	}
	if a.Mode == models.AutoSyncInterval {
		return fmt.Sprintf("every %dm", a.IntervalMinutes)
	}
	if a.Schedule == nil {
		return "scheduled"
	}
	days := make([]string, len(a.Schedule.Days))
	for i, d := range a.Schedule.Days {
		if len(d) > 3 {
			d = d[:3]
		}
		days[i] = d
	}
	return fmt.Sprintf("%s at %s", strings.Join(days, ","), a.Schedule.Time)
}

// FormatConnectionShort formats a connection in single-line list format
func FormatConnectionShort(conn models.Connection, st *models.ScheduleState) string {
	var parts []string
	parts = append(parts, titleStyle.Render(conn.ID))
	parts = append(parts, conn.Name)
	parts = append(parts, subtleStyle.Render(fmt.Sprintf("%s/%s", conn.Kind, conn.Mode)))
	parts = append(parts, subtleStyle.Render(FormatSchedule(conn.AutoSync)))

	if st != nil {
		parts = append(parts, SchedBadge(st.State))
		if st.LastResult != nil {
			parts = append(parts, fmt.Sprintf("%s %s",
				FormatRunStatus(st.LastResult.Status),
				subtleStyle.Render(FormatTimeAgo(st.LastResult.Finished))))
		}
	}
	return strings.Join(parts, "  ")
}

// FormatConnectionLong formats a connection in full detail format
func FormatConnectionLong(conn models.Connection, st *models.ScheduleState) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s", conn.ID, conn.Name)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Type: %s | Mode: %s | Conflicts: %s\n",
		conn.Kind, conn.Mode, conn.ConflictPolicy))
	sb.WriteString(fmt.Sprintf("Source: %s\n", conn.Source))
	sb.WriteString(fmt.Sprintf("Target: %s\n", conn.Target))

	var flags []string
	if conn.Indexing {
		flags = append(flags, "indexing")
	}
	if conn.CheckpointBeforeSync {
		flags = append(flags, "checkpoint before sync")
	}
	if len(flags) > 0 {
		sb.WriteString(fmt.Sprintf("Options: %s\n", strings.Join(flags, ", ")))
	}
	if len(conn.ExcludePatterns) > 0 {
		sb.WriteString(fmt.Sprintf("Excludes: %s\n", strings.Join(conn.ExcludePatterns, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Schedule: %s\n", FormatSchedule(conn.AutoSync)))

	if st != nil {
		sb.WriteString(fmt.Sprintf("State: %s", SchedBadge(st.State)))
		if !st.NextDue.IsZero() {
			sb.WriteString(fmt.Sprintf(" | Next due: %s", FormatUntil(st.NextDue)))
		}
		sb.WriteString("\n")
		if st.LastResult != nil {
			sb.WriteString(fmt.Sprintf("Last run: %s\n", FormatRunResult(st.LastResult)))
		}
	}

	sb.WriteString(subtleStyle.Render(fmt.Sprintf("Created %s, updated %s",
		conn.CreatedAt.Format("2006-01-02"), FormatTimeAgo(conn.UpdatedAt))))
	sb.WriteString("\n")
	return sb.String()
}

// FormatRunResult renders a run outcome as a compact summary line plus one
// indented line per recorded error.
func FormatRunResult(res *models.RunResult) string {
	dur := res.Finished.Sub(res.Started).Round(10 * time.Millisecond)
	head := fmt.Sprintf("%s: %d copied, %d deleted, %d skipped",
		FormatRunStatus(res.Status), res.Copied, res.Deleted, res.Skipped)
	if res.Conflicted > 0 {
		head += fmt.Sprintf(", %d conflicts resolved", res.Conflicted)
	}
	head += subtleStyle.Render(fmt.Sprintf(" (%s, %s)", dur, FormatTimeAgo(res.Finished)))

	if len(res.Errors) == 0 {
		return head
	}
	var sb strings.Builder
	sb.WriteString(head)
	for _, e := range res.Errors {
		sb.WriteString("\n")
		if e.Path != "" {
			sb.WriteString(errorStyle.Render(fmt.Sprintf("  %s: %s", e.Path, e.Message)))
		} else {
			sb.WriteString(errorStyle.Render("  " + e.Message))
		}
	}
	return sb.String()
}

// FormatPlan renders a dry-run preview, one action per line, fitted to the
// terminal width.
func FormatPlan(plan *models.SyncPlan) string {
	copies, deletes, skips, conflicts := plan.Counts()
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("plan for %s", plan.ConnectionID)))
	sb.WriteString(subtleStyle.Render(fmt.Sprintf("  %d copies, %d deletes, %d conflicts, %d skips",
		copies, deletes, conflicts, skips)))
	sb.WriteString("\n")

	if len(plan.Actions) == 0 {
		sb.WriteString("nothing to do\n")
		return sb.String()
	}

	width := termWidth()
	for _, a := range plan.Actions {
		label := fmt.Sprintf("%-8s", a.Type)
		if style, ok := actionStyles[a.Type]; ok {
			label = style.Render(label)
		}
		sb.WriteString(label)
		sb.WriteString(" ")
		sb.WriteString(truncate(formatActionDetail(a), width-10))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatActionDetail(a models.SyncAction) string {
	switch a.Type {
	case models.ActionCopy:
		return fmt.Sprintf("%s (%s)", a.RelPath, FormatBytes(a.Size))
	case models.ActionConflict:
		return fmt.Sprintf("%s (winner: %s)", a.RelPath, a.Winner)
	case models.ActionSkip:
		if a.Err != "" {
			return fmt.Sprintf("%s (%s: %s)", a.RelPath, a.Reason, a.Err)
		}
		return fmt.Sprintf("%s (%s)", a.RelPath, a.Reason)
	default:
		return a.RelPath
	}
}

// FormatBytes renders a byte count in human units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// FormatUntil formats a future time as a human-readable "in" string
func FormatUntil(t time.Time) string {
	diff := time.Until(t)

	switch {
	case diff <= 0:
		return "now"
	case diff < time.Minute:
		return "in <1m"
	case diff < time.Hour:
		return fmt.Sprintf("in %dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("in %dh", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("in %dd", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// termWidth returns the terminal width, falling back to 80 columns when
// stdout is not a terminal.
func termWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// truncate shortens a line to at most width runes.
func truncate(s string, width int) string {
	if width < 4 {
		width = 4
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
