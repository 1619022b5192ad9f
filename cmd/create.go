package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/input"
	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/output"
)

var createCmd = &cobra.Command{
	Use:     "create [name]",
	Aliases: []string{"add", "new"},
	Short:   "Create a new sync connection",
	Long: `Create a new sync connection from flags, or with --interactive for a
guided form. Database sources are detected on save: unsafe modes are
downgraded, sidecar files excluded and WAL checkpointing enabled.`,
	GroupID: "connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _ := openStore()

		var conn models.Connection
		var err error
		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			conn, err = connectionForm()
		} else {
			conn, err = connectionFromFlags(cmd, args)
		}
		if err != nil {
			output.Error("%v", err)
			return err
		}

		added, err := store.Add(cmd.Context(), conn)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		reportSafetyAdjustments(conn, added)
		fmt.Printf("CREATED %s\n", added.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().String("name", "", "Connection name")
	createCmd.Flags().String("source", "", "Source path")
	createCmd.Flags().String("target", "", "Target path")
	createCmd.Flags().StringP("type", "t", "", "Connection type (folder, file; default: detected from source)")
	createCmd.Flags().StringP("mode", "m", "mirror", "Sync mode (mirror, update, two_way, one_way, index_only)")
	createCmd.Flags().String("conflicts", "newest", "Two-way conflict policy (source, target, newest)")
	createCmd.Flags().StringArrayP("exclude", "e", nil, "Exclude pattern (repeatable; @file reads one per line, - reads stdin)")
	createCmd.Flags().Bool("index", true, "Record synced files in the content index")
	createCmd.Flags().Bool("checkpoint", false, "Checkpoint WAL databases before copying (file connections)")
	createCmd.Flags().Int("every", 0, "Auto-sync interval in minutes (5, 15, 30, 60, 120)")
	createCmd.Flags().String("at", "", "Auto-sync time of day (HH:MM, with --days)")
	createCmd.Flags().String("days", "", "Comma-separated weekdays for --at (e.g. mon,wed,fri)")
	createCmd.Flags().BoolP("interactive", "i", false, "Build the connection in a guided form")
}

func connectionFromFlags(cmd *cobra.Command, args []string) (models.Connection, error) {
	name, _ := cmd.Flags().GetString("name")
	if len(args) > 0 {
		name = args[0]
	}
	source, _ := cmd.Flags().GetString("source")
	target, _ := cmd.Flags().GetString("target")

	kindStr, _ := cmd.Flags().GetString("type")
	kind := models.Kind(kindStr)
	if kindStr == "" {
		kind = detectKind(source)
	}

	modeStr, _ := cmd.Flags().GetString("mode")
	policyStr, _ := cmd.Flags().GetString("conflicts")

	rawExcludes, _ := cmd.Flags().GetStringArray("exclude")
	excludes, _ := input.ExpandFlagValues(rawExcludes, false)

	indexing, _ := cmd.Flags().GetBool("index")
	checkpoint, _ := cmd.Flags().GetBool("checkpoint")

	every, _ := cmd.Flags().GetInt("every")
	at, _ := cmd.Flags().GetString("at")
	days, _ := cmd.Flags().GetString("days")
	auto := autoSyncFor(every, at, days)

	return models.Connection{
		Name:                 name,
		Kind:                 kind,
		Source:               source,
		Target:               target,
		Mode:                 models.Mode(modeStr),
		ConflictPolicy:       models.ConflictPolicy(policyStr),
		ExcludePatterns:      excludes,
		Indexing:             indexing,
		CheckpointBeforeSync: checkpoint,
		AutoSync:             auto,
	}, nil
}

// detectKind stats the source so plain "create --source db.sqlite" does the
// right thing without a --type flag.
func detectKind(source string) models.Kind {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return models.KindFile
	}
	return models.KindFolder
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// autoSyncFor translates the --every/--at/--days trigger flags. A time of
// day wins over an interval when both are given.
func autoSyncFor(every int, at, days string) models.AutoSync {
	switch {
	case at != "":
		return models.AutoSync{
			Enabled: true,
			Mode:    models.AutoSyncScheduled,
			Schedule: &models.Schedule{
				Time: at,
				Days: splitList(days),
			},
		}
	case every > 0:
		return models.AutoSync{
			Enabled:         true,
			Mode:            models.AutoSyncInterval,
			IntervalMinutes: every,
		}
	default:
		return models.DefaultAutoSync()
	}
}

// connectionForm collects a connection in a guided form.
func connectionForm() (models.Connection, error) {
	conn := models.Connection{
		Mode:           models.ModeMirror,
		ConflictPolicy: models.PolicyNewest,
		Indexing:       true,
		AutoSync:       models.DefaultAutoSync(),
	}

	kind := string(models.KindFolder)
	mode := string(conn.Mode)
	policy := string(conn.ConflictPolicy)
	trigger := "off"
	interval := strconv.Itoa(conn.AutoSync.IntervalMinutes)
	timeOfDay := "18:00"
	var days []string
	var excludes string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&conn.Name),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Folder", string(models.KindFolder)),
					huh.NewOption("Single file", string(models.KindFile)),
				).
				Value(&kind),
			huh.NewInput().
				Title("Source path").
				Value(&conn.Source),
			huh.NewInput().
				Title("Target path").
				Value(&conn.Target),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Mode").
				Options(
					huh.NewOption("Mirror (exact copy, deletes extras)", string(models.ModeMirror)),
					huh.NewOption("Update (copy new and changed, never delete)", string(models.ModeUpdate)),
					huh.NewOption("Two-way (merge both sides)", string(models.ModeTwoWay)),
					huh.NewOption("One-way (copy only onto older or missing)", string(models.ModeOneWay)),
					huh.NewOption("Index only (record, copy nothing)", string(models.ModeIndexOnly)),
				).
				Value(&mode),
			huh.NewSelect[string]().
				Title("Conflict policy").
				Description("Applies to two-way mode").
				Options(
					huh.NewOption("Newest wins", string(models.PolicyNewest)),
					huh.NewOption("Source wins", string(models.PolicySource)),
					huh.NewOption("Target wins", string(models.PolicyTarget)),
				).
				Value(&policy),
			huh.NewText().
				Title("Exclude patterns").
				Description("One glob per line, optional").
				Value(&excludes),
			huh.NewConfirm().
				Title("Content indexing?").
				Value(&conn.Indexing),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Automatic sync").
				Options(
					huh.NewOption("Off (manual only)", "off"),
					huh.NewOption("Every N minutes", "interval"),
					huh.NewOption("Fixed time on weekdays", "scheduled"),
				).
				Value(&trigger),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Interval").
				Options(
					huh.NewOption("5 minutes", "5"),
					huh.NewOption("15 minutes", "15"),
					huh.NewOption("30 minutes", "30"),
					huh.NewOption("60 minutes", "60"),
					huh.NewOption("120 minutes", "120"),
				).
				Value(&interval),
		).WithHideFunc(func() bool { return trigger != "interval" }),
		huh.NewGroup(
			huh.NewInput().
				Title("Time of day").
				Description("24h HH:MM").
				Value(&timeOfDay),
			huh.NewMultiSelect[string]().
				Title("Days").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Tuesday", "tuesday"),
					huh.NewOption("Wednesday", "wednesday"),
					huh.NewOption("Thursday", "thursday"),
					huh.NewOption("Friday", "friday"),
					huh.NewOption("Saturday", "saturday"),
					huh.NewOption("Sunday", "sunday"),
				).
				Value(&days),
		).WithHideFunc(func() bool { return trigger != "scheduled" }),
	)

	if err := form.Run(); err != nil {
		return models.Connection{}, err
	}

	conn.Kind = models.Kind(kind)
	conn.Mode = models.Mode(mode)
	conn.ConflictPolicy = models.ConflictPolicy(policy)
	conn.ExcludePatterns = input.ReadLinesFromReader(strings.NewReader(excludes))

	switch trigger {
	case "interval":
		minutes, _ := strconv.Atoi(interval)
		conn.AutoSync = models.AutoSync{Enabled: true, Mode: models.AutoSyncInterval, IntervalMinutes: minutes}
	case "scheduled":
		conn.AutoSync = models.AutoSync{
			Enabled:  true,
			Mode:     models.AutoSyncScheduled,
			Schedule: &models.Schedule{Time: timeOfDay, Days: days},
		}
	}
	return conn, nil
}

// reportSafetyAdjustments tells the user what the save-time database checks
// changed relative to what they asked for.
func reportSafetyAdjustments(requested, stored models.Connection) {
	if stored.Mode != requested.Mode {
		output.Warning("database source detected: mode %s downgraded to %s", requested.Mode, stored.Mode)
	}
	if stored.CheckpointBeforeSync && !requested.CheckpointBeforeSync {
		output.Info("WAL database detected: checkpoint before sync enabled")
	}
	if requested.AutoSync.Enabled && !stored.AutoSync.Enabled {
		output.Warning("autosync disabled for database source, re-enable with: prosync update %s --every <minutes>", stored.ID)
	}
	if stored.Kind == models.KindFolder && len(stored.ExcludePatterns) > len(requested.ExcludePatterns) {
		output.Info("%d database exclude patterns added", len(stored.ExcludePatterns)-len(requested.ExcludePatterns))
	}
}
