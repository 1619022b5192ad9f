package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lukisch/ProSync/internal/input"
	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/output"
)

var updateCmd = &cobra.Command{
	Use:     "update [connection-id]",
	Aliases: []string{"edit", "set"},
	Short:   "Change connection settings",
	Long: `Change connection settings by flag. Only given flags are applied; the
connection is re-validated and its schedule recomputed on save.

Passing --every or --at re-enables autosync explicitly, also on database
sources where it was disabled at creation.`,
	GroupID: "connections",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _ := openStore()
		conn, err := store.Get(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		applyFlagEdits(cmd.Flags(), &conn)

		requested := conn.Clone()
		updated, err := store.Update(cmd.Context(), conn)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		reportSafetyAdjustments(requested, updated)
		fmt.Printf("UPDATED %s\n", updated.ID)
		return nil
	},
}

// applyFlagEdits copies every changed flag onto the connection. Unchanged
// flags leave their fields alone.
func applyFlagEdits(f *pflag.FlagSet, conn *models.Connection) {
	if f.Changed("name") {
		conn.Name, _ = f.GetString("name")
	}
	if f.Changed("source") {
		conn.Source, _ = f.GetString("source")
	}
	if f.Changed("target") {
		conn.Target, _ = f.GetString("target")
	}
	if f.Changed("type") {
		kind, _ := f.GetString("type")
		conn.Kind = models.Kind(kind)
	}
	if f.Changed("mode") {
		mode, _ := f.GetString("mode")
		conn.Mode = models.Mode(mode)
	}
	if f.Changed("conflicts") {
		policy, _ := f.GetString("conflicts")
		conn.ConflictPolicy = models.ConflictPolicy(policy)
	}
	if f.Changed("exclude") {
		raw, _ := f.GetStringArray("exclude")
		conn.ExcludePatterns, _ = input.ExpandFlagValues(raw, false)
	}
	if f.Changed("index") {
		conn.Indexing, _ = f.GetBool("index")
	}
	if f.Changed("checkpoint") {
		conn.CheckpointBeforeSync, _ = f.GetBool("checkpoint")
	}
	if f.Changed("every") {
		every, _ := f.GetInt("every")
		conn.AutoSync = autoSyncFor(every, "", "")
	}
	if f.Changed("at") {
		at, _ := f.GetString("at")
		days, _ := f.GetString("days")
		conn.AutoSync = autoSyncFor(0, at, days)
	}
	if off, _ := f.GetBool("no-autosync"); off {
		conn.AutoSync.Enabled = false
	}
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().String("name", "", "Connection name")
	updateCmd.Flags().String("source", "", "Source path")
	updateCmd.Flags().String("target", "", "Target path")
	updateCmd.Flags().StringP("type", "t", "", "Connection type (folder, file)")
	updateCmd.Flags().StringP("mode", "m", "", "Sync mode (mirror, update, two_way, one_way, index_only)")
	updateCmd.Flags().String("conflicts", "", "Two-way conflict policy (source, target, newest)")
	updateCmd.Flags().StringArrayP("exclude", "e", nil, "Replace exclude patterns (repeatable; @file, - for stdin)")
	updateCmd.Flags().Bool("index", true, "Record synced files in the content index")
	updateCmd.Flags().Bool("checkpoint", false, "Checkpoint WAL databases before copying (file connections)")
	updateCmd.Flags().Int("every", 0, "Auto-sync interval in minutes (0 disables autosync)")
	updateCmd.Flags().String("at", "", "Auto-sync time of day (HH:MM, with --days)")
	updateCmd.Flags().String("days", "", "Comma-separated weekdays for --at")
	updateCmd.Flags().Bool("no-autosync", false, "Disable automatic sync")
}
