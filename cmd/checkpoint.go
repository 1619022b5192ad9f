package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/output"
	"github.com/lukisch/ProSync/internal/safety"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint [path]",
	Short: "Checkpoint a SQLite database's write-ahead log",
	Long: `Flush a database's write-ahead log into the main file (FULL
checkpoint). Useful before copying or backing up a WAL database with tools
that only take the main file.`,
	GroupID: "sync",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		_, log := openStore()
		sm := safety.New(log)

		asJSON, _ := cmd.Flags().GetBool("json")

		if !sm.IsSQLiteFile(path) {
			err := fmt.Errorf("not a SQLite database: %s", path)
			if asJSON {
				output.JSONError(output.ErrCodeInvalidConfig, err.Error())
			} else {
				output.Error("%v", err)
			}
			return err
		}

		mode, _ := sm.JournalMode(cmd.Context(), path)
		if err := sm.Checkpoint(cmd.Context(), path); err != nil {
			if asJSON {
				output.JSONError(output.ErrCodeCheckpointError, err.Error())
			} else {
				output.Error("checkpoint failed: %v", err)
			}
			return err
		}

		if asJSON {
			return output.JSON(map[string]string{
				"path":         path,
				"journal_mode": mode,
				"result":       "checkpointed",
			})
		}
		output.Success("checkpointed %s (journal mode %s)", path, mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.Flags().Bool("json", false, "Output as JSON")
}
