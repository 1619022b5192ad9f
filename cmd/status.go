package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/config"
	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/output"
	"github.com/lukisch/ProSync/internal/runlock"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Scheduler state of every connection",
	Long:    `Per-connection scheduler view: state, last result, next due time.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _ := openStore()
		conns, err := store.Load()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		dir := getConfigDir()
		states := connectionStates(dir, conns)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			rows := make([]*models.ScheduleState, 0, len(conns))
			for _, c := range conns {
				rows = append(rows, states[c.ID])
			}
			return output.JSON(rows)
		}

		if len(conns) == 0 {
			fmt.Println("No connections yet. Create one with: prosync create")
			return nil
		}

		for _, c := range conns {
			st := states[c.ID]
			fmt.Printf("%s  %s (%s)\n", output.SchedBadge(st.State), c.Name, c.ID)

			switch {
			case st.State == models.SchedRunning:
				if _, holder := runlock.Probe(config.LockDir(dir), c.ID); holder != "" {
					fmt.Printf("    running: %s\n", holder)
				}
			case !st.NextDue.IsZero():
				fmt.Printf("    next due: %s\n", output.FormatUntil(st.NextDue))
			case c.AutoSync.Enabled:
				fmt.Println("    next due: not scheduled yet")
			default:
				fmt.Println("    manual only")
			}

			if st.LastResult != nil {
				fmt.Printf("    last run: %s\n", output.FormatRunResult(st.LastResult))
			} else if !st.LastRun.IsZero() {
				fmt.Printf("    last run: %s\n", output.FormatTimeAgo(st.LastRun))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "Output as JSON")
}
