package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/engine"
	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/output"
	"github.com/lukisch/ProSync/internal/runlock"
	"github.com/lukisch/ProSync/internal/safety"
)

var syncCmd = &cobra.Command{
	Use:     "sync [connection-id...]",
	Aliases: []string{"run"},
	Short:   "Run connections now",
	Long: `Run one or more connections immediately. Each run takes the connection's
execution lock first; if a daemon or another prosync process holds it, the
run is rejected instead of queued.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log := openStore()

		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			output.Error("give a connection id or --all")
			return fmt.Errorf("no connection selected")
		}

		var conns []models.Connection
		if all {
			loaded, err := store.Load()
			if err != nil {
				output.Error("%v", err)
				return err
			}
			conns = loaded
		} else {
			for _, id := range args {
				conn, err := store.Get(id)
				if err != nil {
					output.Error("%v", err)
					return err
				}
				conns = append(conns, conn)
			}
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		runner := engine.NewRunner(engine.New(safety.New(log), log), getConfigDir(), log)

		var failed error
		for _, conn := range conns {
			res, err := runner.RunConnection(cmd.Context(), conn)
			if errors.Is(err, runlock.ErrHeld) {
				if asJSON {
					output.JSONError(output.ErrCodeAlreadyRunning, fmt.Sprintf("connection %s is already running", conn.ID))
				} else {
					output.Error("connection %s is already running", conn.ID)
				}
				failed = err
				continue
			}
			if err != nil {
				output.Error("%v", err)
				failed = err
				continue
			}

			if asJSON {
				output.JSON(res)
			} else {
				if len(conns) > 1 {
					fmt.Printf("%s (%s)\n", conn.Name, conn.ID)
				}
				fmt.Println(output.FormatRunResult(res))
			}
			if res.Status == models.StatusFailed || res.Status == models.StatusAbortedBySafety {
				failed = fmt.Errorf("sync of %s finished with status %s", conn.ID, res.Status)
			}
		}
		return failed
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().Bool("all", false, "Run every connection")
	syncCmd.Flags().Bool("json", false, "Output run results as JSON")
}
