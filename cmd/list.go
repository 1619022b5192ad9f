package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/config"
	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/output"
	"github.com/lukisch/ProSync/internal/runlock"
	"github.com/lukisch/ProSync/internal/schedule"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sync connections",
	GroupID: "connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _ := openStore()
		conns, err := store.Load()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		states := connectionStates(getConfigDir(), conns)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			type row struct {
				models.Connection
				State *models.ScheduleState `json:"state,omitempty"`
			}
			rows := make([]row, 0, len(conns))
			for _, c := range conns {
				rows = append(rows, row{c, states[c.ID]})
			}
			return output.JSON(rows)
		}

		if len(conns) == 0 {
			fmt.Println("No connections yet. Create one with: prosync create")
			return nil
		}
		for _, c := range conns {
			fmt.Println(output.FormatConnectionShort(c, states[c.ID]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("json", false, "Output as JSON")
}

// connectionStates merges persisted scheduler state with live lock probes.
// The lock decides "running": a daemon that died mid-run leaves a stale
// running entry in the state file, and a CLI sync holds the lock without
// ever touching the state file.
func connectionStates(dir string, conns []models.Connection) map[string]*models.ScheduleState {
	states := make(map[string]*models.ScheduleState, len(conns))
	if persisted, err := schedule.LoadStates(config.StatePath(dir)); err == nil {
		for i := range persisted {
			states[persisted[i].ConnectionID] = &persisted[i]
		}
	}
	for _, conn := range conns {
		st := states[conn.ID]
		if st == nil {
			st = &models.ScheduleState{ConnectionID: conn.ID, State: models.SchedIdle}
			states[conn.ID] = st
		}
		held, _ := runlock.Probe(config.LockDir(dir), conn.ID)
		switch {
		case held:
			st.State = models.SchedRunning
		case st.State == models.SchedRunning:
			st.State = models.SchedIdle
		}
	}
	return states
}
