package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/config"
	"github.com/lukisch/ProSync/internal/index"
	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/output"
)

var showCmd = &cobra.Command{
	Use:     "show [connection-id]",
	Aliases: []string{"get", "info"},
	Short:   "Show connection details and schedule state",
	GroupID: "connections",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _ := openStore()
		conn, err := store.Get(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		dir := getConfigDir()
		st := connectionStates(dir, []models.Connection{conn})[conn.ID]
		stats, haveStats := indexStats(cmd, conn)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			out := struct {
				models.Connection
				State *models.ScheduleState `json:"state,omitempty"`
				Index *index.Stats          `json:"index,omitempty"`
			}{Connection: conn, State: st}
			if haveStats {
				out.Index = &stats
			}
			return output.JSON(out)
		}

		fmt.Println(output.FormatConnectionLong(conn, st))
		if haveStats {
			fmt.Printf("Index: %d files, %d versions, %d tags, %d runs\n",
				stats.Files, stats.Versions, stats.Tags, stats.Runs)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("json", false, "Output as JSON")
}

// indexStats reads the connection's index summary. Only an existing store is
// opened; show must not create index files as a side effect.
func indexStats(cmd *cobra.Command, conn models.Connection) (index.Stats, bool) {
	if !conn.Indexing {
		return index.Stats{}, false
	}
	path := config.IndexPath(getConfigDir(), conn.ID)
	if _, err := os.Stat(path); err != nil {
		return index.Stats{}, false
	}
	idx, err := index.Open(path)
	if err != nil {
		return index.Stats{}, false
	}
	defer idx.Close()
	stats, err := idx.Summary(cmd.Context())
	if err != nil {
		return index.Stats{}, false
	}
	return stats, true
}
