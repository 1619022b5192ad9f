package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/engine"
	"github.com/lukisch/ProSync/internal/output"
	"github.com/lukisch/ProSync/internal/safety"
)

var planCmd = &cobra.Command{
	Use:     "plan [connection-id]",
	Aliases: []string{"preview", "dry-run"},
	Short:   "Preview what a sync would do",
	Long: `Compute and print the action plan for a connection without executing it.
Mode downgrades for database sources are reflected in the preview; WAL
checkpoints are not run, since a preview must not touch the source.`,
	GroupID: "sync",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log := openStore()
		conn, err := store.Get(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		eng := engine.New(safety.New(log), log)
		plan, err := eng.Plan(cmd.Context(), conn)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(plan)
		}
		fmt.Println(output.FormatPlan(plan))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().Bool("json", false, "Output the plan as JSON")
}
