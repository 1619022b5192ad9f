package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/config"
	"github.com/lukisch/ProSync/internal/output"
	"github.com/lukisch/ProSync/internal/runlock"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [connection-id]",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a sync connection",
	Long: `Delete a sync connection, its content index and its lock file. Files on
source and target stay in place.`,
	GroupID: "connections",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _ := openStore()
		conn, err := store.Get(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		if yes, _ := cmd.Flags().GetBool("yes"); yes {
			force = true
		}
		if !force {
			confirm := false
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete connection %q (%s)?", conn.Name, conn.ID)).
					Description("Synced files stay in place. The content index and lock file are removed.").
					Value(&confirm),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !confirm {
				fmt.Println("aborted")
				return nil
			}
		}

		if err := store.Remove(conn.ID); err != nil {
			output.Error("%v", err)
			return err
		}

		dir := getConfigDir()
		removeIfPresent(config.IndexPath(dir, conn.ID))
		removeIfPresent(runlock.FilePath(config.LockDir(dir), conn.ID))

		fmt.Printf("DELETED %s\n", conn.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")
	deleteCmd.Flags().BoolP("yes", "y", false, "Alias for --force")
}

func removeIfPresent(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		output.Warning("could not remove %s: %v", path, err)
	}
}
