package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lukisch/ProSync/internal/config"
	"github.com/lukisch/ProSync/internal/daemon"
	"github.com/lukisch/ProSync/internal/engine"
	"github.com/lukisch/ProSync/internal/logging"
	"github.com/lukisch/ProSync/internal/output"
	"github.com/lukisch/ProSync/internal/safety"
	"github.com/lukisch/ProSync/internal/schedule"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Aliases: []string{"watch"},
	Short:   "Run the sync scheduler in the foreground",
	Long: `Run the scheduler until interrupted: due connections are synced on their
interval or time-of-day schedule, edits to the config file are picked up
without a restart, and schedule state is persisted across restarts.

Logs go to the rotating log file from settings.json; PROSYNC_LOG_LEVEL,
PROSYNC_LOG_FORMAT and PROSYNC_LOG_FILE override it.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := getConfigDir()

		logFile := config.GetLogFile(dir)
		if logFile == "" {
			logFile = config.LogFilePath(dir)
		}
		log := logging.Setup(logging.Options{
			Level:  config.GetLogLevel(dir),
			Format: config.GetLogFormat(dir),
			File:   logFile,
		})

		sm := safety.New(log)
		store := config.NewStore(dir, sm, log)
		runner := engine.NewRunner(engine.New(sm, log), dir, log)
		sched := schedule.New(runner, log)

		d, err := daemon.New(store, sched, log)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return d.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
