package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/barkeepd/barkeep/internal/daemon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the layout daemon",
	Long: `Watches the export directory for exporter events, captures layout
changes per level, and restores the right layout on level, spec and login
transitions. Placements go to the outbox directory. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
