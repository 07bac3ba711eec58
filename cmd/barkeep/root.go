package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/barkeepd/barkeep/internal/config"
)

var (
	flagConfig string

	cfg    = config.DefaultConfig()
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "barkeep",
	Short: "per-level action bar layout keeper",
	Long: `barkeep saves one action bar layout per character level and puts the
right one back as the level changes, including backward resets where a
character drops to a low level and climbs again. Edits made at a low level
are folded into the master layout; restores are verified and corrected when
the game client silently rejects a placement.

The daemon (barkeep run) tails the exporter's JSON-lines files and writes
placement commands to an outbox the game-side addon consumes.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// setup resolves the effective config (defaults < file < explicit flags)
// and builds the logger every command shares.
func setup(cmd *cobra.Command, _ []string) error {
	if flagConfig != "" {
		fromFile, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		explicit := make(map[string]bool)
		cmd.Flags().Visit(func(f *pflag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "config file (yaml)")
	pf.StringVar(&cfg.ExportDir, "export-dir", cfg.ExportDir, "exporter JSON-lines directory")
	pf.StringVar(&cfg.OutboxDir, "outbox-dir", cfg.OutboxDir, "placement command directory")
	pf.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "character save file directory")
	pf.StringVar(&cfg.BundleDir, "bundle-dir", cfg.BundleDir, "static game-data bundle directory")
	pf.IntVar(&cfg.DebounceMS, "debounce-ms", cfg.DebounceMS, "capture debounce in milliseconds")
	pf.IntVar(&cfg.VerifyDelayMS, "verify-delay-ms", cfg.VerifyDelayMS, "delay before each verify pass")
	pf.IntVar(&cfg.VerifyRetries, "verify-retries", cfg.VerifyRetries, "verify passes per restore")
	pf.StringVar(&cfg.Slots, "slots", cfg.Slots, "managed slot ranges, e.g. \"1-24,61-72\"")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
}
