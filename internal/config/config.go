package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/barkeepd/barkeep/pkg/gamedata"
)

// Config holds the daemon configuration.
type Config struct {
	ExportDir string `yaml:"export_dir"` // exporter JSON-lines files, one per character
	OutboxDir string `yaml:"outbox_dir"` // placement command files, one per character
	DataDir   string `yaml:"data_dir"`   // character save files
	BundleDir string `yaml:"bundle_dir"` // static game-data bundle

	DebounceMS    int `yaml:"debounce_ms"`
	VerifyDelayMS int `yaml:"verify_delay_ms"`
	VerifyRetries int `yaml:"verify_retries"`

	// Slots is the managed slot set, e.g. "1-24,61-72". SpecSlots overrides
	// it wholesale for individual specializations.
	Slots     string         `yaml:"slots"`
	SpecSlots map[int]string `yaml:"spec_slots"`

	// Aliases extends the built-in tooltip-name -> registry-name table.
	Aliases map[string]string `yaml:"aliases"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ExportDir:     "export",
		OutboxDir:     "outbox",
		DataDir:       "data",
		BundleDir:     "bundle",
		DebounceMS:    1500,
		VerifyDelayMS: 1000,
		VerifyRetries: 2,
		Slots:         "1-120",
		Aliases:       gamedata.DefaultAliases(),
		LogLevel:      "info",
	}
}

// Load reads a YAML config file over the defaults, so keys missing from the
// file keep their default values and alias entries extend the built-ins.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["export-dir"] {
		cfg.ExportDir = fromFile.ExportDir
	}
	if !explicitFlags["outbox-dir"] {
		cfg.OutboxDir = fromFile.OutboxDir
	}
	if !explicitFlags["data-dir"] {
		cfg.DataDir = fromFile.DataDir
	}
	if !explicitFlags["bundle-dir"] {
		cfg.BundleDir = fromFile.BundleDir
	}
	if !explicitFlags["debounce-ms"] {
		cfg.DebounceMS = fromFile.DebounceMS
	}
	if !explicitFlags["verify-delay-ms"] {
		cfg.VerifyDelayMS = fromFile.VerifyDelayMS
	}
	if !explicitFlags["verify-retries"] {
		cfg.VerifyRetries = fromFile.VerifyRetries
	}
	if !explicitFlags["slots"] {
		cfg.Slots = fromFile.Slots
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
	cfg.SpecSlots = fromFile.SpecSlots
	cfg.Aliases = fromFile.Aliases
}

// SlogLevel maps the configured level name to a slog level. Unknown names
// fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
