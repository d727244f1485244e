// Package cmd provides the CLI commands for trove.
package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trove-dev/trove/internal/config"
	"github.com/trove-dev/trove/internal/logging"
	"github.com/trove-dev/trove/pkg/version"
)

// Logging flags, shared by every subcommand.
var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagLogFile   string
)

// NewRootCmd creates the root command for the trove CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trove",
		Short: "Local full-text search over a directory tree",
		Long: `Trove indexes the text files under a directory and answers ranked
full-text queries against them, entirely in-process.

Typical flow:

  trove init        # optional: write a starter config and ignore file
  trove index       # build the index and save a snapshot
  trove search fox  # query it

'trove serve' keeps the index live: it watches the tree for changes
and serves queries over HTTP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("trove version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file (overrides project discovery)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Minimum log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log record encoding: text or json")
	cmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Log file path (default ~/.trove/logs/trove.log)")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTuiCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// targetRoot resolves a command's path argument to an absolute directory.
// The empty string means the current directory.
func targetRoot(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}

// loadConfig loads the configuration governing root. An explicit --config
// path must load or the command fails; a broken implicit project config
// degrades to defaults with a warning so read-only commands keep working.
func loadConfig(root string) (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}

	cfg, err := config.Load(root)
	if err != nil {
		slog.Warn("config_load_failed",
			slog.String("root", root),
			slog.String("error", err.Error()))
		return config.NewConfig(), nil
	}
	return cfg, nil
}

// initLogging builds the process logger from the config's logging section
// with any logging flags layered on top, installs it as the slog default,
// and returns the cleanup that flushes the log file. It never fails the
// command: an unwritable log file degrades to stderr-only logging.
func initLogging(cfg *config.Config) func() {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false

	if cfg != nil {
		if cfg.Logging.Level != "" {
			logCfg.Level = cfg.Logging.Level
		}
		if cfg.Logging.Format != "" {
			logCfg.Format = cfg.Logging.Format
		}
		if cfg.Logging.File != "" {
			logCfg.FilePath = cfg.Logging.File
		}
		if cfg.Logging.MaxSizeMB > 0 {
			logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxFiles > 0 {
			logCfg.MaxFiles = cfg.Logging.MaxFiles
		}
	}

	if flagLogLevel != "" {
		logCfg.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		logCfg.Format = flagLogFormat
	}
	if flagLogFile != "" {
		logCfg.FilePath = flagLogFile
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		logCfg.FilePath = ""
		logger, cleanup, _ = logging.Setup(logCfg)
	}
	slog.SetDefault(logger)
	return cleanup
}
