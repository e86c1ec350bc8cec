package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/zapreport/internal/config"
	"github.com/nao1215/zapreport/internal/database"
	"github.com/nao1215/zapreport/internal/log"
)

// getBoolFlag retrieves a boolean flag from the command or the root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getBoolFlag(cmd, "verbose")
}

// setupLogger creates the secure structured logger on stderr and installs
// it as the default logger.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)

	var logger *slog.Logger
	if getBoolFlag(cmd, "log-json") {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// loadConfig builds the configuration from defaults, the config file and
// the environment. Command flags are applied by the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := ""
	if flag := cmd.Flags().Lookup("config"); flag != nil {
		path = flag.Value.String()
	}

	cfg, err := config.Load(path, nil)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// applyWorkDirFlag overrides the working directory when --workdir was given.
func applyWorkDirFlag(cmd *cobra.Command, cfg *config.Config) error {
	if !cmd.Flags().Changed("workdir") {
		return nil
	}
	dir, err := cmd.Flags().GetString("workdir")
	if err != nil {
		return err
	}
	cfg.WorkDir = dir
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openHistory opens the history database configured in cfg.
func openHistory(ctx context.Context, cfg *config.Config) (*database.HistoryDB, error) {
	opts := database.DefaultOptions(cfg.DBDir)
	opts.Driver = cfg.HistoryDriver
	opts.DSN = cfg.HistoryDSN

	db, err := database.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}
