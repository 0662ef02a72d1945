package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-session-auth/config"
	"github.com/goliatone/go-session-auth/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the auth server CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "auth-server",
		Short:         "Session credential service",
		Long:          `auth-server registers users, issues session tokens and guards routes that require them.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig resolves and validates configuration for a subcommand
// and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, oops.
			In("config").
			Code("CONFIG_INVALID").
			Wrapf(err, "invalid configuration")
	}

	logger := logging.SetDefault("auth-server", version, cfg.Log.Format, cfg.Log.Level)
	return cfg, logger, nil
}
