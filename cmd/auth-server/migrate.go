package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-session-auth"
	"github.com/goliatone/go-session-auth/logging"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long:  `Create the users table in the configured database if it does not exist yet.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := auth.OpenDB(cfg.Persistence)
	if err != nil {
		logging.LogError(logger, "connect to database", err)
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Persistence.Driver).Wrap(err)
	}
	defer db.Close()

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	cmd.Println("Running migrations...")
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		logging.LogError(logger, "run migrations", err)
		return oops.Code("MIGRATION_FAILED").With("operation", "ensure schema").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
