package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-session-auth"
	"github.com/goliatone/go-session-auth/config"
	"github.com/goliatone/go-session-auth/logging"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server exposing user registration, login and the
authenticated profile route. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := auth.OpenDB(cfg.Persistence)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Persistence.Driver).Wrap(err)
	}
	defer db.Close()

	srv, app, err := newApp(ctx, cfg, db, logger)
	if err != nil {
		logging.LogError(logger, "build application", err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		errCh <- srv.Serve(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").With("address", cfg.Server.Address).Wrap(err)
		}
		// the adapter may return once the listener is running
		<-ctx.Done()
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

// newApp wires storage, the authenticator and the user routes. The
// fiber app is returned next to the server for shutdown and tests.
func newApp(ctx context.Context, cfg *config.Config, db *bun.DB, logger *slog.Logger) (router.Server[*fiber.App], *fiber.App, error) {
	hasher := auth.NewBcryptHasher(cfg.Auth.GetPasswordCost())

	repo := auth.NewRepositoryManager(db,
		auth.WithUsersPasswordHasher(hasher),
		auth.WithUsersLogger(logger),
	)
	if err := repo.Validate(); err != nil {
		return nil, nil, err
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}

	auther, err := auth.NewAuthenticator(repo.Users(), cfg.Auth,
		auth.WithPasswordHasher(hasher),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{
			AppName:               "auth-server",
			DisableStartupMessage: true,
		})
		return app
	})

	controller := auth.NewUsersController(auther,
		auth.WithControllerLogger(logger),
		auth.WithControllerTokenHeader(cfg.Auth.GetTokenHeader()),
		auth.WithControllerDebug(cfg.Server.Debug),
	)
	auth.RegisterUserRoutes(srv.Router(), controller)

	return srv, app, nil
}
