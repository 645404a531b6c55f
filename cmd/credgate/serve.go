// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/postgres"
	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/internal/httpapi"
	"github.com/credgate/credgate/internal/logging"
	"github.com/credgate/credgate/internal/xdg"
	"github.com/credgate/credgate/pkg/errutil"
)

const serviceName = "credgate"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the CredGate HTTP API server",
		Long: `Start the HTTP API server: registration, login, logout, profile,
and password reset, plus the authentication gate in front of them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("listen", ":5000", "HTTP API listen address")
	cmd.Flags().String("metrics-listen", ":9090", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection string")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().Bool("auto-migrate", true, "apply pending schema migrations on startup")
	cmd.Flags().StringSlice("excluded-paths", nil, "additional paths served without authentication")

	return cmd
}

// loadServeConfig resolves the effective config from file, env, and flags.
func loadServeConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	explicit := path != ""
	if path == "" {
		path = xdg.DefaultConfigPath()
	}

	cfg, err := config.Load(path, explicit, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// runServe starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServe(ctx context.Context, cfg config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.applyDefaults()

	logging.SetDefault(serviceName, cmd.Root().Version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting credgate",
		"listen", cfg.Listen,
		"metrics_listen", cfg.MetricsListen,
		"log_format", cfg.LogFormat,
	)

	if cfg.AutoMigrate {
		if err := runAutoMigration(cfg.DatabaseURL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	repo := postgres.NewUserRepository(pool)
	hasher := auth.NewArgon2idHasher()
	tokens := auth.CryptoTokenSource{}

	service, err := auth.NewService(repo, hasher)
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionManager(repo, tokens)
	if err != nil {
		return err
	}
	resets, err := auth.NewResetTokenManager(repo, hasher, tokens)
	if err != nil {
		return err
	}

	excluded := append([]string{}, httpapi.DefaultExcludedPaths...)
	excluded = append(excluded, cfg.ExcludedPaths...)
	gate, err := auth.NewGate(service, sessions, excluded)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	apiDeps := httpapi.Deps{
		Service:  service,
		Sessions: sessions,
		Resets:   resets,
		Gate:     gate,
		Logger:   logger,
	}

	if cfg.MetricsListen != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsListen, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsErrCh, obsErr := obsServer.Start()
		if obsErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		apiDeps.Metrics = obsServer.Metrics()
	}

	apiServer, err := deps.HTTPServerFactory(cfg.Listen, apiDeps)
	if err != nil {
		return err
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServers(nil, obsServer)
		return oops.Code("HTTP_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "http-api")

	cmd.Println("CredGate started on " + apiServer.Addr())
	logger.Info("credgate ready", "addr", apiServer.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	stopServers(apiServer, obsServer)
	logger.Info("shutdown complete")
	return nil
}

// runAutoMigration applies pending migrations before the server starts.
func runAutoMigration(databaseURL string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").Wrap(err)
	}

	slog.Info("schema migrations applied")
	return nil
}

// stopServers shuts both servers down with a bounded timeout. Either
// may be nil.
func stopServers(api APIServer, obs ObservabilityServer) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if api != nil {
		if err := api.Stop(shutdownCtx); err != nil {
			errutil.LogError(slog.Default(), "error stopping http server", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			errutil.LogError(slog.Default(), "error stopping observability server", err)
		}
	}
}

// monitorServerErrors cancels the run context when a server reports an
// error. It exits when the channel closes or the context ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
