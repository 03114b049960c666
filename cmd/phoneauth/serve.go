// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/internal/observability"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authentication service",
		Long: `Run the authentication service: open the store, expose metrics and
health probes, and prune expired sessions in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting phoneauth",
		"store", cfg.Store,
		"metrics_addr", cfg.Metrics.Addr,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, err := deps.BackendFactory(ctx, cfg, logger, deps)
	if err != nil {
		return oops.Code("BACKEND_OPEN_FAILED").With("store", cfg.Store).Wrap(err)
	}
	defer backend.close()

	// Metrics are only exported when the observability server is enabled
	var (
		obsServer ObservabilityServer
		registry  prometheus.Registerer
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, logger, backend.Ready)
		registry = obsServer.Registry()
		registry.MustRegister(observability.NewBuildInfo(version, commit))
	}

	svc, err := newService(cfg, backend, logger, auth.NewMetrics(registry), deps.SMSSenderFactory(logger))
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
	}

	var sweeper *auth.SessionSweeper
	if interval := cfg.Sessions.SweepInterval.Std(); interval > 0 {
		sweeper, err = auth.NewSessionSweeper(svc, interval, logger)
		if err != nil {
			return err
		}
		sweeper.Start(ctx)
		logger.Info("session sweeper started", "interval", interval.String())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("phoneauth started")
	logger.Info("phoneauth ready")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	cancel()
	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
