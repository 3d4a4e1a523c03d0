// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/config"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/metrics"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/server"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Start the HTTP API. When the assistant cannot be initialized (for example
a missing API key) the server still starts and /health reports degraded.`,
		RunE: a.runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	if err := a.v.BindPFlag("server.listen", cmd.Flags().Lookup("listen")); err != nil {
		return solerr.Errorf(solerr.CodeCLISetupFailure, "binding listen flag: %w", err)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

// serve wires the engine and runs the server until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	deps := server.Deps{Metrics: m}

	rt, err := Wire(cfg, m)
	if err != nil {
		slog.Error("assistant not initialized, serving in degraded mode", "error", err)
	} else {
		defer func() { _ = rt.Close() }()
		deps.Engine = rt.Engine
		deps.Health = rt.Registry
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
	}, deps)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	return srv.Start(ctx)
}
