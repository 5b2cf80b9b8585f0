// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package main is the entry point for the Perfwatch server.
//
// Perfwatch samples request and host telemetry once per tick, evaluates
// alert rules against the sample history, fans alerts out to webhook, Slack
// and email channels, and serves analytical reports over HTTP.
//
// # Startup
//
//  1. Configuration (Koanf v2: defaults, config.yaml, environment)
//  2. Logging
//  3. Alert archive (BadgerDB) and alert restore
//  4. Notification dispatcher and channels
//  5. Event publisher (GoChannel, or NATS JetStream when NATS_URL is set)
//  6. Telemetry collector, snapshot builder, engine
//  7. HTTP router and supervisor tree
//
// # Signals
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains,
// the engine loops stop after any in-flight tick, queued notifications get
// the shutdown timeout to finish, and the archive is closed last.
//
// # Example
//
//	export SLACK_WEBHOOK_URL=https://hooks.slack.com/services/...
//	export TICK_INTERVAL_MS=30000
//	export RULE_HIGH_RESPONSE_TIME_THRESHOLD=1500
//	./perfwatch
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/tomtom215/perfwatch/internal/config"
	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Dur("tick_interval", cfg.Engine.TickInterval()).
		Dur("retention", cfg.Engine.RetentionPeriod()).
		Bool("archive", cfg.Archive.Enabled).
		Bool("nats", cfg.Events.NATSURL != "").
		Msg("Starting Perfwatch")

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit origins in production")
	}

	a, err := buildApp(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
	})
	srv := a.httpServer()
	a.supervise(tree, srv)

	logging.Info().Str("addr", srv.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	a.close(shutdownCtx)

	logging.Info().Msg("Perfwatch stopped")
}
