// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package supervisor runs Perfwatch's long-lived services under a suture v4
supervisor tree.

# Layout

	perfwatch
	├── engine-layer
	│   ├── EngineService        tick loop + predictive loop
	│   └── CollectorService     in-process telemetry window
	├── messaging-layer
	│   ├── WebSocketHubService  /api/v1/stream fan-out
	│   └── EventRelayService    only when events.nats_url is set
	└── api-layer
	    └── HTTPServerService

Each layer restarts its own children. A relay that loses its NATS
subscription is restarted without interrupting the HTTP server, and a
crashing HTTP listener never stops the tick loop.

# Usage

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(services.NewEngineService(eng))
	tree.AddEngineService(services.NewCollectorService(collector))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout()))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("supervisor stopped")
	}

# Restart behavior

Suture counts failures with exponential decay. Past FailureThreshold the
supervisor waits FailureBackoff before the next restart. A service that
returns suture.ErrDoNotRestart is left stopped; EngineService does this
when the engine was stopped through Engine.Stop.

Supervisor events (start, failure, backoff, timeout) are logged through
sutureslog into the zerolog-backed slog handler.

# Shutdown

Canceling the context passed to Serve stops every layer. Services that
miss ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
