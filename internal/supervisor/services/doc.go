// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package services adapts Perfwatch components to suture.Service.

Each wrapper translates a component lifecycle into Serve(ctx) error and
names itself through fmt.Stringer for supervisor logs:

  - EngineService: engine tick and predictive loops (Engine.Run)
  - CollectorService: telemetry collector (Collector.RunWithContext)
  - WebSocketHubService: stream hub (Hub.RunWithContext)
  - EventRelayService: NATS to stream relay (Relay.Run)
  - HTTPServerService: *http.Server with graceful shutdown

Wrappers depend on small interfaces rather than concrete types so they can
be tested with fakes.
*/
package services
