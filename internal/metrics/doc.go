// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package metrics exposes Prometheus instrumentation for the engine itself.

All collectors are registered on the default registry via promauto and served
at /metrics by the API router. They cover:

  - engine ticks (count, skipped, duration, degraded snapshots)
  - rule evaluation outcomes and predicate failures
  - alert lifecycle (triggered, resolved, active gauge)
  - notification attempts per channel and status
  - the telemetry circuit breaker
  - HTTP requests served by the query API

Helpers named Record* or Set* keep label handling in one place so callers do
not build label values themselves.
*/
package metrics
