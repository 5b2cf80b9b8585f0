// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package analysis derives read-only reports from snapshots.

Every function here is a pure function of its arguments: callers pass the
latest snapshot and/or a copied window from the time-series store. Nothing in
this package touches alert state.

Core analyses:
  - DetectBottlenecks: threshold checks on latency, memory, network and concurrency
  - Trend: direction of one metric across a window
  - ProjectCapacity: day-by-day linear extrapolation
  - Score: composite health grade

Insufficient data never produces an error. Trend falls back to stable and
projections come back empty.
*/
package analysis
