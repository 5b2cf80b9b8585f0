// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package models defines the data structures shared by the Perfwatch packages.

Key types:

  - Snapshot: one immutable set of derived metrics per sampling tick
  - Alert: a single trigger of an alert rule, active until resolved
  - NotificationRecord: the outcome of one delivery attempt on one channel
  - BottleneckReport, HealthScore, CapacityProjection: analysis results

Snapshots are value types. Once a snapshot has been built it is passed and
stored by value and never modified, so readers can share them without locks.

JSON field names are camelCase because the query API exposes these types
directly.
*/
package models
