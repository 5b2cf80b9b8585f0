// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package cache holds the in-memory, time-bucketed accumulators that collect
// request events between sampling ticks.
//
// RequestWindow divides a sliding window into a circular buffer of buckets.
// Recording is O(1) and a Summary is O(buckets), so the HTTP middleware never
// contends with the sampler for long.
package cache
