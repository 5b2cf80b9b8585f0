// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package telemetry supplies the raw counters the engine samples each tick.
//
// Source is the collaborator contract. Collector is the in-process
// implementation: an HTTP middleware feeds it completed requests and
// HostGauges reads cpu, memory and disk usage through gopsutil.
// BreakerSource wraps any Source with a timeout and a circuit breaker.
package telemetry

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when a source cannot produce data.
var ErrUnavailable = errors.New("telemetry source unavailable")

// RawCounters are the unnormalized measurements for the current window.
type RawCounters struct {
	Requests      int64
	Errors        int64
	Blocked       int64
	ThroughputRPS float64
	ErrorRatePct  float64
	AvgLatencyMs  float64
	P95LatencyMs  float64
	MaxLatencyMs  float64
	InFlight      int

	CPUPct           float64
	MemPct           float64
	DiskPct          float64
	NetworkLatencyMs float64

	CollectedAt time.Time
}

// ScalingState describes the serving topology.
type ScalingState struct {
	Instances          int    `json:"instances"`
	BreakerState       string `json:"breakerState"`
	CircuitBreakerOpen bool   `json:"circuitBreakerOpen"`
}

// HealthStatus reports per-component health of the telemetry pipeline.
type HealthStatus struct {
	Healthy    bool              `json:"healthy"`
	Components map[string]string `json:"components"`
	CheckedAt  time.Time         `json:"checkedAt"`
}

// RequestEvent is one completed request.
type RequestEvent struct {
	DurationMs float64   `json:"durationMs"`
	StatusCode int       `json:"statusCode"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Timestamp  time.Time `json:"timestamp"`
}

// Failed reports whether the request counts toward the error rate.
func (e RequestEvent) Failed() bool {
	return e.StatusCode >= 500
}

// Blocked reports whether the request was rejected by a security or rate limit layer.
func (e RequestEvent) Blocked() bool {
	return e.StatusCode == 401 || e.StatusCode == 403 || e.StatusCode == 429
}

// Source supplies raw counters to the snapshot builder.
type Source interface {
	LatestMetrics(ctx context.Context) (RawCounters, error)
	ScalingState(ctx context.Context) (ScalingState, error)
	HealthStatus(ctx context.Context) (HealthStatus, error)
}
