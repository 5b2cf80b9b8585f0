// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package snapshot turns raw telemetry counters into normalized snapshots.
package snapshot

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/telemetry"
)

const (
	// AvailabilityWindow is the history span availability is computed over.
	AvailabilityWindow = time.Hour

	// LatencyCapMs normalizes network latency in the utilization composite.
	LatencyCapMs = 200.0

	cpuWeight     = 0.4
	memWeight     = 0.3
	latencyWeight = 0.3
)

// History is the read side of the time series store.
type History interface {
	Recent(d time.Duration) []models.Snapshot
}

// Builder produces one snapshot per call.
type Builder struct {
	source   telemetry.Source
	history  History
	provider BusinessProvider
	timeout  time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithProvider sets the business metrics provider.
func WithProvider(p BusinessProvider) Option {
	return func(b *Builder) { b.provider = p }
}

// WithTimeout bounds each telemetry read.
func WithTimeout(d time.Duration) Option {
	return func(b *Builder) { b.timeout = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a builder reading from source and history.
func NewBuilder(source telemetry.Source, history History, opts ...Option) *Builder {
	b := &Builder{
		source:   source,
		history:  history,
		provider: StubProvider{},
		timeout:  5 * time.Second,
		now:      time.Now,
		logger:   logging.Component("snapshot-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reads the source and returns a snapshot. It never fails: when the
// source is unreachable the snapshot is zero-valued and marked Degraded.
func (b *Builder) Build(ctx context.Context) models.Snapshot {
	now := b.now()

	readCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// Scaling state is read even when counters fail so an open breaker is
	// still visible on a degraded snapshot.
	var breakerOpen bool
	if state, err := b.source.ScalingState(readCtx); err == nil {
		breakerOpen = state.CircuitBreakerOpen
	}

	raw, err := b.source.LatestMetrics(readCtx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("telemetry unavailable, emitting degraded snapshot")
		metrics.DegradedSnapshots.Inc()
		return b.degraded(now, breakerOpen)
	}

	business, err := b.provider.BusinessMetrics(readCtx, raw)
	if err != nil {
		b.logger.Debug().Err(err).Msg("business metrics provider failed")
		business = models.BusinessMetrics{}
	}

	utilization := Utilization(raw.CPUPct, raw.MemPct, raw.NetworkLatencyMs)
	blockedPct := 0.0
	if raw.Requests > 0 {
		blockedPct = float64(raw.Blocked) / float64(raw.Requests) * 100
	}
	threat := ThreatLevelFor(blockedPct)

	return models.Snapshot{
		Timestamp: now,
		Performance: models.PerformanceMetrics{
			AvgResponseTimeMs: raw.AvgLatencyMs,
			P95ResponseTimeMs: raw.P95LatencyMs,
			ThroughputRPS:     raw.ThroughputRPS,
			ErrorRatePct:      raw.ErrorRatePct,
			Concurrency:       raw.InFlight,
			AvailabilityPct:   Availability(b.history.Recent(AvailabilityWindow)),
		},
		Resources: models.ResourceMetrics{
			CPUPct:           raw.CPUPct,
			MemPct:           raw.MemPct,
			DiskPct:          raw.DiskPct,
			NetworkLatencyMs: raw.NetworkLatencyMs,
		},
		Security: models.SecurityMetrics{
			BlockedRequests: raw.Blocked,
			ThreatLevel:     threat,
			SecurityScore:   SecurityScore(blockedPct, threat),
		},
		Capacity: models.CapacityMetrics{
			UtilizationPct: utilization,
			BottleneckRisk: models.RiskForUtilization(utilization),
		},
		Business:           business,
		CircuitBreakerOpen: breakerOpen,
	}
}

// degraded returns the zero snapshot. Fields whose zero value would read as
// an incident (security score, threat level) carry their neutral defaults.
func (b *Builder) degraded(now time.Time, breakerOpen bool) models.Snapshot {
	return models.Snapshot{
		Timestamp: now,
		Performance: models.PerformanceMetrics{
			AvailabilityPct: Availability(b.history.Recent(AvailabilityWindow)),
		},
		Security: models.SecurityMetrics{
			ThreatLevel:   models.ThreatLow,
			SecurityScore: 100,
		},
		Capacity:           models.CapacityMetrics{BottleneckRisk: models.RiskLow},
		CircuitBreakerOpen: breakerOpen,
		Degraded:           true,
	}
}

// Availability is 100 minus the share of ticks that saw errors, in percent.
// An empty history is fully available.
func Availability(history []models.Snapshot) float64 {
	if len(history) == 0 {
		return 100
	}
	var errorTicks int
	for i := range history {
		if history[i].Performance.ErrorRatePct > 0 {
			errorTicks++
		}
	}
	return 100 - float64(errorTicks)/float64(len(history))*100
}

// Utilization is the weighted composite of cpu, memory and normalized latency.
func Utilization(cpuPct, memPct, latencyMs float64) float64 {
	latencyPct := math.Min(latencyMs/LatencyCapMs, 1) * 100
	u := cpuWeight*cpuPct + memWeight*memPct + latencyWeight*latencyPct
	return math.Max(0, math.Min(100, u))
}

// ThreatLevelFor classifies the blocked-request percentage.
func ThreatLevelFor(blockedPct float64) models.ThreatLevel {
	switch {
	case blockedPct > 10:
		return models.ThreatHigh
	case blockedPct > 2:
		return models.ThreatMedium
	default:
		return models.ThreatLow
	}
}

// SecurityScore derives a 0-100 score from blocked traffic and threat level.
func SecurityScore(blockedPct float64, threat models.ThreatLevel) float64 {
	penalty := 0.0
	switch threat {
	case models.ThreatMedium:
		penalty = 10
	case models.ThreatHigh:
		penalty = 25
	}
	score := 100 - math.Min(60, blockedPct*2) - penalty
	return math.Max(0, score)
}
