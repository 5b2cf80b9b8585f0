// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package analysis

import (
	"fmt"

	"github.com/tomtom215/perfwatch/internal/models"
)

// Thresholds configures DetectBottlenecks.
type Thresholds struct {
	ResponseTimeMs   float64 `koanf:"response_time_ms" validate:"gt=0"`
	MemPct           float64 `koanf:"mem_pct" validate:"gt=0,lte=100"`
	NetworkLatencyMs float64 `koanf:"network_latency_ms" validate:"gt=0"`
	Concurrency      int     `koanf:"concurrency" validate:"gt=0"`
}

// DefaultThresholds returns the built-in bottleneck thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ResponseTimeMs:   2000,
		MemPct:           85,
		NetworkLatencyMs: 100,
		Concurrency:      500,
	}
}

var recommendations = map[models.BottleneckType][]string{
	models.BottleneckResponseTime: {
		"Profile slow endpoints and add caching for hot read paths",
		"Review database queries and add missing indexes",
		"Scale out application instances behind the load balancer",
	},
	models.BottleneckMemory: {
		"Check for memory leaks and unbounded caches",
		"Increase instance memory or add instances",
		"Tune garbage collection and pool sizes",
	},
	models.BottleneckNetwork: {
		"Serve static assets from a CDN",
		"Enable response compression",
		"Move dependent services closer to the application",
	},
	models.BottleneckConcurrency: {
		"Add instances or raise worker pool limits",
		"Apply rate limiting to protect downstream services",
		"Queue long-running work instead of holding requests open",
	},
}

// Recommendations returns the fixed remediation list for a bottleneck type.
func Recommendations(t models.BottleneckType) []string {
	return append([]string(nil), recommendations[t]...)
}

// DetectBottlenecks checks s against th, in order: response time, memory,
// network latency, concurrency. Several reports may be returned at once.
func DetectBottlenecks(s *models.Snapshot, th Thresholds) []models.BottleneckReport {
	var out []models.BottleneckReport
	report := func(t models.BottleneckType, sev models.BottleneckSeverity, current, threshold float64, impact string) {
		out = append(out, models.BottleneckReport{
			Type:              t,
			Severity:          sev,
			CurrentValue:      current,
			ThresholdValue:    threshold,
			ImpactDescription: impact,
			Recommendations:   Recommendations(t),
			DetectedAt:        s.Timestamp,
		})
	}

	if rt := s.Performance.AvgResponseTimeMs; rt > th.ResponseTimeMs {
		report(models.BottleneckResponseTime, models.BottleneckHigh, rt, th.ResponseTimeMs,
			fmt.Sprintf("Average response time of %.0fms degrades user experience", rt))
	}
	if mem := s.Resources.MemPct; mem > th.MemPct {
		report(models.BottleneckMemory, models.BottleneckCritical, mem, th.MemPct,
			fmt.Sprintf("Memory usage at %.1f%% risks out-of-memory failures", mem))
	}
	if lat := s.Resources.NetworkLatencyMs; lat > th.NetworkLatencyMs {
		report(models.BottleneckNetwork, models.BottleneckMedium, lat, th.NetworkLatencyMs,
			fmt.Sprintf("Network latency of %.0fms adds to every request", lat))
	}
	if c := s.Performance.Concurrency; c > th.Concurrency {
		report(models.BottleneckConcurrency, models.BottleneckHigh, float64(c), float64(th.Concurrency),
			fmt.Sprintf("%d concurrent requests exceed comfortable capacity", c))
	}
	return out
}
