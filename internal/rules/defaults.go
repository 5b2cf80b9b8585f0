// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package rules

import (
	"fmt"
	"time"

	"github.com/tomtom215/perfwatch/internal/models"
)

// Built-in rule IDs.
const (
	HighResponseTime       = "high_response_time"
	HighErrorRate          = "high_error_rate"
	LowThroughput          = "low_throughput"
	CircuitBreakerOpen     = "circuit_breaker_open"
	CapacityUsage          = "capacity_usage"
	SecurityScore          = "security_score"
	ResourceExhaustion     = "resource_exhaustion"
	PerformanceDegradation = "performance_degradation"
)

var (
	criticalChannels = []models.ChannelKind{models.ChannelWebhook, models.ChannelSlack, models.ChannelEmail}
	warningChannels  = []models.ChannelKind{models.ChannelWebhook, models.ChannelSlack}
)

// DefaultRules returns the built-in table in evaluation order.
func DefaultRules() []Rule {
	table := []Rule{
		{
			ID:          HighResponseTime,
			Name:        "High Response Time",
			Description: "Average response time above threshold (ms)",
			Threshold:   2000,
			Severity:    models.SeverityWarning,
			Channels:    warningChannels,
			Cooldown:    300 * time.Second,
			Enabled:     true,
			Predicate: func(r *Rule, in Input) bool {
				return in.Snapshot.Performance.AvgResponseTimeMs > r.Threshold
			},
			Message: func(r *Rule, in Input) string {
				return fmt.Sprintf("Average response time %.0fms exceeds %.0fms", in.Snapshot.Performance.AvgResponseTimeMs, r.Threshold)
			},
		},
		{
			ID:          HighErrorRate,
			Name:        "High Error Rate",
			Description: "Error rate above threshold (percent)",
			Threshold:   5,
			Severity:    models.SeverityCritical,
			Channels:    criticalChannels,
			Cooldown:    180 * time.Second,
			Enabled:     true,
			Predicate: func(r *Rule, in Input) bool {
				return in.Snapshot.Performance.ErrorRatePct > r.Threshold
			},
			Message: func(r *Rule, in Input) string {
				return fmt.Sprintf("Error rate %.2f%% exceeds %.2f%%", in.Snapshot.Performance.ErrorRatePct, r.Threshold)
			},
		},
		{
			ID:          LowThroughput,
			Name:        "Low Throughput",
			Description: "Throughput below threshold (requests per second)",
			Threshold:   100,
			Severity:    models.SeverityWarning,
			Channels:    warningChannels,
			Cooldown:    600 * time.Second,
			Enabled:     true,
			Predicate: func(r *Rule, in Input) bool {
				return in.Snapshot.Performance.ThroughputRPS < r.Threshold
			},
			Message: func(r *Rule, in Input) string {
				return fmt.Sprintf("Throughput %.1f rps is below %.1f rps", in.Snapshot.Performance.ThroughputRPS, r.Threshold)
			},
		},
		{
			ID:          CircuitBreakerOpen,
			Name:        "Circuit Breaker Open",
			Description: "Telemetry circuit breaker is open",
			Severity:    models.SeverityCritical,
			Channels:    criticalChannels,
			Cooldown:    120 * time.Second,
			Enabled:     true,
			Predicate: func(_ *Rule, in Input) bool {
				return in.Snapshot.CircuitBreakerOpen
			},
			Message: func(*Rule, Input) string {
				return "Circuit breaker is open; telemetry calls are being rejected"
			},
		},
		{
			ID:          CapacityUsage,
			Name:        "High Capacity Usage",
			Description: "Composite utilization above threshold (percent)",
			Threshold:   90,
			Severity:    models.SeverityWarning,
			Channels:    warningChannels,
			Cooldown:    600 * time.Second,
			Enabled:     true,
			Predicate: func(r *Rule, in Input) bool {
				return in.Snapshot.Capacity.UtilizationPct > r.Threshold
			},
			Message: func(r *Rule, in Input) string {
				return fmt.Sprintf("Capacity utilization %.1f%% exceeds %.1f%%", in.Snapshot.Capacity.UtilizationPct, r.Threshold)
			},
		},
		{
			ID:          SecurityScore,
			Name:        "Low Security Score",
			Description: "Security score below threshold",
			Threshold:   50,
			Severity:    models.SeverityCritical,
			Channels:    criticalChannels,
			Cooldown:    300 * time.Second,
			Enabled:     true,
			Predicate: func(r *Rule, in Input) bool {
				return in.Snapshot.Security.SecurityScore < r.Threshold
			},
			Message: func(r *Rule, in Input) string {
				return fmt.Sprintf("Security score %.0f is below %.0f (threat level %s)", in.Snapshot.Security.SecurityScore, r.Threshold, in.Snapshot.Security.ThreatLevel)
			},
		},
		{
			ID:          ResourceExhaustion,
			Name:        "Resource Exhaustion",
			Description: "Memory or CPU usage above threshold (percent)",
			Threshold:   90,
			Severity:    models.SeverityCritical,
			Channels:    criticalChannels,
			Cooldown:    120 * time.Second,
			Enabled:     true,
			Predicate: func(r *Rule, in Input) bool {
				res := in.Snapshot.Resources
				return res.MemPct > r.Threshold || res.CPUPct > r.Threshold
			},
			Message: func(r *Rule, in Input) string {
				res := in.Snapshot.Resources
				return fmt.Sprintf("Resources near exhaustion: cpu %.1f%%, memory %.1f%% (limit %.0f%%)", res.CPUPct, res.MemPct, r.Threshold)
			},
		},
		{
			ID:          PerformanceDegradation,
			Name:        "Performance Degradation",
			Description: "Last hour's average response time above threshold times the current value",
			Threshold:   1.5,
			Severity:    models.SeverityWarning,
			Channels:    warningChannels,
			Cooldown:    900 * time.Second,
			Enabled:     true,
			Predicate: func(r *Rule, in Input) bool {
				if len(in.Window) == 0 {
					return false
				}
				return averageResponseTime(in.Window) > r.Threshold*in.Snapshot.Performance.AvgResponseTimeMs
			},
			Message: func(r *Rule, in Input) string {
				return fmt.Sprintf("Hourly average response time %.0fms is more than %.1fx the current %.0fms",
					averageResponseTime(in.Window), r.Threshold, in.Snapshot.Performance.AvgResponseTimeMs)
			},
		},
	}
	for i := range table {
		table[i] = table[i].clone()
	}
	return table
}

func averageResponseTime(window []models.Snapshot) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for i := range window {
		sum += window[i].Performance.AvgResponseTimeMs
	}
	return sum / float64(len(window))
}
