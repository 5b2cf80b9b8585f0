// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package models

import "time"

// Snapshot is the normalized metric set produced once per tick.
type Snapshot struct {
	Timestamp   time.Time          `json:"timestamp"`
	Performance PerformanceMetrics `json:"performance"`
	Resources   ResourceMetrics    `json:"resources"`
	Security    SecurityMetrics    `json:"security"`
	Capacity    CapacityMetrics    `json:"capacity"`
	Business    BusinessMetrics    `json:"business"`

	// CircuitBreakerOpen mirrors the telemetry source's scaling state.
	CircuitBreakerOpen bool `json:"circuitBreakerOpen"`

	// Degraded is set when the telemetry source could not be read and the
	// snapshot carries zero values instead of measurements.
	Degraded bool `json:"degraded"`
}

// PerformanceMetrics describes request handling over the last tick window.
type PerformanceMetrics struct {
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	P95ResponseTimeMs float64 `json:"p95ResponseTimeMs"`
	ThroughputRPS     float64 `json:"throughputRps"`
	ErrorRatePct      float64 `json:"errorRatePct"`
	Concurrency       int     `json:"concurrency"`
	AvailabilityPct   float64 `json:"availabilityPct"`
}

// ResourceMetrics holds host gauges.
type ResourceMetrics struct {
	CPUPct           float64 `json:"cpuPct"`
	MemPct           float64 `json:"memPct"`
	DiskPct          float64 `json:"diskPct"`
	NetworkLatencyMs float64 `json:"networkLatencyMs"`
}

// ThreatLevel is a coarse classification of hostile traffic.
type ThreatLevel string

const (
	ThreatLow    ThreatLevel = "low"
	ThreatMedium ThreatLevel = "medium"
	ThreatHigh   ThreatLevel = "high"
)

// SecurityMetrics summarizes rejected traffic.
type SecurityMetrics struct {
	BlockedRequests int64       `json:"blockedRequests"`
	ThreatLevel     ThreatLevel `json:"threatLevel"`
	SecurityScore   float64     `json:"securityScore"`
}

// Risk is a three-step qualitative rating.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// CapacityMetrics is the composite utilization view.
type CapacityMetrics struct {
	UtilizationPct float64 `json:"utilizationPct"`
	BottleneckRisk Risk    `json:"bottleneckRisk"`
}

// BusinessMetrics come from a pluggable provider. Simulated is true when
// the values are placeholders rather than measurements.
type BusinessMetrics struct {
	UniqueVisitors    int64   `json:"uniqueVisitors"`
	BounceRatePct     float64 `json:"bounceRatePct"`
	ConversionRatePct float64 `json:"conversionRatePct"`
	Revenue           float64 `json:"revenue"`
	SatisfactionScore float64 `json:"satisfactionScore"`
	Simulated         bool    `json:"simulated"`
}

// RiskForUtilization maps a utilization percentage to a bottleneck risk.
func RiskForUtilization(pct float64) Risk {
	switch {
	case pct > 85:
		return RiskHigh
	case pct > 70:
		return RiskMedium
	default:
		return RiskLow
	}
}
