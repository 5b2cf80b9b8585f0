// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package models

import "time"

// BottleneckType names the constrained resource.
type BottleneckType string

const (
	BottleneckResponseTime BottleneckType = "response_time"
	BottleneckMemory       BottleneckType = "memory"
	BottleneckNetwork      BottleneckType = "network"
	BottleneckConcurrency  BottleneckType = "concurrency"
)

// BottleneckSeverity ranks a bottleneck.
type BottleneckSeverity string

const (
	BottleneckLow      BottleneckSeverity = "low"
	BottleneckMedium   BottleneckSeverity = "medium"
	BottleneckHigh     BottleneckSeverity = "high"
	BottleneckCritical BottleneckSeverity = "critical"
)

// BottleneckReport is a point-in-time diagnosis of one constraint.
type BottleneckReport struct {
	Type              BottleneckType     `json:"type"`
	Severity          BottleneckSeverity `json:"severity"`
	CurrentValue      float64            `json:"currentValue"`
	ThresholdValue    float64            `json:"thresholdValue"`
	ImpactDescription string             `json:"impactDescription"`
	Recommendations   []string           `json:"recommendations"`
	DetectedAt        time.Time          `json:"detectedAt"`
}

// Trend is the direction of a metric over a window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// HealthBreakdown holds the four component scores.
type HealthBreakdown struct {
	Performance  float64 `json:"performance"`
	Availability float64 `json:"availability"`
	Security     float64 `json:"security"`
	Capacity     float64 `json:"capacity"`
}

// HealthScore is the overall grade of a snapshot.
type HealthScore struct {
	Overall   float64         `json:"overall"`
	Breakdown HealthBreakdown `json:"breakdown"`
	Grade     string          `json:"grade"`
	Status    string          `json:"status"`
}

// CapacityProjection is the expected load for one day bucket.
type CapacityProjection struct {
	ExpectedRequests     float64 `json:"expectedRequests"`
	ExpectedLatencyMs    float64 `json:"expectedLatencyMs"`
	ExpectedErrorRatePct float64 `json:"expectedErrorRatePct"`
}
