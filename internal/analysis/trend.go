// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package analysis

import "github.com/tomtom215/perfwatch/internal/models"

// MinTrendSamples is the recommended minimum window for a meaningful trend.
// Trend itself only needs two samples.
const MinTrendSamples = 5

// Selector extracts one metric from a snapshot.
type Selector func(s *models.Snapshot) float64

// Common selectors.
var (
	ResponseTime Selector = func(s *models.Snapshot) float64 { return s.Performance.AvgResponseTimeMs }
	Throughput   Selector = func(s *models.Snapshot) float64 { return s.Performance.ThroughputRPS }
	ErrorRate    Selector = func(s *models.Snapshot) float64 { return s.Performance.ErrorRatePct }
	CPU          Selector = func(s *models.Snapshot) float64 { return s.Resources.CPUPct }
	Memory       Selector = func(s *models.Snapshot) float64 { return s.Resources.MemPct }
)

// Trend compares the first and last samples of series: more than 10% up is
// increasing, more than 10% down is decreasing. Fewer than two samples is
// stable.
func Trend(series []models.Snapshot, sel Selector) models.Trend {
	if len(series) < 2 {
		return models.TrendStable
	}
	first := sel(&series[0])
	last := sel(&series[len(series)-1])

	switch {
	case last > first*1.1:
		return models.TrendIncreasing
	case last < first*0.9:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}
