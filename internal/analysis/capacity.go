// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package analysis

import (
	"math"
	"strconv"
	"time"

	"github.com/tomtom215/perfwatch/internal/models"
)

// MinCapacitySamples is the smallest series ProjectCapacity will extrapolate.
const MinCapacitySamples = 24

const day = 24 * time.Hour

// ProjectCapacity extrapolates throughput, latency and error rate linearly
// from the first to the last sample of series, for horizonDays days. Keys are
// "day_1" through "day_N". Series shorter than MinCapacitySamples yield an
// empty map.
func ProjectCapacity(series []models.Snapshot, horizonDays int) map[string]models.CapacityProjection {
	out := make(map[string]models.CapacityProjection)
	if len(series) < MinCapacitySamples || horizonDays <= 0 {
		return out
	}

	first, last := &series[0], &series[len(series)-1]
	span := last.Timestamp.Sub(first.Timestamp)

	// Growth per day for each metric; a zero span means no measurable slope.
	perDay := func(sel Selector) float64 {
		if span <= 0 {
			return 0
		}
		return (sel(last) - sel(first)) / span.Hours() * day.Hours()
	}
	rpsGrowth := perDay(Throughput)
	latencyGrowth := perDay(ResponseTime)
	errorGrowth := perDay(ErrorRate)

	for d := 1; d <= horizonDays; d++ {
		n := float64(d)
		rps := math.Max(0, last.Performance.ThroughputRPS+rpsGrowth*n)
		out["day_"+strconv.Itoa(d)] = models.CapacityProjection{
			ExpectedRequests:     math.Round(rps * day.Seconds()),
			ExpectedLatencyMs:    math.Max(0, last.Performance.AvgResponseTimeMs+latencyGrowth*n),
			ExpectedErrorRatePct: clamp(last.Performance.ErrorRatePct+errorGrowth*n, 0, 100),
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
