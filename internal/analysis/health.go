// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package analysis

import "github.com/tomtom215/perfwatch/internal/models"

// Score grades a snapshot. Each breakdown component is in [0,100] and the
// overall score is their unweighted mean.
func Score(s *models.Snapshot) models.HealthScore {
	b := models.HealthBreakdown{
		Performance:  clamp(100-s.Performance.AvgResponseTimeMs/50, 0, 100),
		Availability: clamp(s.Performance.AvailabilityPct, 0, 100),
		Security:     clamp(s.Security.SecurityScore, 0, 100),
		Capacity:     clamp(100-s.Capacity.UtilizationPct, 0, 100),
	}
	overall := (b.Performance + b.Availability + b.Security + b.Capacity) / 4

	grade, status := Grade(overall)
	return models.HealthScore{
		Overall:   overall,
		Breakdown: b,
		Grade:     grade,
		Status:    status,
	}
}

// Grade maps a 0-100 score to a letter grade and status label.
func Grade(score float64) (grade, status string) {
	switch {
	case score >= 90:
		return "A", "excellent"
	case score >= 80:
		return "B", "good"
	case score >= 70:
		return "C", "fair"
	case score >= 60:
		return "D", "poor"
	default:
		return "F", "critical"
	}
}
