// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package engine

import (
	"time"

	"github.com/tomtom215/perfwatch/internal/analysis"
	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/rules"
)

// Query methods work on copies taken from the store and the alert manager.
// No lock is held while a report is computed.

func (e *Engine) latest() *models.Snapshot {
	s, ok := e.deps.Store.Latest()
	if !ok {
		return nil
	}
	return &s
}

// Overview returns the latest snapshot, 1h trends, active alert count and
// health.
func (e *Engine) Overview() analysis.Overview {
	return analysis.BuildOverview(e.latest(), e.deps.Store.Recent(RuleWindow), e.deps.Alerts.ActiveCount())
}

// Bottlenecks returns up to limit recent bottleneck reports, newest first.
// limit <= 0 returns all retained reports.
func (e *Engine) Bottlenecks(limit int) []models.BottleneckReport {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.bottlenecks)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.BottleneckReport, n)
	copy(out, e.bottlenecks[:n])
	return out
}

// UserBehavior reports the business block and its 24h averages.
func (e *Engine) UserBehavior() analysis.UserBehavior {
	return analysis.BuildUserBehavior(e.latest(), e.deps.Store.Recent(BehaviorWindow))
}

// CapacityPlan projects capacity from the whole retained series.
func (e *Engine) CapacityPlan() analysis.CapacityPlan {
	return analysis.BuildCapacityPlan(e.latest(), e.deps.Store.Recent(e.deps.Store.Retention()))
}

// CostAnalysis estimates monthly cost from the latest snapshot.
func (e *Engine) CostAnalysis() analysis.CostAnalysis {
	return analysis.BuildCostAnalysis(e.latest(), e.cfg.CostRates)
}

// ActiveAlerts returns active alerts sorted by trigger time.
func (e *Engine) ActiveAlerts() []models.Alert {
	return e.deps.Alerts.Active()
}

// AlertHistory returns up to limit alerts, newest first.
func (e *Engine) AlertHistory(limit int) []models.Alert {
	return e.deps.Alerts.History(limit)
}

// AcknowledgeAlert marks an alert acknowledged.
func (e *Engine) AcknowledgeAlert(id string) (models.Alert, error) {
	return e.deps.Alerts.Acknowledge(id, e.now())
}

// PredictiveTraffic returns the forecast from the last predictive pass,
// computing one if the loop has not run yet.
func (e *Engine) PredictiveTraffic() analysis.PredictiveTraffic {
	e.mu.RLock()
	p := e.forecast
	e.mu.RUnlock()
	if p == nil {
		return e.RefreshForecast()
	}
	out := *p
	out.Forecast = append([]analysis.TrafficForecast(nil), p.Forecast...)
	return out
}

// HealthScore scores the latest snapshot. ok is false when nothing has been
// sampled yet.
func (e *Engine) HealthScore() (models.HealthScore, bool) {
	s := e.latest()
	if s == nil {
		return models.HealthScore{}, false
	}
	return analysis.Score(s), true
}

// ComplianceReport checks the last day against the configured targets.
func (e *Engine) ComplianceReport() analysis.ComplianceReport {
	since := e.now().Add(-BehaviorWindow)
	return analysis.BuildComplianceReport(
		e.latest(),
		e.deps.Store.Recent(BehaviorWindow),
		e.deps.Alerts.Since(since),
		e.cfg.Compliance,
	)
}

// Rules returns a copy of the rule table.
func (e *Engine) Rules() []rules.Rule {
	return e.deps.Rules.Rules()
}

// Notifications returns delivery records for alertID, or all records when
// alertID is empty.
func (e *Engine) Notifications(alertID string) []models.NotificationRecord {
	if e.deps.Records == nil {
		return []models.NotificationRecord{}
	}
	if alertID == "" {
		return e.deps.Records.Records()
	}
	return e.deps.Records.ForAlert(alertID)
}

// LastTick returns the summary of the most recent completed tick.
func (e *Engine) LastTick() (TickResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastTick == nil {
		return TickResult{}, false
	}
	return *e.lastTick, true
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.now() }
