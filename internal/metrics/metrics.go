// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	// Engine tick metrics
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_ticks_total",
			Help: "Total number of sampling ticks by outcome",
		},
		[]string{"outcome"}, // completed, skipped, panicked
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "perfwatch_tick_duration_seconds",
			Help:    "Duration of one sample-evaluate-alert pass",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	DegradedSnapshots = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "perfwatch_degraded_snapshots_total",
			Help: "Snapshots built without telemetry data",
		},
	)

	StoredSnapshots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "perfwatch_stored_snapshots",
			Help: "Snapshots currently retained in the time series store",
		},
	)

	PredictiveRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_predictive_runs_total",
			Help: "Predictive analysis passes by result",
		},
		[]string{"result"}, // ok, insufficient_data
	)

	// Rule metrics
	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_rule_evaluations_total",
			Help: "Rule predicate evaluations by rule and result",
		},
		[]string{"rule", "result"}, // result: true, false, error
	)

	// Alert metrics
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_alerts_triggered_total",
			Help: "Alerts triggered by rule and severity",
		},
		[]string{"rule", "severity"},
	)

	AlertsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_alerts_resolved_total",
			Help: "Alerts resolved by rule",
		},
		[]string{"rule"},
	)

	ActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "perfwatch_active_alerts",
			Help: "Alerts currently active",
		},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_notifications_total",
			Help: "Notification attempts by channel and status",
		},
		[]string{"channel", "status"},
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "perfwatch_notification_duration_seconds",
			Help:    "Time spent delivering one notification",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Event bus and stream metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_events_published_total",
			Help: "Engine events published by topic and result",
		},
		[]string{"topic", "result"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
		[]string{"topic"},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "perfwatch_stream_clients",
			Help: "Connected WebSocket stream clients",
		},
	)
)

// RecordTick records the outcome of one tick.
func RecordTick(outcome string, duration time.Duration) {
	TicksTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		TickDuration.Observe(duration.Seconds())
	}
}

// RecordRuleEvaluation records one predicate result. A non-nil err wins over fired.
func RecordRuleEvaluation(rule string, fired bool, err error) {
	result := strconv.FormatBool(fired)
	if err != nil {
		result = "error"
	}
	RuleEvaluations.WithLabelValues(rule, result).Inc()
}

// RecordAlertTriggered increments the trigger counter for a rule.
func RecordAlertTriggered(rule, severity string) {
	AlertsTriggered.WithLabelValues(rule, severity).Inc()
}

// RecordAlertResolved increments the resolve counter for a rule.
func RecordAlertResolved(rule string) {
	AlertsResolved.WithLabelValues(rule).Inc()
}

// RecordNotification records a delivery attempt.
func RecordNotification(channel, status string, duration time.Duration) {
	NotificationsTotal.WithLabelValues(channel, status).Inc()
	NotificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBreakerTransition updates the breaker gauges on a state change.
func RecordBreakerTransition(name string, from, to gobreaker.State) {
	CircuitBreakerState.WithLabelValues(name).Set(BreakerStateValue(to))
	CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

// BreakerStateValue converts a breaker state to its gauge value.
func BreakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
