// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/alerting"
	"github.com/tomtom215/perfwatch/internal/analysis"
	"github.com/tomtom215/perfwatch/internal/audit"
	"github.com/tomtom215/perfwatch/internal/engine"
	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/rules"
	"github.com/tomtom215/perfwatch/internal/telemetry"
	"github.com/tomtom215/perfwatch/internal/validation"
)

// Query defaults.
const (
	DefaultBottleneckLimit = 50
	maxRequestBody         = 4 << 10
)

// Service is the engine surface the handlers read from.
type Service interface {
	Overview() analysis.Overview
	Bottlenecks(limit int) []models.BottleneckReport
	UserBehavior() analysis.UserBehavior
	CapacityPlan() analysis.CapacityPlan
	CostAnalysis() analysis.CostAnalysis
	ActiveAlerts() []models.Alert
	AlertHistory(limit int) []models.Alert
	AcknowledgeAlert(id string) (models.Alert, error)
	PredictiveTraffic() analysis.PredictiveTraffic
	HealthScore() (models.HealthScore, bool)
	ComplianceReport() analysis.ComplianceReport
	Rules() []rules.Rule
	SetRuleEnabled(id string, enabled bool) error
	Notifications(alertID string) []models.NotificationRecord
	LastTick() (engine.TickResult, bool)
	Running() bool
	Now() time.Time
}

// StreamStats reports connected stream clients.
type StreamStats interface {
	ClientCount() int
}

// AuditLog records operator actions.
type AuditLog interface {
	Log(event *audit.Event)
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// TelemetryHealth reports the health of the telemetry pipeline.
type TelemetryHealth interface {
	HealthStatus(ctx context.Context) (telemetry.HealthStatus, error)
}

// Handler serves the query surface.
type Handler struct {
	svc       Service
	stream    StreamStats
	audit     AuditLog
	telemetry TelemetryHealth
	started   time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAuditLog records acknowledge and rule update calls to log and serves
// them at /api/v1/audit.
func WithAuditLog(log AuditLog) HandlerOption {
	return func(h *Handler) { h.audit = log }
}

// WithTelemetryHealth adds the telemetry source's health to GET /health.
func WithTelemetryHealth(src TelemetryHealth) HandlerOption {
	return func(h *Handler) { h.telemetry = src }
}

// NewHandler creates a handler. stream may be nil.
func NewHandler(svc Service, stream StreamStats, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:     svc,
		stream:  stream,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// record writes an audit event when an audit log is configured.
func (h *Handler) record(r *http.Request, typ audit.EventType, target *audit.Target, action string, err error) {
	if h.audit == nil {
		return
	}
	e := &audit.Event{
		Timestamp: h.svc.Now(),
		Type:      typ,
		Outcome:   audit.OutcomeSuccess,
		Target:    target,
		Action:    action,
	}
	if err != nil {
		e.Outcome = audit.OutcomeFailure
		e.Description = err.Error()
	}
	h.audit.Log(audit.FromRequest(r, e))
}

func (h *Handler) ok(w http.ResponseWriter, data any) {
	respondData(w, data, h.svc.Now())
}

// PerformanceOverview handles GET /api/v1/performance/overview.
func (h *Handler) PerformanceOverview(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, h.svc.Overview())
}

// PerformanceBottlenecks handles GET /api/v1/performance/bottlenecks.
func (h *Handler) PerformanceBottlenecks(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", DefaultBottleneckLimit)
	if limit > DefaultBottleneckLimit {
		limit = DefaultBottleneckLimit
	}
	h.ok(w, h.svc.Bottlenecks(limit))
}

// UserBehavior handles GET /api/v1/users/behavior.
func (h *Handler) UserBehavior(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, h.svc.UserBehavior())
}

// CapacityPlanning handles GET /api/v1/capacity/planning.
func (h *Handler) CapacityPlanning(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, h.svc.CapacityPlan())
}

// CostAnalysis handles GET /api/v1/cost/analysis.
func (h *Handler) CostAnalysis(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, h.svc.CostAnalysis())
}

// ActiveAlerts handles GET /api/v1/alerts/active.
func (h *Handler) ActiveAlerts(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, h.svc.ActiveAlerts())
}

// AlertHistory handles GET /api/v1/alerts/history. A missing or invalid
// limit falls back to the default.
func (h *Handler) AlertHistory(w http.ResponseWriter, r *http.Request) {
	h.ok(w, h.svc.AlertHistory(intParam(r, "limit", alerting.DefaultHistoryLimit)))
}

// AcknowledgeAlert handles POST /api/v1/alerts/{id}/acknowledge.
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.svc.AcknowledgeAlert(id)
	h.record(r, audit.EventTypeAlertAcknowledged, &audit.Target{ID: id, Type: "alert"}, "acknowledge", err)
	switch {
	case errors.Is(err, alerting.ErrAlertNotFound):
		respondError(w, r, http.StatusNotFound, "Alert not found", err)
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "Failed to acknowledge alert", err)
	default:
		h.ok(w, a)
	}
}

// ruleView is the wire form of a rule.
type ruleView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Threshold   float64              `json:"threshold"`
	Severity    models.Severity      `json:"severity"`
	Channels    []models.ChannelKind `json:"channels"`
	CooldownMs  int64                `json:"cooldownMs"`
	Enabled     bool                 `json:"enabled"`
}

func newRuleView(r *rules.Rule) ruleView {
	return ruleView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Threshold:   r.Threshold,
		Severity:    r.Severity,
		Channels:    r.Channels,
		CooldownMs:  r.Cooldown.Milliseconds(),
		Enabled:     r.Enabled,
	}
}

// AlertRules handles GET /api/v1/alerts/rules.
func (h *Handler) AlertRules(w http.ResponseWriter, _ *http.Request) {
	table := h.svc.Rules()
	out := make([]ruleView, 0, len(table))
	for i := range table {
		out = append(out, newRuleView(&table[i]))
	}
	h.ok(w, out)
}

// RuleUpdate is the body of PUT /api/v1/alerts/rules/{id}.
type RuleUpdate struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// UpdateRule handles PUT /api/v1/alerts/rules/{id}.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RuleUpdate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Validation failed", err)
		return
	}

	action := "disable"
	if *req.Enabled {
		action = "enable"
	}
	err := h.svc.SetRuleEnabled(id, *req.Enabled)
	h.record(r, audit.EventTypeRuleUpdated, &audit.Target{ID: id, Type: "rule"}, action, err)
	if err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			respondError(w, r, http.StatusNotFound, "Rule not found", err)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "Failed to update rule", err)
		return
	}

	for _, rule := range h.svc.Rules() {
		if rule.ID == id {
			h.ok(w, newRuleView(&rule))
			return
		}
	}
	respondError(w, r, http.StatusNotFound, "Rule not found", fmt.Errorf("rule %s: %w", id, rules.ErrRuleNotFound))
}

// Notifications handles GET /api/v1/notifications.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	records := h.svc.Notifications(r.URL.Query().Get("alert_id"))
	if records == nil {
		records = []models.NotificationRecord{}
	}
	h.ok(w, records)
}

// PredictiveTraffic handles GET /api/v1/predictive/traffic.
func (h *Handler) PredictiveTraffic(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, h.svc.PredictiveTraffic())
}

// HealthScore handles GET /api/v1/health/score. Data is null until the
// first snapshot exists.
func (h *Handler) HealthScore(w http.ResponseWriter, _ *http.Request) {
	score, ok := h.svc.HealthScore()
	if !ok {
		h.ok(w, nil)
		return
	}
	h.ok(w, score)
}

// ComplianceReport handles GET /api/v1/compliance/report.
func (h *Handler) ComplianceReport(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, h.svc.ComplianceReport())
}

// ServiceHealth is the body of GET /health.
type ServiceHealth struct {
	Status        string             `json:"status"`
	Running       bool               `json:"running"`
	UptimeSeconds float64            `json:"uptimeSeconds"`
	LastTick      *engine.TickResult `json:"lastTick,omitempty"`
	StreamClients int                `json:"streamClients"`

	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// Health handles GET /health. Status is "starting" before the first tick and
// "degraded" when the last snapshot was degraded or the telemetry pipeline
// reports itself unhealthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	s := ServiceHealth{
		Status:        "ok",
		Running:       h.svc.Running(),
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
	if last, ok := h.svc.LastTick(); ok {
		s.LastTick = &last
		if last.Degraded {
			s.Status = "degraded"
		}
	} else {
		s.Status = "starting"
	}
	if h.stream != nil {
		s.StreamClients = h.stream.ClientCount()
	}
	if h.telemetry != nil {
		hs, err := h.telemetry.HealthStatus(r.Context())
		if err != nil {
			hs = telemetry.HealthStatus{Components: map[string]string{"source": err.Error()}, CheckedAt: h.svc.Now()}
		}
		s.Telemetry = &hs
		if !hs.Healthy && s.Status == "ok" {
			s.Status = "degraded"
		}
	}
	h.ok(w, s)
}

// AuditTrail handles GET /api/v1/audit. Optional filters are type,
// target and limit. Returns 404 when no audit log is configured.
func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, r, http.StatusNotFound, "Audit log disabled", nil)
		return
	}

	q := r.URL.Query()
	filter := audit.QueryFilter{
		TargetID: q.Get("target"),
		Limit:    intParam(r, "limit", audit.DefaultQueryLimit),
	}
	if v := q.Get("type"); v != "" {
		typ, ok := audit.ParseEventType(v)
		if !ok {
			respondError(w, r, http.StatusBadRequest, "Invalid audit event type", fmt.Errorf("unknown type %q", v))
			return
		}
		filter.Types = []audit.EventType{typ}
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}
	h.ok(w, events)
}

// intParam parses a positive integer query parameter.
func intParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
