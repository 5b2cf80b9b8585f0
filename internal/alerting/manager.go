// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package alerting owns the alert lifecycle: trigger, cooldown and resolve.
//
// Each rule moves through NoAlert -> Active -> Resolved -> NoAlert. A rule
// may trigger again only once its cooldown has elapsed since its last
// trigger, whether or not that alert has resolved in the meantime.
package alerting

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/rules"
)

// ErrAlertNotFound is returned when an alert ID is unknown.
var ErrAlertNotFound = errors.New("alert not found")

// DefaultHistoryLimit is the page size used when History is called with a
// non-positive limit.
const DefaultHistoryLimit = 100

// DefaultMaxHistory caps the in-memory history list.
const DefaultMaxHistory = 10000

// Archive persists alerts. Implementations must be safe for concurrent use.
type Archive interface {
	SaveAlert(alert *models.Alert) error
	LoadAlerts() ([]models.Alert, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithArchive enables write-through persistence.
func WithArchive(a Archive) Option {
	return func(m *Manager) { m.archive = a }
}

// WithMaxHistory caps the in-memory history. Oldest entries are dropped first.
func WithMaxHistory(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxHistory = n
		}
	}
}

// WithIDGenerator replaces uuid-based alert IDs.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// Manager tracks active alerts, history and per-rule trigger times.
type Manager struct {
	mu          sync.RWMutex
	active      map[string]*models.Alert // by rule ID
	byID        map[string]*models.Alert
	history     []*models.Alert // oldest first
	lastTrigger map[string]time.Time

	maxHistory int
	archive    Archive
	newID      func() string
	logger     zerolog.Logger
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		active:      make(map[string]*models.Alert),
		byID:        make(map[string]*models.Alert),
		lastTrigger: make(map[string]time.Time),
		maxHistory:  DefaultMaxHistory,
		newID:       uuid.NewString,
		logger:      logging.Component("alerting"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads history from the archive. Active alerts come back active and
// each rule's last trigger time is recovered, so cooldowns survive restarts.
func (m *Manager) Restore() (int, error) {
	if m.archive == nil {
		return 0, nil
	}
	alerts, err := m.archive.LoadAlerts()
	if err != nil {
		return 0, fmt.Errorf("restore alerts: %w", err)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].TriggeredAt.Before(alerts[j].TriggeredAt)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range alerts {
		a := alerts[i].Clone()
		if _, dup := m.byID[a.ID]; dup {
			continue
		}
		m.byID[a.ID] = &a
		m.history = append(m.history, &a)
		if last, ok := m.lastTrigger[a.RuleID]; !ok || a.TriggeredAt.After(last) {
			m.lastTrigger[a.RuleID] = a.TriggeredAt
		}
		if a.Status == models.AlertActive {
			// Only one active alert per rule; a newer one wins.
			if prev, ok := m.active[a.RuleID]; ok {
				resolvedAt := a.TriggeredAt
				prev.Status = models.AlertResolved
				prev.ResolvedAt = &resolvedAt
			}
			m.active[a.RuleID] = &a
		}
	}
	m.trimLocked()
	metrics.ActiveAlerts.Set(float64(len(m.active)))
	m.logger.Info().Int("alerts", len(alerts)).Int("active", len(m.active)).Msg("restored alert history")
	return len(alerts), nil
}

// Process applies one tick of rule results and returns the alerts that were
// triggered and resolved by it.
func (m *Manager) Process(now time.Time, in rules.Input, results []rules.Result) (triggered, resolved []models.Alert) {
	m.mu.Lock()
	var changed []*models.Alert
	for i := range results {
		res := &results[i]
		rule := &res.Rule
		current, isActive := m.active[rule.ID]

		switch {
		case res.ShouldAlert && isActive:
			// Still firing; the existing alert stands.
		case res.ShouldAlert && rule.Enabled:
			if !m.cooledDownLocked(rule.ID, rule.Cooldown, now) {
				continue
			}
			a := m.triggerLocked(now, rule, in)
			triggered = append(triggered, a.Clone())
			changed = append(changed, a)
		case !res.ShouldAlert && isActive:
			m.resolveLocked(current, now)
			resolved = append(resolved, current.Clone())
			changed = append(changed, current)
		}
	}
	m.trimLocked()
	metrics.ActiveAlerts.Set(float64(len(m.active)))
	snapshot := cloneAll(changed)
	m.mu.Unlock()

	for i := range triggered {
		metrics.RecordAlertTriggered(triggered[i].RuleID, string(triggered[i].Severity))
		m.logger.Warn().
			Str("alert_id", triggered[i].ID).
			Str("rule_id", triggered[i].RuleID).
			Str("severity", string(triggered[i].Severity)).
			Msg(triggered[i].Message)
	}
	for i := range resolved {
		metrics.RecordAlertResolved(resolved[i].RuleID)
		m.logger.Info().Str("alert_id", resolved[i].ID).Str("rule_id", resolved[i].RuleID).Msg("alert resolved")
	}
	m.persist(snapshot)
	return triggered, resolved
}

// cooledDownLocked reports whether rule may trigger at now.
func (m *Manager) cooledDownLocked(ruleID string, cooldown time.Duration, now time.Time) bool {
	last, ok := m.lastTrigger[ruleID]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

func (m *Manager) triggerLocked(now time.Time, rule *rules.Rule, in rules.Input) *models.Alert {
	a := &models.Alert{
		ID:          m.newID(),
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Severity:    rule.Severity,
		Message:     rule.Render(in),
		Channels:    append([]models.ChannelKind(nil), rule.Channels...),
		TriggeredAt: now,
		Snapshot:    in.Snapshot,
		Status:      models.AlertActive,
	}
	m.lastTrigger[rule.ID] = now
	m.active[rule.ID] = a
	m.byID[a.ID] = a
	m.history = append(m.history, a)
	return a
}

func (m *Manager) resolveLocked(a *models.Alert, now time.Time) {
	at := now
	if at.Before(a.TriggeredAt) {
		at = a.TriggeredAt
	}
	a.Status = models.AlertResolved
	a.ResolvedAt = &at
	delete(m.active, a.RuleID)
}

// trimLocked drops the oldest history entries beyond maxHistory. Active
// alerts stay reachable through the active map.
func (m *Manager) trimLocked() {
	excess := len(m.history) - m.maxHistory
	if excess <= 0 {
		return
	}
	for _, a := range m.history[:excess] {
		if a.Status != models.AlertActive {
			delete(m.byID, a.ID)
		}
	}
	m.history = append([]*models.Alert(nil), m.history[excess:]...)
}

// ResolveRule resolves the active alert for ruleID, if any. Used when a rule
// is disabled at runtime.
func (m *Manager) ResolveRule(ruleID string, now time.Time) (models.Alert, bool) {
	m.mu.Lock()
	a, ok := m.active[ruleID]
	if !ok {
		m.mu.Unlock()
		return models.Alert{}, false
	}
	m.resolveLocked(a, now)
	metrics.ActiveAlerts.Set(float64(len(m.active)))
	out := a.Clone()
	m.mu.Unlock()

	metrics.RecordAlertResolved(ruleID)
	m.persist([]models.Alert{out})
	return out, true
}

// Acknowledge marks an alert as seen by an operator. It does not change the
// alert's lifecycle state.
func (m *Manager) Acknowledge(id string, now time.Time) (models.Alert, error) {
	m.mu.Lock()
	a, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return models.Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	if !a.Acknowledged {
		at := now
		a.Acknowledged = true
		a.AcknowledgedAt = &at
	}
	out := a.Clone()
	m.mu.Unlock()

	m.persist([]models.Alert{out})
	return out, nil
}

// Active returns a copy of the active alerts ordered by trigger time.
func (m *Manager) Active() []models.Alert {
	m.mu.RLock()
	out := make([]models.Alert, 0, len(m.active))
	for _, a := range m.active {
		out = append(out, a.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TriggeredAt.Equal(out[j].TriggeredAt) {
			return out[i].RuleID < out[j].RuleID
		}
		return out[i].TriggeredAt.Before(out[j].TriggeredAt)
	})
	return out
}

// ActiveCount returns the number of active alerts.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// History returns up to limit alerts, newest first.
func (m *Manager) History(limit int) []models.Alert {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := min(limit, len(m.history))
	out := make([]models.Alert, 0, n)
	for i := len(m.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.history[i].Clone())
	}
	return out
}

// Since returns alerts triggered at or after t, oldest first.
func (m *Manager) Since(t time.Time) []models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := sort.Search(len(m.history), func(i int) bool {
		return !m.history[i].TriggeredAt.Before(t)
	})
	out := make([]models.Alert, 0, len(m.history)-i)
	for _, a := range m.history[i:] {
		out = append(out, a.Clone())
	}
	return out
}

// Get returns one alert by ID.
func (m *Manager) Get(id string) (models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return models.Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return a.Clone(), nil
}

// LastTrigger returns the last trigger time of a rule.
func (m *Manager) LastTrigger(ruleID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.lastTrigger[ruleID]
	return t, ok
}

func (m *Manager) persist(alerts []models.Alert) {
	if m.archive == nil {
		return
	}
	for i := range alerts {
		if err := m.archive.SaveAlert(&alerts[i]); err != nil {
			m.logger.Error().Err(err).Str("alert_id", alerts[i].ID).Msg("failed to archive alert")
		}
	}
}

func cloneAll(alerts []*models.Alert) []models.Alert {
	out := make([]models.Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a.Clone()
	}
	return out
}
