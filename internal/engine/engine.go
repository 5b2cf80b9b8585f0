// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package engine drives the sampling and alerting pipeline.
//
// Each tick builds a snapshot, stores it, evaluates the rule table, applies
// the alert lifecycle and hands newly triggered alerts to the notification
// dispatcher without waiting for delivery. Ticks never overlap: a tick that
// finds the previous one still running is skipped. A second loop refreshes
// the traffic forecast on its own interval.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/perfwatch/internal/alerting"
	"github.com/tomtom215/perfwatch/internal/analysis"
	"github.com/tomtom215/perfwatch/internal/events"
	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/notify"
	"github.com/tomtom215/perfwatch/internal/rules"
	"github.com/tomtom215/perfwatch/internal/timeseries"
)

// Window sizes used by ticks and queries.
const (
	RuleWindow       = time.Hour
	BehaviorWindow   = 24 * time.Hour
	PredictiveWindow = 24 * time.Hour
)

// SnapshotBuilder produces one snapshot per tick. It must not block longer
// than its own timeout.
type SnapshotBuilder interface {
	Build(ctx context.Context) models.Snapshot
}

// Dispatcher starts notification sends for an alert without waiting.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert models.Alert, channels []models.ChannelKind) int
}

// EventPublisher forwards events to an external bus.
type EventPublisher interface {
	PublishJSON(ctx context.Context, topic, id string, v any) error
}

// Broadcaster pushes messages to connected stream clients.
type Broadcaster interface {
	BroadcastJSON(messageType string, data any)
}

// Config holds engine timing and analysis settings.
type Config struct {
	TickInterval       time.Duration
	PredictiveInterval time.Duration

	// MaxBottlenecks is how many recent bottleneck reports are kept.
	MaxBottlenecks int

	Thresholds analysis.Thresholds
	CostRates  analysis.CostRates
	Compliance analysis.ComplianceTargets
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:       60 * time.Second,
		PredictiveInterval: 5 * time.Minute,
		MaxBottlenecks:     50,
		Thresholds:         analysis.DefaultThresholds(),
		CostRates:          analysis.DefaultCostRates(),
		Compliance:         analysis.DefaultComplianceTargets(),
	}
}

// Deps are the collaborators an Engine owns or drives.
type Deps struct {
	Builder    SnapshotBuilder
	Store      *timeseries.Store
	Rules      *rules.Engine
	Alerts     *alerting.Manager
	Dispatcher Dispatcher

	// Optional.
	Records     *notify.RecordStore
	Publisher   EventPublisher
	Broadcaster Broadcaster
	Clock       func() time.Time
}

// TickResult summarizes one completed tick.
type TickResult struct {
	At          time.Time     `json:"at"`
	Degraded    bool          `json:"degraded"`
	Triggered   int           `json:"triggered"`
	Resolved    int           `json:"resolved"`
	RuleErrors  int           `json:"ruleErrors"`
	Bottlenecks int           `json:"bottlenecks"`
	Duration    time.Duration `json:"duration"`
}

// Engine is the tick orchestrator and query facade.
type Engine struct {
	cfg   Config
	deps  Deps
	now   func() time.Time
	log   zerolog.Logger
	ticks sync.Mutex // held for the duration of one tick

	// ruleMu spans Evaluate and Process so a rule toggle never lands
	// between them.
	ruleMu sync.Mutex

	// Typed outputs. Subscribers receive on buffered channels.
	AlertTriggered      *events.Broker[models.Alert]
	AlertResolved       *events.Broker[models.Alert]
	BottlenecksDetected *events.Broker[[]models.BottleneckReport]
	TickCompleted       *events.Broker[TickResult]

	mu          sync.RWMutex
	bottlenecks []models.BottleneckReport // newest first
	forecast    *analysis.PredictiveTraffic
	lastTick    *TickResult

	loopMu           sync.Mutex
	cancelTick       context.CancelFunc
	cancelPredictive context.CancelFunc
}

// ErrAlreadyRunning is returned by Run when the loops are already started.
var ErrAlreadyRunning = errors.New("engine already running")

// New validates deps and creates an engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	switch {
	case deps.Builder == nil:
		return nil, errors.New("engine: snapshot builder is required")
	case deps.Store == nil:
		return nil, errors.New("engine: time-series store is required")
	case deps.Rules == nil:
		return nil, errors.New("engine: rule engine is required")
	case deps.Alerts == nil:
		return nil, errors.New("engine: alert manager is required")
	case deps.Dispatcher == nil:
		return nil, errors.New("engine: dispatcher is required")
	}

	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.PredictiveInterval <= 0 {
		cfg.PredictiveInterval = def.PredictiveInterval
	}
	if cfg.MaxBottlenecks <= 0 {
		cfg.MaxBottlenecks = def.MaxBottlenecks
	}
	if cfg.Thresholds == (analysis.Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	if cfg.CostRates == (analysis.CostRates{}) {
		cfg.CostRates = def.CostRates
	}
	if cfg.Compliance == (analysis.ComplianceTargets{}) {
		cfg.Compliance = def.Compliance
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		cfg:                 cfg,
		deps:                deps,
		now:                 now,
		log:                 logging.Component("engine"),
		AlertTriggered:      events.NewBroker[models.Alert](events.TopicAlertTriggered, 0),
		AlertResolved:       events.NewBroker[models.Alert](events.TopicAlertResolved, 0),
		BottlenecksDetected: events.NewBroker[[]models.BottleneckReport](events.TopicBottlenecksDetected, 0),
		TickCompleted:       events.NewBroker[TickResult](events.TopicTickCompleted, 0),
	}
	e.resolveDisabled()
	return e, nil
}

// resolveDisabled resolves active alerts whose rule is disabled, such as
// alerts restored from the archive after a config override turned the rule
// off. Nothing else would ever resolve them.
func (e *Engine) resolveDisabled() {
	for _, r := range e.deps.Rules.Rules() {
		if r.Enabled {
			continue
		}
		if a, ok := e.deps.Alerts.ResolveRule(r.ID, e.now()); ok {
			e.log.Info().Str("rule_id", r.ID).Str("alert_id", a.ID).Msg("resolved alert of disabled rule")
			e.emitAlert(context.Background(), e.AlertResolved, events.TopicAlertResolved, "alert_resolved", a)
		}
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Tick runs one pipeline pass. It returns false without doing anything when
// a previous tick is still running.
func (e *Engine) Tick(ctx context.Context) (TickResult, bool) {
	if !e.ticks.TryLock() {
		metrics.RecordTick("skipped", 0)
		e.log.Warn().Msg("previous tick still running, skipping")
		return TickResult{}, false
	}
	defer e.ticks.Unlock()

	ctx = logging.ContextWithNewCorrelationID(ctx)
	start := time.Now()
	result, err := e.runTick(ctx)
	if err != nil {
		metrics.RecordTick("panic", time.Since(start))
		logging.Ctx(ctx).Error().Err(err).Msg("tick aborted")
		return result, true
	}
	result.Duration = time.Since(start)

	outcome := "ok"
	if result.Degraded {
		outcome = "degraded"
	}
	metrics.RecordTick(outcome, result.Duration)

	e.mu.Lock()
	r := result
	e.lastTick = &r
	e.mu.Unlock()

	e.TickCompleted.Publish(result)
	return result, true
}

// runTick recovers panics from any stage so the loop keeps running.
func (e *Engine) runTick(ctx context.Context) (result TickResult, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("tick panicked: %v", v)
		}
	}()

	snap := e.deps.Builder.Build(ctx)
	result.At = snap.Timestamp
	result.Degraded = snap.Degraded

	if !e.deps.Store.Insert(snap) {
		logging.Ctx(ctx).Debug().Time("timestamp", snap.Timestamp).Msg("snapshot already stored for this timestamp")
	}
	metrics.StoredSnapshots.Set(float64(e.deps.Store.Len()))

	in := rules.Input{Snapshot: snap, Window: e.deps.Store.Recent(RuleWindow)}
	triggered, resolved, errs := e.evaluate(snap.Timestamp, in)
	result.RuleErrors = len(errs)
	result.Triggered = len(triggered)
	result.Resolved = len(resolved)

	for i := range triggered {
		a := triggered[i]
		e.deps.Dispatcher.Dispatch(ctx, a, a.Channels)
		e.emitAlert(ctx, e.AlertTriggered, events.TopicAlertTriggered, "alert_triggered", a)
	}
	for i := range resolved {
		e.emitAlert(ctx, e.AlertResolved, events.TopicAlertResolved, "alert_resolved", resolved[i])
	}

	reports := analysis.DetectBottlenecks(&snap, e.cfg.Thresholds)
	result.Bottlenecks = len(reports)
	if len(reports) > 0 {
		e.recordBottlenecks(reports)
		e.BottlenecksDetected.Publish(reports)
		e.publish(ctx, events.TopicBottlenecksDetected, "", reports)
		if e.deps.Broadcaster != nil {
			e.deps.Broadcaster.BroadcastJSON("bottlenecks_detected", reports)
		}
	}

	logging.Ctx(ctx).Debug().
		Bool("degraded", result.Degraded).
		Int("triggered", result.Triggered).
		Int("resolved", result.Resolved).
		Int("rule_errors", result.RuleErrors).
		Int("bottlenecks", result.Bottlenecks).
		Msg("tick completed")
	return result, nil
}

// evaluate runs the rules and applies their results to the alert manager.
func (e *Engine) evaluate(now time.Time, in rules.Input) (triggered, resolved []models.Alert, errs []error) {
	e.ruleMu.Lock()
	defer e.ruleMu.Unlock()

	results, errs := e.deps.Rules.Evaluate(in)
	triggered, resolved = e.deps.Alerts.Process(now, in, results)
	return triggered, resolved, errs
}

func (e *Engine) emitAlert(ctx context.Context, b *events.Broker[models.Alert], topic, messageType string, a models.Alert) {
	b.Publish(a)
	e.publish(ctx, topic, a.ID+":"+string(a.Status), a)
	if e.deps.Broadcaster != nil {
		e.deps.Broadcaster.BroadcastJSON(messageType, a)
	}
}

func (e *Engine) publish(ctx context.Context, topic, id string, v any) {
	if e.deps.Publisher == nil {
		return
	}
	if err := e.deps.Publisher.PublishJSON(ctx, topic, id, v); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}

func (e *Engine) recordBottlenecks(reports []models.BottleneckReport) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Newest tick first; detection order within a tick.
	merged := make([]models.BottleneckReport, 0, len(reports)+len(e.bottlenecks))
	merged = append(merged, reports...)
	merged = append(merged, e.bottlenecks...)
	if len(merged) > e.cfg.MaxBottlenecks {
		merged = merged[:e.cfg.MaxBottlenecks]
	}
	e.bottlenecks = merged
}

// RefreshForecast recomputes the traffic forecast from the last day.
func (e *Engine) RefreshForecast() analysis.PredictiveTraffic {
	window := e.deps.Store.Recent(PredictiveWindow)
	p := analysis.PredictTraffic(window, e.now())

	result := "ok"
	if p.InsufficientData {
		result = "insufficient_data"
	}
	metrics.PredictiveRuns.WithLabelValues(result).Inc()

	e.mu.Lock()
	e.forecast = &p
	e.mu.Unlock()

	e.log.Debug().Int("samples", p.Samples).Bool("insufficient_data", p.InsufficientData).Msg("forecast refreshed")
	return p
}

// SetRuleEnabled toggles a rule. Disabling a rule resolves its active alert.
// A toggle issued during a tick waits until that tick's alerts are processed.
func (e *Engine) SetRuleEnabled(id string, enabled bool) error {
	a, ok, err := e.toggleRule(id, enabled)
	if err != nil {
		return err
	}
	if ok {
		e.emitAlert(context.Background(), e.AlertResolved, events.TopicAlertResolved, "alert_resolved", a)
	}
	return nil
}

func (e *Engine) toggleRule(id string, enabled bool) (models.Alert, bool, error) {
	e.ruleMu.Lock()
	defer e.ruleMu.Unlock()

	if err := e.deps.Rules.SetEnabled(id, enabled); err != nil {
		return models.Alert{}, false, err
	}
	if enabled {
		return models.Alert{}, false, nil
	}
	a, ok := e.deps.Alerts.ResolveRule(id, e.now())
	return a, ok, nil
}

// Close closes the output brokers. Call after the loops have stopped.
func (e *Engine) Close() {
	e.AlertTriggered.Close()
	e.AlertResolved.Close()
	e.BottlenecksDetected.Close()
	e.TickCompleted.Close()
}
