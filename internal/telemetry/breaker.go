// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
)

// BreakerConfig configures the circuit breaker guarding a Source.
type BreakerConfig struct {
	Name string

	// Timeout bounds every call to the wrapped source.
	Timeout time.Duration

	// MaxRequests allowed while half-open.
	MaxRequests uint32

	// Interval after which closed-state counts reset.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// ConsecutiveFailures that trip the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns the defaults used by the server.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "telemetry-source",
		Timeout:             5 * time.Second,
		MaxRequests:         1,
		Interval:            time.Minute,
		OpenTimeout:         2 * time.Minute,
		ConsecutiveFailures: 3,
	}
}

// BreakerSource guards a Source with a per-call timeout and a circuit breaker.
// When the breaker is open, calls fail fast and ScalingState reports
// CircuitBreakerOpen so the corresponding rule can fire.
type BreakerSource struct {
	inner   Source
	cb      *gobreaker.CircuitBreaker[RawCounters]
	timeout time.Duration
	name    string
}

// NewBreakerSource wraps inner.
func NewBreakerSource(inner Source, cfg BreakerConfig) *BreakerSource {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	threshold := cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[RawCounters](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("telemetry circuit breaker state change")
			metrics.RecordBreakerTransition(name, from, to)
		},
	})

	return &BreakerSource{inner: inner, cb: cb, timeout: cfg.Timeout, name: cfg.Name}
}

// LatestMetrics reads through the breaker under the configured timeout.
func (b *BreakerSource) LatestMetrics(ctx context.Context) (RawCounters, error) {
	raw, err := b.cb.Execute(func() (RawCounters, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return callWithDeadline(callCtx, b.inner.LatestMetrics)
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return RawCounters{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return raw, err
}

// ScalingState merges the breaker state into the inner source's state.
func (b *BreakerSource) ScalingState(ctx context.Context) (ScalingState, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	state, err := callWithDeadline(callCtx, b.inner.ScalingState)
	if err != nil {
		state = ScalingState{}
	}
	st := b.cb.State()
	state.BreakerState = st.String()
	state.CircuitBreakerOpen = st == gobreaker.StateOpen
	return state, nil
}

// HealthStatus passes through with a timeout and adds the breaker state.
func (b *BreakerSource) HealthStatus(ctx context.Context) (HealthStatus, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	hs, err := callWithDeadline(callCtx, b.inner.HealthStatus)
	if err != nil {
		hs = HealthStatus{Components: map[string]string{"source": err.Error()}, CheckedAt: time.Now()}
	}
	if hs.Components == nil {
		hs.Components = map[string]string{}
	}
	st := b.cb.State()
	hs.Components["circuit_breaker"] = st.String()
	if st == gobreaker.StateOpen {
		hs.Healthy = false
	}
	return hs, nil
}

// State returns the current breaker state.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

// callWithDeadline runs fn in a goroutine so a source that ignores its
// context still cannot stall the caller past ctx's deadline.
func callWithDeadline[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}
