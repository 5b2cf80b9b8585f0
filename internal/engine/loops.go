// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run starts the tick loop and the predictive loop and blocks until both
// have stopped, either because ctx is done or Stop was called. Each loop has
// its own cancel handle.
func (e *Engine) Run(ctx context.Context) error {
	e.loopMu.Lock()
	if e.cancelTick != nil {
		e.loopMu.Unlock()
		return ErrAlreadyRunning
	}
	tickCtx, cancelTick := context.WithCancel(ctx)
	predCtx, cancelPredictive := context.WithCancel(ctx)
	e.cancelTick, e.cancelPredictive = cancelTick, cancelPredictive
	e.loopMu.Unlock()

	defer func() {
		e.loopMu.Lock()
		e.cancelTick, e.cancelPredictive = nil, nil
		e.loopMu.Unlock()
		cancelTick()
		cancelPredictive()
	}()

	e.log.Info().
		Dur("tick_interval", e.cfg.TickInterval).
		Dur("predictive_interval", e.cfg.PredictiveInterval).
		Msg("engine loops starting")

	var g errgroup.Group
	g.Go(func() error {
		e.loop(tickCtx, e.cfg.TickInterval, func() {
			// An in-flight tick finishes even if Stop arrives mid-way.
			e.Tick(context.WithoutCancel(tickCtx))
		})
		return nil
	})
	g.Go(func() error {
		e.loop(predCtx, e.cfg.PredictiveInterval, func() {
			e.RefreshForecast()
		})
		return nil
	})
	err := g.Wait()

	e.log.Info().Msg("engine loops stopped")
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	return e.cancelTick != nil
}

// Stop cancels both loops. In-flight work is not interrupted.
func (e *Engine) Stop() {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.cancelTick != nil {
		e.cancelTick()
	}
	if e.cancelPredictive != nil {
		e.cancelPredictive()
	}
}

// loop runs fn immediately and then on every interval until ctx is done.
// Each call runs in its own goroutine so a slow pass cannot delay the
// ticker; overlapping ticks are rejected by Tick itself. loop returns once
// every call it started has finished.
func (e *Engine) loop(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	run := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			run()
		}
	}
}
