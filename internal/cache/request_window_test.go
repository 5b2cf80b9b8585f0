// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package cache

import (
	"math"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestRequestWindow_Summary(t *testing.T) {
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	w := NewRequestWindowWithClock(time.Minute, 6, clock.now)

	w.Record(100, false, false)
	w.Record(300, true, false)
	w.Record(200, false, true)
	w.Record(400, true, false)

	s := w.Summary()
	if s.Requests != 4 {
		t.Errorf("Requests = %d, want 4", s.Requests)
	}
	if s.Errors != 2 {
		t.Errorf("Errors = %d, want 2", s.Errors)
	}
	if s.Blocked != 1 {
		t.Errorf("Blocked = %d, want 1", s.Blocked)
	}
	if s.AvgLatencyMs != 250 {
		t.Errorf("AvgLatencyMs = %v, want 250", s.AvgLatencyMs)
	}
	if s.MaxLatencyMs != 400 {
		t.Errorf("MaxLatencyMs = %v, want 400", s.MaxLatencyMs)
	}
	if got := s.ErrorRatePct(); got != 50 {
		t.Errorf("ErrorRatePct() = %v, want 50", got)
	}
	if got := s.RequestsPerSecond(); math.Abs(got-4.0/60) > 1e-9 {
		t.Errorf("RequestsPerSecond() = %v, want %v", got, 4.0/60)
	}
}

func TestRequestWindow_Expiration(t *testing.T) {
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	w := NewRequestWindowWithClock(time.Minute, 6, clock.now)

	w.Record(50, false, false)
	clock.advance(30 * time.Second)
	w.Record(70, false, false)

	if got := w.Summary().Requests; got != 2 {
		t.Fatalf("Requests = %d, want 2", got)
	}

	// First bucket rotates out, second remains.
	clock.advance(40 * time.Second)
	if got := w.Summary().Requests; got != 1 {
		t.Errorf("Requests after partial expiry = %d, want 1", got)
	}

	clock.advance(2 * time.Minute)
	if got := w.Summary().Requests; got != 0 {
		t.Errorf("Requests after full expiry = %d, want 0", got)
	}
}

func TestRequestWindow_P95(t *testing.T) {
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	w := NewRequestWindowWithClock(time.Minute, 1, clock.now)

	for i := 1; i <= 100; i++ {
		w.Record(float64(i), false, false)
	}
	if got := w.Summary().P95LatencyMs; got != 95 {
		t.Errorf("P95LatencyMs = %v, want 95", got)
	}
}

func TestRequestWindow_EmptyAndReset(t *testing.T) {
	w := NewRequestWindow(0, 0)

	s := w.Summary()
	if s.Window != time.Minute {
		t.Errorf("default Window = %v, want 1m", s.Window)
	}
	if s.ErrorRatePct() != 0 || s.AvgLatencyMs != 0 || s.P95LatencyMs != 0 {
		t.Errorf("empty summary not zero: %+v", s)
	}

	w.Record(10, true, false)
	w.Reset()
	if got := w.Summary().Requests; got != 0 {
		t.Errorf("Requests after Reset = %d, want 0", got)
	}
}

func TestRequestWindow_Concurrent(t *testing.T) {
	w := NewRequestWindow(time.Minute, 12)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				w.Record(1, false, false)
			}
		}()
	}
	wg.Wait()

	if got := w.Summary().Requests; got != 800 {
		t.Errorf("Requests = %d, want 800", got)
	}
}
