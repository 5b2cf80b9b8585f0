// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package cache

import (
	"sort"
	"sync"
	"time"
)

// maxSamplesPerBucket caps the latency samples kept for percentile estimates.
const maxSamplesPerBucket = 512

type bucket struct {
	requests   int64
	errors     int64
	blocked    int64
	latencySum float64
	latencyMax float64
	samples    []float64
}

func (b *bucket) reset() {
	b.requests, b.errors, b.blocked = 0, 0, 0
	b.latencySum, b.latencyMax = 0, 0
	b.samples = b.samples[:0]
}

// WindowSummary aggregates every bucket currently inside the window.
type WindowSummary struct {
	Requests     int64
	Errors       int64
	Blocked      int64
	AvgLatencyMs float64
	MaxLatencyMs float64
	P95LatencyMs float64
	Window       time.Duration
}

// RequestsPerSecond is the average request rate over the window.
func (s WindowSummary) RequestsPerSecond() float64 {
	if s.Window <= 0 {
		return 0
	}
	return float64(s.Requests) / s.Window.Seconds()
}

// ErrorRatePct is the share of requests that failed, in percent.
func (s WindowSummary) ErrorRatePct() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Requests) * 100
}

// RequestWindow is a sliding window of request outcomes.
type RequestWindow struct {
	mu         sync.Mutex
	buckets    []bucket
	bucketSize time.Duration
	windowSize time.Duration
	current    int
	lastUpdate time.Time
	now        func() time.Time
}

// NewRequestWindow creates a window of windowSize split into numBuckets.
// Non-positive arguments fall back to one minute and 12 buckets.
func NewRequestWindow(windowSize time.Duration, numBuckets int) *RequestWindow {
	return NewRequestWindowWithClock(windowSize, numBuckets, time.Now)
}

// NewRequestWindowWithClock is NewRequestWindow with an injectable clock.
func NewRequestWindowWithClock(windowSize time.Duration, numBuckets int, now func() time.Time) *RequestWindow {
	if numBuckets <= 0 {
		numBuckets = 12
	}
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	return &RequestWindow{
		buckets:    make([]bucket, numBuckets),
		bucketSize: windowSize / time.Duration(numBuckets),
		windowSize: windowSize,
		lastUpdate: now(),
		now:        now,
	}
}

// Record adds one completed request to the current bucket.
func (w *RequestWindow) Record(latencyMs float64, failed, blocked bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.advance()
	b := &w.buckets[w.current]
	b.requests++
	if failed {
		b.errors++
	}
	if blocked {
		b.blocked++
	}
	b.latencySum += latencyMs
	if latencyMs > b.latencyMax {
		b.latencyMax = latencyMs
	}
	if len(b.samples) < maxSamplesPerBucket {
		b.samples = append(b.samples, latencyMs)
	}
}

// Summary aggregates the buckets inside the window.
func (w *RequestWindow) Summary() WindowSummary {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.advance()

	sum := WindowSummary{Window: w.windowSize}
	var latencySum float64
	var samples []float64
	for i := range w.buckets {
		b := &w.buckets[i]
		sum.Requests += b.requests
		sum.Errors += b.errors
		sum.Blocked += b.blocked
		latencySum += b.latencySum
		if b.latencyMax > sum.MaxLatencyMs {
			sum.MaxLatencyMs = b.latencyMax
		}
		samples = append(samples, b.samples...)
	}
	if sum.Requests > 0 {
		sum.AvgLatencyMs = latencySum / float64(sum.Requests)
	}
	sum.P95LatencyMs = percentile(samples, 0.95)
	return sum
}

// Reset clears all buckets.
func (w *RequestWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.buckets {
		w.buckets[i].reset()
	}
	w.current = 0
	w.lastUpdate = w.now()
}

// advance rotates out buckets that have aged past the window.
// Must be called with lock held.
func (w *RequestWindow) advance() {
	now := w.now()
	elapsed := int(now.Sub(w.lastUpdate) / w.bucketSize)
	if elapsed <= 0 {
		return
	}

	if elapsed >= len(w.buckets) {
		for i := range w.buckets {
			w.buckets[i].reset()
		}
		w.current = 0
	} else {
		for i := 0; i < elapsed; i++ {
			w.current = (w.current + 1) % len(w.buckets)
			w.buckets[w.current].reset()
		}
	}
	// Keep lastUpdate aligned to bucket boundaries so partial buckets are not lost.
	w.lastUpdate = w.lastUpdate.Add(time.Duration(elapsed) * w.bucketSize)
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	idx := int(float64(len(values)-1) * p)
	return values[idx]
}
