// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package telemetry

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/perfwatch/internal/cache"
	"github.com/tomtom215/perfwatch/internal/logging"
)

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	// Window is the span over which request rates and latencies are summarized.
	Window time.Duration

	// Buckets is the number of window subdivisions.
	Buckets int

	// EventBuffer is the capacity of the request event channel.
	EventBuffer int

	// Instances is reported through ScalingState.
	Instances int

	// SkipPaths are request paths the middleware does not record.
	SkipPaths []string
}

// DefaultCollectorConfig returns the defaults used by the server.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Window:      time.Minute,
		Buckets:     12,
		EventBuffer: 4096,
		Instances:   1,
		SkipPaths:   []string{"/metrics", "/health"},
	}
}

// Collector is an in-process Source fed by completed request events.
type Collector struct {
	cfg    CollectorConfig
	window *cache.RequestWindow
	gauges GaugeReader
	events chan RequestEvent
	skip   map[string]struct{}
	logger zerolog.Logger
	now    func() time.Time

	inFlight atomic.Int64
	dropped  atomic.Int64
	lastSeen atomic.Int64 // unix nanos of the last processed event
}

// NewCollector creates a collector. gauges may be nil, in which case all
// host gauges read as zero.
func NewCollector(cfg CollectorConfig, gauges GaugeReader) *Collector {
	def := DefaultCollectorConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Buckets <= 0 {
		cfg.Buckets = def.Buckets
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if cfg.Instances <= 0 {
		cfg.Instances = def.Instances
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return &Collector{
		cfg:    cfg,
		window: cache.NewRequestWindow(cfg.Window, cfg.Buckets),
		gauges: gauges,
		events: make(chan RequestEvent, cfg.EventBuffer),
		skip:   skip,
		logger: logging.Component("telemetry"),
		now:    time.Now,
	}
}

// Events returns the channel producers push completed requests into.
func (c *Collector) Events() chan<- RequestEvent {
	return c.events
}

// Submit enqueues an event without blocking. It returns false when the
// buffer is full and the event was dropped.
func (c *Collector) Submit(ev RequestEvent) bool {
	select {
	case c.events <- ev:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Record applies an event to the window immediately.
func (c *Collector) Record(ev RequestEvent) {
	c.window.Record(ev.DurationMs, ev.Failed(), ev.Blocked())
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	c.lastSeen.Store(ts.UnixNano())
}

// Dropped returns the number of events discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// RunWithContext drains the event channel until ctx is canceled.
func (c *Collector) RunWithContext(ctx context.Context) error {
	c.logger.Info().Dur("window", c.cfg.Window).Msg("telemetry collector started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Int64("dropped_events", c.dropped.Load()).Msg("telemetry collector stopped")
			return ctx.Err()
		case ev := <-c.events:
			c.Record(ev)
		}
	}
}

// LatestMetrics summarizes the window and reads host gauges.
func (c *Collector) LatestMetrics(ctx context.Context) (RawCounters, error) {
	sum := c.window.Summary()
	raw := RawCounters{
		Requests:      sum.Requests,
		Errors:        sum.Errors,
		Blocked:       sum.Blocked,
		ThroughputRPS: sum.RequestsPerSecond(),
		ErrorRatePct:  sum.ErrorRatePct(),
		AvgLatencyMs:  sum.AvgLatencyMs,
		P95LatencyMs:  sum.P95LatencyMs,
		MaxLatencyMs:  sum.MaxLatencyMs,
		InFlight:      int(c.inFlight.Load()),
		CollectedAt:   c.now(),
	}

	if c.gauges != nil {
		g, err := c.gauges.Read(ctx)
		if err != nil {
			return RawCounters{}, err
		}
		raw.CPUPct = g.CPUPct
		raw.MemPct = g.MemPct
		raw.DiskPct = g.DiskPct
		raw.NetworkLatencyMs = g.NetworkLatencyMs
	}
	return raw, nil
}

// ScalingState reports a single-process topology.
func (c *Collector) ScalingState(_ context.Context) (ScalingState, error) {
	return ScalingState{Instances: c.cfg.Instances, BreakerState: "closed"}, nil
}

// HealthStatus reports queue pressure and event freshness.
func (c *Collector) HealthStatus(_ context.Context) (HealthStatus, error) {
	components := map[string]string{"event_queue": "ok", "gauges": "ok"}
	healthy := true

	if len(c.events) >= cap(c.events)*9/10 {
		components["event_queue"] = "saturated"
		healthy = false
	}
	if c.gauges == nil {
		components["gauges"] = "disabled"
	}
	if last := c.lastSeen.Load(); last == 0 {
		components["requests"] = "idle"
	} else {
		components["requests"] = "ok"
	}

	return HealthStatus{Healthy: healthy, Components: components, CheckedAt: c.now()}, nil
}

// Middleware records every request that passes through next.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := c.skip[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		c.inFlight.Add(1)
		defer c.inFlight.Add(-1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		c.Submit(RequestEvent{
			DurationMs: float64(time.Since(start).Microseconds()) / 1000,
			StatusCode: rec.status,
			Method:     r.Method,
			Path:       r.URL.Path,
			Timestamp:  start,
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
