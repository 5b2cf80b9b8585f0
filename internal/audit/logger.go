// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/perfwatch/internal/logging"
)

// Config holds configuration for the audit logger.
type Config struct {
	// BufferSize is the size of the async write buffer.
	BufferSize int

	// Retention is how long events are kept. Zero keeps them until the
	// store evicts them.
	Retention time.Duration

	// CleanupInterval is how often RunWithContext prunes expired events.
	CleanupInterval time.Duration

	// Clock stamps events. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the defaults used by the server.
func DefaultConfig() Config {
	return Config{
		BufferSize:      256,
		Retention:       30 * 24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// Logger writes audit events to a Store without blocking callers.
type Logger struct {
	cfg    Config
	store  Store
	events chan *Event

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewLogger creates a logger and starts its writer goroutine.
func NewLogger(store Store, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig().CleanupInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	l := &Logger{
		cfg:    cfg,
		store:  store,
		events: make(chan *Event, cfg.BufferSize),
		stop:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

func (l *Logger) writer() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stop:
			for {
				select {
				case event := <-l.events:
					l.write(event)
				default:
					return
				}
			}
		case event := <-l.events:
			l.write(event)
		}
	}
}

func (l *Logger) write(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
		return
	}
	logging.Debug().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("outcome", string(event.Outcome)).
		Msg("Audit event recorded")
}

// Log queues event for writing. A missing ID or timestamp is filled in.
// Events logged after Close are dropped.
func (l *Logger) Log(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.cfg.Clock().UTC()
	}

	select {
	case <-l.stop:
		logging.Warn().Str("event_id", event.ID).Msg("Audit logger closed, dropping event")
		return
	default:
	}

	select {
	case l.events <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Query returns events matching filter, newest first.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Prune deletes events older than the retention period.
func (l *Logger) Prune(ctx context.Context) (int64, error) {
	if l.cfg.Retention <= 0 {
		return 0, nil
	}
	return l.store.Delete(ctx, l.cfg.Clock().Add(-l.cfg.Retention))
}

// RunWithContext prunes expired events every CleanupInterval until ctx is
// cancelled.
func (l *Logger) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := l.Prune(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Audit cleanup error")
			} else if n > 0 {
				logging.Info().Int64("count", n).Msg("Cleaned up old audit events")
			}
		}
	}
}

// Close drains queued events and stops the writer. Safe to call twice.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	l.wg.Wait()
	return nil
}

// FromRequest fills event's source and request ID from r and returns event.
func FromRequest(r *http.Request, event *Event) *Event {
	event.Source = Source{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
	if id := logging.RequestIDFromContext(r.Context()); id != "" {
		event.RequestID = id
	}
	return event
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already rewritten when proxy headers are present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
