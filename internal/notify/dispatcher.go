// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
	"github.com/tomtom215/perfwatch/internal/models"
)

// MaxChannelsPerAlert bounds the fan-out of a single dispatch.
const MaxChannelsPerAlert = 3

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// SendTimeout bounds each channel attempt.
	SendTimeout time.Duration

	// MinInterval paces consecutive sends on the same channel.
	MinInterval time.Duration

	// Burst is the number of sends allowed back to back before pacing applies.
	Burst int
}

// DefaultDispatcherConfig returns the default configuration.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		SendTimeout: 15 * time.Second,
		MinInterval: 500 * time.Millisecond,
		Burst:       5,
	}
}

// Dispatcher fans triggered alerts out to their channels.
type Dispatcher struct {
	channels map[models.ChannelKind]Channel
	limiters map[models.ChannelKind]*rate.Limiter
	store    *RecordStore
	cfg      DispatcherConfig
	now      func() time.Time
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher writing records to store. Channels are
// registered by Kind; a later channel of the same kind replaces an earlier one.
func NewDispatcher(store *RecordStore, cfg DispatcherConfig, channels ...Channel) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if store == nil {
		store = NewRecordStore(0, nil)
	}

	d := &Dispatcher{
		channels: make(map[models.ChannelKind]Channel, len(channels)),
		limiters: make(map[models.ChannelKind]*rate.Limiter, len(channels)),
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		logger:   logging.Component("dispatcher"),
	}
	for _, ch := range channels {
		d.channels[ch.Kind()] = ch
		d.limiters[ch.Kind()] = rate.NewLimiter(rate.Every(cfg.MinInterval), cfg.Burst)
	}
	return d
}

// Records returns the store the dispatcher writes to.
func (d *Dispatcher) Records() *RecordStore { return d.store }

// Dispatch starts one send per distinct channel and returns without waiting.
// It returns the number of sends started. Cancellation of ctx does not abort
// sends already started; each is bounded by the configured send timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert, channels []models.ChannelKind) int {
	kinds := dedupe(channels)
	if len(kinds) > MaxChannelsPerAlert {
		d.logger.Warn().
			Str("alert_id", alert.ID).
			Int("channels", len(kinds)).
			Msg("alert lists more channels than allowed; extra channels ignored")
		kinds = kinds[:MaxChannelsPerAlert]
	}

	base := context.WithoutCancel(ctx)
	for _, kind := range kinds {
		d.wg.Add(1)
		go func(kind models.ChannelKind) {
			defer d.wg.Done()
			d.deliver(base, &alert, kind)
		}(kind)
	}
	return len(kinds)
}

// Wait blocks until all started sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for in-flight sends or until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification sends still in flight: %w", ctx.Err())
	}
}

func (d *Dispatcher) deliver(ctx context.Context, alert *models.Alert, kind models.ChannelKind) {
	start := d.now()
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	err := d.send(ctx, alert, kind)

	record := models.NotificationRecord{
		AlertID:   alert.ID,
		RuleID:    alert.RuleID,
		Channel:   kind,
		Status:    models.NotificationSent,
		Timestamp: d.now(),
	}
	if err != nil {
		record.Status = models.NotificationFailed
		record.Error = err.Error()
		record.ErrorCode = ErrorCode(err)
		d.logger.Error().
			Err(err).
			Str("alert_id", alert.ID).
			Str("channel", string(kind)).
			Str("error_code", record.ErrorCode).
			Msg("notification failed")
	} else {
		d.logger.Debug().Str("alert_id", alert.ID).Str("channel", string(kind)).Msg("notification sent")
	}

	d.store.Add(record)
	metrics.RecordNotification(string(kind), string(record.Status), d.now().Sub(start))
}

func (d *Dispatcher) send(ctx context.Context, alert *models.Alert, kind models.ChannelKind) (err error) {
	ch, ok := d.channels[kind]
	if !ok {
		return &ConfigurationError{Channel: kind, Reason: "no channel registered"}
	}

	defer func() {
		if v := recover(); v != nil {
			err = &TransportError{Channel: kind, Code: ErrorCodeUnknown, Err: fmt.Errorf("channel panicked: %v", v)}
		}
	}()

	if lim := d.limiters[kind]; lim != nil {
		if werr := lim.Wait(ctx); werr != nil {
			return &TransportError{Channel: kind, Code: ErrorCodeRateLimited, Err: werr}
		}
	}
	return ch.Send(ctx, alert)
}

func dedupe(channels []models.ChannelKind) []models.ChannelKind {
	seen := make(map[models.ChannelKind]struct{}, len(channels))
	out := make([]models.ChannelKind, 0, len(channels))
	for _, c := range channels {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
