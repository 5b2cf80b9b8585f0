// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
)

// Topics published by the engine. JetStream stream names may not contain
// dots, so topics use underscores.
const (
	TopicAlertTriggered      = "perfwatch_alert_triggered"
	TopicAlertResolved       = "perfwatch_alert_resolved"
	TopicBottlenecksDetected = "perfwatch_bottlenecks_detected"
	TopicTickCompleted       = "perfwatch_tick_completed"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// PublisherConfig selects and tunes the Watermill backend.
type PublisherConfig struct {
	// NATSURL enables the NATS JetStream publisher. Empty uses an in-process
	// GoChannel.
	NATSURL string

	MaxReconnects int
	ReconnectWait time.Duration

	// TrackMsgID sets Nats-Msg-Id for JetStream deduplication.
	TrackMsgID bool

	// OutputBuffer is the GoChannel subscriber buffer.
	OutputBuffer int64
}

// DefaultPublisherConfig returns an in-process configuration.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		TrackMsgID:    true,
		OutputBuffer:  64,
	}
}

// Publisher publishes JSON events through Watermill with a circuit breaker.
type Publisher struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	cb         *gobreaker.CircuitBreaker[struct{}]
	backend    string

	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates the publisher selected by cfg.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	logger := logging.NewWatermillLogger(logging.Component("events"))
	p := &Publisher{cb: newPublishBreaker()}

	if cfg.NATSURL == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.OutputBuffer}, logger)
		p.publisher = ch
		p.subscriber = ch
		p.backend = "gochannel"
		return p, nil
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    cfg.TrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	sub, err := newNATSSubscriber(cfg, logger)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	p.publisher = pub
	p.subscriber = sub
	p.backend = "nats"
	return p, nil
}

func newPublishBreaker() *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "event-publisher",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from, to)
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("event publisher breaker state changed")
		},
	})
}

// Backend returns "gochannel" or "nats".
func (p *Publisher) Backend() string { return p.backend }

// Subscriber returns a subscriber on the same backend. For GoChannel it is
// the publisher itself.
func (p *Publisher) Subscriber() message.Subscriber { return p.subscriber }

// PublishJSON marshals v and publishes it on topic. An empty id gets a uuid.
func (p *Publisher) PublishJSON(ctx context.Context, topic, id string, v any) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}

	msg := message.NewMessage(id, payload)
	msg.Metadata.Set("topic", topic)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set("correlation_id", cid)
	}
	if p.backend == "nats" {
		msg.Metadata.Set(natsgo.MsgIdHdr, id)
	}
	msg.SetContext(ctx)

	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic, "success").Inc()
	return nil
}

// Close shuts the publisher down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.publisher.Close()
	if p.backend == "nats" {
		err = errors.Join(err, p.subscriber.Close())
	}
	return err
}
