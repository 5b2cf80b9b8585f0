// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package websocket

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/logging"
)

// Relay forwards bus messages to the hub. Payloads are passed through as raw
// JSON under the message type mapped from their topic.
type Relay struct {
	hub    *Hub
	sub    message.Subscriber
	topics map[string]string // topic -> message type
}

// NewRelay creates a relay for topics, keyed by topic with the stream
// message type as value.
func NewRelay(hub *Hub, sub message.Subscriber, topics map[string]string) *Relay {
	t := make(map[string]string, len(topics))
	for k, v := range topics {
		t[k] = v
	}
	return &Relay{hub: hub, sub: sub, topics: t}
}

// Run subscribes to every topic and forwards until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for topic, msgType := range r.topics {
		messages, err := r.sub.Subscribe(ctx, topic)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.forward(ctx, msgType, messages)
		}()
	}

	logging.Info().Int("topics", len(r.topics)).Msg("stream relay started")
	<-ctx.Done()
	wg.Wait()
	logging.Info().Msg("stream relay stopped")
	return ctx.Err()
}

func (r *Relay) forward(ctx context.Context, msgType string, messages <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			r.handle(msgType, msg)
		}
	}
}

func (r *Relay) handle(msgType string, msg *message.Message) {
	defer msg.Ack()

	if !json.Valid(msg.Payload) {
		logging.Warn().Str("message_id", msg.UUID).Str("message_type", msgType).Msg("dropping non-JSON bus message")
		return
	}
	r.hub.BroadcastJSON(msgType, json.RawMessage(msg.Payload))
}
