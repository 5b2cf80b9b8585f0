// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package services

import (
	"context"
)

// ContextHub is satisfied by *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService runs the stream hub. The hub already follows the
// suture.Service contract, so Serve only delegates.
type WebSocketHubService struct {
	hub ContextHub
}

// NewWebSocketHubService wraps hub.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{hub: hub}
}

// Serve implements suture.Service.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

func (w *WebSocketHubService) String() string {
	return "websocket-hub"
}

// Runner is satisfied by *websocket.Relay.
type Runner interface {
	Run(ctx context.Context) error
}

// EventRelayService forwards bus events to stream clients. It is only
// added when events travel over NATS.
type EventRelayService struct {
	relay Runner
}

// NewEventRelayService wraps relay.
func NewEventRelayService(relay Runner) *EventRelayService {
	return &EventRelayService{relay: relay}
}

// Serve implements suture.Service. A relay that stops before ctx is done
// is restarted by the supervisor, which resubscribes.
func (r *EventRelayService) Serve(ctx context.Context) error {
	return r.relay.Run(ctx)
}

func (r *EventRelayService) String() string {
	return "event-relay"
}
