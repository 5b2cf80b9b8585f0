// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package websocket streams engine events to connected clients.

The package uses a hub-and-spoke layout on gorilla/websocket:

  - Hub: owns the client set and fans each Message out to every client
  - Client: one connection with a read pump (pings, close detection) and a
    write pump (messages, keepalive pings)
  - Relay: feeds the hub from a Watermill subscriber, so every instance
    attached to the same NATS stream sees every alert

Message types:

  - alert_triggered, alert_resolved: data is the alert
  - bottlenecks_detected: data is the list of reports from one tick
  - ping / pong: client keepalive

Slow clients whose send buffer is full are disconnected rather than allowed
to block the hub.

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	r.Get("/api/v1/stream", websocket.Handler(hub, []string{"*"}))

	hub.BroadcastJSON(websocket.MessageTypeAlertTriggered, alert)
*/
package websocket
