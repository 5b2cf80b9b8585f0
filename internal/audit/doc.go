// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package audit records operator actions taken through the HTTP API.
//
// Acknowledging an alert and enabling or disabling a rule change what the
// engine reports and notifies, so each such call is written to an audit
// trail together with the caller's address, the request ID and whether the
// call succeeded.
//
// # Event Types
//
//   - alert.acknowledged: POST /api/v1/alerts/{id}/acknowledge
//   - rule.updated: PUT /api/v1/alerts/rules/{id}
//
// # Usage
//
//	log := audit.NewLogger(audit.NewMemoryStore(0), audit.DefaultConfig())
//	defer log.Close()
//
//	log.Log(audit.FromRequest(r, &audit.Event{
//	    Type:    audit.EventTypeAlertAcknowledged,
//	    Outcome: audit.OutcomeSuccess,
//	    Target:  &audit.Target{ID: id, Type: "alert"},
//	}))
//
// Writes are buffered and applied by a background goroutine, so Log never
// blocks a request. When the buffer is full the event is dropped with a
// warning. Close drains the buffer.
//
// The trail is served at GET /api/v1/audit, newest first.
package audit
