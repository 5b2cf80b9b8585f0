// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package audit

import (
	"context"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeAlertAcknowledged EventType = "alert.acknowledged"
	EventTypeRuleUpdated       EventType = "rule.updated"
)

// ParseEventType returns the event type named by s.
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(s); t {
	case EventTypeAlertAcknowledged, EventTypeRuleUpdated:
		return t, true
	}
	return "", false
}

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one recorded operator action.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Outcome   Outcome   `json:"outcome"`
	Source    Source    `json:"source"`
	Target    *Target   `json:"target,omitempty"`

	// Action is a short verb phrase, e.g. "acknowledge" or "disable".
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`

	RequestID string `json:"requestId,omitempty"`
}

// Target is the object of an action.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Source is where a request came from.
type Source struct {
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	// Query returns matching events, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	// Delete removes events older than olderThan and reports how many.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter selects audit events. Zero fields match everything.
type QueryFilter struct {
	Types     []EventType
	TargetID  string
	Outcome   Outcome
	StartTime *time.Time
	Limit     int
}

// DefaultQueryLimit caps results when a filter sets no limit.
const DefaultQueryLimit = 100

// Matches reports whether event satisfies every criterion of f.
func (f *QueryFilter) Matches(event *Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if event.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TargetID != "" && (event.Target == nil || event.Target.ID != f.TargetID) {
		return false
	}
	if f.Outcome != "" && event.Outcome != f.Outcome {
		return false
	}
	if f.StartTime != nil && event.Timestamp.Before(*f.StartTime) {
		return false
	}
	return true
}
