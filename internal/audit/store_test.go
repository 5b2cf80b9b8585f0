// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package audit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	for i := 0; i < 12; i++ {
		s.Save(ctx, &Event{ID: fmt.Sprintf("e%d", i)})
	}

	// Two saves past capacity each evict one event.
	if s.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", s.Len())
	}
	got, _ := s.Query(ctx, QueryFilter{Limit: 20})
	if got[0].ID != "e11" || got[len(got)-1].ID != "e2" {
		t.Errorf("newest = %s, oldest = %s; want e11, e2", got[0].ID, got[len(got)-1].ID)
	}
}

func TestMemoryStore_DefaultSize(t *testing.T) {
	if s := NewMemoryStore(0); s.maxLen != DefaultMaxEvents {
		t.Errorf("maxLen = %d, want %d", s.maxLen, DefaultMaxEvents)
	}
}

func TestMemoryStore_Query(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(100)
	since := t0.Add(-30 * time.Minute)

	events := []Event{
		{ID: "1", Timestamp: t0.Add(-time.Hour), Type: EventTypeAlertAcknowledged, Outcome: OutcomeSuccess, Target: &Target{ID: "a-1", Type: "alert"}},
		{ID: "2", Timestamp: t0.Add(-20 * time.Minute), Type: EventTypeRuleUpdated, Outcome: OutcomeSuccess, Target: &Target{ID: "high_error_rate", Type: "rule"}},
		{ID: "3", Timestamp: t0.Add(-10 * time.Minute), Type: EventTypeAlertAcknowledged, Outcome: OutcomeFailure, Target: &Target{ID: "a-9", Type: "alert"}},
		{ID: "4", Timestamp: t0, Type: EventTypeRuleUpdated, Outcome: OutcomeFailure},
	}
	for i := range events {
		s.Save(ctx, &events[i])
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all newest first", QueryFilter{}, []string{"4", "3", "2", "1"}},
		{"by type", QueryFilter{Types: []EventType{EventTypeAlertAcknowledged}}, []string{"3", "1"}},
		{"by target", QueryFilter{TargetID: "high_error_rate"}, []string{"2"}},
		{"by outcome", QueryFilter{Outcome: OutcomeFailure}, []string{"4", "3"}},
		{"since", QueryFilter{StartTime: &since}, []string{"4", "3", "2"}},
		{"limit", QueryFilter{Limit: 2}, []string{"4", "3"}},
		{"no match", QueryFilter{TargetID: "missing"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("Query() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestParseEventType(t *testing.T) {
	if got, ok := ParseEventType("rule.updated"); !ok || got != EventTypeRuleUpdated {
		t.Errorf("ParseEventType(rule.updated) = %q, %v", got, ok)
	}
	if _, ok := ParseEventType("auth.success"); ok {
		t.Error("ParseEventType(auth.success) accepted an unknown type")
	}
}
