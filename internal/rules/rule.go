// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package rules holds the alert rule table and evaluates it against snapshots.
//
// A rule is plain data plus a predicate closure. Predicates receive the rule
// itself so configured thresholds apply without rebuilding closures, and an
// Input carrying the snapshot and the recent window for rules that compare
// against history.
package rules

import (
	"fmt"
	"time"

	"github.com/tomtom215/perfwatch/internal/models"
)

// Input is what a predicate sees.
type Input struct {
	Snapshot models.Snapshot

	// Window is the recent history (ascending), typically the last hour.
	Window []models.Snapshot
}

// Predicate decides whether a rule's condition holds.
type Predicate func(r *Rule, in Input) bool

// MessageFunc renders the alert message for a triggered rule.
type MessageFunc func(r *Rule, in Input) string

// Rule is one alert condition.
type Rule struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Threshold   float64              `json:"threshold"`
	Severity    models.Severity      `json:"severity"`
	Channels    []models.ChannelKind `json:"channels"`
	Cooldown    time.Duration        `json:"cooldown"`
	Enabled     bool                 `json:"enabled"`

	Predicate Predicate   `json:"-"`
	Message   MessageFunc `json:"-"`
}

// Render returns the alert message for in.
func (r *Rule) Render(in Input) string {
	if r.Message != nil {
		return r.Message(r, in)
	}
	return fmt.Sprintf("%s triggered", r.Name)
}

// clone copies the rule so callers cannot mutate the engine's table.
func (r *Rule) clone() Rule {
	c := *r
	c.Channels = append([]models.ChannelKind(nil), r.Channels...)
	return c
}

// Result is the outcome of one rule for one evaluation.
type Result struct {
	Rule        Rule
	ShouldAlert bool
	Err         error
}

// PredicateError reports a predicate that panicked.
type PredicateError struct {
	RuleID string
	Value  any
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("rule %s: predicate panicked: %v", e.RuleID, e.Value)
}
