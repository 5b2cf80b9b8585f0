// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package rules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
)

// ErrRuleNotFound is returned for lookups of unknown rule IDs.
var ErrRuleNotFound = errors.New("rule not found")

// Engine evaluates a fixed, ordered rule table.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
	index map[string]int
}

// NewEngine creates an engine over rules. Rule IDs must be unique and every
// rule needs a predicate.
func NewEngine(rules []Rule) (*Engine, error) {
	e := &Engine{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for i := range rules {
		r := rules[i]
		if r.ID == "" {
			return nil, fmt.Errorf("rule at position %d has no id", i)
		}
		if _, dup := e.index[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		if r.Predicate == nil {
			return nil, fmt.Errorf("rule %q has no predicate", r.ID)
		}
		e.index[r.ID] = len(e.rules)
		e.rules = append(e.rules, r.clone())
		logging.Debug().Str("rule_id", r.ID).Bool("enabled", r.Enabled).Msg("registered rule")
	}
	return e, nil
}

// Evaluate runs every enabled rule in declaration order. A panicking
// predicate counts as false for this evaluation and its error is returned
// alongside the results; remaining rules still run.
func (e *Engine) Evaluate(in Input) ([]Result, []error) {
	e.mu.RLock()
	rules := make([]Rule, 0, len(e.rules))
	for i := range e.rules {
		if e.rules[i].Enabled {
			rules = append(rules, e.rules[i].clone())
		}
	}
	e.mu.RUnlock()

	results := make([]Result, 0, len(rules))
	var errs []error
	for i := range rules {
		fired, err := evaluateOne(&rules[i], in)
		metrics.RecordRuleEvaluation(rules[i].ID, fired, err)
		if err != nil {
			errs = append(errs, err)
			logging.Error().Err(err).Str("rule_id", rules[i].ID).Msg("rule evaluation failed")
		}
		results = append(results, Result{Rule: rules[i], ShouldAlert: fired, Err: err})
	}
	return results, errs
}

func evaluateOne(r *Rule, in Input) (fired bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			fired = false
			err = &PredicateError{RuleID: r.ID, Value: v}
		}
	}()
	return r.Predicate(r, in), nil
}

// Rules returns a copy of the table in declaration order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Rule, len(e.rules))
	for i := range e.rules {
		out[i] = e.rules[i].clone()
	}
	return out
}

// Rule returns one rule by ID.
func (e *Engine) Rule(id string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.index[id]
	if !ok {
		return Rule{}, false
	}
	return e.rules[i].clone(), true
}

// SetEnabled toggles a rule at runtime.
func (e *Engine) SetEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	e.rules[i].Enabled = enabled
	logging.Info().Str("rule_id", id).Bool("enabled", enabled).Msg("rule toggled")
	return nil
}
