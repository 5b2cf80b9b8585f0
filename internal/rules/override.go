// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package rules

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/perfwatch/internal/models"
)

// Override changes selected fields of a rule. Nil fields keep the default.
type Override struct {
	Threshold *float64
	Severity  *models.Severity
	Cooldown  *time.Duration
	Enabled   *bool
	Channels  []models.ChannelKind
}

// ApplyOverrides returns a copy of rules with overrides applied by rule ID.
// Overrides naming unknown rules are reported as an error.
func ApplyOverrides(rules []Rule, overrides map[string]Override) ([]Rule, error) {
	out := make([]Rule, len(rules))
	index := make(map[string]int, len(rules))
	for i := range rules {
		out[i] = rules[i].clone()
		index[rules[i].ID] = i
	}

	var unknown []string
	for id, o := range overrides {
		i, ok := index[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		r := &out[i]
		if o.Threshold != nil {
			r.Threshold = *o.Threshold
		}
		if o.Severity != nil {
			r.Severity = *o.Severity
		}
		if o.Cooldown != nil {
			r.Cooldown = *o.Cooldown
		}
		if o.Enabled != nil {
			r.Enabled = *o.Enabled
		}
		if o.Channels != nil {
			r.Channels = append([]models.ChannelKind(nil), o.Channels...)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("overrides for unknown rules: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
