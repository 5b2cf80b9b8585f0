// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package models

import (
	"fmt"
	"time"
)

// Severity represents alert severity levels.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a severity name.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// ChannelKind identifies a notification transport.
type ChannelKind string

const (
	ChannelWebhook ChannelKind = "webhook"
	ChannelEmail   ChannelKind = "email"
	ChannelSlack   ChannelKind = "slack"
)

// ParseChannelKind validates a channel name.
func ParseChannelKind(s string) (ChannelKind, error) {
	switch ChannelKind(s) {
	case ChannelWebhook, ChannelEmail, ChannelSlack:
		return ChannelKind(s), nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// AlertStatus is the observable lifecycle state of an alert.
type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// Alert is one trigger of a rule.
type Alert struct {
	ID             string        `json:"id"`
	RuleID         string        `json:"ruleId"`
	RuleName       string        `json:"ruleName"`
	Severity       Severity      `json:"severity"`
	Message        string        `json:"message"`
	Channels       []ChannelKind `json:"channels"`
	TriggeredAt    time.Time     `json:"triggeredAt"`
	Snapshot       Snapshot      `json:"snapshotAtTrigger"`
	Status         AlertStatus   `json:"status"`
	Acknowledged   bool          `json:"acknowledged"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
}

// Clone returns a copy that shares no mutable state with a.
func (a *Alert) Clone() Alert {
	c := *a
	if a.Channels != nil {
		c.Channels = append([]ChannelKind(nil), a.Channels...)
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	return c
}
