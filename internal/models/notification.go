// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package models

import "time"

// NotificationStatus is the outcome of one delivery attempt.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// NotificationRecord is written once per (alert, channel) attempt.
type NotificationRecord struct {
	AlertID   string             `json:"alertId"`
	RuleID    string             `json:"ruleId"`
	Channel   ChannelKind        `json:"channel"`
	Status    NotificationStatus `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
	Error     string             `json:"error,omitempty"`
	ErrorCode string             `json:"errorCode,omitempty"`
}
