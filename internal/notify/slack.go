// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/models"
)

// Attachment colors by severity.
const (
	ColorCritical = "#dc3545"
	ColorWarning  = "#ffc107"
	ColorInfo     = "#28a745"
	ColorDefault  = "#007bff"
)

// SeverityColor maps a severity to its Slack attachment color.
func SeverityColor(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return ColorCritical
	case models.SeverityWarning:
		return ColorWarning
	case models.SeverityInfo:
		return ColorInfo
	default:
		return ColorDefault
	}
}

// SlackPayload is the Slack incoming webhook message.
type SlackPayload struct {
	Username    string            `json:"username,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackAttachment carries the colored alert summary.
type SlackAttachment struct {
	Color    string       `json:"color"`
	Title    string       `json:"title"`
	Text     string       `json:"text,omitempty"`
	Fallback string       `json:"fallback,omitempty"`
	Fields   []SlackField `json:"fields"`
	Footer   string       `json:"footer,omitempty"`
	Ts       int64        `json:"ts,omitempty"`
}

// SlackField is one short key/value pair in an attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// SlackConfig configures the Slack channel.
type SlackConfig struct {
	WebhookURL string
	Username   string
	Timeout    time.Duration
}

// SlackChannel posts alerts to a Slack incoming webhook.
type SlackChannel struct {
	webhookURL string
	username   string
	client     *http.Client
}

// NewSlackChannel creates a Slack channel. An empty URL is reported as a
// ConfigurationError on Send.
func NewSlackChannel(cfg SlackConfig) *SlackChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Username == "" {
		cfg.Username = "Perfwatch"
	}
	return &SlackChannel{
		webhookURL: cfg.WebhookURL,
		username:   cfg.Username,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Kind returns models.ChannelSlack.
func (c *SlackChannel) Kind() models.ChannelKind { return models.ChannelSlack }

// Send posts the alert attachment.
func (c *SlackChannel) Send(ctx context.Context, alert *models.Alert) error {
	if err := ValidateWebhookURL(c.webhookURL); err != nil {
		return &ConfigurationError{Channel: models.ChannelSlack, Reason: err.Error()}
	}

	body, err := json.Marshal(BuildSlackPayload(alert, c.username))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	return postJSON(ctx, c.client, models.ChannelSlack, c.webhookURL, nil, body)
}

// BuildSlackPayload renders the message for an alert.
func BuildSlackPayload(alert *models.Alert, username string) SlackPayload {
	title := alert.RuleName
	if title == "" {
		title = alert.RuleID
	}
	return SlackPayload{
		Username: username,
		Text:     fmt.Sprintf("Performance alert: %s", title),
		Attachments: []SlackAttachment{{
			Color:    SeverityColor(alert.Severity),
			Title:    title,
			Text:     alert.Message,
			Fallback: fmt.Sprintf("[%s] %s: %s", alert.Severity, title, alert.Message),
			Fields: []SlackField{
				{Title: "Severity", Value: string(alert.Severity), Short: true},
				{Title: "Triggered", Value: alert.TriggeredAt.UTC().Format(time.RFC3339), Short: true},
			},
			Footer: "perfwatch",
			Ts:     alert.TriggeredAt.Unix(),
		}},
	}
}
