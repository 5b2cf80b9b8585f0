// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/models"
)

// WebhookConfig configures the generic webhook channel.
type WebhookConfig struct {
	URL     string
	Headers map[string]string // e.g. auth headers
	Timeout time.Duration
}

// WebhookPayload is the JSON body posted to the webhook endpoint.
type WebhookPayload struct {
	Alert     *models.Alert `json:"alert"`
	EventType string        `json:"eventType"`
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source"`
}

// WebhookChannel posts alerts as JSON to an HTTP endpoint.
type WebhookChannel struct {
	url     string
	headers map[string]string
	client  *http.Client
	now     func() time.Time
}

// NewWebhookChannel creates a webhook channel. An empty URL is accepted here
// and reported as a ConfigurationError on Send.
func NewWebhookChannel(cfg WebhookConfig) *WebhookChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return &WebhookChannel{
		url:     cfg.URL,
		headers: headers,
		client:  &http.Client{Timeout: cfg.Timeout},
		now:     time.Now,
	}
}

// Kind returns models.ChannelWebhook.
func (c *WebhookChannel) Kind() models.ChannelKind { return models.ChannelWebhook }

// Send posts the alert.
func (c *WebhookChannel) Send(ctx context.Context, alert *models.Alert) error {
	if err := ValidateWebhookURL(c.url); err != nil {
		return &ConfigurationError{Channel: models.ChannelWebhook, Reason: err.Error()}
	}

	body, err := json.Marshal(WebhookPayload{
		Alert:     alert,
		EventType: "performance_alert",
		Timestamp: c.now().UTC(),
		Source:    "perfwatch",
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	return postJSON(ctx, c.client, models.ChannelWebhook, c.url, c.headers, body)
}

// postJSON sends body and maps failures to a TransportError.
func postJSON(ctx context.Context, client *http.Client, kind models.ChannelKind, target string, headers map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Channel: kind, Code: ErrorCodeUnknown, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &TransportError{Channel: kind, Code: classifyHTTPError(err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return &TransportError{
			Channel:    kind,
			StatusCode: resp.StatusCode,
			Code:       classifyHTTPStatusCode(resp.StatusCode),
			Err:        fmt.Errorf("endpoint returned status %d", resp.StatusCode),
		}
	}
	return nil
}
