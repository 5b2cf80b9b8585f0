// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package notify delivers triggered alerts to notification channels.
//
// Supported channels:
//   - webhook: HTTP POST with a JSON body
//   - slack: Slack incoming webhook with a colored attachment
//   - email: stub transport that logs the message
//
// Each channel is attempted independently. A failure on one channel never
// prevents delivery on the others, and every attempt leaves a
// NotificationRecord. Failed deliveries are not retried; the next trigger of
// the same rule tries again.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/perfwatch/internal/models"
)

// Channel delivers one alert over one transport.
type Channel interface {
	// Kind returns the channel identifier.
	Kind() models.ChannelKind

	// Send delivers the alert. Errors should be a *ConfigurationError or a
	// *TransportError so callers can classify them.
	Send(ctx context.Context, alert *models.Alert) error
}

// Error codes recorded on failed notifications.
const (
	ErrorCodeInvalidConfig    = "INVALID_CONFIG"
	ErrorCodeConnectionFailed = "CONNECTION_FAILED"
	ErrorCodeAuthFailed       = "AUTH_FAILED"
	ErrorCodeRateLimited      = "RATE_LIMITED"
	ErrorCodeNotFound         = "NOT_FOUND"
	ErrorCodeServerError      = "SERVER_ERROR"
	ErrorCodeTimeout          = "TIMEOUT"
	ErrorCodeUnknown          = "UNKNOWN"
)

// ConfigurationError reports a channel that cannot be used as configured,
// most often because no destination is set.
type ConfigurationError struct {
	Channel models.ChannelKind
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s channel misconfigured: %s", e.Channel, e.Reason)
}

// TransportError reports a failed delivery attempt.
type TransportError struct {
	Channel    models.ChannelKind
	StatusCode int
	Code       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failed: status %d", e.Channel, e.StatusCode)
	}
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorCode maps an error returned by a Channel to a record error code.
func ErrorCode(err error) string {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return ErrorCodeInvalidConfig
	}
	var tErr *TransportError
	if errors.As(err, &tErr) && tErr.Code != "" {
		return tErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeTimeout
	}
	return ErrorCodeUnknown
}

// ValidateWebhookURL checks that rawURL is an absolute http(s) URL.
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("webhook URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return errors.New("webhook URL must have a host")
	}
	return nil
}

// ValidateEmail performs a shallow address check.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return fmt.Errorf("invalid email address format: %s", email)
	}
	if !strings.Contains(domain, ".") {
		return fmt.Errorf("invalid email domain: %s", domain)
	}
	return nil
}

// classifyHTTPError classifies a client error into an error code.
func classifyHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeTimeout
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return ErrorCodeTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "refused") {
		return ErrorCodeConnectionFailed
	}
	return ErrorCodeUnknown
}

// classifyHTTPStatusCode classifies an HTTP status code into an error code.
func classifyHTTPStatusCode(code int) string {
	switch {
	case code == 401 || code == 403:
		return ErrorCodeAuthFailed
	case code == 404:
		return ErrorCodeNotFound
	case code == 429:
		return ErrorCodeRateLimited
	case code >= 500:
		return ErrorCodeServerError
	default:
		return ErrorCodeUnknown
	}
}
