// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/models"
)

// EmailChannel is a stub transport: it validates the target and logs the
// message that would have been sent.
type EmailChannel struct {
	target string
	logger zerolog.Logger
}

// NewEmailChannel creates the email stub for target.
func NewEmailChannel(target string) *EmailChannel {
	return &EmailChannel{
		target: target,
		logger: logging.Component("notify-email"),
	}
}

// Kind returns models.ChannelEmail.
func (c *EmailChannel) Kind() models.ChannelKind { return models.ChannelEmail }

// Send logs the alert as an email.
func (c *EmailChannel) Send(ctx context.Context, alert *models.Alert) error {
	if err := ValidateEmail(c.target); err != nil {
		return &ConfigurationError{Channel: models.ChannelEmail, Reason: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return &TransportError{Channel: models.ChannelEmail, Code: ErrorCodeTimeout, Err: err}
	}

	c.logger.Info().
		Str("to", c.target).
		Str("subject", Subject(alert)).
		Str("alert_id", alert.ID).
		Str("body", alert.Message).
		Msg("email notification")
	return nil
}

// Subject returns the email subject line for an alert.
func Subject(alert *models.Alert) string {
	name := alert.RuleName
	if name == "" {
		name = alert.RuleID
	}
	return fmt.Sprintf("[%s] %s", alert.Severity, name)
}
