// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/perfwatch/internal/validation"
)

// Rate limit bounds.
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// Validate checks struct constraints, then cross-field rules.
//
// Empty notification destinations are accepted. A configured destination
// must at least parse.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.validateChannels(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	if _, err := c.BuildRules(); err != nil {
		return err
	}
	if c.Engine.RetentionPeriodMs < c.Engine.TickIntervalMs {
		return fmt.Errorf("engine.retention_period_ms (%d) must be at least engine.tick_interval_ms (%d)",
			c.Engine.RetentionPeriodMs, c.Engine.TickIntervalMs)
	}
	return nil
}

func (c *Config) validateChannels() error {
	if c.Channels.WebhookURL != "" {
		if err := validateHTTPURL(c.Channels.WebhookURL, "channels.webhook_url"); err != nil {
			return err
		}
	}
	if c.Channels.SlackWebhookURL != "" {
		if err := validateHTTPURL(c.Channels.SlackWebhookURL, "channels.slack_webhook_url"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.NATSURL == "" {
		return nil
	}
	if err := validateNATSURL(c.Events.NATSURL); err != nil {
		return fmt.Errorf("events.nats_url is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitRequests < minRateLimitRequests || c.Server.RateLimitRequests > maxRateLimitRequests {
		return fmt.Errorf("server.rate_limit_requests must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if w := c.Server.RateLimitWindow(); w < minRateLimitWindow || w > maxRateLimitWindow {
		return fmt.Errorf("server.rate_limit_window_ms must be between %d and %d",
			minRateLimitWindow.Milliseconds(), maxRateLimitWindow.Milliseconds())
	}
	return nil
}

// HasWildcardCORS reports whether any origin is allowed.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// validateHTTPURL requires an http or https scheme and a host. Paths and
// queries are allowed since webhook URLs carry them.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}

// validateNATSURL accepts nats, tls, ws and wss schemes.
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}
