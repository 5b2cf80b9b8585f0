// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package config

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/perfwatch/internal/analysis"
	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/rules"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: explicit mapping table in koanf.go
//
// Intervals and timeouts are stored in milliseconds, matching the YAML keys
// (engine.tick_interval_ms and so on). Use the accessor methods to get
// time.Duration values.
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Engine     EngineConfig               `koanf:"engine"`
	Rules      map[string]RuleConfig      `koanf:"rules,omitempty" validate:"dive"`
	Channels   ChannelsConfig             `koanf:"channels"`
	Notify     NotifyConfig               `koanf:"notify"`
	Events     EventsConfig               `koanf:"events"`
	Archive    ArchiveConfig              `koanf:"archive"`
	Audit      AuditConfig                `koanf:"audit"`
	Telemetry  TelemetryConfig            `koanf:"telemetry"`
	Thresholds analysis.Thresholds        `koanf:"thresholds"`
	Cost       analysis.CostRates         `koanf:"cost"`
	Compliance analysis.ComplianceTargets `koanf:"compliance"`
	Server     ServerConfig               `koanf:"server"`
	Logging    LoggingConfig              `koanf:"logging"`
}

// EngineConfig controls the tick and predictive loops.
type EngineConfig struct {
	TickIntervalMs       int64 `koanf:"tick_interval_ms" validate:"gt=0"`
	RetentionPeriodMs    int64 `koanf:"retention_period_ms" validate:"gt=0"`
	PredictiveIntervalMs int64 `koanf:"predictive_interval_ms" validate:"gt=0"`
	MaxBottlenecks       int   `koanf:"max_bottlenecks" validate:"gt=0"`
	MaxAlertHistory      int   `koanf:"max_alert_history" validate:"gt=0"`
}

// TickInterval returns the snapshot cadence.
func (e EngineConfig) TickInterval() time.Duration {
	return time.Duration(e.TickIntervalMs) * time.Millisecond
}

// RetentionPeriod returns how long snapshots are kept.
func (e EngineConfig) RetentionPeriod() time.Duration {
	return time.Duration(e.RetentionPeriodMs) * time.Millisecond
}

// PredictiveInterval returns the forecast refresh cadence.
func (e EngineConfig) PredictiveInterval() time.Duration {
	return time.Duration(e.PredictiveIntervalMs) * time.Millisecond
}

// RuleConfig overrides one default rule. Unset fields keep the default.
type RuleConfig struct {
	Threshold  *float64 `koanf:"threshold"`
	Severity   *string  `koanf:"severity" validate:"omitempty,severity"`
	CooldownMs *int64   `koanf:"cooldown_ms" validate:"omitempty,gte=0"`
	Enabled    *bool    `koanf:"enabled"`
	Channels   []string `koanf:"channels" validate:"omitempty,dive,channel"`
}

// ChannelsConfig holds notification destinations. Empty destinations are
// allowed; sends to them fail with a configuration error at dispatch time.
type ChannelsConfig struct {
	WebhookURL      string `koanf:"webhook_url"`
	SlackWebhookURL string `koanf:"slack_webhook_url"`
	SlackUsername   string `koanf:"slack_username"`
	EmailTarget     string `koanf:"email_target"`
}

// NotifyConfig tunes the dispatcher.
type NotifyConfig struct {
	SendTimeoutMs int64 `koanf:"send_timeout_ms" validate:"gt=0"`
	MinIntervalMs int64 `koanf:"min_interval_ms" validate:"gt=0"`
	Burst         int   `koanf:"burst" validate:"gt=0"`
	MaxRecords    int   `koanf:"max_records" validate:"gt=0"`
}

// SendTimeout bounds one channel attempt.
func (n NotifyConfig) SendTimeout() time.Duration {
	return time.Duration(n.SendTimeoutMs) * time.Millisecond
}

// MinInterval paces sends on one channel.
func (n NotifyConfig) MinInterval() time.Duration {
	return time.Duration(n.MinIntervalMs) * time.Millisecond
}

// EventsConfig selects the event bus backend. An empty NATSURL keeps events
// in process.
type EventsConfig struct {
	NATSURL         string `koanf:"nats_url"`
	MaxReconnects   int    `koanf:"max_reconnects"`
	ReconnectWaitMs int64  `koanf:"reconnect_wait_ms" validate:"gte=0"`
}

// ReconnectWait returns the NATS reconnect backoff.
func (e EventsConfig) ReconnectWait() time.Duration {
	return time.Duration(e.ReconnectWaitMs) * time.Millisecond
}

// ArchiveConfig controls the BadgerDB archive.
type ArchiveConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"` // empty opens an in-memory database
	TTLMs   int64  `koanf:"ttl_ms" validate:"gte=0"`
}

// TTL returns the archive entry lifetime. Zero keeps entries forever.
func (a ArchiveConfig) TTL() time.Duration {
	return time.Duration(a.TTLMs) * time.Millisecond
}

// AuditConfig controls the operator action audit trail.
type AuditConfig struct {
	Enabled           bool  `koanf:"enabled"`
	MaxEvents         int   `koanf:"max_events" validate:"gt=0"`
	RetentionMs       int64 `koanf:"retention_ms" validate:"gte=0"`
	CleanupIntervalMs int64 `koanf:"cleanup_interval_ms" validate:"gt=0"`
}

// Retention returns how long audit events are kept. Zero disables pruning.
func (a AuditConfig) Retention() time.Duration {
	return time.Duration(a.RetentionMs) * time.Millisecond
}

// CleanupInterval returns how often expired audit events are pruned.
func (a AuditConfig) CleanupInterval() time.Duration {
	return time.Duration(a.CleanupIntervalMs) * time.Millisecond
}

// TelemetryConfig controls the in-process collector and host gauges.
type TelemetryConfig struct {
	WindowMs             int64  `koanf:"window_ms" validate:"gt=0"`
	Buckets              int    `koanf:"buckets" validate:"gt=0"`
	EventBuffer          int    `koanf:"event_buffer" validate:"gt=0"`
	Instances            int    `koanf:"instances" validate:"gte=1"`
	DiskPath             string `koanf:"disk_path"`
	ProbeAddress         string `koanf:"probe_address"`
	ProbeTimeoutMs       int64  `koanf:"probe_timeout_ms" validate:"gt=0"`
	ReadTimeoutMs        int64  `koanf:"read_timeout_ms" validate:"gt=0"`
	BreakerFailures      uint32 `koanf:"breaker_failures" validate:"gt=0"`
	BreakerOpenTimeoutMs int64  `koanf:"breaker_open_timeout_ms" validate:"gt=0"`
}

// Window returns the request summary window.
func (t TelemetryConfig) Window() time.Duration {
	return time.Duration(t.WindowMs) * time.Millisecond
}

// ProbeTimeout returns the network latency probe timeout.
func (t TelemetryConfig) ProbeTimeout() time.Duration {
	return time.Duration(t.ProbeTimeoutMs) * time.Millisecond
}

// ReadTimeout bounds one telemetry read.
func (t TelemetryConfig) ReadTimeout() time.Duration {
	return time.Duration(t.ReadTimeoutMs) * time.Millisecond
}

// BreakerOpenTimeout is how long the telemetry breaker stays open.
func (t TelemetryConfig) BreakerOpenTimeout() time.Duration {
	return time.Duration(t.BreakerOpenTimeoutMs) * time.Millisecond
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string   `koanf:"host"`
	Port              int      `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeoutMs     int64    `koanf:"read_timeout_ms" validate:"gt=0"`
	WriteTimeoutMs    int64    `koanf:"write_timeout_ms" validate:"gt=0"`
	ShutdownTimeoutMs int64    `koanf:"shutdown_timeout_ms" validate:"gt=0"`
	CORSOrigins       []string `koanf:"cors_origins"`
	RateLimitRequests int      `koanf:"rate_limit_requests"`
	RateLimitWindowMs int64    `koanf:"rate_limit_window_ms"`
	RateLimitDisabled bool     `koanf:"rate_limit_disabled"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ReadTimeout returns the server read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the server write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMs) * time.Millisecond
}

// ShutdownTimeout bounds graceful shutdown.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMs) * time.Millisecond
}

// RateLimitWindow returns the inbound rate limit window.
func (s ServerConfig) RateLimitWindow() time.Duration {
	return time.Duration(s.RateLimitWindowMs) * time.Millisecond
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// RuleOverrides converts the rules section into rules.Override values.
func (c *Config) RuleOverrides() (map[string]rules.Override, error) {
	if len(c.Rules) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(c.Rules))
	for id := range c.Rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]rules.Override, len(c.Rules))
	for _, id := range ids {
		rc := c.Rules[id]
		o := rules.Override{
			Threshold: rc.Threshold,
			Enabled:   rc.Enabled,
		}
		if rc.Severity != nil {
			sev, err := models.ParseSeverity(*rc.Severity)
			if err != nil {
				return nil, fmt.Errorf("rules.%s.severity: %w", id, err)
			}
			o.Severity = &sev
		}
		if rc.CooldownMs != nil {
			d := time.Duration(*rc.CooldownMs) * time.Millisecond
			o.Cooldown = &d
		}
		if rc.Channels != nil {
			o.Channels = make([]models.ChannelKind, 0, len(rc.Channels))
			for _, ch := range rc.Channels {
				kind, err := models.ParseChannelKind(ch)
				if err != nil {
					return nil, fmt.Errorf("rules.%s.channels: %w", id, err)
				}
				o.Channels = append(o.Channels, kind)
			}
		}
		out[id] = o
	}
	return out, nil
}

// BuildRules returns the default rule set with configured overrides applied.
func (c *Config) BuildRules() ([]rules.Rule, error) {
	overrides, err := c.RuleOverrides()
	if err != nil {
		return nil, err
	}
	return rules.ApplyOverrides(rules.DefaultRules(), overrides)
}
