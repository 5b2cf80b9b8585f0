// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/rules"
	"github.com/tomtom215/perfwatch/internal/validation"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.Engine.TickInterval(); got != time.Minute {
		t.Errorf("TickInterval = %v, want 1m", got)
	}
	if got := cfg.Engine.RetentionPeriod(); got != 7*24*time.Hour {
		t.Errorf("RetentionPeriod = %v, want 168h", got)
	}
	if got := cfg.Engine.PredictiveInterval(); got != 5*time.Minute {
		t.Errorf("PredictiveInterval = %v, want 5m", got)
	}
	if cfg.Channels.WebhookURL != "" || cfg.Channels.SlackWebhookURL != "" || cfg.Channels.EmailTarget != "" {
		t.Errorf("channel destinations should be empty by default: %+v", cfg.Channels)
	}
	if cfg.Events.NATSURL != "" {
		t.Errorf("Events.NATSURL = %q, want empty", cfg.Events.NATSURL)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Retention() != 30*24*time.Hour || cfg.Audit.CleanupInterval() != time.Hour {
		t.Errorf("Audit = %+v, want enabled with 720h retention and 1h cleanup", cfg.Audit)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Server.Addr() = %q, want 0.0.0.0:8080", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := load("")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
		t.Errorf("load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
engine:
  tick_interval_ms: 30000
  retention_period_ms: 3600000
channels:
  slack_webhook_url: https://hooks.slack.com/services/T000/B000/XXX
  email_target: ops@example.com
rules:
  high_response_time:
    threshold: 1500
    severity: critical
    cooldown_ms: 60000
    channels: [slack]
  low_throughput:
    enabled: false
logging:
  level: debug
`)

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if got := cfg.Engine.TickInterval(); got != 30*time.Second {
		t.Errorf("TickInterval = %v, want 30s", got)
	}
	if got := cfg.Engine.PredictiveInterval(); got != 5*time.Minute {
		t.Errorf("PredictiveInterval = %v, want default 5m", got)
	}
	if cfg.Channels.EmailTarget != "ops@example.com" {
		t.Errorf("EmailTarget = %q", cfg.Channels.EmailTarget)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	built, err := cfg.BuildRules()
	if err != nil {
		t.Fatalf("BuildRules() error = %v", err)
	}
	byID := make(map[string]rules.Rule, len(built))
	for _, r := range built {
		byID[r.ID] = r
	}

	hrt := byID[rules.HighResponseTime]
	if hrt.Threshold != 1500 || hrt.Severity != models.SeverityCritical || hrt.Cooldown != time.Minute {
		t.Errorf("high_response_time = threshold %v severity %s cooldown %v", hrt.Threshold, hrt.Severity, hrt.Cooldown)
	}
	if diff := cmp.Diff([]models.ChannelKind{models.ChannelSlack}, hrt.Channels); diff != "" {
		t.Errorf("high_response_time channels (-want +got):\n%s", diff)
	}
	if byID[rules.LowThroughput].Enabled {
		t.Error("low_throughput should be disabled")
	}
	if !byID[rules.HighErrorRate].Enabled {
		t.Error("high_error_rate should keep its default")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  tick_interval_ms: 30000
server:
  port: 9000
`)
	t.Setenv("TICK_INTERVAL_MS", "15000")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RULE_HIGH_RESPONSE_TIME_THRESHOLD", "2500")
	t.Setenv("RULE_CAPACITY_USAGE_CHANNELS", "slack,email")
	t.Setenv("RULE_SECURITY_SCORE_ENABLED", "false")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if got := cfg.Engine.TickInterval(); got != 15*time.Second {
		t.Errorf("TickInterval = %v, want 15s from env", got)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000 from file", cfg.Server.Port)
	}
	if diff := cmp.Diff([]string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins); diff != "" {
		t.Errorf("CORSOrigins (-want +got):\n%s", diff)
	}

	overrides, err := cfg.RuleOverrides()
	if err != nil {
		t.Fatalf("RuleOverrides() error = %v", err)
	}
	if o := overrides[rules.HighResponseTime]; o.Threshold == nil || *o.Threshold != 2500 {
		t.Errorf("high_response_time threshold override = %v", o.Threshold)
	}
	if diff := cmp.Diff([]models.ChannelKind{models.ChannelSlack, models.ChannelEmail}, overrides[rules.CapacityUsage].Channels); diff != "" {
		t.Errorf("capacity_usage channels (-want +got):\n%s", diff)
	}
	if o := overrides[rules.SecurityScore]; o.Enabled == nil || *o.Enabled {
		t.Errorf("security_score enabled override = %v, want false", o.Enabled)
	}
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	path := writeConfig(t, "logging:\n  format: console\n")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "zero tick interval",
			yaml:    "engine:\n  tick_interval_ms: 0\n",
			wantErr: "engine.tick_interval_ms must be greater than 0",
		},
		{
			name:    "unknown rule",
			yaml:    "rules:\n  no_such_rule:\n    threshold: 1\n",
			wantErr: "no_such_rule",
		},
		{
			name:    "bad severity",
			yaml:    "rules:\n  high_response_time:\n    severity: fatal\n",
			wantErr: "must be one of info, warning, critical",
		},
		{
			name:    "bad channel",
			yaml:    "rules:\n  high_response_time:\n    channels: [pager]\n",
			wantErr: "must be one of webhook, email, slack",
		},
		{
			name:    "bad log level",
			yaml:    "logging:\n  level: loud\n",
			wantErr: "logging.level",
		},
		{
			name:    "bad webhook scheme",
			yaml:    "channels:\n  webhook_url: ftp://example.com/hook\n",
			wantErr: "channels.webhook_url scheme must be http or https",
		},
		{
			name:    "bad nats url",
			yaml:    "events:\n  nats_url: http://localhost:4222\n",
			wantErr: "events.nats_url is invalid",
		},
		{
			name:    "retention shorter than tick",
			yaml:    "engine:\n  tick_interval_ms: 60000\n  retention_period_ms: 1000\n",
			wantErr: "engine.retention_period_ms",
		},
		{
			name:    "rate limit window too small",
			yaml:    "server:\n  rate_limit_window_ms: 10\n",
			wantErr: "server.rate_limit_window_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatalf("load() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("load() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Thresholds.MemPct = 150

	err := cfg.Validate()
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *validation.Error", err)
	}
	fields := verr.Fields()
	if len(fields) != 1 || fields[0].Field != "thresholds.mem_pct" {
		t.Errorf("Fields() = %+v, want thresholds.mem_pct", fields)
	}
}

func TestValidate_EmptyDestinationsAllowed(t *testing.T) {
	cfg := defaultConfig()
	cfg.Channels = ChannelsConfig{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil with empty destinations", err)
	}
}

func TestValidate_RateLimitDisabledSkipsBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.RateLimitDisabled = true
	cfg.Server.RateLimitRequests = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil when rate limiting is disabled", err)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"TICK_INTERVAL_MS", "engine.tick_interval_ms"},
		{"SLACK_WEBHOOK_URL", "channels.slack_webhook_url"},
		{"NATS_URL", "events.nats_url"},
		{"LOG_LEVEL", "logging.level"},
		{"AUDIT_RETENTION_MS", "audit.retention_ms"},
		{"RULE_HIGH_RESPONSE_TIME_COOLDOWN_MS", "rules.high_response_time.cooldown_ms"},
		{"RULE_PERFORMANCE_DEGRADATION_ENABLED", "rules.performance_degradation.enabled"},
		{"RULE_THRESHOLD", ""},
		{"RULE_HIGH_RESPONSE_TIME_COLOR", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			got, _ := envTransform(tt.env, "v")
			if got != tt.want {
				t.Errorf("envTransform(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestHasWildcardCORS(t *testing.T) {
	cfg := defaultConfig()
	if !cfg.HasWildcardCORS() {
		t.Error("default CORS origins should be a wildcard")
	}
	cfg.Server.CORSOrigins = []string{"https://example.com"}
	if cfg.HasWildcardCORS() {
		t.Error("explicit origin list should not be a wildcard")
	}
}
