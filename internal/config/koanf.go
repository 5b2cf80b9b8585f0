// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/perfwatch/internal/analysis"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/perfwatch/config.yaml",
	"/etc/perfwatch/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit
// config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// ruleEnvPrefix marks per-rule overrides: RULE_<ID>_<FIELD>.
const ruleEnvPrefix = "rule_"

func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			TickIntervalMs:       60_000,
			RetentionPeriodMs:    604_800_000,
			PredictiveIntervalMs: 300_000,
			MaxBottlenecks:       50,
			MaxAlertHistory:      10_000,
		},
		Notify: NotifyConfig{
			SendTimeoutMs: 10_000,
			MinIntervalMs: 1_000,
			Burst:         5,
			MaxRecords:    10_000,
		},
		Channels: ChannelsConfig{
			SlackUsername: "Perfwatch",
		},
		Events: EventsConfig{
			MaxReconnects:   -1,
			ReconnectWaitMs: 2_000,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    "/data/perfwatch",
			TTLMs:   0,
		},
		Audit: AuditConfig{
			Enabled:           true,
			MaxEvents:         10_000,
			RetentionMs:       30 * 24 * 3_600_000,
			CleanupIntervalMs: 3_600_000,
		},
		Telemetry: TelemetryConfig{
			WindowMs:             60_000,
			Buckets:              12,
			EventBuffer:          4096,
			Instances:            1,
			DiskPath:             "/",
			ProbeTimeoutMs:       1_000,
			ReadTimeoutMs:        5_000,
			BreakerFailures:      3,
			BreakerOpenTimeoutMs: 120_000,
		},
		Thresholds: analysis.DefaultThresholds(),
		Cost:       analysis.DefaultCostRates(),
		Compliance: analysis.DefaultComplianceTargets(),
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeoutMs:     30_000,
			WriteTimeoutMs:    30_000,
			ShutdownTimeoutMs: 10_000,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 300,
			RateLimitWindowMs: 60_000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	return defaultConfig()
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file (optional)
//  3. Environment variables
//
// Precedence is ENV > File > Defaults. The result is validated.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Engine
	"tick_interval_ms":       "engine.tick_interval_ms",
	"retention_period_ms":    "engine.retention_period_ms",
	"predictive_interval_ms": "engine.predictive_interval_ms",
	"max_bottlenecks":        "engine.max_bottlenecks",
	"max_alert_history":      "engine.max_alert_history",

	// Channels
	"webhook_url":       "channels.webhook_url",
	"slack_webhook_url": "channels.slack_webhook_url",
	"slack_username":    "channels.slack_username",
	"email_target":      "channels.email_target",

	// Notify
	"notify_send_timeout_ms": "notify.send_timeout_ms",
	"notify_min_interval_ms": "notify.min_interval_ms",
	"notify_burst":           "notify.burst",
	"notify_max_records":     "notify.max_records",

	// Events
	"nats_url":               "events.nats_url",
	"nats_max_reconnects":    "events.max_reconnects",
	"nats_reconnect_wait_ms": "events.reconnect_wait_ms",

	// Archive
	"archive_enabled": "archive.enabled",
	"archive_path":    "archive.path",
	"archive_ttl_ms":  "archive.ttl_ms",

	// Audit
	"audit_enabled":             "audit.enabled",
	"audit_max_events":          "audit.max_events",
	"audit_retention_ms":        "audit.retention_ms",
	"audit_cleanup_interval_ms": "audit.cleanup_interval_ms",

	// Telemetry
	"telemetry_window_ms":               "telemetry.window_ms",
	"telemetry_buckets":                 "telemetry.buckets",
	"telemetry_event_buffer":            "telemetry.event_buffer",
	"telemetry_instances":               "telemetry.instances",
	"telemetry_disk_path":               "telemetry.disk_path",
	"telemetry_probe_address":           "telemetry.probe_address",
	"telemetry_probe_timeout_ms":        "telemetry.probe_timeout_ms",
	"telemetry_read_timeout_ms":         "telemetry.read_timeout_ms",
	"telemetry_breaker_failures":        "telemetry.breaker_failures",
	"telemetry_breaker_open_timeout_ms": "telemetry.breaker_open_timeout_ms",

	// Bottleneck thresholds
	"threshold_response_time_ms":   "thresholds.response_time_ms",
	"threshold_mem_pct":            "thresholds.mem_pct",
	"threshold_network_latency_ms": "thresholds.network_latency_ms",
	"threshold_concurrency":        "thresholds.concurrency",

	// Cost model
	"cost_instances":            "cost.instances",
	"cost_compute_per_hour":     "cost.compute_per_hour",
	"cost_storage_gb":           "cost.storage_gb",
	"cost_storage_per_gb_month": "cost.storage_per_gb_month",
	"cost_bandwidth_per_gb":     "cost.bandwidth_per_gb",
	"cost_avg_response_kb":      "cost.avg_response_kb",
	"cost_currency":             "cost.currency",

	// Compliance targets
	"compliance_availability_sla_pct":     "compliance.availability_sla_pct",
	"compliance_min_security_score":       "compliance.min_security_score",
	"compliance_max_critical_alerts":      "compliance.max_critical_alerts",
	"compliance_max_p95_response_time_ms": "compliance.max_p95_response_time_ms",

	// Server
	"http_host":                "server.host",
	"http_port":                "server.port",
	"http_read_timeout_ms":     "server.read_timeout_ms",
	"http_write_timeout_ms":    "server.write_timeout_ms",
	"http_shutdown_timeout_ms": "server.shutdown_timeout_ms",
	"cors_origins":             "server.cors_origins",
	"rate_limit_requests":      "server.rate_limit_requests",
	"rate_limit_window_ms":     "server.rate_limit_window_ms",
	"disable_rate_limit":       "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// ruleFields are the per-rule keys settable through RULE_<ID>_<FIELD>.
var ruleFields = []string{"threshold", "severity", "cooldown_ms", "enabled", "channels"}

// envTransform maps an environment variable to a koanf path. Returning an
// empty key skips the variable.
//
// Examples:
//   - TICK_INTERVAL_MS -> engine.tick_interval_ms
//   - SLACK_WEBHOOK_URL -> channels.slack_webhook_url
//   - RULE_HIGH_RESPONSE_TIME_THRESHOLD -> rules.high_response_time.threshold
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(key)

	if mapped, ok := envMappings[key]; ok {
		return mapped, value
	}

	if rest, ok := strings.CutPrefix(key, ruleEnvPrefix); ok {
		for _, field := range ruleFields {
			id, ok := strings.CutSuffix(rest, "_"+field)
			if ok && id != "" {
				return "rules." + id + "." + field, value
			}
		}
	}
	return "", nil
}

// sliceConfigPaths are parsed as comma-separated lists when set from the
// environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known list keys and every rules.<id>.channels key.
func processSliceFields(k *koanf.Koanf) error {
	paths := append([]string(nil), sliceConfigPaths...)
	for _, key := range k.Keys() {
		if strings.HasPrefix(key, "rules.") && strings.HasSuffix(key, ".channels") {
			paths = append(paths, key)
		}
	}

	for _, path := range paths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
