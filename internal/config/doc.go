// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package config loads Perfwatch configuration.

# Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. YAML file: CONFIG_PATH, else the first of DefaultConfigPaths that exists
 3. Environment variables listed in envMappings

Unknown environment variables are ignored.

# Keys

Engine:
  - engine.tick_interval_ms (TICK_INTERVAL_MS, default 60000)
  - engine.retention_period_ms (RETENTION_PERIOD_MS, default 604800000)
  - engine.predictive_interval_ms (PREDICTIVE_INTERVAL_MS, default 300000)

Rule overrides, one block per rule ID:

	rules:
	  high_response_time:
	    threshold: 1500
	    severity: critical
	    cooldown_ms: 600000
	    enabled: true
	    channels: [slack, webhook]

The same fields can be set as RULE_<ID>_<FIELD>, for example
RULE_HIGH_RESPONSE_TIME_THRESHOLD=1500 or RULE_CAPACITY_USAGE_CHANNELS=slack,email.
Overrides naming an unknown rule fail validation.

Notification destinations:
  - channels.webhook_url (WEBHOOK_URL)
  - channels.slack_webhook_url (SLACK_WEBHOOK_URL)
  - channels.email_target (EMAIL_TARGET)

Destinations may be left empty; sends to an empty destination fail at
dispatch time with a configuration error and are recorded as failed
notifications.

Other sections: notify, events (NATS_URL), archive (ARCHIVE_PATH), audit
(AUDIT_ENABLED, AUDIT_RETENTION_MS), telemetry,
thresholds, cost, compliance, server (HTTP_PORT, CORS_ORIGINS) and logging
(LOG_LEVEL, LOG_FORMAT, LOG_CALLER).

# Validation

Struct constraints are declared with validator tags and checked through
internal/validation; errors name the koanf key. Cross-field checks live in
validate.go.
*/
package config
