// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/telemetry"
)

type fakeTelemetryHealth struct {
	status telemetry.HealthStatus
	err    error
}

func (f fakeTelemetryHealth) HealthStatus(context.Context) (telemetry.HealthStatus, error) {
	return f.status, f.err
}

func TestHealthReportsTelemetry(t *testing.T) {
	tests := []struct {
		name       string
		src        fakeTelemetryHealth
		wantStatus string
		wantKey    string
		wantValue  string
	}{
		{
			name:       "healthy",
			src:        fakeTelemetryHealth{status: telemetry.HealthStatus{Healthy: true, Components: map[string]string{"circuit_breaker": "closed"}}},
			wantStatus: "ok",
			wantKey:    "circuit_breaker",
			wantValue:  "closed",
		},
		{
			name:       "breaker open",
			src:        fakeTelemetryHealth{status: telemetry.HealthStatus{Components: map[string]string{"circuit_breaker": "open"}}},
			wantStatus: "degraded",
			wantKey:    "circuit_breaker",
			wantValue:  "open",
		},
		{
			name:       "source error",
			src:        fakeTelemetryHealth{err: errors.New("collector stopped")},
			wantStatus: "degraded",
			wantKey:    "source",
			wantValue:  "collector stopped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.tick(t, healthy())
			h := NewRouter(NewHandler(env.engine, nil, WithTelemetryHealth(tt.src)), RouterConfig{RateLimitDisabled: true})

			_, body := do(t, h, http.MethodGet, "/health", "")
			var s ServiceHealth
			if err := json.Unmarshal(body.Data, &s); err != nil {
				t.Fatal(err)
			}
			if s.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", s.Status, tt.wantStatus)
			}
			if s.Telemetry == nil {
				t.Fatal("telemetry health missing")
			}
			if got := s.Telemetry.Components[tt.wantKey]; got != tt.wantValue {
				t.Errorf("components[%s] = %q, want %q", tt.wantKey, got, tt.wantValue)
			}
		})
	}
}

func TestHealthWithoutTelemetry(t *testing.T) {
	env := newTestEnv(t)
	_, body := do(t, env.router(RouterConfig{RateLimitDisabled: true}), http.MethodGet, "/health", "")
	var s ServiceHealth
	if err := json.Unmarshal(body.Data, &s); err != nil {
		t.Fatal(err)
	}
	if s.Telemetry != nil {
		t.Errorf("telemetry = %+v, want omitted", s.Telemetry)
	}
}
