// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/config"
	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/rules"
	"github.com/tomtom215/perfwatch/internal/supervisor"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Archive.Path = "" // in-memory badger
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.RateLimitDisabled = true
	return cfg
}

func TestBuildApp_ServesRules(t *testing.T) {
	a, err := buildApp(testConfig())
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	defer a.close(context.Background())

	if a.relay != nil {
		t.Error("relay should only be built for the NATS backend")
	}
	if _, ran := a.engine.Tick(context.Background()); !ran {
		t.Fatal("Tick() did not run")
	}

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/alerts/rules")
	if err != nil {
		t.Fatalf("GET rules: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data) != len(rules.DefaultRules()) {
		t.Errorf("success = %v, rules = %d, want %d", body.Success, len(body.Data), len(rules.DefaultRules()))
	}

	health, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want 200", health.StatusCode)
	}

	trail, err := http.Get(srv.URL + "/api/v1/audit")
	if err != nil {
		t.Fatalf("GET audit: %v", err)
	}
	trail.Body.Close()
	if trail.StatusCode != http.StatusOK {
		t.Errorf("/api/v1/audit status = %d, want 200", trail.StatusCode)
	}
}

func TestBuildApp_WithoutArchive(t *testing.T) {
	cfg := testConfig()
	cfg.Archive.Enabled = false

	a, err := buildApp(cfg)
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	defer a.close(context.Background())

	if a.archive != nil {
		t.Error("archive should be nil when disabled")
	}
	if a.audit == nil {
		t.Error("audit log should not depend on the archive")
	}
	if _, ran := a.engine.Tick(context.Background()); !ran {
		t.Error("Tick() did not run")
	}
}

func TestBuildApp_RuleOverrideError(t *testing.T) {
	cfg := testConfig()
	threshold := 1.0
	cfg.Rules = map[string]config.RuleConfig{"no_such_rule": {Threshold: &threshold}}

	_, err := buildApp(cfg)
	if err == nil || !strings.Contains(err.Error(), "no_such_rule") {
		t.Errorf("buildApp() error = %v, want unknown rule", err)
	}
}

func TestApp_Supervise(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.TickIntervalMs = 50

	a, err := buildApp(cfg)
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	defer a.close(context.Background())

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{ShutdownTimeout: 2 * time.Second})
	a.supervise(tree, a.httpServer())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, ok := a.engine.LastTick(); ok {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("engine never ticked under the supervisor")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
}
