// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/perfwatch/internal/alerting"
	"github.com/tomtom215/perfwatch/internal/api"
	"github.com/tomtom215/perfwatch/internal/archive"
	"github.com/tomtom215/perfwatch/internal/audit"
	"github.com/tomtom215/perfwatch/internal/config"
	"github.com/tomtom215/perfwatch/internal/engine"
	"github.com/tomtom215/perfwatch/internal/events"
	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/notify"
	"github.com/tomtom215/perfwatch/internal/rules"
	"github.com/tomtom215/perfwatch/internal/snapshot"
	"github.com/tomtom215/perfwatch/internal/supervisor"
	"github.com/tomtom215/perfwatch/internal/supervisor/services"
	"github.com/tomtom215/perfwatch/internal/telemetry"
	"github.com/tomtom215/perfwatch/internal/timeseries"
	ws "github.com/tomtom215/perfwatch/internal/websocket"
)

// relayTopics maps bus topics onto stream message types.
var relayTopics = map[string]string{
	events.TopicAlertTriggered:      ws.MessageTypeAlertTriggered,
	events.TopicAlertResolved:       ws.MessageTypeAlertResolved,
	events.TopicBottlenecksDetected: ws.MessageTypeBottlenecksDetected,
}

// app holds every long-lived component of the server.
type app struct {
	cfg        *config.Config
	archive    *archive.Archive // nil when archive.enabled is false
	audit      *audit.Logger    // nil when audit.enabled is false
	publisher  *events.Publisher
	dispatcher *notify.Dispatcher
	records    *notify.RecordStore
	alerts     *alerting.Manager
	hub        *ws.Hub
	relay      *ws.Relay // nil unless events travel over NATS
	collector  *telemetry.Collector
	engine     *engine.Engine
	router     http.Handler
}

// buildApp wires components from cfg. On error everything opened so far is
// closed.
//
//nolint:gocyclo // sequential wiring
func buildApp(cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	if cfg.Archive.Enabled {
		a.archive, err = archive.Open(archive.Options{Path: cfg.Archive.Path, TTL: cfg.Archive.TTL()})
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.Archive.Path).Msg("alert archive opened")
	}

	ruleSet, err := cfg.BuildRules()
	if err != nil {
		return nil, err
	}
	ruleEngine, err := rules.NewEngine(ruleSet)
	if err != nil {
		return nil, fmt.Errorf("build rule engine: %w", err)
	}

	// Typed nil pointers must not reach the interface-typed archive options.
	alertOpts := []alerting.Option{alerting.WithMaxHistory(cfg.Engine.MaxAlertHistory)}
	var recordArchive notify.RecordArchive
	if a.archive != nil {
		alertOpts = append(alertOpts, alerting.WithArchive(a.archive))
		recordArchive = a.archive
	}
	a.alerts = alerting.NewManager(alertOpts...)
	if a.archive != nil {
		n, restoreErr := a.alerts.Restore()
		if restoreErr != nil {
			logging.Warn().Err(restoreErr).Msg("failed to restore alerts from archive")
		} else {
			logging.Info().Int("alerts", n).Msg("alerts restored from archive")
		}
	}

	a.records = notify.NewRecordStore(cfg.Notify.MaxRecords, recordArchive)
	a.dispatcher = notify.NewDispatcher(a.records, notify.DispatcherConfig{
		SendTimeout: cfg.Notify.SendTimeout(),
		MinInterval: cfg.Notify.MinInterval(),
		Burst:       cfg.Notify.Burst,
	},
		notify.NewWebhookChannel(notify.WebhookConfig{URL: cfg.Channels.WebhookURL, Timeout: cfg.Notify.SendTimeout()}),
		notify.NewSlackChannel(notify.SlackConfig{
			WebhookURL: cfg.Channels.SlackWebhookURL,
			Username:   cfg.Channels.SlackUsername,
			Timeout:    cfg.Notify.SendTimeout(),
		}),
		notify.NewEmailChannel(cfg.Channels.EmailTarget),
	)

	pubCfg := events.DefaultPublisherConfig()
	pubCfg.NATSURL = cfg.Events.NATSURL
	pubCfg.MaxReconnects = cfg.Events.MaxReconnects
	if wait := cfg.Events.ReconnectWait(); wait > 0 {
		pubCfg.ReconnectWait = wait
	}
	a.publisher, err = events.NewPublisher(pubCfg)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("backend", a.publisher.Backend()).Msg("event publisher ready")

	a.hub = ws.NewHub()

	// With NATS every instance relays the shared stream to its own clients.
	// In process the engine broadcasts directly.
	var broadcaster engine.Broadcaster = a.hub
	if a.publisher.Backend() == "nats" {
		a.relay = ws.NewRelay(a.hub, a.publisher.Subscriber(), relayTopics)
		broadcaster = nil
	}

	collectorCfg := telemetry.DefaultCollectorConfig()
	collectorCfg.Window = cfg.Telemetry.Window()
	collectorCfg.Buckets = cfg.Telemetry.Buckets
	collectorCfg.EventBuffer = cfg.Telemetry.EventBuffer
	collectorCfg.Instances = cfg.Telemetry.Instances
	gauges := telemetry.NewHostGauges(cfg.Telemetry.DiskPath, cfg.Telemetry.ProbeAddress, cfg.Telemetry.ProbeTimeout())
	a.collector = telemetry.NewCollector(collectorCfg, gauges)

	breakerCfg := telemetry.DefaultBreakerConfig()
	breakerCfg.Timeout = cfg.Telemetry.ReadTimeout()
	breakerCfg.ConsecutiveFailures = cfg.Telemetry.BreakerFailures
	breakerCfg.OpenTimeout = cfg.Telemetry.BreakerOpenTimeout()
	source := telemetry.NewBreakerSource(a.collector, breakerCfg)

	store := timeseries.NewStore(cfg.Engine.RetentionPeriod())
	builder := snapshot.NewBuilder(source, store, snapshot.WithTimeout(cfg.Telemetry.ReadTimeout()))

	a.engine, err = engine.New(engine.Config{
		TickInterval:       cfg.Engine.TickInterval(),
		PredictiveInterval: cfg.Engine.PredictiveInterval(),
		MaxBottlenecks:     cfg.Engine.MaxBottlenecks,
		Thresholds:         cfg.Thresholds,
		CostRates:          cfg.Cost,
		Compliance:         cfg.Compliance,
	}, engine.Deps{
		Builder:     builder,
		Store:       store,
		Rules:       ruleEngine,
		Alerts:      a.alerts,
		Dispatcher:  a.dispatcher,
		Records:     a.records,
		Publisher:   a.publisher,
		Broadcaster: broadcaster,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	handlerOpts := []api.HandlerOption{api.WithTelemetryHealth(source)}
	if cfg.Audit.Enabled {
		a.audit = audit.NewLogger(audit.NewMemoryStore(cfg.Audit.MaxEvents), audit.Config{
			Retention:       cfg.Audit.Retention(),
			CleanupInterval: cfg.Audit.CleanupInterval(),
		})
		handlerOpts = append(handlerOpts, api.WithAuditLog(a.audit))
	}

	a.router = api.NewRouter(api.NewHandler(a.engine, a.hub, handlerOpts...), api.RouterConfig{
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow(),
		RateLimitDisabled: cfg.Server.RateLimitDisabled,
		Observe:           a.collector.Middleware,
		Stream:            ws.Handler(a.hub, cfg.Server.CORSOrigins),
	})
	return a, nil
}

// httpServer returns the server for the configured address.
func (a *app) httpServer() *http.Server {
	return &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a.router,
		ReadTimeout:       a.cfg.Server.ReadTimeout(),
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout(),
		WriteTimeout:      a.cfg.Server.WriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}
}

// supervise adds every service to tree.
func (a *app) supervise(tree *supervisor.SupervisorTree, srv services.HTTPServer) {
	tree.AddEngineService(services.NewCollectorService(a.collector))
	tree.AddEngineService(services.NewEngineService(a.engine))
	tree.AddMessagingService(services.NewWebSocketHubService(a.hub))
	if a.relay != nil {
		tree.AddMessagingService(services.NewEventRelayService(a.relay))
	}
	if a.audit != nil {
		tree.AddAPIService(services.NewAuditCleanupService(a.audit))
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, a.cfg.Server.ShutdownTimeout()))
}

// close releases resources in reverse dependency order. In-flight
// notifications get until ctx is done.
func (a *app) close(ctx context.Context) {
	var errs []error
	if a.engine != nil {
		a.engine.Stop()
		a.engine.Close()
	}
	if a.dispatcher != nil {
		if err := a.dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher: %w", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit: %w", err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		logging.Error().Err(err).Msg("error during shutdown")
	}
}
