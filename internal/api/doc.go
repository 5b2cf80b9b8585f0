// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package api exposes the engine's query surface over HTTP.

All report endpoints are GET requests under /api/v1 and share one envelope:

	{"success": true, "data": {...}, "generatedAt": "2026-04-01T09:00:00Z"}
	{"success": false, "message": "...", "error": "..."}

Routes:

	GET  /api/v1/performance/overview
	GET  /api/v1/performance/bottlenecks
	GET  /api/v1/users/behavior
	GET  /api/v1/capacity/planning
	GET  /api/v1/cost/analysis
	GET  /api/v1/alerts/active
	GET  /api/v1/alerts/history?limit=N
	POST /api/v1/alerts/{id}/acknowledge
	GET  /api/v1/alerts/rules
	PUT  /api/v1/alerts/rules/{id}
	GET  /api/v1/notifications?alert_id=
	GET  /api/v1/predictive/traffic
	GET  /api/v1/health/score
	GET  /api/v1/compliance/report
	GET  /api/v1/audit?type=&target=&limit=
	GET  /api/v1/stream (WebSocket)
	GET  /health
	GET  /metrics

The router is built on chi with go-chi/cors and go-chi/httprate.
*/
package api
