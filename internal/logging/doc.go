// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package logging provides the zerolog-based structured logger used across Perfwatch.
//
// A global logger is configured once from main via Init and accessed through
// the level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("rule_id", id).Msg("alert triggered")
//
// Long-lived components derive their own child logger:
//
//	logger := logging.Component("tick-loop")
//
// Correlation IDs travel in context.Context. Each engine tick and each HTTP
// request gets one, and Ctx(ctx) attaches it to log lines.
//
// Two adapters let libraries that expect other logging interfaces write
// through zerolog: NewSlogLogger for suture's sutureslog hook, and
// NewWatermillLogger for the Watermill event publisher.
package logging
