// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package middleware provides HTTP middleware shared by the query surface.

  - RequestID: honours or generates X-Request-ID and seeds the logging
    context with request and correlation IDs
  - PrometheusMetrics: request counts, durations and in-flight gauge,
    labelled by chi route pattern so path parameters do not explode label
    cardinality

Both have the func(http.Handler) http.Handler shape and can be passed to
chi's Use.
*/
package middleware
