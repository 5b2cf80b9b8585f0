// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package snapshot

import (
	"context"

	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/telemetry"
)

// BusinessProvider supplies the business and user-behavior block of a
// snapshot. Real deployments plug in analytics-backed providers.
type BusinessProvider interface {
	BusinessMetrics(ctx context.Context, raw telemetry.RawCounters) (models.BusinessMetrics, error)
}

// StubProvider is the default provider. It reports neutral values and marks
// them as simulated so reports can label them.
type StubProvider struct{}

// BusinessMetrics implements BusinessProvider.
func (StubProvider) BusinessMetrics(context.Context, telemetry.RawCounters) (models.BusinessMetrics, error) {
	return models.BusinessMetrics{Simulated: true}, nil
}

// ProviderFunc adapts a function to BusinessProvider.
type ProviderFunc func(ctx context.Context, raw telemetry.RawCounters) (models.BusinessMetrics, error)

// BusinessMetrics implements BusinessProvider.
func (f ProviderFunc) BusinessMetrics(ctx context.Context, raw telemetry.RawCounters) (models.BusinessMetrics, error) {
	return f(ctx, raw)
}
