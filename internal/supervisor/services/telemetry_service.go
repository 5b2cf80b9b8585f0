// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package services

import (
	"context"
)

// CollectorService runs the in-process telemetry collector that folds
// request events into the rolling window read by each tick.
type CollectorService struct {
	collector ContextHub
}

// NewCollectorService wraps a *telemetry.Collector.
func NewCollectorService(c ContextHub) *CollectorService {
	return &CollectorService{collector: c}
}

// Serve implements suture.Service.
func (c *CollectorService) Serve(ctx context.Context) error {
	return c.collector.RunWithContext(ctx)
}

func (c *CollectorService) String() string {
	return "telemetry-collector"
}
