// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/perfwatch/internal/engine"
	"github.com/tomtom215/perfwatch/internal/logging"
)

// EngineRunner is satisfied by *engine.Engine.
type EngineRunner interface {
	Run(ctx context.Context) error
}

// EngineService runs the tick and predictive loops.
type EngineService struct {
	engine EngineRunner
}

// NewEngineService wraps e.
func NewEngineService(e EngineRunner) *EngineService {
	return &EngineService{engine: e}
}

// Serve implements suture.Service.
//
// Run returns nil when the engine is stopped through Engine.Stop while ctx
// is still live. That stop is deliberate, so the service asks not to be
// restarted. An engine already running elsewhere is reported the same way.
func (s *EngineService) Serve(ctx context.Context) error {
	err := s.engine.Run(ctx)
	switch {
	case errors.Is(err, engine.ErrAlreadyRunning):
		logger := logging.Component("supervisor")
		logger.Warn().Err(err).Msg("engine already running, not supervising a second instance")
		return suture.ErrDoNotRestart
	case err == nil && ctx.Err() == nil:
		return suture.ErrDoNotRestart
	default:
		return err
	}
}

func (s *EngineService) String() string {
	return "engine"
}
