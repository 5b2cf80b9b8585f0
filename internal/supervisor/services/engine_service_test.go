// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/perfwatch/internal/engine"
)

type engineFunc func(ctx context.Context) error

func (f engineFunc) Run(ctx context.Context) error { return f(ctx) }

func TestEngineService_Serve(t *testing.T) {
	var _ suture.Service = (*EngineService)(nil)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	boom := errors.New("boom")

	tests := []struct {
		name string
		ctx  context.Context
		run  engineFunc
		want error
	}{
		{
			name: "ctx canceled",
			ctx:  canceled,
			run:  func(ctx context.Context) error { return ctx.Err() },
			want: context.Canceled,
		},
		{
			name: "stopped deliberately",
			ctx:  context.Background(),
			run:  func(context.Context) error { return nil },
			want: suture.ErrDoNotRestart,
		},
		{
			name: "already running",
			ctx:  context.Background(),
			run:  func(context.Context) error { return engine.ErrAlreadyRunning },
			want: suture.ErrDoNotRestart,
		},
		{
			name: "other error restarts",
			ctx:  context.Background(),
			run:  func(context.Context) error { return boom },
			want: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEngineService(tt.run).Serve(tt.ctx)
			if !errors.Is(err, tt.want) {
				t.Errorf("Serve() = %v, want %v", err, tt.want)
			}
		})
	}

	if got := NewEngineService(nil).String(); got != "engine" {
		t.Errorf("String() = %q, want engine", got)
	}
}
