// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingService fails the first fails runs, then blocks until ctx is done.
type countingService struct {
	name    string
	fails   int32
	starts  atomic.Int32
	started chan struct{}
}

func newCountingService(name string, fails int32) *countingService {
	return &countingService{name: name, fails: fails, started: make(chan struct{}, 16)}
}

func (s *countingService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	select {
	case s.started <- struct{}{}:
	default:
	}
	if n <= s.fails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func waitStarts(t *testing.T, s *countingService, n int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for s.starts.Load() < n {
		select {
		case <-s.started:
		case <-deadline:
			t.Fatalf("%s started %d times, want at least %d", s.name, s.starts.Load(), n)
		}
	}
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree := NewSupervisorTree(quietLogger(), TreeConfig{})

	if tree.Root() == nil {
		t.Fatal("Root() = nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults %+v", tree.config, DefaultTreeConfig())
	}

	custom := TreeConfig{FailureThreshold: 2, FailureDecay: 1, FailureBackoff: time.Second, ShutdownTimeout: time.Second}
	if got := NewSupervisorTree(quietLogger(), custom).config; got != custom {
		t.Errorf("config = %+v, want %+v", got, custom)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

	engineSvc := newCountingService("engine", 0)
	msgSvc := newCountingService("hub", 0)
	apiSvc := newCountingService("http", 0)
	tree.AddEngineService(engineSvc)
	tree.AddMessagingService(msgSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitStarts(t, engineSvc, 1)
	waitStarts(t, msgSvc, 1)
	waitStarts(t, apiSvc, 1)

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not shut down")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTree_RestartsFailingService(t *testing.T) {
	tree := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := newCountingService("failing", 2)
	stable := newCountingService("stable", 0)
	tree.AddMessagingService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitStarts(t, failing, 3)
	waitStarts(t, stable, 1)
	if got := stable.starts.Load(); got != 1 {
		t.Errorf("stable service starts = %d, want 1", got)
	}

	cancel()
	<-errCh
}

func TestSupervisorTree_Serve(t *testing.T) {
	tree := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want nil or DeadlineExceeded", err)
	}
}
