// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package timeseries

import (
	"testing"
	"time"

	"github.com/tomtom215/perfwatch/internal/models"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func snapAt(ts time.Time, rt float64) models.Snapshot {
	return models.Snapshot{
		Timestamp:   ts,
		Performance: models.PerformanceMetrics{AvgResponseTimeMs: rt},
	}
}

func TestInsertIsIdempotentOnTimestamp(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: base}
	s := NewStore(time.Hour, WithClock(clock.Now))

	if !s.Insert(snapAt(base, 100)) {
		t.Fatal("first insert returned false")
	}
	if s.Insert(snapAt(base, 999)) {
		t.Error("duplicate insert returned true")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	latest, _ := s.Latest()
	if latest.Performance.AvgResponseTimeMs != 100 {
		t.Errorf("duplicate overwrote entry: rt = %v", latest.Performance.AvgResponseTimeMs)
	}
}

func TestRecentIsAscendingAndExclusive(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: base.Add(10 * time.Minute)}
	s := NewStore(DefaultRetention, WithClock(clock.Now))

	// Insert out of order.
	for _, m := range []int{5, 1, 9, 3, 7} {
		s.Insert(snapAt(base.Add(time.Duration(m)*time.Minute), float64(m)))
	}

	got := s.Recent(5 * time.Minute)
	// now-5m = base+5m, exclusive, so 7 and 9 remain.
	if len(got) != 2 {
		t.Fatalf("Recent(5m) returned %d entries, want 2", len(got))
	}
	if got[0].Performance.AvgResponseTimeMs != 7 || got[1].Performance.AvgResponseTimeMs != 9 {
		t.Errorf("Recent(5m) = [%v %v], want [7 9]", got[0].Performance.AvgResponseTimeMs, got[1].Performance.AvgResponseTimeMs)
	}

	all := s.Recent(time.Hour)
	for i := 1; i < len(all); i++ {
		if !all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Fatalf("entries not ascending at %d", i)
		}
	}
}

func TestRecentReturnsCopy(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: base}
	s := NewStore(time.Hour, WithClock(clock.Now))
	s.Insert(snapAt(base, 1))

	got := s.Recent(time.Hour)
	got[0].Performance.AvgResponseTimeMs = 42

	again := s.Recent(time.Hour)
	if again[0].Performance.AvgResponseTimeMs != 1 {
		t.Error("mutating Recent result changed the store")
	}
}

func TestInsertPrunesExpired(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: base}
	s := NewStore(time.Hour, WithClock(clock.Now))

	s.Insert(snapAt(base, 1))
	clock.Advance(30 * time.Minute)
	s.Insert(snapAt(clock.Now(), 2))
	clock.Advance(31 * time.Minute)
	s.Insert(snapAt(clock.Now(), 3))

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 after pruning", s.Len())
	}
	for _, e := range s.Recent(24 * time.Hour) {
		if !e.Timestamp.After(clock.Now().Add(-time.Hour)) {
			t.Errorf("entry at %v is outside retention", e.Timestamp)
		}
	}
}

func TestRecentHonoursRetentionWithoutInsert(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: base}
	s := NewStore(time.Hour, WithClock(clock.Now))
	s.Insert(snapAt(base, 1))

	clock.Advance(2 * time.Hour)
	if got := s.Recent(24 * time.Hour); len(got) != 0 {
		t.Errorf("Recent returned %d expired entries", len(got))
	}
}

func TestPruneBoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Hour)
	s.entries = []models.Snapshot{snapAt(base, 1), snapAt(base.Add(time.Minute), 2)}

	removed := s.Prune(base.Add(time.Hour))
	if removed != 1 {
		t.Errorf("Prune removed %d, want 1 (entry exactly at cutoff)", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestDefaultRetention(t *testing.T) {
	t.Parallel()

	if got := NewStore(0).Retention(); got != DefaultRetention {
		t.Errorf("Retention() = %v, want %v", got, DefaultRetention)
	}
	if _, ok := NewStore(0).Latest(); ok {
		t.Error("Latest() on empty store returned ok")
	}
}
