// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package timeseries retains metric snapshots in timestamp order and prunes
// them by age.
package timeseries

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/perfwatch/internal/models"
)

// DefaultRetention is how long snapshots are kept when no retention is configured.
const DefaultRetention = 7 * 24 * time.Hour

// Store is an append-mostly, time-keyed buffer of snapshots.
// Entries are kept sorted ascending by timestamp and timestamps are unique.
type Store struct {
	mu        sync.RWMutex
	entries   []models.Snapshot
	retention time.Duration
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for pruning and windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store. A non-positive retention selects DefaultRetention.
func NewStore(retention time.Duration, opts ...Option) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Store{
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retention returns the configured retention period.
func (s *Store) Retention() time.Duration {
	return s.retention
}

// Insert adds a snapshot and prunes expired entries.
// It returns false without modifying the store if an entry already exists
// at the same timestamp.
func (s *Store) Insert(snap models.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.search(snap.Timestamp)
	if i < len(s.entries) && s.entries[i].Timestamp.Equal(snap.Timestamp) {
		return false
	}

	if i == len(s.entries) {
		s.entries = append(s.entries, snap)
	} else {
		s.entries = append(s.entries, models.Snapshot{})
		copy(s.entries[i+1:], s.entries[i:])
		s.entries[i] = snap
	}

	s.pruneLocked(s.now())
	return true
}

// Prune removes entries with timestamp <= now-retention and returns how many
// were removed.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(now)
}

func (s *Store) pruneLocked(now time.Time) int {
	cutoff := now.Add(-s.retention)
	n := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Timestamp.After(cutoff)
	})
	if n == 0 {
		return 0
	}
	// Shift rather than reslice so the backing array does not grow forever.
	remaining := copy(s.entries, s.entries[n:])
	for i := remaining; i < len(s.entries); i++ {
		s.entries[i] = models.Snapshot{}
	}
	s.entries = s.entries[:remaining]
	return n
}

// Recent returns a copy of the entries with timestamp > now-d, ascending.
// Entries past the retention period are never returned even if Prune has
// not run since they expired.
func (s *Store) Recent(d time.Duration) []models.Snapshot {
	now := s.now()
	cutoff := now.Add(-d)
	if retentionCutoff := now.Add(-s.retention); retentionCutoff.After(cutoff) {
		cutoff = retentionCutoff
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Timestamp.After(cutoff)
	})
	out := make([]models.Snapshot, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out
}

// Latest returns the most recent snapshot.
func (s *Store) Latest() (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return models.Snapshot{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Len returns the number of retained snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// search returns the first index whose timestamp is not before ts.
func (s *Store) search(ts time.Time) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].Timestamp.Before(ts)
	})
}
