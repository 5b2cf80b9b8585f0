// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/models"
)

// DefaultMaxRecords caps the in-memory record list.
const DefaultMaxRecords = 10000

// RecordArchive persists notification records.
type RecordArchive interface {
	AppendNotification(r *models.NotificationRecord) error
}

// RecordStore is an append-only, concurrency-safe list of delivery records.
type RecordStore struct {
	mu      sync.RWMutex
	records []models.NotificationRecord
	max     int
	archive RecordArchive
	logger  zerolog.Logger
}

// NewRecordStore creates a store keeping at most max records in memory
// (DefaultMaxRecords when max <= 0). archive may be nil.
func NewRecordStore(maxRecords int, archive RecordArchive) *RecordStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &RecordStore{
		max:     maxRecords,
		archive: archive,
		logger:  logging.Component("notify-records"),
	}
}

// Add appends one record.
func (s *RecordStore) Add(r models.NotificationRecord) {
	s.mu.Lock()
	s.records = append(s.records, r)
	if excess := len(s.records) - s.max; excess > 0 {
		s.records = append([]models.NotificationRecord(nil), s.records[excess:]...)
	}
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.AppendNotification(&r); err != nil {
			s.logger.Error().Err(err).Str("alert_id", r.AlertID).Msg("failed to archive notification record")
		}
	}
}

// Records returns a copy of all records, oldest first.
func (s *RecordStore) Records() []models.NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.NotificationRecord(nil), s.records...)
}

// ForAlert returns the records of one alert, oldest first.
func (s *RecordStore) ForAlert(alertID string) []models.NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.NotificationRecord
	for i := range s.records {
		if s.records[i].AlertID == alertID {
			out = append(out, s.records[i])
		}
	}
	return out
}

// Len returns the number of records held in memory.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
