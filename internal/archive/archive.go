// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package archive persists alerts and notification records in BadgerDB.
//
// The engine keeps its working state in memory; the archive is a
// write-through copy used to restore alert history and cooldown times after a
// restart and to answer history queries that outlive the in-memory caps.
package archive

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	alertKeyPrefix        = "alert:"
	notificationKeyPrefix = "notification:"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("archive: not found")

// Options configures the archive.
type Options struct {
	// Path is the BadgerDB directory. Empty opens an in-memory database.
	Path string

	// TTL expires entries after the given age. Zero keeps entries forever.
	TTL time.Duration
}

// Archive is a BadgerDB-backed store for alerts and notification records.
type Archive struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the archive.
func Open(opts Options) (*Archive, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger archive: %w", err)
	}
	return &Archive{db: db, ttl: opts.TTL}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) entry(key, val []byte) *badger.Entry {
	e := badger.NewEntry(key, val)
	if a.ttl > 0 {
		e = e.WithTTL(a.ttl)
	}
	return e
}

// SaveAlert writes (or overwrites) an alert keyed by its ID.
func (a *Archive) SaveAlert(alert *models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(a.entry([]byte(alertKeyPrefix+alert.ID), data)); err != nil {
			return fmt.Errorf("set alert: %w", err)
		}
		return nil
	})
}

// Alert returns one archived alert.
func (a *Archive) Alert(id string) (models.Alert, error) {
	var alert models.Alert
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(alertKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get alert: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &alert)
		})
	})
	return alert, err
}

// LoadAlerts returns every archived alert in key order. Callers sort as needed.
func (a *Archive) LoadAlerts() ([]models.Alert, error) {
	var alerts []models.Alert
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(alertKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var alert models.Alert
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &alert)
			})
			if err != nil {
				return fmt.Errorf("decode alert %s: %w", it.Item().Key(), err)
			}
			alerts = append(alerts, alert)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// notificationKey orders records by alert, then time, then channel.
func notificationKey(r *models.NotificationRecord) []byte {
	ts := strconv.FormatInt(r.Timestamp.UnixNano(), 10)
	return []byte(notificationKeyPrefix + r.AlertID + ":" + ts + ":" + string(r.Channel))
}

// AppendNotification stores one delivery record.
func (a *Archive) AppendNotification(r *models.NotificationRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(a.entry(notificationKey(r), data))
	})
}

// Notifications returns archived records for one alert, or for all alerts
// when alertID is empty.
func (a *Archive) Notifications(alertID string) ([]models.NotificationRecord, error) {
	prefix := []byte(notificationKeyPrefix)
	if alertID != "" {
		prefix = []byte(notificationKeyPrefix + alertID + ":")
	}

	var records []models.NotificationRecord
	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r models.NotificationRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode notification: %w", err)
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return records, nil
}
