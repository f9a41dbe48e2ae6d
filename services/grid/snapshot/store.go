// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store persists snapshots keyed by source id.
type Store interface {
	// Save persists a snapshot, replacing any previous one for its source.
	Save(s Snapshot) error

	// Load returns the snapshot for a source, or nil when none exists.
	Load(sourceID string) (*Snapshot, error)

	// LoadLatest returns the most recently saved snapshot across all
	// sources, or nil when the store is empty. Used when no source id is
	// known yet at startup.
	LoadLatest() (*Snapshot, error)

	// Close releases the underlying storage.
	Close() error
}

// =============================================================================
// BadgerDB-backed store
// =============================================================================

// snapshotKeyPrefix namespaces snapshot entries inside the database.
const snapshotKeyPrefix = "snapshot/"

// BadgerOptions configures the embedded store.
type BadgerOptions struct {
	// Path is the directory for database files. Ignored when InMemory.
	Path string

	// InMemory disables disk persistence. Used in tests.
	InMemory bool

	// SyncWrites forces durable writes. Snapshots are best-effort, so
	// the grid runs with this off; flip it on if losing the last
	// snapshot on power loss ever matters.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// BadgerStore is an embedded BadgerDB snapshot store.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) the snapshot database.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	bo := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1)
	if opts.InMemory {
		bo = bo.WithDir("").WithValueDir("")
	}
	if opts.Logger != nil {
		bo = bo.WithLogger(slogBadger{log: opts.Logger})
	} else {
		bo = bo.WithLogger(nil)
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Save implements Store.
func (s *BadgerStore) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(snap.SourceID), data)
	})
	if err != nil {
		return fmt.Errorf("write snapshot for %s: %w", snap.SourceID, err)
	}
	return nil
}

// Load implements Store.
func (s *BadgerStore) Load(sourceID string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(sourceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded Snapshot
			if err := json.Unmarshal(val, &decoded); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			snap = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read snapshot for %s: %w", sourceID, err)
	}
	return snap, nil
}

// LoadLatest implements Store. Snapshots are one-per-source, so a full
// prefix scan stays small.
func (s *BadgerStore) LoadLatest() (*Snapshot, error) {
	var latest *Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(snapshotKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var decoded Snapshot
				if err := json.Unmarshal(val, &decoded); err != nil {
					return fmt.Errorf("decode snapshot: %w", err)
				}
				if latest == nil || decoded.SavedAt.After(latest.SavedAt) {
					latest = &decoded
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	return latest, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close snapshot store: %w", err)
	}
	return nil
}

func snapshotKey(sourceID string) []byte {
	return []byte(snapshotKeyPrefix + sourceID)
}

// slogBadger adapts slog to BadgerDB's logger interface.
type slogBadger struct {
	log *slog.Logger
}

func (l slogBadger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l slogBadger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l slogBadger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l slogBadger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
