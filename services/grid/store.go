// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grid

import (
	"sort"

	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

// Store holds the full unfiltered record collection and the set of
// selected record ids.
//
// # Description
//
// The record collection is replaced atomically on every fetch; individual
// records are never mutated. Selection membership is independent of
// visibility: a record filtered out of view stays selected, and ids whose
// records disappear on a refresh are allowed to linger in the set — the
// host rejects them if a commit ever references them.
//
// # Thread Safety
//
// Store is designed for single-threaded use inside the grid's event loop.
// Do not share one Store across goroutines.
type Store struct {
	records  []datatypes.Record
	selected map[string]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{selected: make(map[string]struct{})}
}

// =============================================================================
// Records
// =============================================================================

// ReplaceAll atomically replaces the record collection.
//
// The selection set is deliberately left untouched: a late-arriving fetch
// must not wipe what the user has marked, and stale ids are tolerated.
func (s *Store) ReplaceAll(records []datatypes.Record) {
	s.records = make([]datatypes.Record, len(records))
	copy(s.records, records)
}

// Records returns the full unfiltered collection. Callers must treat the
// returned slice as read-only.
func (s *Store) Records() []datatypes.Record { return s.records }

// Len returns the number of loaded records.
func (s *Store) Len() int { return len(s.records) }

// Get returns the record with the given id, if present.
func (s *Store) Get(id string) (datatypes.Record, bool) {
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return datatypes.Record{}, false
}

// =============================================================================
// Selection
// =============================================================================

// Toggle flips membership of id in the selection set and returns the new
// membership state.
//
// There is deliberately no existence guard: toggling an id that is not in
// the loaded collection is valid, which keeps a click racing a refresh
// harmless.
func (s *Store) Toggle(id string) bool {
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = struct{}{}
	return true
}

// SetMany sets every id in ids to the given membership state in one
// batch. Callers pass exactly the current page's visible ids, so
// "select all" is always scoped to what the user can see.
func (s *Store) SetMany(ids []string, selected bool) {
	for _, id := range ids {
		if selected {
			s.selected[id] = struct{}{}
		} else {
			delete(s.selected, id)
		}
	}
}

// Clear empties the selection set. Invoked only after a confirmed
// successful commit.
func (s *Store) Clear() {
	s.selected = make(map[string]struct{})
}

// IsSelected reports membership of id in the selection set.
func (s *Store) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// Count returns the size of the selection set (drives the tab badge).
func (s *Store) Count() int { return len(s.selected) }

// SelectedSet returns the selection set itself for view derivation.
// Callers must treat the returned map as read-only.
func (s *Store) SelectedSet() map[string]struct{} { return s.selected }

// SelectedIDs returns the selected ids as an explicit sorted list.
// Sets have no serialization-stable order, so everything that persists
// or transmits the selection goes through this.
func (s *Store) SelectedIDs() []string {
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RestoreSelection replaces the selection set from an explicit id list,
// used when restoring a session snapshot.
func (s *Store) RestoreSelection(ids []string) {
	s.selected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.selected[id] = struct{}{}
	}
}

// =============================================================================
// Visible-page readouts
// =============================================================================

// AllVisibleSelected reports whether every id in ids is selected.
// False for an empty page, so the header checkbox never shows checked
// over nothing.
func (s *Store) AllVisibleSelected(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if _, ok := s.selected[id]; !ok {
			return false
		}
	}
	return true
}

// SomeVisibleSelected reports whether at least one id in ids is selected.
// Together with AllVisibleSelected this drives the tri-state header
// checkbox: checked when all, indeterminate when some but not all,
// unchecked otherwise.
func (s *Store) SomeVisibleSelected(ids []string) bool {
	for _, id := range ids {
		if _, ok := s.selected[id]; ok {
			return true
		}
	}
	return false
}
