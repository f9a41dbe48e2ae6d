// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadger(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_SaveLoad(t *testing.T) {
	store := openTestStore(t)

	snap := Snapshot{
		SourceID: "src",
		Records:  []datatypes.Record{{ID: "r1", Name: "Alpha"}},
		Selected: []string{"r1"},
		Criteria: datatypes.DefaultCriteria(),
		Pagination: datatypes.Pagination{
			PageSize: 50,
			Page:     2,
		},
		SavedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(snap))

	got, err := store.Load("src")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.Selected, got.Selected)
	assert.Equal(t, snap.Pagination, got.Pagination)
	assert.Equal(t, snap.Criteria.SortColumn, got.Criteria.SortColumn)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "Alpha", got.Records[0].Name)
}

func TestBadgerStore_LoadAbsentReturnsNil(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Load("never-saved")
	require.NoError(t, err, "a missing snapshot is not an error")
	assert.Nil(t, got)
}

func TestBadgerStore_SaveOverwrites(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Save(Snapshot{SourceID: "src", Selected: []string{"old"}}))
	require.NoError(t, store.Save(Snapshot{SourceID: "src", Selected: []string{"new"}}))

	got, err := store.Load("src")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"new"}, got.Selected)
}

func TestBadgerStore_LoadLatestPicksNewestAcrossSources(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Save(Snapshot{SourceID: "old", Selected: []string{"x"}, SavedAt: base.Add(-time.Hour)}))
	require.NoError(t, store.Save(Snapshot{SourceID: "new", Selected: []string{"y"}, SavedAt: base}))

	got, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.SourceID)
	assert.Equal(t, []string{"y"}, got.Selected)
}

func TestBadgerStore_LoadLatestEmptyReturnsNil(t *testing.T) {
	store := openTestStore(t)

	got, err := store.LoadLatest()
	require.NoError(t, err, "an empty store is not an error")
	assert.Nil(t, got)
}

func TestBadgerStore_SourcesAreIndependent(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Save(Snapshot{SourceID: "a", Selected: []string{"x"}}))
	require.NoError(t, store.Save(Snapshot{SourceID: "b", Selected: []string{"y"}}))

	a, err := store.Load("a")
	require.NoError(t, err)
	b, err := store.Load("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, a.Selected)
	assert.Equal(t, []string{"y"}, b.Selected)
}

func TestDebouncedWritesReachStore(t *testing.T) {
	store := openTestStore(t)
	d := NewDebouncer(10*time.Millisecond, func(s Snapshot) { _ = store.Save(s) })
	defer d.Close()

	d.Schedule(Snapshot{SourceID: "src", Selected: []string{"r1", "r2"}})
	d.Flush()

	got, err := store.Load("src")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"r1", "r2"}, got.Selected)
}
