// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package snapshot persists a lightweight serialization of grid state so
// the view can be restored after the surface is hidden and shown again.
//
// Persistence is debounced on a trailing timer and best-effort: a write
// scheduled just before teardown is simply skipped, never an error.
package snapshot

import (
	"time"

	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

// DefaultDebounce is the trailing quiet period before a snapshot write.
const DefaultDebounce = 300 * time.Millisecond

// Snapshot is one serializable capture of grid state.
//
// The selection is an explicit list rather than a set: the underlying
// set structure guarantees neither order nor serialization support.
type Snapshot struct {
	SourceID   string               `json:"sourceId"`
	Records    []datatypes.Record   `json:"records"`
	Selected   []string             `json:"selected"`
	Criteria   datatypes.Criteria   `json:"criteria"`
	Pagination datatypes.Pagination `json:"pagination"`
	SavedAt    time.Time            `json:"savedAt"`
}
