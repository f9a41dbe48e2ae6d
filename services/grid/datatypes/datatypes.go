// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the shared data vocabulary of the grid engine:
// change records, view criteria, and pagination state.
//
// These are plain value types with no behavior beyond field access and
// parsing. They sit below every other grid package (engine, boundary,
// snapshot, host) so none of those packages need to import each other.
package datatypes

import "time"

// =============================================================================
// Record
// =============================================================================

// Record represents one detected change to a named component.
//
// Records are immutable: the collection is replaced wholesale on every
// fetch and individual records are never mutated in place.
//
// ID is origin-assigned and must be unique within one loaded collection.
// Uniqueness is not enforced here; duplicate ids produce undefined row
// identity and are the upstream source's contract to prevent.
type Record struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Category   string `json:"category" yaml:"category"`
	ModifiedBy string `json:"modifiedBy" yaml:"modified_by"`
	ModifiedAt string `json:"modifiedAt" yaml:"modified_at"`
}

// Column identifies a displayed grid column.
type Column int

const (
	// ColumnName is the record's display name.
	ColumnName Column = iota

	// ColumnCategory is the record's type classifier.
	ColumnCategory

	// ColumnModifiedBy is the display name of the last modifier.
	ColumnModifiedBy

	// ColumnCreatedBy intentionally mirrors ColumnModifiedBy: the data
	// source carries no distinct creator field, and the duplicated column
	// is a confirmed part of the layout, not a bug.
	ColumnCreatedBy

	// ColumnModifiedAt is the ISO-8601 modification timestamp.
	ColumnModifiedAt
)

// Columns lists the displayed columns in layout order.
var Columns = []Column{ColumnName, ColumnCategory, ColumnModifiedBy, ColumnCreatedBy, ColumnModifiedAt}

// String returns the column's header title.
func (c Column) String() string {
	switch c {
	case ColumnName:
		return "Name"
	case ColumnCategory:
		return "Category"
	case ColumnModifiedBy:
		return "Modified By"
	case ColumnCreatedBy:
		return "Created By"
	case ColumnModifiedAt:
		return "Modified At"
	default:
		return "Unknown"
	}
}

// IsDate reports whether the column holds a timestamp and therefore sorts
// semantically rather than lexically.
func (c Column) IsDate() bool { return c == ColumnModifiedAt }

// Field returns the record's raw value for the given column.
// Absent fields are empty strings.
func (r Record) Field(c Column) string {
	switch c {
	case ColumnName:
		return r.Name
	case ColumnCategory:
		return r.Category
	case ColumnModifiedBy, ColumnCreatedBy:
		return r.ModifiedBy
	case ColumnModifiedAt:
		return r.ModifiedAt
	default:
		return ""
	}
}

// timestampLayouts are the accepted ModifiedAt forms, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a record timestamp string.
//
// Returns the parsed time and true on success. Absent or unparseable
// values return false; callers treat those as the lowest possible value
// when sorting and fall back to the raw string when displaying.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// =============================================================================
// View Criteria
// =============================================================================

// Tab identifies which subset of records is eligible for the view at all.
type Tab int

const (
	// TabAll scopes the view to the full record collection.
	TabAll Tab = iota

	// TabSelected scopes the view to records in the selection set.
	TabSelected
)

// String returns the tab's display label.
func (t Tab) String() string {
	if t == TabSelected {
		return "Selected"
	}
	return "All"
}

// SortDirection orders the sorted view ascending or descending.
type SortDirection int

const (
	// SortAsc sorts lowest-first.
	SortAsc SortDirection = iota

	// SortDesc sorts highest-first.
	SortDesc
)

// Toggled returns the opposite direction.
func (d SortDirection) Toggled() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// String returns "asc" or "desc".
func (d SortDirection) String() string {
	if d == SortDesc {
		return "desc"
	}
	return "asc"
}

// Criteria is the active view criteria: tab scope, per-column substring
// filters, one exact-match category filter, and the sort key.
//
// Filters are AND-combined; an empty filter string is inactive. The fixed
// derivation order (scope, then filters, then sort) means the sort never
// influences which records are included, only their order.
type Criteria struct {
	Tab        Tab               `json:"tab"`
	Filters    map[Column]string `json:"filters,omitempty"`
	Category   string            `json:"category,omitempty"`
	SortColumn Column            `json:"sortColumn"`
	SortDir    SortDirection     `json:"sortDir"`
}

// DefaultCriteria returns the initial view criteria: all records, no
// filters, sorted by modification time descending.
func DefaultCriteria() Criteria {
	return Criteria{
		Tab:        TabAll,
		SortColumn: ColumnModifiedAt,
		SortDir:    SortDesc,
	}
}

// Filter returns the active substring filter for a column, or "".
func (c Criteria) Filter(col Column) string {
	if c.Filters == nil {
		return ""
	}
	return c.Filters[col]
}

// WithFilter returns a copy of the criteria with the given column filter
// set (or removed, when value is empty). The receiver's filter map is
// never mutated, so previously derived views stay comparable.
func (c Criteria) WithFilter(col Column, value string) Criteria {
	filters := make(map[Column]string, len(c.Filters)+1)
	for k, v := range c.Filters {
		filters[k] = v
	}
	if value == "" {
		delete(filters, col)
	} else {
		filters[col] = value
	}
	if len(filters) == 0 {
		filters = nil
	}
	c.Filters = filters
	return c
}

// HasFilters reports whether any column or category filter is active.
func (c Criteria) HasFilters() bool {
	return len(c.Filters) > 0 || c.Category != ""
}

// =============================================================================
// Pagination
// =============================================================================

// PageSizeChoices are the selectable page sizes.
var PageSizeChoices = []int{10, 25, 50, 100}

// DefaultPageSize is the initial page size.
const DefaultPageSize = 25

// Pagination is the grid's pagination state. Page is 1-indexed and is
// kept clamped to the derived view's page count by the controller.
type Pagination struct {
	PageSize int `json:"pageSize"`
	Page     int `json:"page"`
}

// DefaultPagination returns page 1 at the default page size.
func DefaultPagination() Pagination {
	return Pagination{PageSize: DefaultPageSize, Page: 1}
}
