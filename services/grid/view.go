// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grid

import (
	"sort"
	"strings"

	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

// DeriveView computes the filtered, sorted sequence of records from the
// full collection and the current criteria.
//
// # Description
//
// The derivation order is fixed: tab scope first, then per-column filters
// (AND-combined), then a stable sort. The sort therefore never influences
// which records are included, only their order.
//
// Substring filters match case-insensitively against the column's raw
// field value; an absent field is treated as the empty string and never
// matches a non-empty filter. The category filter is an exact match.
//
// The date column compares semantically as timestamps, with absent or
// unparseable values sorting as the lowest; every other column compares
// as a case-sensitive string on the raw value. Ties preserve the prior
// relative order.
//
// # Guarantees
//
// Pure function of its three inputs: records and selected are never
// mutated, and identical inputs always yield identical output.
func DeriveView(records []datatypes.Record, selected map[string]struct{}, criteria datatypes.Criteria) []datatypes.Record {
	view := make([]datatypes.Record, 0, len(records))

	for _, r := range records {
		if criteria.Tab == datatypes.TabSelected {
			if _, ok := selected[r.ID]; !ok {
				continue
			}
		}
		if !matchesFilters(r, criteria) {
			continue
		}
		view = append(view, r)
	}

	sortView(view, criteria.SortColumn, criteria.SortDir)
	return view
}

// matchesFilters reports whether a record passes every active filter.
func matchesFilters(r datatypes.Record, criteria datatypes.Criteria) bool {
	if criteria.Category != "" && r.Category != criteria.Category {
		return false
	}
	for col, filter := range criteria.Filters {
		if filter == "" {
			continue
		}
		value := strings.ToLower(r.Field(col))
		if !strings.Contains(value, strings.ToLower(filter)) {
			return false
		}
	}
	return true
}

// sortView stable-sorts the view in place by the given column and
// direction. Descending order reverses the comparator rather than the
// slice so that ties keep their prior relative order.
func sortView(view []datatypes.Record, col datatypes.Column, dir datatypes.SortDirection) {
	less := func(a, b datatypes.Record) bool { return fieldLess(a, b, col) }
	sort.SliceStable(view, func(i, j int) bool {
		if dir == datatypes.SortDesc {
			return less(view[j], view[i])
		}
		return less(view[i], view[j])
	})
}

// fieldLess compares two records on one column in ascending order.
func fieldLess(a, b datatypes.Record, col datatypes.Column) bool {
	if col.IsDate() {
		at, aok := datatypes.ParseTimestamp(a.Field(col))
		bt, bok := datatypes.ParseTimestamp(b.Field(col))
		switch {
		case !aok && !bok:
			return false
		case !aok:
			return true
		case !bok:
			return false
		default:
			return at.Before(bt)
		}
	}
	return a.Field(col) < b.Field(col)
}
