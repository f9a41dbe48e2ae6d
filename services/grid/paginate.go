// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grid

import "github.com/driftdeck/driftdeck/services/grid/datatypes"

// SlicePage slices the derived view into the requested page.
//
// # Description
//
// totalPages is max(1, ceil(len(view)/pageSize)), so an empty view still
// has exactly one (empty) page. The requested page is clamped into
// [1, totalPages]; when the returned effectivePage differs from the
// request, the caller must persist the corrected value back into its
// pagination state.
//
// # Outputs
//
//   - items: the records on the effective page (empty when the view is empty)
//   - effectivePage: the clamped 1-indexed page actually sliced
//   - totalPages: the page count for the view at this page size
func SlicePage(view []datatypes.Record, pag datatypes.Pagination) (items []datatypes.Record, effectivePage, totalPages int) {
	size := pag.PageSize
	if size < 1 {
		size = datatypes.DefaultPageSize
	}

	totalPages = (len(view) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}

	effectivePage = pag.Page
	if effectivePage < 1 {
		effectivePage = 1
	}
	if effectivePage > totalPages {
		effectivePage = totalPages
	}

	start := (effectivePage - 1) * size
	if start >= len(view) {
		return []datatypes.Record{}, effectivePage, totalPages
	}
	end := start + size
	if end > len(view) {
		end = len(view)
	}
	return view[start:end], effectivePage, totalPages
}
