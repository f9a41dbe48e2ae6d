// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grid

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/driftdeck/driftdeck/pkg/ux"
	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

// Checkbox glyphs. checkboxSome only ever appears in the header row.
const (
	checkboxOn   = "[x]"
	checkboxOff  = "[ ]"
	checkboxSome = "[~]"
)

// timestampDisplayLayout is how ColumnModifiedAt renders in local time.
const timestampDisplayLayout = "2006-01-02 15:04"

// =============================================================================
// Row Layout
// =============================================================================

// RowLayout fixes the column order, content widths, and styles shared by
// every row on a page. Rows built with different layouts are not
// interchangeable; the controller rebuilds the page when the layout
// changes (terminal resize).
type RowLayout struct {
	Columns  []datatypes.Column
	Widths   []int
	Normal   lipgloss.Style
	Selected lipgloss.Style
}

// DefaultRowLayout distributes the given total width across the displayed
// columns. Name gets the largest share; the timestamp column gets a fixed
// width matching its display format.
func DefaultRowLayout(totalWidth int) RowLayout {
	// checkbox (3) + gaps between cells
	avail := totalWidth - len(checkboxOff) - 2*len(datatypes.Columns)
	if avail < 40 {
		avail = 40
	}

	tsWidth := len(timestampDisplayLayout)
	rest := avail - tsWidth
	nameWidth := rest * 2 / 5
	catWidth := rest / 5
	byWidth := (rest - nameWidth - catWidth) / 2

	return RowLayout{
		Columns: datatypes.Columns,
		Widths:  []int{nameWidth, catWidth, byWidth, byWidth, tsWidth},
		Normal:  lipgloss.NewStyle(),
		Selected: lipgloss.NewStyle().
			Foreground(ux.ColorVerdigris).
			Bold(true),
	}
}

// =============================================================================
// Row Node
// =============================================================================

// RowNode is a detached visual row keyed by its record's id: a checkbox
// cell plus read-only text cells for each displayed field, pre-rendered
// into a single cached line.
//
// The node is the unit of targeted patching: a selection change re-renders
// this node in place without touching sibling rows or re-deriving the
// view, and the result is indistinguishable from building the row fresh.
type RowNode struct {
	ID string

	cells    []string
	selected bool
	layout   RowLayout
	line     string
}

// BuildRow constructs a row node for a record+selection-flag pair.
//
// Every field value is inserted as inert text: control characters and
// escape bytes are stripped before layout, so a record whose name carries
// terminal escape sequences renders as visible characters instead of
// styling the frame. The timestamp cell renders as "YYYY-MM-DD HH:mm" in
// local time, falls back to the raw string when unparseable, and is empty
// when absent.
func BuildRow(rec datatypes.Record, isSelected bool, layout RowLayout) *RowNode {
	cells := make([]string, len(layout.Columns))
	for i, col := range layout.Columns {
		value := rec.Field(col)
		if col.IsDate() {
			value = formatTimestamp(value)
		}
		cells[i] = fitCell(sanitizeCell(value), layout.Widths[i])
	}

	n := &RowNode{
		ID:       rec.ID,
		cells:    cells,
		selected: isSelected,
		layout:   layout,
	}
	n.renderLine()
	return n
}

// Selected reports the node's current selection flag.
func (n *RowNode) Selected() bool { return n.selected }

// Render returns the cached rendered line.
func (n *RowNode) Render() string { return n.line }

// PatchSelection toggles the node's checkbox and selected styling in
// place. Only this node's cached line is re-rendered; the text cells are
// reused untouched.
func (n *RowNode) PatchSelection(isSelected bool) {
	if n.selected == isSelected {
		return
	}
	n.selected = isSelected
	n.renderLine()
}

// renderLine composes checkbox + cells and applies the row style.
func (n *RowNode) renderLine() {
	checkbox := checkboxOff
	style := n.layout.Normal
	if n.selected {
		checkbox = checkboxOn
		style = n.layout.Selected
	}

	var b strings.Builder
	b.WriteString(checkbox)
	for _, cell := range n.cells {
		b.WriteString("  ")
		b.WriteString(cell)
	}
	n.line = style.Render(b.String())
}

// =============================================================================
// Cell helpers
// =============================================================================

// formatTimestamp renders a raw timestamp for display.
func formatTimestamp(raw string) string {
	if raw == "" {
		return ""
	}
	t, ok := datatypes.ParseTimestamp(raw)
	if !ok {
		return raw
	}
	return t.Local().Format(timestampDisplayLayout)
}

// sanitizeCell strips control characters (including escape bytes) so
// user-supplied field values can never be interpreted as terminal markup.
// Tabs become single spaces to keep columns aligned.
func sanitizeCell(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r < 0x20, r == 0x7f:
			return -1
		default:
			return r
		}
	}, s)
}

// fitCell truncates with an ellipsis and pads to the exact cell width,
// measuring display cells rather than bytes.
func fitCell(s string, width int) string {
	if width < 1 {
		return ""
	}
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
