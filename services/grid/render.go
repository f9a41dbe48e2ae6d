// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grid

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/driftdeck/driftdeck/pkg/ux"
	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

// cursorMarker prefixes the row under the cursor. It is applied at view
// composition time so cursor movement never invalidates cached row lines.
const cursorMarker = "❯ "

// =============================================================================
// Header / tabs
// =============================================================================

func (m Model) renderHeader() string {
	title := headerTitleStyle.Render("driftdeck")
	source := headerSourceStyle.Render(m.sourceID)

	status := ""
	switch {
	case m.committing:
		status = m.spin.View() + " committing"
	case m.loading:
		status = m.spin.View() + " loading"
	}

	line := title + "  " + source
	if status != "" {
		line += "  " + statusStyle.Render(status)
	}
	return line
}

// renderTabs shows the All/Selected tabs with the persistent selection
// badge. The badge counts the whole selection set, not the visible page.
func (m Model) renderTabs() string {
	badge := ""
	if n := m.store.Count(); n > 0 {
		badge = badgeStyle.Render(fmt.Sprintf(" %d ", n))
	}

	all := tabStyle.Render("All")
	selected := tabStyle.Render("Selected") + badge
	if m.criteria.Tab == datatypes.TabAll {
		all = tabActiveStyle.Render("All")
	} else {
		selected = tabActiveStyle.Render("Selected") + badge
	}
	return all + "  " + selected
}

// =============================================================================
// Grid body
// =============================================================================

func (m Model) renderGrid() string {
	var b strings.Builder
	b.WriteString(m.renderColumnHeader())
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(emptyStyle.Render("  No records match the current view"))
		b.WriteString("\n")
		return b.String()
	}

	for i, node := range m.rows {
		if i == m.cursor {
			b.WriteString(cursorMarker)
		} else {
			b.WriteString("  ")
		}
		b.WriteString(node.Render())
		b.WriteString("\n")
	}

	if m.mode == modeFilter {
		b.WriteString("\n")
		b.WriteString(m.filterInput.View())
		b.WriteString("\n")
	}
	return b.String()
}

// renderColumnHeader renders the tri-state page checkbox, the column
// titles, and the sort indicator on the active sort column.
func (m Model) renderColumnHeader() string {
	ids := make([]string, len(m.page))
	for i, rec := range m.page {
		ids[i] = rec.ID
	}

	checkbox := checkboxOff
	switch {
	case m.store.AllVisibleSelected(ids):
		checkbox = checkboxOn
	case m.store.SomeVisibleSelected(ids):
		checkbox = checkboxSome
	}

	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(checkbox)
	for i, col := range m.layout.Columns {
		title := col.String()
		if col == m.criteria.SortColumn {
			if m.criteria.SortDir == datatypes.SortAsc {
				title += " ▲"
			} else {
				title += " ▼"
			}
		}
		b.WriteString("  ")
		b.WriteString(fitCell(fmt.Sprintf("%d %s", i+1, title), m.layout.Widths[i]))
	}
	return columnHeaderStyle.Render(b.String())
}

// =============================================================================
// Footer / banner
// =============================================================================

func (m Model) renderFooter() string {
	var b strings.Builder

	if m.bannerText != "" {
		b.WriteString(m.renderBanner())
		b.WriteString("\n")
	}

	stats := fmt.Sprintf("page %d/%d · size %d · %d of %d shown · %d selected",
		m.pag.Page, m.totalPages, m.pag.PageSize, len(m.page), len(m.view), m.store.Count())
	b.WriteString(footerStatsStyle.Render(stats))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderBanner() string {
	switch m.bannerKind {
	case bannerSuccess:
		return ux.Styles.Success.Render(m.bannerText)
	case bannerError:
		return ux.Styles.Error.Render(m.bannerText)
	default:
		return ux.Styles.Muted.Render(m.bannerText)
	}
}

// =============================================================================
// Overlays
// =============================================================================

func (m Model) renderCommitForm() string {
	var b strings.Builder
	b.WriteString(overlayTitleStyle.Render(fmt.Sprintf("Commit %d selected record(s)", m.store.Count())))
	b.WriteString("\n\n")
	b.WriteString(m.msgInput.View())
	b.WriteString("\n")
	b.WriteString(m.refInput.View())
	b.WriteString("\n\n")
	b.WriteString(ux.Styles.Muted.Render("enter submit · tab switch field · esc cancel"))
	b.WriteString("\n")
	return ux.Styles.Box.Render(b.String())
}

func (m Model) renderConfirm() string {
	req := m.confirm.Req
	var b strings.Builder
	b.WriteString(overlayTitleStyle.Render("Large commit"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("You are about to commit %d records:\n", req.ItemCount))
	b.WriteString(ux.Styles.Bold.Render(req.ComposedMessage()))
	b.WriteString("\n\n")
	b.WriteString(ux.Styles.Warning.Render("y confirm · n cancel"))
	b.WriteString("\n")
	return ux.Styles.ErrorBox.Render(b.String())
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(overlayTitleStyle.Render("Keys"))
	b.WriteString("\n\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n")
	b.WriteString(ux.Styles.Muted.Render("1-5 sort by column (repeat to reverse) · filter syntax field:value"))
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Styles
// =============================================================================

var (
	headerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ux.ColorCopperBright)

	headerSourceStyle = lipgloss.NewStyle().
				Foreground(ux.ColorCopperPrimary)

	statusStyle = lipgloss.NewStyle().
			Foreground(ux.ColorVerdigrisDim)

	tabStyle = lipgloss.NewStyle().
			Foreground(ux.ColorMuted)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ux.ColorVerdigris).
			Underline(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(ux.ColorDarkest).
			Background(ux.ColorCopperPrimary)

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ux.ColorCopperPrimary)

	emptyStyle = lipgloss.NewStyle().
			Foreground(ux.ColorMuted).
			Italic(true)

	footerStatsStyle = lipgloss.NewStyle().
				Foreground(ux.ColorHarbor)

	overlayTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ux.ColorCopperBright)
)
