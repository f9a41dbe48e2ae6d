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
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftdeck/driftdeck/pkg/logging"
	"github.com/driftdeck/driftdeck/services/grid/boundary"
	"github.com/driftdeck/driftdeck/services/grid/datatypes"
	"github.com/driftdeck/driftdeck/services/grid/snapshot"
)

// newTestModel builds a ready model over an in-process pipe with the
// given records loaded.
func newTestModel(records []datatypes.Record) (Model, *boundary.Pipe) {
	pipe := boundary.NewPipe()
	client := boundary.NewClient(pipe, logging.Discard())

	m := NewModel(Config{
		Client:   client,
		SourceID: "src",
		Logger:   logging.Discard(),
	})
	m.width, m.height = 120, 40
	m.layout = DefaultRowLayout(m.width)
	m.ready = true
	m.loading = false
	m.store.ReplaceAll(records)
	m.fullRender()
	return m, pipe
}

func updateKey(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runCmd executes a command tree in the background so pipe sends inside
// it reach the host side.
func runCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		var exec func(tea.Cmd)
		exec = func(c tea.Cmd) {
			if c == nil {
				return
			}
			if batch, ok := c().(tea.BatchMsg); ok {
				for _, sub := range batch {
					go exec(sub)
				}
			}
		}
		exec(cmd)
	}()
}

func nextRequest(t *testing.T, pipe *boundary.Pipe) boundary.Request {
	t.Helper()
	select {
	case req := <-pipe.Requests():
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no request reached the host")
		return nil
	}
}

// =============================================================================
// Selection persistence
// =============================================================================

func TestModel_SelectionSurvivesTabFilterPagination(t *testing.T) {
	m, _ := newTestModel(sampleRecords())

	// Select the first two rows.
	m.cursor = 0
	m.toggleAtCursor()
	m.cursor = 1
	m.toggleAtCursor()
	if m.store.Count() != 2 {
		t.Fatalf("selected = %d, want 2", m.store.Count())
	}

	// Tab to Selected: only the marked rows are in view, still marked.
	m = updateKey(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if len(m.page) != 2 {
		t.Errorf("selected tab shows %d rows, want 2", len(m.page))
	}
	if m.store.Count() != 2 {
		t.Errorf("tab switch changed selection to %d", m.store.Count())
	}

	// Back to All, filter everything out: the set is untouched.
	m = updateKey(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m.applyFilter("name:zzz-no-match")
	if len(m.page) != 0 {
		t.Errorf("filter left %d rows visible", len(m.page))
	}
	if m.store.Count() != 2 {
		t.Errorf("filter changed selection to %d, want 2", m.store.Count())
	}

	// Clearing the filter brings the rows back, still selected.
	m.applyFilter("")
	if !m.store.IsSelected(m.page[0].ID) && !m.store.IsSelected(m.page[1].ID) {
		t.Error("cleared filter lost the selected rows")
	}
}

func TestModel_SelectionSurvivesPageTurn(t *testing.T) {
	m, _ := newTestModel(recordsOfLen(60))

	m.cursor = 0
	m.toggleAtCursor()
	selectedID := m.page[0].ID

	m = updateKey(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.pag.Page != 2 {
		t.Fatalf("page = %d, want 2", m.pag.Page)
	}
	m = updateKey(t, m, tea.KeyMsg{Type: tea.KeyLeft})

	if !m.store.IsSelected(selectedID) {
		t.Error("page turn lost the selection")
	}
	if !m.rowIndex[selectedID].Selected() {
		t.Error("rebuilt row does not show its selection")
	}
}

// =============================================================================
// Targeted patching
// =============================================================================

func TestModel_ToggleIsTargetedPatch(t *testing.T) {
	m, _ := newTestModel(sampleRecords())

	before := make([]*RowNode, len(m.rows))
	copy(before, m.rows)

	m.cursor = 1
	m.toggleAtCursor()

	// Same nodes, in place: a toggle must not rebuild the page.
	for i := range m.rows {
		if m.rows[i] != before[i] {
			t.Fatalf("row %d was rebuilt by a selection toggle", i)
		}
	}
	if !strings.Contains(m.rows[1].Render(), checkboxOn) {
		t.Error("toggled row does not render selected")
	}
	for _, i := range []int{0, 2, 3, 4} {
		if strings.Contains(m.rows[i].Render(), checkboxOn) {
			t.Errorf("sibling row %d changed state", i)
		}
	}
}

func TestModel_PatchMissFallsBackToFullRender(t *testing.T) {
	m, _ := newTestModel(sampleRecords())

	before := m.rows[0]
	m.store.Toggle("r4")
	m.patchRow("ghost-not-on-page")

	// The fallback rebuilds the page rather than silently skipping.
	if m.rows[0] == before {
		t.Error("patch miss did not fall back to a full render")
	}
	if len(m.rows) != len(m.page) {
		t.Errorf("rebuilt page has %d nodes for %d records", len(m.rows), len(m.page))
	}
}

func TestModel_SelectAllTogglesVisiblePageOnly(t *testing.T) {
	m, _ := newTestModel(recordsOfLen(60))

	m.toggleAllVisible()
	if m.store.Count() != m.pag.PageSize {
		t.Fatalf("select-all marked %d, want the visible %d", m.store.Count(), m.pag.PageSize)
	}

	// All already selected: the same key clears the page.
	m.toggleAllVisible()
	if m.store.Count() != 0 {
		t.Errorf("second select-all left %d selected", m.store.Count())
	}
}

// =============================================================================
// Pagination interplay
// =============================================================================

func TestModel_PageClampsWhenFilterShrinksView(t *testing.T) {
	records := make([]datatypes.Record, 60)
	for i := range records {
		name := "plain"
		if i < 30 {
			name = "target"
		}
		records[i] = datatypes.Record{ID: fmt.Sprintf("r%03d", i), Name: fmt.Sprintf("%s %d", name, i)}
	}
	m, _ := newTestModel(records)

	m.pag.Page = 3
	m.fullRender()
	if m.totalPages != 3 {
		t.Fatalf("totalPages = %d, want 3", m.totalPages)
	}

	m.applyFilter("name:target")
	if m.totalPages != 2 {
		t.Errorf("after shrink totalPages = %d, want 2", m.totalPages)
	}
	if m.pag.Page != 1 {
		t.Errorf("filter change left page at %d, want reset to 1", m.pag.Page)
	}
}

func TestModel_PageSizeChangeResetsToFirstPage(t *testing.T) {
	m, _ := newTestModel(recordsOfLen(100))
	m.pag.Page = 3
	m.fullRender()

	m = updateKey(t, m, runeKey("p"))

	if m.pag.PageSize != 50 {
		t.Errorf("page size = %d, want the next choice 50", m.pag.PageSize)
	}
	if m.pag.Page != 1 {
		t.Errorf("page = %d after a size change, want 1", m.pag.Page)
	}
}

func TestModel_RefreshResetsToFirstPage(t *testing.T) {
	m, _ := newTestModel(recordsOfLen(100))
	m.pag.Page = 3
	m.fullRender()

	// A new collection starts the reader back at the top.
	m, _ = m.handleResponse(boundary.RecordsLoaded{SourceID: "src", Records: recordsOfLen(100)})
	if m.pag.Page != 1 {
		t.Errorf("page = %d after refresh, want 1", m.pag.Page)
	}
	if len(m.page) != m.pag.PageSize {
		t.Errorf("first page shows %d rows, want %d", len(m.page), m.pag.PageSize)
	}
}

func TestModel_RestoredPageSurvivesFirstFetchOnly(t *testing.T) {
	pipe := boundary.NewPipe()
	client := boundary.NewClient(pipe, logging.Discard())
	m := NewModel(Config{
		Client: client,
		Logger: logging.Discard(),
		Restored: &snapshot.Snapshot{
			SourceID:   "src",
			Records:    recordsOfLen(60),
			Criteria:   datatypes.DefaultCriteria(),
			Pagination: datatypes.Pagination{PageSize: 25, Page: 2},
		},
	})
	m.width, m.height = 120, 40
	m.layout = DefaultRowLayout(m.width)
	m.ready = true
	m.fullRender()

	// The fetch confirming the restored session keeps the saved page.
	m, _ = m.handleResponse(boundary.RecordsLoaded{SourceID: "src", Records: recordsOfLen(60)})
	if m.pag.Page != 2 {
		t.Fatalf("restored page = %d after the first fetch, want 2", m.pag.Page)
	}

	// Any later collection resets like a normal refresh.
	m, _ = m.handleResponse(boundary.RecordsLoaded{SourceID: "src", Records: recordsOfLen(60)})
	if m.pag.Page != 1 {
		t.Errorf("page = %d after a later refresh, want 1", m.pag.Page)
	}
}

// =============================================================================
// Boundary responses
// =============================================================================

func TestModel_RefreshKeepsSelection(t *testing.T) {
	m, _ := newTestModel(sampleRecords())
	m.store.Toggle("r1")
	m.store.Toggle("r3")

	// The refresh drops r3 entirely.
	m, _ = m.handleResponse(boundary.RecordsLoaded{SourceID: "src", Records: []datatypes.Record{
		{ID: "r1", Name: "Alpha Widget"},
		{ID: "r9", Name: "Newcomer"},
	}})

	if m.store.Count() != 2 {
		t.Errorf("refresh changed selection to %d, want 2", m.store.Count())
	}
	if !m.store.IsSelected("r3") {
		t.Error("stale id dropped from selection; it must linger until commit")
	}
}

func TestModel_LastResponseWins(t *testing.T) {
	m, _ := newTestModel(nil)

	m, _ = m.handleResponse(boundary.RecordsLoaded{SourceID: "src", Records: recordsOfLen(10)})
	m, _ = m.handleResponse(boundary.RecordsLoaded{SourceID: "src", Records: recordsOfLen(3)})

	if m.store.Len() != 3 {
		t.Errorf("store has %d records, want the later response's 3", m.store.Len())
	}
	if len(m.page) != 3 {
		t.Errorf("page shows %d rows, want 3", len(m.page))
	}
}

func TestModel_CommitSuccessClearsSelectionAndRefetches(t *testing.T) {
	m, pipe := newTestModel(sampleRecords())
	m.store.Toggle("r1")
	m.committing = true

	m, cmd := m.handleResponse(boundary.CommitResult{OK: true, FilesCommitted: 1, Branch: "drift/review", Revision: "abc123"})

	if m.store.Count() != 0 {
		t.Errorf("selection = %d after successful commit, want 0", m.store.Count())
	}
	if m.committing {
		t.Error("committing flag still set")
	}
	if !m.loading {
		t.Error("successful commit must start a refresh")
	}

	runCmd(cmd)
	if _, ok := nextRequest(t, pipe).(boundary.FetchRecords); !ok {
		t.Error("expected a FetchRecords request after commit success")
	}
}

func TestModel_ErrorKeepsSelection(t *testing.T) {
	m, _ := newTestModel(sampleRecords())
	m.store.Toggle("r1")
	m.store.Toggle("r2")
	m.committing = true

	m, _ = m.handleResponse(boundary.ErrorReply{Message: "Commit failed", Detail: "lock held"})

	if m.store.Count() != 2 {
		t.Errorf("error wiped selection: %d, want 2", m.store.Count())
	}
	if m.committing {
		t.Error("committing flag still set after error")
	}
	if !strings.Contains(m.bannerText, "Commit failed") {
		t.Errorf("banner = %q, want the host's message", m.bannerText)
	}
}

func TestModel_ConfirmCancelledIsNotAnError(t *testing.T) {
	m, _ := newTestModel(sampleRecords())
	m.store.Toggle("r1")
	m.committing = true

	m, _ = m.handleResponse(boundary.ConfirmCancelled{})

	if m.committing {
		t.Error("cancellation must restore the controls")
	}
	if m.store.Count() != 1 {
		t.Error("cancellation must keep the selection")
	}
	if m.bannerKind == bannerError {
		t.Error("cancellation is a non-error, banner must not be styled as failure")
	}
}

// =============================================================================
// Banner policy
// =============================================================================

func TestModel_ErrorBannerDoesNotAutoDismiss(t *testing.T) {
	m, _ := newTestModel(sampleRecords())

	m, cmd := m.handleResponse(boundary.ErrorReply{Message: "Commit failed", Detail: "lock held"})
	if cmd == nil {
		t.Fatal("handleResponse must still re-arm the receiver")
	}

	// Even a sequence-matching expiry leaves the error up.
	next, _ := m.Update(bannerExpiredMsg{seq: m.bannerSeq})
	m = next.(Model)
	if !strings.Contains(m.bannerText, "Commit failed") {
		t.Errorf("error banner auto-dismissed; banner = %q", m.bannerText)
	}
}

func TestModel_SuccessBannerExpires(t *testing.T) {
	m, _ := newTestModel(sampleRecords())
	m.committing = true

	m, _ = m.handleResponse(boundary.CommitResult{OK: true, FilesCommitted: 1, Branch: "drift/review", Revision: "abc123"})
	if m.bannerText == "" {
		t.Fatal("success banner missing")
	}

	next, _ := m.Update(bannerExpiredMsg{seq: m.bannerSeq})
	m = next.(Model)
	if m.bannerText != "" {
		t.Errorf("success banner = %q after expiry, want cleared", m.bannerText)
	}
}

func TestModel_ErrorBannerClearsOnNextAction(t *testing.T) {
	m, _ := newTestModel(sampleRecords())

	m, _ = m.handleResponse(boundary.ErrorReply{Message: "Fetch failed"})
	if m.bannerText == "" {
		t.Fatal("error banner missing")
	}

	m = updateKey(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if strings.Contains(m.bannerText, "Fetch failed") {
		t.Errorf("banner = %q after the user acted, want the error gone", m.bannerText)
	}
}

// =============================================================================
// Commit submission
// =============================================================================

func TestModel_SubmitRejectsEmptyMessageLocally(t *testing.T) {
	m, pipe := newTestModel(sampleRecords())
	m.store.Toggle("r1")
	m.mode = modeCommit
	m.msgInput.SetValue("   ")

	m, _ = m.submitCommit()

	if m.mode != modeCommit {
		t.Error("rejected submission must keep the form open")
	}
	if m.committing {
		t.Error("nothing may be in flight after local rejection")
	}
	select {
	case req := <-pipe.Requests():
		t.Errorf("request %T reached the host despite local rejection", req)
	default:
	}
}

func TestModel_SubmitBelowThresholdGoesDirect(t *testing.T) {
	m, pipe := newTestModel(sampleRecords())
	m.cfg.ConfirmThreshold = 10
	m.store.Toggle("r1")
	m.mode = modeCommit
	m.msgInput.SetValue("Fix layout")
	m.refInput.SetValue("US-123")

	m, cmd := m.submitCommit()
	if !m.committing {
		t.Fatal("submission not marked in flight")
	}
	runCmd(cmd)

	req, ok := nextRequest(t, pipe).(boundary.SubmitCommit)
	if !ok {
		t.Fatal("expected a direct SubmitCommit")
	}
	if got := req.ComposedMessage(); got != "[US-123] Fix layout" {
		t.Errorf("composed message = %q, want %q", got, "[US-123] Fix layout")
	}
}

func TestModel_SubmitAboveThresholdRoutesThroughConfirm(t *testing.T) {
	m, pipe := newTestModel(recordsOfLen(60))
	m.cfg.ConfirmThreshold = 5

	for i := 0; i < 6; i++ {
		m.cursor = i
		m.toggleAtCursor()
	}
	m.mode = modeCommit
	m.msgInput.SetValue("Bulk update")

	var cmd tea.Cmd
	m, cmd = m.submitCommit()
	runCmd(cmd)

	req, ok := nextRequest(t, pipe).(boundary.ConfirmCommit)
	if !ok {
		t.Fatal("expected the submission to route through ConfirmCommit")
	}
	if req.ItemCount != 6 {
		t.Errorf("ItemCount = %d, want 6", req.ItemCount)
	}
}

func TestModel_ConfirmOverlayReplies(t *testing.T) {
	m, _ := newTestModel(sampleRecords())

	reply := make(chan bool, 1)
	next, _ := m.Update(ConfirmPromptMsg{
		Req:   boundary.ConfirmCommit{ItemCount: 60},
		Reply: reply,
	})
	m = next.(Model)
	if m.confirm == nil {
		t.Fatal("confirmation overlay not shown")
	}

	m = updateKey(t, m, runeKey("y"))
	if m.confirm != nil {
		t.Error("overlay still up after answering")
	}
	select {
	case ok := <-reply:
		if !ok {
			t.Error("y must confirm")
		}
	default:
		t.Error("no reply delivered")
	}
}

// =============================================================================
// View output
// =============================================================================

func TestModel_ViewShowsTriStateHeader(t *testing.T) {
	m, _ := newTestModel(sampleRecords())

	if got := m.renderColumnHeader(); !strings.Contains(got, checkboxOff) {
		t.Errorf("empty selection header = %q, want unchecked", got)
	}

	m.store.Toggle(m.page[0].ID)
	if got := m.renderColumnHeader(); !strings.Contains(got, checkboxSome) {
		t.Errorf("partial selection header = %q, want indeterminate", got)
	}

	ids := make([]string, len(m.page))
	for i, rec := range m.page {
		ids[i] = rec.ID
	}
	m.store.SetMany(ids, true)
	if got := m.renderColumnHeader(); !strings.Contains(got, checkboxOn) {
		t.Errorf("full selection header = %q, want checked", got)
	}
}

func TestModel_ViewRendersCursorMarker(t *testing.T) {
	m, _ := newTestModel(sampleRecords())
	m.cursor = 2

	lines := strings.Split(m.renderGrid(), "\n")
	// Header line, then one line per row.
	if !strings.HasPrefix(lines[3], cursorMarker) {
		t.Errorf("cursor row %q lacks the marker", lines[3])
	}
	if strings.HasPrefix(lines[1], cursorMarker) {
		t.Error("non-cursor row carries the marker")
	}
}

func TestModel_TabBadgeCountsWholeSelection(t *testing.T) {
	m, _ := newTestModel(recordsOfLen(60))

	// Select across two pages; the badge counts both.
	m.cursor = 0
	m.toggleAtCursor()
	m = updateKey(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m.cursor = 0
	m.toggleAtCursor()

	if !strings.Contains(m.renderTabs(), " 2 ") {
		t.Errorf("tabs = %q, want a badge of 2", m.renderTabs())
	}
}
