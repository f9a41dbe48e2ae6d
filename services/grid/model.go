// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package grid implements the interactive change-review grid.
//
// # Description
//
// The grid shows detected changes as a filterable, sortable, paginated
// table with a persistent selection set. Selections survive tab switches,
// filter changes, and pagination; a selection toggle re-renders only the
// affected row. The selected records are submitted to the host's commit
// pipeline over the boundary protocol.
//
// # Thread Safety
//
// The model is designed for single-threaded use within the bubbletea
// event loop. Do not access model state from multiple goroutines.
package grid

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftdeck/driftdeck/pkg/logging"
	"github.com/driftdeck/driftdeck/services/grid/boundary"
	"github.com/driftdeck/driftdeck/services/grid/datatypes"
	"github.com/driftdeck/driftdeck/services/grid/snapshot"
)

// DefaultConfirmThreshold is the selection size above which a submission
// routes through the host's confirmation prompt.
const DefaultConfirmThreshold = 50

// bannerTimeout is how long a transient banner stays on screen.
const bannerTimeout = 4 * time.Second

// =============================================================================
// Modes
// =============================================================================

// mode determines where key presses are routed.
type mode int

const (
	// modeBrowse is normal grid navigation.
	modeBrowse mode = iota

	// modeFilter routes keys to the filter text input.
	modeFilter

	// modeCommit routes keys to the commit message form.
	modeCommit
)

// =============================================================================
// Messages
// =============================================================================

// ConfirmPromptMsg asks the grid to render a large-submission
// confirmation overlay. The reply channel must be buffered; the grid
// answers exactly once.
type ConfirmPromptMsg struct {
	Req   boundary.ConfirmCommit
	Reply chan<- bool
}

// requestFailedMsg reports that an outbound request never left the
// engine (transport down or local validation).
type requestFailedMsg struct {
	err error
}

// bannerExpiredMsg clears a transient banner. The sequence number guards
// against an old timer wiping a newer banner.
type bannerExpiredMsg struct {
	seq int
}

// =============================================================================
// Config
// =============================================================================

// Config configures the grid model.
type Config struct {
	// Client is the boundary client the grid requests through.
	Client *boundary.Client

	// SourceID names the record source to load. Empty lets the host
	// resolve its only source.
	SourceID string

	// Snapshots receives debounced session snapshots. Nil disables
	// persistence.
	Snapshots *snapshot.Debouncer

	// Restored is a previously saved snapshot to resume from, or nil.
	// Restored state shows immediately; a fresh fetch still runs.
	Restored *snapshot.Snapshot

	// ConfirmThreshold overrides DefaultConfirmThreshold (0 keeps it).
	ConfirmThreshold int

	// Logger receives engine diagnostics. Nil falls back to the default.
	Logger *logging.Logger
}

// =============================================================================
// Model
// =============================================================================

// bannerKind styles the status banner.
type bannerKind int

const (
	bannerInfo bannerKind = iota
	bannerSuccess
	bannerError
)

// Model is the bubbletea model for the change-review grid.
type Model struct {
	cfg      Config
	log      *logging.Logger
	sourceID string

	// Data
	store    *Store
	criteria datatypes.Criteria
	pag      datatypes.Pagination

	// Derived page state, rebuilt by fullRender
	view       []datatypes.Record
	page       []datatypes.Record
	totalPages int
	rows       []*RowNode
	rowIndex   map[string]*RowNode
	layout     RowLayout
	cursor     int

	// Terminal
	width  int
	height int
	ready  bool

	// In-flight state
	loading    bool
	committing bool
	spin       spinner.Model

	// Input modes
	mode        mode
	filterInput textinput.Model
	msgInput    textinput.Model
	refInput    textinput.Model
	commitFocus int

	// Overlays
	showHelp bool
	confirm  *ConfirmPromptMsg

	// Banner
	bannerText string
	bannerKind bannerKind
	bannerSeq  int

	// keepRestoredPage holds restored pagination through the first fetch
	// of a resumed session; every later collection resets to page 1.
	keepRestoredPage bool

	keys     keyMap
	help     help.Model
	quitting bool
}

// NewModel creates a grid model ready for tea.NewProgram.
//
// # Inputs
//
//   - cfg: Wiring to the boundary client and snapshot debouncer; see Config.
//
// # Outputs
//
//   - Model: Restored from cfg.Restored when present, empty otherwise.
func NewModel(cfg Config) Model {
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}
	if cfg.ConfirmThreshold <= 0 {
		cfg.ConfirmThreshold = DefaultConfirmThreshold
	}

	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "name:text  category:Type  by:user  (empty clears)"
	fi.CharLimit = 128

	mi := textinput.New()
	mi.Prompt = "message: "
	mi.Placeholder = "what changed and why"
	mi.CharLimit = 200

	ri := textinput.New()
	ri.Prompt = "ticket:  "
	ri.Placeholder = "US-123 (optional)"
	ri.CharLimit = 40

	m := Model{
		cfg:         cfg,
		log:         log.With("component", "grid"),
		sourceID:    cfg.SourceID,
		store:       NewStore(),
		criteria:    datatypes.DefaultCriteria(),
		pag:         datatypes.DefaultPagination(),
		rowIndex:    make(map[string]*RowNode),
		spin:        spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		filterInput: fi,
		msgInput:    mi,
		refInput:    ri,
		keys:        defaultKeyMap(),
		help:        help.New(),
		loading:     true,
	}

	if snap := cfg.Restored; snap != nil {
		m.sourceID = snap.SourceID
		m.store.ReplaceAll(snap.Records)
		m.store.RestoreSelection(snap.Selected)
		m.criteria = snap.Criteria
		m.pag = snap.Pagination
		m.keepRestoredPage = true
	}

	return m
}

// Init implements tea.Model: kick off the spinner, the initial fetch,
// and the response receiver.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.fetchRecords(), m.cfg.Client.Wait())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout = DefaultRowLayout(m.width)
		m.help.Width = m.width
		m.ready = true
		m.fullRender()
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.committing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case boundary.ResponseMsg:
		return m.handleResponse(msg.Response)

	case boundary.ClosedMsg:
		m.loading = false
		m.committing = false
		cmd := m.setBanner(bannerError, "Connection to host lost")
		return m, cmd

	case ConfirmPromptMsg:
		m.confirm = &msg
		return m, nil

	case requestFailedMsg:
		m.loading = false
		m.committing = false
		m.log.Error("request failed before leaving the engine", "error", msg.err)
		cmd := m.setBanner(bannerError, msg.err.Error())
		return m, cmd

	case bannerExpiredMsg:
		// Error banners never expire on a timer; they wait for the user.
		if msg.seq == m.bannerSeq && m.bannerKind != bannerError {
			m.bannerText = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading…\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.confirm != nil:
		b.WriteString(m.renderConfirm())
	case m.showHelp:
		b.WriteString(m.renderHelp())
	case m.mode == modeCommit:
		b.WriteString(m.renderCommitForm())
	default:
		b.WriteString(m.renderGrid())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// =============================================================================
// Key handling
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The confirmation overlay captures everything until answered.
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}

	if m.showHelp {
		switch msg.String() {
		case "q", "?", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	switch m.mode {
	case modeFilter:
		return m.handleFilterKey(msg)
	case modeCommit:
		return m.handleCommitKey(msg)
	}

	// Error banners have no expiry timer; the next action dismisses them.
	if m.bannerText != "" && m.bannerKind == bannerError {
		m.clearBanner()
	}

	// Sort keys: digits select the column, a repeat flips direction.
	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '5' {
		m.applySort(datatypes.Columns[s[0]-'1'])
		cmd := m.scheduleSnapshot()
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.page)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.PrevPage):
		if m.pag.Page > 1 {
			m.pag.Page--
			m.fullRender()
			cmd := m.scheduleSnapshot()
			return m, cmd
		}

	case key.Matches(msg, m.keys.NextPage):
		if m.pag.Page < m.totalPages {
			m.pag.Page++
			m.fullRender()
			cmd := m.scheduleSnapshot()
			return m, cmd
		}

	case key.Matches(msg, m.keys.Toggle):
		cmd := m.toggleAtCursor()
		return m, cmd

	case key.Matches(msg, m.keys.SelectAll):
		cmd := m.toggleAllVisible()
		return m, cmd

	case key.Matches(msg, m.keys.SwitchTab):
		if m.criteria.Tab == datatypes.TabAll {
			m.criteria.Tab = datatypes.TabSelected
		} else {
			m.criteria.Tab = datatypes.TabAll
		}
		m.pag.Page = 1
		m.fullRender()
		cmd := m.scheduleSnapshot()
		return m, cmd

	case key.Matches(msg, m.keys.Filter):
		m.mode = modeFilter
		m.filterInput.SetValue("")
		m.filterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.PageSize):
		m.cyclePageSize()
		m.pag.Page = 1
		m.fullRender()
		cmd := m.scheduleSnapshot()
		return m, cmd

	case key.Matches(msg, m.keys.Commit):
		return m.openCommitForm()

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, tea.Batch(m.spin.Tick, m.fetchRecords())
	}

	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.applyFilter(m.filterInput.Value())
		m.mode = modeBrowse
		m.filterInput.Blur()
		cmd := m.scheduleSnapshot()
		return m, cmd

	case "esc":
		m.mode = modeBrowse
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m Model) handleCommitKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.msgInput.Blur()
		m.refInput.Blur()
		return m, nil

	case "tab", "shift+tab", "up", "down":
		m.commitFocus = 1 - m.commitFocus
		if m.commitFocus == 0 {
			m.refInput.Blur()
			focus := m.msgInput.Focus()
			return m, focus
		}
		m.msgInput.Blur()
		focus := m.refInput.Focus()
		return m, focus

	case "enter":
		return m.submitCommit()
	}

	var cmd tea.Cmd
	if m.commitFocus == 0 {
		m.msgInput, cmd = m.msgInput.Update(msg)
	} else {
		m.refInput, cmd = m.refInput.Update(msg)
	}
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.confirm.Reply <- true
		m.confirm = nil
	case "n", "N", "esc", "q":
		m.confirm.Reply <- false
		m.confirm = nil
	}
	return m, nil
}

// =============================================================================
// Render pipeline
// =============================================================================

// fullRender re-derives the view, re-slices the page, and rebuilds every
// row node. It is the heavyweight path; selection changes on the current
// page go through patchRow instead.
func (m *Model) fullRender() {
	if !m.ready {
		return
	}

	m.view = DeriveView(m.store.Records(), m.store.SelectedSet(), m.criteria)
	m.page, m.pag.Page, m.totalPages = SlicePage(m.view, m.pag)

	m.rows = make([]*RowNode, len(m.page))
	m.rowIndex = make(map[string]*RowNode, len(m.page))
	for i, rec := range m.page {
		node := BuildRow(rec, m.store.IsSelected(rec.ID), m.layout)
		m.rows[i] = node
		m.rowIndex[rec.ID] = node
	}

	if m.cursor > len(m.page)-1 {
		m.cursor = len(m.page) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// patchRow updates a single row's checkbox in place. A miss (the row is
// not on the current page) falls back to a full render, which is always
// correct, never silently skips.
func (m *Model) patchRow(id string) {
	node, ok := m.rowIndex[id]
	if !ok {
		m.log.Debug("patch target not on page, falling back to full render", "id", id)
		m.fullRender()
		return
	}
	node.PatchSelection(m.store.IsSelected(id))
}

// =============================================================================
// Selection actions
// =============================================================================

func (m *Model) toggleAtCursor() tea.Cmd {
	if m.cursor >= len(m.page) {
		return nil
	}
	id := m.page[m.cursor].ID
	m.store.Toggle(id)

	// Deselecting on the Selected tab removes the row from the view,
	// which is a membership change, not a patch.
	if m.criteria.Tab == datatypes.TabSelected {
		m.fullRender()
	} else {
		m.patchRow(id)
	}
	return m.scheduleSnapshot()
}

// toggleAllVisible selects every row on the current page, or clears them
// all when every one is already selected.
func (m *Model) toggleAllVisible() tea.Cmd {
	if len(m.page) == 0 {
		return nil
	}
	ids := make([]string, len(m.page))
	for i, rec := range m.page {
		ids[i] = rec.ID
	}

	target := !m.store.AllVisibleSelected(ids)
	m.store.SetMany(ids, target)

	if m.criteria.Tab == datatypes.TabSelected && !target {
		m.fullRender()
	} else {
		for _, id := range ids {
			m.patchRow(id)
		}
	}
	return m.scheduleSnapshot()
}

// =============================================================================
// Criteria actions
// =============================================================================

// applyFilter parses "field:value" filter syntax and resets to page 1.
// An empty input clears every filter. Bare text filters the name column.
func (m *Model) applyFilter(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		m.criteria.Filters = nil
		m.criteria.Category = ""
	} else {
		field, value, found := strings.Cut(input, ":")
		if !found {
			field, value = "name", input
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "category", "cat", "type":
			m.criteria.Category = value
		case "by", "modified", "user":
			m.criteria = m.criteria.WithFilter(datatypes.ColumnModifiedBy, value)
		case "at", "date":
			m.criteria = m.criteria.WithFilter(datatypes.ColumnModifiedAt, value)
		default:
			m.criteria = m.criteria.WithFilter(datatypes.ColumnName, value)
		}
	}

	m.pag.Page = 1
	m.fullRender()
}

// applySort selects the sort column; repeating the same column flips the
// direction. The page index is kept (clamped), only order changes.
func (m *Model) applySort(col datatypes.Column) {
	if m.criteria.SortColumn == col {
		m.criteria.SortDir = m.criteria.SortDir.Toggled()
	} else {
		m.criteria.SortColumn = col
		m.criteria.SortDir = datatypes.SortAsc
	}
	m.fullRender()
}

func (m *Model) cyclePageSize() {
	for i, size := range datatypes.PageSizeChoices {
		if size == m.pag.PageSize {
			m.pag.PageSize = datatypes.PageSizeChoices[(i+1)%len(datatypes.PageSizeChoices)]
			return
		}
	}
	m.pag.PageSize = datatypes.DefaultPageSize
}

// =============================================================================
// Commit flow
// =============================================================================

func (m Model) openCommitForm() (Model, tea.Cmd) {
	if m.store.Count() == 0 {
		cmd := m.setBanner(bannerError, "Nothing selected to commit")
		return m, cmd
	}
	if m.committing {
		cmd := m.setBanner(bannerInfo, "A commit is already in flight")
		return m, cmd
	}
	m.mode = modeCommit
	m.commitFocus = 0
	m.refInput.Blur()
	focus := m.msgInput.Focus()
	return m, focus
}

// submitCommit validates locally, then routes through the confirmation
// path when the selection exceeds the threshold. Validation failures
// keep the form open with the inputs intact.
func (m Model) submitCommit() (Model, tea.Cmd) {
	req := boundary.SubmitCommit{
		SourceID:  m.sourceID,
		IDs:       m.store.SelectedIDs(),
		Message:   strings.TrimSpace(m.msgInput.Value()),
		TicketRef: m.refInput.Value(),
	}
	if req.Message == "" {
		cmd := m.setBanner(bannerError, "Commit message must not be empty")
		return m, cmd
	}
	if err := req.Validate(); err != nil {
		m.log.Warn("submission rejected locally", "error", err)
		cmd := m.setBanner(bannerError, "Submission is incomplete")
		return m, cmd
	}

	confirm := len(req.IDs) > m.cfg.ConfirmThreshold
	m.mode = modeBrowse
	m.msgInput.Blur()
	m.refInput.Blur()
	m.committing = true

	send := func() tea.Msg {
		var err error
		if confirm {
			_, err = m.cfg.Client.Confirm(req)
		} else {
			_, err = m.cfg.Client.Submit(req)
		}
		if err != nil {
			return requestFailedMsg{err: err}
		}
		return nil
	}
	banner := m.setBanner(bannerInfo, "Submitting…")
	return m, tea.Batch(m.spin.Tick, send, banner)
}

// =============================================================================
// Boundary responses
// =============================================================================

// handleResponse applies one inbound response and re-arms the receiver.
//
// The policy is last-response-wins: every RecordsLoaded is applied as it
// arrives with no attempt to suppress stale fetches, so the final state
// always reflects the newest data the host sent.
func (m Model) handleResponse(resp boundary.Response) (Model, tea.Cmd) {
	rearm := m.cfg.Client.Wait()

	switch r := resp.(type) {
	case boundary.RecordsLoaded:
		m.loading = false
		if r.SourceID != "" {
			m.sourceID = r.SourceID
		}
		m.store.ReplaceAll(r.Records)
		// A new collection starts back at page 1, except the fetch that
		// confirms a restored session.
		if m.keepRestoredPage {
			m.keepRestoredPage = false
		} else {
			m.pag.Page = 1
		}
		m.fullRender()
		m.log.Info("records applied", "source", r.SourceID, "count", len(r.Records))
		snap := m.scheduleSnapshot()
		return m, tea.Batch(rearm, snap)

	case boundary.Progress:
		detail := r.Step
		if r.Detail != "" {
			detail += ": " + r.Detail
		}
		banner := m.setBanner(bannerInfo, detail)
		return m, tea.Batch(rearm, banner)

	case boundary.CommitResult:
		m.committing = false
		if !r.OK {
			banner := m.setBanner(bannerError, "Commit failed")
			return m, tea.Batch(rearm, banner)
		}
		// Success clears the selection and refreshes: the committed
		// changes are no longer pending.
		m.store.Clear()
		m.msgInput.SetValue("")
		m.refInput.SetValue("")
		m.loading = true
		m.fullRender()
		banner := m.setBanner(bannerSuccess,
			fmt.Sprintf("Committed %d file(s) to %s @ %s", r.FilesCommitted, r.Branch, r.Revision))
		snap := m.scheduleSnapshot()
		return m, tea.Batch(rearm, m.spin.Tick, m.fetchRecords(), banner, snap)

	case boundary.ConfirmCancelled:
		// A declined confirmation is not an error: selection and form
		// inputs stay exactly as they were.
		m.committing = false
		banner := m.setBanner(bannerInfo, "Commit cancelled")
		return m, tea.Batch(rearm, banner)

	case boundary.ErrorReply:
		// Failures never touch the selection set; the user retries with
		// everything still marked.
		m.loading = false
		m.committing = false
		m.log.Error("host reported failure", "message", r.Message, "detail", r.Detail)
		banner := m.setBanner(bannerError, r.Message+" (r to retry)")
		return m, tea.Batch(rearm, banner)

	case boundary.SourcesLoaded:
		// The interactive grid never asks for the source list.
		return m, rearm

	default:
		m.log.Warn("unhandled response variant", "type", fmt.Sprintf("%T", resp))
		return m, rearm
	}
}

// =============================================================================
// Commands
// =============================================================================

func (m Model) fetchRecords() tea.Cmd {
	client, source := m.cfg.Client, m.sourceID
	return func() tea.Msg {
		if _, err := client.Fetch(source, nil); err != nil {
			return requestFailedMsg{err: err}
		}
		return nil
	}
}

// scheduleSnapshot captures the current session state into the debounced
// writer. Rapid interaction coalesces into one write per quiet period.
func (m *Model) scheduleSnapshot() tea.Cmd {
	if m.cfg.Snapshots == nil {
		return nil
	}
	m.cfg.Snapshots.Schedule(snapshot.Snapshot{
		SourceID:   m.sourceID,
		Records:    m.store.Records(),
		Selected:   m.store.SelectedIDs(),
		Criteria:   m.criteria,
		Pagination: m.pag,
		SavedAt:    time.Now().UTC(),
	})
	return nil
}

// setBanner shows a status line. Info and success banners arm an expiry
// timer; error banners stay up until the user acts again or a newer
// banner replaces them.
func (m *Model) setBanner(kind bannerKind, text string) tea.Cmd {
	m.bannerKind = kind
	m.bannerText = text
	m.bannerSeq++
	if kind == bannerError {
		return nil
	}
	seq := m.bannerSeq
	return tea.Tick(bannerTimeout, func(time.Time) tea.Msg {
		return bannerExpiredMsg{seq: seq}
	})
}

// clearBanner drops whatever banner is showing and invalidates any armed
// expiry timer.
func (m *Model) clearBanner() {
	m.bannerText = ""
	m.bannerSeq++
}

// =============================================================================
// Read accessors (used by tests and the command layer)
// =============================================================================

// SelectedCount returns the size of the selection set.
func (m Model) SelectedCount() int { return m.store.Count() }

// PageRecords returns the records on the current page.
func (m Model) PageRecords() []datatypes.Record { return m.page }

// Criteria returns the active view criteria.
func (m Model) Criteria() datatypes.Criteria { return m.criteria }

// Pagination returns the current pagination state.
func (m Model) Pagination() datatypes.Pagination { return m.pag }
