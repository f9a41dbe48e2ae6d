// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package host provides a local, file-backed fulfillment of the grid's
// boundary protocol.
//
// Sources live as YAML manifests in one directory; commits are staged
// into an append-only log next to the manifest. The directory is watched
// so an edit to the active source pushes a fresh record collection to the
// grid unsolicited, exercising the engine's last-response-wins policy.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/driftdeck/driftdeck/pkg/logging"
	"github.com/driftdeck/driftdeck/services/grid/boundary"
	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

// defaultWatchDebounce batches rapid manifest writes (editors often
// write a file several times in quick succession).
const defaultWatchDebounce = 250 * time.Millisecond

// ConfirmFunc decides a large-submission confirmation. It may block
// while the user is prompted; the host processes no other requests until
// it returns.
type ConfirmFunc func(boundary.ConfirmCommit) bool

// Options configures a LocalHost.
type Options struct {
	// Dir is the directory of source manifests.
	Dir string

	// DefaultBranch names the commit branch when a manifest has none.
	DefaultBranch string

	// Confirm handles confirmation requests. Nil means confirmations
	// auto-proceed (headless operation with --yes).
	Confirm ConfirmFunc

	// WatchDebounce overrides the manifest-write batching window.
	WatchDebounce time.Duration

	// Logger receives host diagnostics. Nil falls back to the default.
	Logger *logging.Logger
}

// LocalHost fulfills the boundary protocol from local manifest files.
type LocalHost struct {
	opts Options
	pipe *boundary.Pipe
	log  *logging.Logger

	mu           sync.Mutex
	activeSource string
	activeIDs    map[string]struct{}
}

// New creates a host serving the manifests in opts.Dir over the given pipe.
func New(pipe *boundary.Pipe, opts Options) (*LocalHost, error) {
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source directory %s is not a directory", opts.Dir)
	}
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = defaultWatchDebounce
	}
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = "drift/review"
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	return &LocalHost{
		opts:      opts,
		pipe:      pipe,
		log:       log.With("component", "host"),
		activeIDs: make(map[string]struct{}),
	}, nil
}

// Run serves requests until the context is cancelled or the pipe closes.
func (h *LocalHost) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create manifest watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(h.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", h.opts.Dir, err)
	}

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-h.pipe.Done():
			return nil

		case req, ok := <-h.pipe.Requests():
			if !ok {
				return nil
			}
			h.handle(req)

		case ev := <-watcher.Events:
			if h.concernsActiveSource(ev) {
				reload = time.After(h.opts.WatchDebounce)
			}

		case err := <-watcher.Errors:
			h.log.Warn("manifest watcher error", "error", err)

		case <-reload:
			reload = nil
			h.pushActiveSource()
		}
	}
}

// handle dispatches one request through the protocol's variant table.
func (h *LocalHost) handle(req boundary.Request) {
	switch r := req.(type) {
	case boundary.FetchRecords:
		h.fetch(r)
	case boundary.ListSources:
		h.listSources(r)
	case boundary.SubmitCommit:
		h.commit(r)
	case boundary.ConfirmCommit:
		h.confirmCommit(r)
	default:
		h.log.Warn("unhandled request variant", "type", fmt.Sprintf("%T", req))
	}
}

// =============================================================================
// Fetch / List
// =============================================================================

func (h *LocalHost) fetch(req boundary.FetchRecords) {
	m, err := h.resolveSource(req.SourceID)
	if err != nil {
		h.respondError(req.Correlation(), "Could not load records", err)
		return
	}

	records := m.Records
	if len(req.Types) > 0 {
		records = filterByType(records, req.Types)
	}

	h.setActive(m)
	h.log.Info("records loaded", "source", m.ID, "count", len(records))
	h.respond(boundary.RecordsLoaded{
		Correlated: req.Correlated,
		SourceID:   m.ID,
		Records:    records,
	})
}

func (h *LocalHost) listSources(req boundary.ListSources) {
	manifests, err := ListManifests(h.opts.Dir)
	if err != nil {
		h.respondError(req.Correlation(), "Could not list sources", err)
		return
	}

	sources := make([]boundary.Source, len(manifests))
	for i, m := range manifests {
		sources[i] = boundary.Source{ID: m.ID, Name: m.Name, Branch: h.branchFor(m)}
	}
	h.respond(boundary.SourcesLoaded{Correlated: req.Correlated, Sources: sources})
}

// resolveSource loads a manifest by id. An empty id resolves to the only
// manifest in the directory, if there is exactly one.
func (h *LocalHost) resolveSource(sourceID string) (*Manifest, error) {
	if sourceID != "" {
		return LoadManifest(filepath.Join(h.opts.Dir, sourceID+manifestExt))
	}

	manifests, err := ListManifests(h.opts.Dir)
	if err != nil {
		return nil, err
	}
	switch len(manifests) {
	case 0:
		return nil, fmt.Errorf("no source manifests in %s", h.opts.Dir)
	case 1:
		return manifests[0], nil
	default:
		return nil, fmt.Errorf("multiple sources in %s, one must be named", h.opts.Dir)
	}
}

func filterByType(records []datatypes.Record, types []string) []datatypes.Record {
	keep := make(map[string]struct{}, len(types))
	for _, t := range types {
		keep[t] = struct{}{}
	}
	out := make([]datatypes.Record, 0, len(records))
	for _, r := range records {
		if _, ok := keep[r.Category]; ok {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// Commit
// =============================================================================

// commitEntry is one line of the append-only commit log.
type commitEntry struct {
	Time     time.Time `json:"time"`
	Branch   string    `json:"branch"`
	Revision string    `json:"revision"`
	Message  string    `json:"message"`
	IDs      []string  `json:"ids"`
}

func (h *LocalHost) commit(req boundary.SubmitCommit) {
	m, err := h.resolveSource(req.SourceID)
	if err != nil {
		h.respondError(req.Correlation(), "Could not load source for commit", err)
		return
	}

	// Reject unresolvable ids: records deselected upstream or removed by
	// a refresh must never be silently committed.
	known := make(map[string]struct{}, len(m.Records))
	for _, r := range m.Records {
		known[r.ID] = struct{}{}
	}
	var missing []string
	for _, id := range req.IDs {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		h.respondError(req.Correlation(),
			"Commit references records that no longer exist",
			fmt.Errorf("unresolvable ids: %s", strings.Join(missing, ", ")))
		return
	}

	branch := h.branchFor(m)
	h.respond(boundary.Progress{
		Correlated: req.Correlated,
		Step:       "staging",
		Detail:     fmt.Sprintf("%d records", len(req.IDs)),
	})

	entry := commitEntry{
		Time:     time.Now().UTC(),
		Branch:   branch,
		Revision: newRevision(),
		Message:  req.ComposedMessage(),
		IDs:      req.IDs,
	}

	h.respond(boundary.Progress{Correlated: req.Correlated, Step: "committing", Detail: branch})

	if err := h.appendCommitLog(m.ID, entry); err != nil {
		h.respondError(req.Correlation(), "Commit failed", err)
		return
	}

	h.log.Info("commit staged", "source", m.ID, "revision", entry.Revision, "files", len(req.IDs))
	h.respond(boundary.CommitResult{
		Correlated:     req.Correlated,
		OK:             true,
		FilesCommitted: len(req.IDs),
		Branch:         branch,
		Revision:       entry.Revision,
	})
}

func (h *LocalHost) confirmCommit(req boundary.ConfirmCommit) {
	if h.opts.Confirm != nil && !h.opts.Confirm(req) {
		h.log.Info("commit confirmation declined", "count", req.ItemCount)
		h.respond(boundary.ConfirmCancelled{Correlated: req.Correlated})
		return
	}
	h.commit(req.SubmitCommit)
}

// appendCommitLog stages the commit as one JSON line next to the manifest.
func (h *LocalHost) appendCommitLog(sourceID string, entry commitEntry) error {
	path := filepath.Join(h.opts.Dir, sourceID+".commits.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("open commit log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode commit entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append commit entry: %w", err)
	}
	return nil
}

// newRevision mints a short opaque revision identifier.
func newRevision() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// =============================================================================
// Watch / push
// =============================================================================

func (h *LocalHost) setActive(m *Manifest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activeSource = m.ID
	h.activeIDs = make(map[string]struct{}, len(m.Records))
	for _, r := range m.Records {
		h.activeIDs[r.ID] = struct{}{}
	}
}

func (h *LocalHost) concernsActiveSource(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activeSource != "" && manifestStem(ev.Name) == h.activeSource &&
		strings.HasSuffix(ev.Name, manifestExt)
}

// pushActiveSource reloads the active manifest and pushes an unsolicited
// replacement collection to the grid.
func (h *LocalHost) pushActiveSource() {
	h.mu.Lock()
	active := h.activeSource
	h.mu.Unlock()
	if active == "" {
		return
	}

	m, err := LoadManifest(filepath.Join(h.opts.Dir, active+manifestExt))
	if err != nil {
		h.log.Warn("active source changed but reload failed", "source", active, "error", err)
		return
	}

	h.setActive(m)
	h.log.Info("pushing refreshed records", "source", m.ID, "count", len(m.Records))
	h.respond(boundary.RecordsLoaded{SourceID: m.ID, Records: m.Records})
}

// =============================================================================
// Responses
// =============================================================================

func (h *LocalHost) respond(resp boundary.Response) {
	if err := h.pipe.Respond(resp); err != nil {
		h.log.Debug("response dropped, pipe closed")
	}
}

func (h *LocalHost) respondError(correlationID, message string, err error) {
	h.log.Error(message, "error", err)
	h.respond(boundary.ErrorReply{
		Correlated: boundary.Correlated{CorrelationID: correlationID},
		Message:    message,
		Detail:     err.Error(),
	})
}

func (h *LocalHost) branchFor(m *Manifest) string {
	if m.Branch != "" {
		return m.Branch
	}
	return h.opts.DefaultBranch
}
