// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"sync"
	"time"
)

// Debouncer schedules a trailing snapshot write after a quiet period.
//
// # Description
//
// Every state mutation calls Schedule with the current snapshot, which
// cancels any pending timer and starts a new one; the write fires only
// after the delay passes with no further mutations. The write itself is
// fire-and-forget on a timer goroutine.
//
// This is the explicit scheduled-task replacement for an ambient timer
// handle: lifecycle is owned by whoever constructed the Debouncer, and a
// timer firing after Close is skipped without error.
//
// # Thread Safety
//
// Safe for concurrent use, though the grid engine only calls it from its
// single event loop.
type Debouncer struct {
	delay time.Duration
	write func(Snapshot)

	mu      sync.Mutex
	timer   *time.Timer
	pending *Snapshot
	closed  bool
}

// NewDebouncer creates a debouncer that calls write after delay of
// quiescence. A non-positive delay falls back to DefaultDebounce.
func NewDebouncer(delay time.Duration, write func(Snapshot)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, write: write}
}

// Schedule records the latest snapshot and restarts the quiet-period timer.
func (d *Debouncer) Schedule(s Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = &s
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// fire writes the pending snapshot unless the debouncer closed or a
// newer Schedule superseded this timer.
func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed || d.pending == nil {
		d.mu.Unlock()
		return
	}
	s := *d.pending
	d.pending = nil
	d.mu.Unlock()

	d.write(s)
}

// Flush writes any pending snapshot immediately. Used on clean shutdown
// so the last mutations are not lost to the quiet period.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.closed || d.pending == nil {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	s := *d.pending
	d.pending = nil
	d.mu.Unlock()

	d.write(s)
}

// Close cancels any pending write. Writes scheduled before Close but not
// yet fired are skipped; this is the best-effort teardown contract.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}
