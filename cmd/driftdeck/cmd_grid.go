// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/driftdeck/driftdeck/cmd/driftdeck/config"
	"github.com/driftdeck/driftdeck/pkg/ux"
	"github.com/driftdeck/driftdeck/services/grid"
	"github.com/driftdeck/driftdeck/services/grid/boundary"
	"github.com/driftdeck/driftdeck/services/grid/snapshot"
)

// runGrid opens the interactive change-review grid.
func runGrid(cmd *cobra.Command, args []string) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		ux.Error("the grid needs an interactive terminal; use 'driftdeck commit' in scripts")
		os.Exit(1)
	}
	if err := config.Load(); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	// Quiet logger: TUI frames and log lines must not interleave.
	log := newLogger("grid", true)
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The program pointer is set before Run; the confirm callback only
	// fires once the program is processing messages.
	var program *tea.Program
	confirm := func(req boundary.ConfirmCommit) bool {
		reply := make(chan bool, 1)
		program.Send(grid.ConfirmPromptMsg{Req: req, Reply: reply})
		select {
		case ok := <-reply:
			return ok
		case <-ctx.Done():
			return false
		}
	}

	client, cleanup, err := connect(ctx, log, confirm)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	defer cleanup()

	// Session snapshots: restore the last session, persist on a debounce.
	store, err := snapshot.OpenBadger(snapshot.BadgerOptions{
		Path:   config.Global.Snapshots.Dir,
		Logger: log.Slog(),
	})
	if err != nil {
		ux.Error("could not open the snapshot store: " + err.Error())
		os.Exit(1)
	}
	defer store.Close()

	// With no source named anywhere, the host resolves one on fetch; the
	// restore falls back to the newest saved session so it still fires.
	source := resolveSource()
	var restored *snapshot.Snapshot
	if !freshSession {
		if source != "" {
			restored, err = store.Load(source)
		} else {
			restored, err = store.LoadLatest()
		}
		if err != nil {
			log.Warn("snapshot restore failed, starting clean", "error", err)
		}
	}

	debouncer := snapshot.NewDebouncer(
		time.Duration(config.Global.Snapshots.DebounceMS)*time.Millisecond,
		func(s snapshot.Snapshot) {
			if err := store.Save(s); err != nil {
				log.Error("snapshot write failed", "error", err)
			}
		})

	model := grid.NewModel(grid.Config{
		Client:           client,
		SourceID:         source,
		Snapshots:        debouncer,
		Restored:         restored,
		ConfirmThreshold: config.Global.Commit.ConfirmThreshold,
		Logger:           log,
	})

	program = tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := program.Run()

	// Write whatever is pending before the store closes.
	debouncer.Flush()
	debouncer.Close()

	if runErr != nil {
		ux.Error(runErr.Error())
		os.Exit(1)
	}
}
