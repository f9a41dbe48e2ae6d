// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/driftdeck/driftdeck/cmd/driftdeck/config"
	"github.com/driftdeck/driftdeck/pkg/ux"
	"github.com/driftdeck/driftdeck/services/grid/boundary"
)

// runCommit submits a set of record ids without opening the grid. Scripts
// pass --yes to skip the large-selection prompt.
func runCommit(cmd *cobra.Command, args []string) {
	if err := config.Load(); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	log := newLogger("cli", true)
	defer log.Close()

	req := boundary.SubmitCommit{
		SourceID:  resolveSource(),
		IDs:       commitIDs,
		Message:   commitMsg,
		TicketRef: ticketRef,
	}
	if err := req.Validate(); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	if len(req.IDs) > config.Global.Commit.ConfirmThreshold && !assumeYes {
		proceed := false
		prompt := huh.NewConfirm().
			Title(fmt.Sprintf("Commit %d records?", len(req.IDs))).
			Description(req.ComposedMessage()).
			Value(&proceed)
		if err := prompt.Run(); err != nil {
			ux.Error(err.Error())
			os.Exit(1)
		}
		if !proceed {
			ux.Muted("Commit cancelled")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, cleanup, err := connect(ctx, log, nil)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	defer cleanup()

	if _, err := client.Submit(req); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	for {
		resp, ok := nextResponse(client, 15*time.Second)
		if !ok {
			ux.Error("the host did not answer in time")
			os.Exit(1)
		}
		switch r := resp.(type) {
		case boundary.Progress:
			ux.Info(fmt.Sprintf("%s: %s", r.Step, r.Detail))
		case boundary.CommitResult:
			if !r.OK {
				ux.Error("commit failed")
				os.Exit(1)
			}
			ux.Success(fmt.Sprintf("Committed %d file(s) to %s @ %s", r.FilesCommitted, r.Branch, r.Revision))
			return
		case boundary.ConfirmCancelled:
			ux.Muted("Commit cancelled")
			return
		case boundary.ErrorReply:
			ux.Error(r.Message)
			if r.Detail != "" {
				ux.Muted(r.Detail)
			}
			os.Exit(1)
		default:
			// Unsolicited record pushes are irrelevant here.
		}
	}
}
