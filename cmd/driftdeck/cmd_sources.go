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

	"github.com/spf13/cobra"

	"github.com/driftdeck/driftdeck/cmd/driftdeck/config"
	"github.com/driftdeck/driftdeck/pkg/ux"
	"github.com/driftdeck/driftdeck/services/grid/boundary"
)

// runSources lists the record sources the host knows about.
func runSources(cmd *cobra.Command, args []string) {
	if err := config.Load(); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	log := newLogger("cli", true)
	defer log.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cleanup, err := connect(ctx, log, nil)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	defer cleanup()

	if _, err := client.ListSources(); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	for {
		resp, ok := nextResponse(client, 5*time.Second)
		if !ok {
			ux.Error("the host did not answer in time")
			os.Exit(1)
		}
		switch r := resp.(type) {
		case boundary.SourcesLoaded:
			ux.Title("Sources")
			for _, src := range r.Sources {
				ux.KeyValue(src.ID, fmt.Sprintf("%s (%s)", src.Name, src.Branch))
			}
			return
		case boundary.ErrorReply:
			ux.Error(r.Message)
			os.Exit(1)
		default:
			// Unsolicited pushes can arrive first; keep waiting.
		}
	}
}
