// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	sourceID     string
	hostURL      string // CLI override for host.url
	freshSession bool   // skip the saved session snapshot
	commitIDs    []string
	commitMsg    string
	ticketRef    string
	assumeYes    bool

	rootCmd = &cobra.Command{
		Use:   "driftdeck",
		Short: "A cli to review and commit detected component changes",
		Long: `Driftdeck presents detected changes as an interactive grid:
				filter, sort, and page through them, mark the ones that matter,
				and send the marked set to the commit pipeline.`,
	}

	// --- Grid ---
	gridCmd = &cobra.Command{
		Use:   "grid",
		Short: "Open the interactive change-review grid",
		Run:   runGrid, // Defined in cmd_grid.go
	}

	// --- Sources ---
	sourcesCmd = &cobra.Command{
		Use:   "sources",
		Short: "List the available record sources",
		Run:   runSources, // Defined in cmd_sources.go
	}

	// --- Commit ---
	commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Commit selected records without opening the grid",
		Run:   runCommit, // Defined in cmd_commit.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&sourceID, "source", "s", "", "record source id")
	rootCmd.PersistentFlags().StringVar(&hostURL, "host", "", "websocket host URL (overrides config)")

	gridCmd.Flags().BoolVar(&freshSession, "fresh", false, "ignore the saved session snapshot")

	commitCmd.Flags().StringSliceVar(&commitIDs, "id", nil, "record id to commit (repeatable)")
	commitCmd.Flags().StringVarP(&commitMsg, "message", "m", "", "commit message")
	commitCmd.Flags().StringVarP(&ticketRef, "ticket", "t", "", "ticket reference, e.g. US-123")
	commitCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the large-commit confirmation")

	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(commitCmd)
}
