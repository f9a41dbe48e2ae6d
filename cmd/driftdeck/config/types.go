// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

type DriftdeckConfig struct {
	// Sources: where the record source manifests live
	Sources SourcesConfig `yaml:"sources"`

	// Host: remote host settings; empty URL means the local file host
	Host HostConfig `yaml:"host"`

	// Snapshots: session snapshot persistence
	Snapshots SnapshotConfig `yaml:"snapshots"`

	// Logging: log level and destination
	Logging LoggingConfig `yaml:"logging"`

	// Commit: commit pipeline defaults
	Commit CommitConfig `yaml:"commit"`
}

type SourcesConfig struct {
	Dir     string `yaml:"dir" validate:"required"` // e.g. ~/.driftdeck/sources
	Default string `yaml:"default,omitempty"`       // source id opened without -s
}

type HostConfig struct {
	// URL is a websocket endpoint, e.g. ws://deck.internal:7420/boundary
	URL string `yaml:"url,omitempty" validate:"omitempty,uri"`
}

type SnapshotConfig struct {
	Dir        string `yaml:"dir" validate:"required"`
	DebounceMS int    `yaml:"debounce_ms" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
}

type CommitConfig struct {
	DefaultBranch    string `yaml:"default_branch"`
	ConfirmThreshold int    `yaml:"confirm_threshold" validate:"gte=1"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() DriftdeckConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".driftdeck")
	return DriftdeckConfig{
		Sources: SourcesConfig{
			Dir: filepath.Join(base, "sources"),
		},
		Snapshots: SnapshotConfig{
			Dir:        filepath.Join(base, "snapshots"),
			DebounceMS: 300,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(base, "logs"),
		},
		Commit: CommitConfig{
			DefaultBranch:    "drift/review",
			ConfirmThreshold: 50,
		},
	}
}

// Validate checks the loaded configuration's struct tags.
func (c DriftdeckConfig) Validate() error {
	return validator.New().Struct(c)
}
