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
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies first-run config creation.
func TestCreateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".driftdeck", "driftdeck.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}

	var cfg DriftdeckConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("created config is not valid yaml: %v", err)
	}
	if cfg.Commit.ConfirmThreshold != 50 {
		t.Errorf("confirm_threshold = %d, want 50", cfg.Commit.ConfirmThreshold)
	}
	if cfg.Snapshots.DebounceMS != 300 {
		t.Errorf("debounce_ms = %d, want 300", cfg.Snapshots.DebounceMS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("created config does not validate: %v", err)
	}
}

// TestDefaultConfig_Values verifies the defaults the rest of the CLI
// depends on.
func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Commit.DefaultBranch != "drift/review" {
		t.Errorf("default branch = %q, want drift/review", cfg.Commit.DefaultBranch)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Host.URL != "" {
		t.Errorf("host url should default empty (local host), got %q", cfg.Host.URL)
	}
	if !strings.HasSuffix(cfg.Sources.Dir, filepath.Join(".driftdeck", "sources")) {
		t.Errorf("sources dir = %q, want a path under ~/.driftdeck", cfg.Sources.Dir)
	}
}

// TestValidate_RejectsBadValues exercises the struct tags.
func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DriftdeckConfig)
	}{
		{"empty sources dir", func(c *DriftdeckConfig) { c.Sources.Dir = "" }},
		{"empty snapshots dir", func(c *DriftdeckConfig) { c.Snapshots.Dir = "" }},
		{"unknown log level", func(c *DriftdeckConfig) { c.Logging.Level = "verbose" }},
		{"negative debounce", func(c *DriftdeckConfig) { c.Snapshots.DebounceMS = -1 }},
		{"zero confirm threshold", func(c *DriftdeckConfig) { c.Commit.ConfirmThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error, got nil")
			}
		})
	}
}

// TestValidate_AcceptsWebsocketURL verifies the optional host url tag.
func TestValidate_AcceptsWebsocketURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host.URL = "ws://deck.internal:7420/boundary"
	if err := cfg.Validate(); err != nil {
		t.Errorf("websocket url rejected: %v", err)
	}
}
