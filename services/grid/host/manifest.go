// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package host

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

// manifestExt is the filename extension of source manifests.
const manifestExt = ".yaml"

// Manifest is one source's on-disk description: metadata plus the full
// record collection the grid presents.
type Manifest struct {
	ID      string             `yaml:"id"`
	Name    string             `yaml:"name"`
	Branch  string             `yaml:"branch"`
	Records []datatypes.Record `yaml:"records"`
}

// LoadManifest reads and parses a source manifest. A manifest without an
// explicit id inherits its filename stem.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if m.ID == "" {
		m.ID = manifestStem(path)
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	return &m, nil
}

// ListManifests returns the manifests in a directory, sorted by id.
// Unreadable files are skipped; an empty directory is not an error.
func ListManifests(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory %s: %w", dir, err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), manifestExt) {
			continue
		}
		m, err := LoadManifest(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ID < manifests[j].ID })
	return manifests, nil
}

// manifestStem strips directory and extension from a manifest path.
func manifestStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), manifestExt)
}
