// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package releases

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileSource reads records from a local file. Files ending in .toml hold
// [[release]] tables; anything else is read as a JSON array.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// tomlReleases is the on-disk layout of a TOML release file.
type tomlReleases struct {
	Release []Record `toml:"release"`
}

// Releases implements Source.
func (s *FileSource) Releases(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(s.Path), ".toml") {
		var doc tomlReleases
		if _, err := toml.DecodeFile(s.Path, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode release file %s: %w", s.Path, err)
		}
		return doc.Release, nil
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read release file: %w", err)
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode release file %s: %w", s.Path, err)
	}
	return recs, nil
}
