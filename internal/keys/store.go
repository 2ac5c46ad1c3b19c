// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/recommender/internal/util"
)

// ErrNoCredential indicates no key is available for a domain.
var ErrNoCredential = errors.New("no API key found")

// Record is one stored key.
type Record struct {
	Domain string `toml:"domain"`
	Name   string `toml:"name"`
	Key    string `toml:"key"`
}

// Masked returns the record's key with all but the last four characters hidden.
func (r Record) Masked() string {
	if len(r.Key) <= 4 {
		return strings.Repeat("*", len(r.Key))
	}
	return strings.Repeat("*", 8) + r.Key[len(r.Key)-4:]
}

type storeFile struct {
	Keys []Record `toml:"key"`
}

// Store is a file-backed set of key records.
type Store struct {
	path    string
	records []Record
}

// Open reads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key store: %w", err)
	}

	var f storeFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("failed to decode key store %s: %w", path, err)
	}
	s.records = f.Keys
	return s, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// FindRecord returns every record for domain, in file order.
func (s *Store) FindRecord(domain string) []Record {
	domain = normalizeDomain(domain)
	var out []Record
	for _, r := range s.records {
		if normalizeDomain(r.Domain) == domain {
			out = append(out, r)
		}
	}
	return out
}

// Records returns all records sorted by domain.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// Set replaces every record for domain with a single one holding key, then
// saves the store.
func (s *Store) Set(domain, key string) error {
	domain = normalizeDomain(domain)
	key = strings.TrimSpace(key)
	if domain == "" {
		return errors.New("domain must not be empty")
	}
	if key == "" {
		return errors.New("key must not be empty")
	}

	var kept []Record
	for _, r := range s.records {
		if normalizeDomain(r.Domain) != domain {
			kept = append(kept, r)
		}
	}
	s.records = append(kept, Record{Domain: domain, Name: "default", Key: key})
	return s.Save()
}

// Save writes the store with 0600 permissions.
func (s *Store) Save() error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(storeFile{Keys: s.records}); err != nil {
		return fmt.Errorf("failed to encode key store: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write key store: %w", err)
	}
	return nil
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}
