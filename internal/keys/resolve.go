// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvVar is the environment variable checked before the store.
const EnvVar = "OPENAI_API_KEY"

// Resolver finds the key to use for a domain.
type Resolver struct {
	store   *Store
	envFile string
	getenv  func(string) string
}

// NewResolver returns a resolver backed by store. store may be nil.
func NewResolver(store *Store) *Resolver {
	return &Resolver{
		store:   store,
		envFile: ".env",
		getenv:  os.Getenv,
	}
}

// WithEnvFile sets the dotenv file consulted after the process environment.
// An empty path disables it.
func (r *Resolver) WithEnvFile(path string) *Resolver {
	r.envFile = path
	return r
}

// Resolve returns the key for domain. The process environment wins over the
// dotenv file, which wins over the store. With several stored records the
// first is used.
func (r *Resolver) Resolve(domain string) (string, error) {
	if key := strings.TrimSpace(r.getenv(EnvVar)); key != "" {
		return key, nil
	}

	if r.envFile != "" {
		env, err := godotenv.Read(r.envFile)
		switch {
		case err == nil:
			if key := strings.TrimSpace(env[EnvVar]); key != "" {
				return key, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("failed to read %s: %w", r.envFile, err)
		}
	}

	if r.store != nil {
		if recs := r.store.FindRecord(domain); len(recs) > 0 && recs[0].Key != "" {
			return recs[0].Key, nil
		}
	}

	return "", fmt.Errorf("%w for %s (set %s or run 'recommender keys set %s <key>')", ErrNoCredential, domain, EnvVar, domain)
}
