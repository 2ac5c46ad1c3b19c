// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keys stores and resolves API keys per service domain.
//
// Keys live in a TOML file (default ~/.recommender/keys.toml) written with
// 0600 permissions. Resolution checks, in order:
//   - the OPENAI_API_KEY environment variable
//   - OPENAI_API_KEY in a .env file in the working directory
//   - the key store entry for the domain
//
// # Usage
//
//	store, err := keys.Open(cfg.Keys.Path)
//	key, err := keys.NewResolver(store).Resolve("api.openai.com")
package keys
