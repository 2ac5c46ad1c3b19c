// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for recommender.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ChatConfig: Model, endpoint, generation parameters and persona mode
//   - ReleasesConfig: Release data source, sampling cutoff and cache
//   - ValidateErrors: Every problem found by Validate
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RECOMMENDER_*)
//   - ~/.recommender/config.toml
//   - ~/.recommender/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	mode, _ := chat.ParseMode(cfg.Chat.Mode)
package config
