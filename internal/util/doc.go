// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across recommender packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// String Utilities:
//   - TruncateWidth: Display-width truncation with ellipsis
//   - Preview: Single-line, width-limited preview for logs
//
// # Usage
//
//	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
//	    return err
//	}
//	logger.Debug("user input", "preview", util.Preview(text, 40))
package util
