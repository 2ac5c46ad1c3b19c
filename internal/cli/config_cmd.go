// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection for recommender.
//
// Command: config [subcommand]
// Short:   Show or create the configuration file
//
// Subcommands:
//   show (default)    Print the effective configuration
//   path              Print the configuration file path
//   init              Write the effective configuration to the file

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/recommender/internal/config"
)

const configUsage = "recommender config [show|path|init]"

// HandleConfig runs a config subcommand.
func HandleConfig(cfg *config.Config, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw)

	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPathTOML(); err != nil {
			return err
		}
	}

	switch p.Subcommand() {
	case "show", "":
		fmt.Fprintln(w, cfg.String())
		return nil

	case "path":
		fmt.Fprintln(w, path)
		return nil

	case "init":
		if _, err := os.Stat(path); err == nil && !p.BoolFlag("force") {
			return NewCommandError("config", "init", fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
		}
		if err := config.SaveTOML(cfg, path); err != nil {
			return NewCommandError("config", "init", "could not write configuration", err)
		}
		fmt.Fprintf(w, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
		return nil

	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand: %s", p.Subcommand()), Usage: configUsage}
	}
}
