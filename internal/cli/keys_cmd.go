// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// keys_cmd.go - API key management for recommender.
//
// Command: keys [subcommand]
// Short:   Store and list API keys
//
// Subcommands:
//   set <domain> <key>    Store the key for a domain (replaces existing)
//   list                  Show stored keys, masked
//
// Examples:
//   recommender keys set api.openai.com sk-...
//   recommender keys list

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/recommender/internal/config"
	"github.com/jeranaias/recommender/internal/keys"
)

const keysUsage = "recommender keys set <domain> <key> | recommender keys list"

// HandleKeys runs a keys subcommand.
func HandleKeys(cfg *config.Config, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw)

	store, err := keys.Open(cfg.Keys.Path)
	if err != nil {
		return NewCommandError("keys", "open", "could not read key store", err)
	}

	switch p.Subcommand() {
	case "set":
		domain, key := p.Positional(1), p.Positional(2)
		if domain == "" {
			return ErrMissingArgument("domain", keysUsage)
		}
		if key == "" {
			return ErrMissingArgument("key", keysUsage)
		}
		if err := store.Set(domain, key); err != nil {
			return NewCommandError("keys", "set", "could not save key", err)
		}
		fmt.Fprintf(w, "%s Stored key for %s in %s\n", SuccessStyle.Render("[OK]"), domain, store.Path())
		return nil

	case "list", "":
		recs := store.Records()
		if len(recs) == 0 {
			fmt.Fprintln(w, DimStyle.Render("No keys stored. Add one with: recommender keys set <domain> <key>"))
			return nil
		}
		fmt.Fprintln(w, TitleStyle.Render("Stored API keys"))
		for _, r := range recs {
			fmt.Fprintf(w, "%s%s  %s\n", LabelStyle.Render(r.Domain), ValueStyle.Render(r.Name), r.Masked())
		}
		return nil

	default:
		return &UsageError{Message: fmt.Sprintf("unknown keys subcommand: %s", p.Subcommand()), Usage: keysUsage}
	}
}
