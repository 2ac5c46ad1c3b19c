// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the recommender command line.
//
// With no arguments it starts the interactive chat: configuration is loaded,
// release data is fetched and formatted for the persona mode, the API key is
// resolved, and a session.Loop runs against a liner-backed line editor.
// Subcommands manage API keys, print release data, inspect configuration and
// run setup diagnostics (doctor). releases and doctor accept --json.
//
// # Key Types
//
//   - Command, Args: Parsed command line
//   - LineEditor: session.LineReader with history, backed by peterh/liner
//   - ArgParser: Flag and positional parsing for subcommands
//   - CommandError, UsageError: Structured command failures
//   - HealthCheck: One doctor check result
//   - JSONResponse: Envelope for --json output
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err == nil {
//	    err = cli.Execute(ctx, cmd, args)
//	}
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err)
//	    os.Exit(cli.GetExitCode(err))
//	}
package cli
