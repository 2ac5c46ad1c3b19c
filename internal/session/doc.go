// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs the interactive read-dispatch-print loop.
//
// A Loop owns one conversation. Each line the user enters is trimmed; an
// empty line or "quit" (any case) ends the session without contacting the
// API. Anything else is dispatched and the reply printed as
// "<name> > <content>". Token usage is summed across the session and
// reported when it ends.
//
// # Key Types
//
//   - Loop: The session state machine
//   - LineReader: Source of user input lines
//   - Printer: Sink for replies and the closing summary
//   - Status: Session ID, timing and usage totals
//
// # Usage
//
//	loop := session.NewLoop(conv, client, reader, printer).WithName("recommender")
//	usage, err := loop.Run(ctx)
package session
