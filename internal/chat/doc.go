// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat contains the conversation types sent to the chat-completion API.
//
// A conversation is a Context: the model identifier, optional generation
// parameters and an append-only sequence of Turns. Every Context starts with
// exactly one system Turn holding the recommender persona; user and assistant
// Turns are then appended in strict alternation.
//
// # Key Types
//
//   - Turn: a single role/content record
//   - Context: the request body and transcript for one session
//   - Persona: a named system-prompt template with placeholders
//
// # Usage
//
//	ctx, err := chat.NewContext(chat.PersonaCategory,
//	    map[string]string{"MovieData": text},
//	    chat.WithModel("gpt-4-turbo-preview"))
//	if err != nil {
//	    return err
//	}
//	ctx.Append(chat.NewUserTurn("Something like Alien?"))
package chat
