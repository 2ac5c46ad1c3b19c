// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud sends conversations to an OpenAI-compatible chat-completion
// endpoint.
//
// Each call to Dispatch appends the user's text to the conversation, posts the
// whole conversation in one blocking request, and appends the assistant's
// reply. There are no retries and no streaming: any transport or response
// error is returned to the caller as-is.
//
// # Key Types
//
//   - Client: HTTP client bound to one endpoint and API key
//   - Usage: token counts reported by the endpoint
//   - APIError: non-2xx reply from the endpoint
//
// # Usage
//
//	client := cloud.NewClient(apiKey).WithBaseURL(cfg.Chat.Host)
//	usage, err := client.Dispatch(ctx, conversation, "Something like Alien?")
//
// # Security
//
// API keys are never logged; requests are logged by method, path, status and
// duration only, and the key is identified by a SHA-256 fingerprint.
package cloud
