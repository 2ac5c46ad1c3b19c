// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/recommender/internal/chat"
)

const okBody = `{
	"id": "chatcmpl-1",
	"model": "gpt-4-turbo-preview",
	"choices": [{
		"message": {"role": "assistant", "content": "Try Aliens (1986)."},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 20, "completion_tokens": 10, "total_tokens": 30}
}`

func newConversation(t *testing.T) *chat.Context {
	t.Helper()
	conv, err := chat.NewContext(chat.PersonaBasic, nil, chat.WithModel(DefaultModel))
	require.NoError(t, err)
	return conv
}

func newTestClient(url string) *Client {
	return NewClient("sk-test-key").WithBaseURL(url)
}

// =============================================================================
// DISPATCH TESTS
// =============================================================================

func TestDispatch_Success(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultPath, r.URL.Path)
		assert.Equal(t, "Bearer sk-test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	conv := newConversation(t)
	usage, err := newTestClient(server.URL).Dispatch(context.Background(), conv, "Something like Alien?")
	require.NoError(t, err)

	assert.Equal(t, 30, usage.TotalTokens)
	assert.Equal(t, 20, usage.PromptTokens)
	assert.Equal(t, 10, usage.CompletionTokens)

	turns := conv.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, chat.RoleSystem, turns[0].Role)
	assert.Equal(t, chat.NewUserTurn("Something like Alien?"), turns[1])
	assert.Equal(t, chat.NewAssistantTurn("Try Aliens (1986)."), turns[2])

	assert.Equal(t, DefaultModel, got["model"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	last := messages[1].(map[string]any)
	assert.Equal(t, "user", last["role"])
	assert.Equal(t, "Something like Alien?", last["content"])
}

func TestDispatch_SendsWholeConversation(t *testing.T) {
	var counts []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []chat.Turn `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		counts = append(counts, len(req.Messages))
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	conv := newConversation(t)
	for _, text := range []string{"one", "two", "three"} {
		_, err := client.Dispatch(context.Background(), conv, text)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{2, 4, 6}, counts)
	assert.Equal(t, 7, conv.Len())
}

func TestDispatch_UsageAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	usage, err := newTestClient(server.URL).Dispatch(context.Background(), newConversation(t), "hi")
	require.NoError(t, err)
	assert.Equal(t, Usage{}, usage)
}

func TestDispatch_MissingRoleDefaultsToAssistant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	conv := newConversation(t)
	_, err := newTestClient(server.URL).Dispatch(context.Background(), conv, "hi")
	require.NoError(t, err)

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, chat.RoleAssistant, last.Role)
}

func TestDispatch_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"no choices", `{"choices":[]}`},
		{"choices absent", `{"id":"x"}`},
		{"message absent", `{"choices":[{"finish_reason":"stop"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			conv := newConversation(t)
			_, err := newTestClient(server.URL).Dispatch(context.Background(), conv, "hi")
			require.ErrorIs(t, err, ErrMalformedResponse)

			// The user turn stays; no assistant turn is added.
			require.Equal(t, 2, conv.Len())
			last, _ := conv.Last()
			assert.Equal(t, chat.RoleUser, last.Role)
		})
	}
}

func TestDispatch_ErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, ErrAuthFailed},
		{"forbidden", http.StatusForbidden, ``, ErrAuthFailed},
		{"not found", http.StatusNotFound, `{"error":{"message":"no such model"}}`, ErrModelNotFound},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Dispatch(context.Background(), newConversation(t), "hi")
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestDispatch_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"server exploded","type":"server_error","code":"boom"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Dispatch(context.Background(), newConversation(t), "hi")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Code)
	assert.Equal(t, "server exploded", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "HTTP 500")
}

func TestDispatch_APIErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Dispatch(context.Background(), newConversation(t), "hi")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestDispatch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Dispatch(context.Background(), newConversation(t), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestDispatch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).Dispatch(ctx, newConversation(t), "hi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatch_NoContext(t *testing.T) {
	_, err := NewClient("sk-test-key").Dispatch(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestDispatch_NotConfigured(t *testing.T) {
	conv := newConversation(t)
	_, err := NewClient("  ").Dispatch(context.Background(), conv, "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, 1, conv.Len())
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestClient_Endpoint(t *testing.T) {
	c := NewClient("k")
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", c.Endpoint())

	c.WithBaseURL("http://localhost:8080/").WithPath("v1/chat")
	assert.Equal(t, "http://localhost:8080/v1/chat", c.Endpoint())
}

func TestClient_KeyNeverExposed(t *testing.T) {
	c := NewClient("sk-super-secret-value")
	masked := c.APIKeyMasked()
	assert.NotContains(t, masked, "sk-")
	assert.NotContains(t, masked, "secret")
	assert.Len(t, c.KeyFingerprint(), 8)
	assert.True(t, strings.Contains(masked, c.KeyFingerprint()))

	assert.Equal(t, "[not set]", NewClient("").APIKeyMasked())
	assert.Equal(t, "none", NewClient("").KeyFingerprint())
}
