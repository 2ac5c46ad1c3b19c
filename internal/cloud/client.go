// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/recommender/internal/chat"
)

// Configuration constants for the chat-completion API.
const (
	// DefaultHost is the API host.
	DefaultHost = "https://api.openai.com"

	// DefaultPath is the chat-completion endpoint path.
	DefaultPath = "/v1/chat/completions"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gpt-4-turbo-preview"

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "recommender/1.0"
)

// Error variables for dispatch failures.
var (
	// ErrNoContext indicates Dispatch was called without a conversation.
	ErrNoContext = errors.New("no chat context has been supplied")

	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrMalformedResponse indicates the reply was not JSON or had no choices[0].message.
	ErrMalformedResponse = errors.New("malformed chat-completion response")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// APIError is a non-2xx reply from the endpoint.
type APIError struct {
	Type    string
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("chat API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("chat API error (HTTP %d): %s", e.Status, e.Message)
}

// Usage reports the tokens consumed by one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatResponse is the part of the reply the client reads.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      *chat.Turn `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// apiErrorResponse is the error envelope returned on failure.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client posts conversations to a chat-completion endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	path       string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the default endpoint.
//
// If the API key is empty the client is still created, but Dispatch fails
// with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultHost,
		path:       DefaultPath,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
}

// WithBaseURL sets the API host.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithPath sets the endpoint path.
func (c *Client) WithPath(path string) *Client {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	c.path = path
	return c
}

// WithLogger sets the logger for request logging.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	c.logger = l
	return c
}

// Endpoint returns the full URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.baseURL + c.path
}

// IsConfigured returns true if the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a display form of the key that exposes no part of it.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.KeyFingerprint())
}

// KeyFingerprint returns the first 8 hex characters of the key's SHA-256.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// DISPATCH
// =============================================================================

// Dispatch appends userText to conv, posts the whole conversation and appends
// the first choice's message. The returned Usage is zero when the reply has
// no usage field.
//
// Errors are not retried. On failure conv keeps the user turn and no
// assistant turn is added.
func (c *Client) Dispatch(ctx context.Context, conv *chat.Context, userText string) (Usage, error) {
	if conv == nil {
		return Usage{}, ErrNoContext
	}
	if !c.IsConfigured() {
		return Usage{}, ErrNotConfigured
	}

	conv.Append(chat.NewUserTurn(userText))

	body, err := json.Marshal(conv)
	if err != nil {
		return Usage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return Usage{}, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	c.setHeaders(req, requestID)

	c.logger.Debug("chat request",
		"method", req.Method,
		"path", req.URL.Path,
		"request_id", requestID,
		"turns", conv.Len(),
		"key", c.KeyFingerprint())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Usage{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("chat response",
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start).Round(time.Millisecond))

	data, err := readResponse(resp)
	if err != nil {
		return Usage{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Usage{}, handleErrorResponse(resp.StatusCode, data)
	}

	reply, usage, err := parseReply(data)
	if err != nil {
		return Usage{}, err
	}
	conv.Append(reply)
	return usage, nil
}

// setHeaders sets the headers every request carries.
func (c *Client) setHeaders(req *http.Request, requestID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
}

// parseReply extracts the assistant turn and usage from a 2xx body.
func parseReply(data []byte) (chat.Turn, Usage, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return chat.Turn{}, Usage{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return chat.Turn{}, Usage{}, fmt.Errorf("%w: no choices[0].message", ErrMalformedResponse)
	}

	reply := *resp.Choices[0].Message
	if reply.Role == "" {
		reply.Role = chat.RoleAssistant
	}

	var usage Usage
	if resp.Usage != nil {
		usage = *resp.Usage
	}
	return reply, usage, nil
}

// readResponse reads the response body up to MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts a non-2xx reply into an error.
func handleErrorResponse(statusCode int, body []byte) error {
	var sentinel error
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrAuthFailed
	case http.StatusNotFound:
		sentinel = ErrModelNotFound
	case http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		if sentinel != nil {
			return fmt.Errorf("%w: %s", sentinel, apiErr.Error.Message)
		}
		return &APIError{
			Type:    apiErr.Error.Type,
			Code:    apiErr.Error.Code,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}
	}

	if sentinel != nil {
		return sentinel
	}
	return &APIError{
		Message: string(body),
		Status:  statusCode,
	}
}
