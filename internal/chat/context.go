// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrTemplate indicates the persona template could not be rendered, usually
// because it references a placeholder that was not supplied.
var ErrTemplate = errors.New("persona template substitution failed")

// =============================================================================
// CONTEXT TYPE
// =============================================================================

// Context is the full state of one conversation. It doubles as the request
// body for the chat-completion endpoint.
//
// Turns can only be appended; there is no way to edit or remove one.
type Context struct {
	Model       string
	Temperature float64
	MaxTokens   int

	turns []Turn
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithModel sets the model identifier.
func WithModel(model string) ContextOption {
	return func(c *Context) {
		c.Model = model
	}
}

// WithTemperature sets the sampling temperature. Zero omits it from requests.
func WithTemperature(t float64) ContextOption {
	return func(c *Context) {
		c.Temperature = t
	}
}

// WithMaxTokens caps the reply length. Zero omits it from requests.
func WithMaxTokens(n int) ContextOption {
	return func(c *Context) {
		c.MaxTokens = n
	}
}

// NewContext renders the persona with data and returns a Context whose only
// turn is the resulting system turn.
func NewContext(p Persona, data map[string]string, opts ...ContextOption) (*Context, error) {
	prompt, err := p.Render(data)
	if err != nil {
		return nil, err
	}

	c := &Context{
		turns: []Turn{NewSystemTurn(prompt)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Append adds a turn to the end of the conversation.
func (c *Context) Append(t Turn) {
	c.turns = append(c.turns, t)
}

// Turns returns a copy of the conversation so far.
func (c *Context) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Context) Len() int {
	return len(c.turns)
}

// Last returns the newest turn.
func (c *Context) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// wireContext is the JSON shape expected by the chat-completion endpoint.
type wireContext struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// MarshalJSON encodes the context as a chat-completion request body.
func (c *Context) MarshalJSON() ([]byte, error) {
	messages := c.turns
	if messages == nil {
		messages = []Turn{}
	}
	return json.Marshal(wireContext{
		Model:       c.Model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
}

// =============================================================================
// PERSONA
// =============================================================================

// Persona is a named system-prompt template. Placeholders use text/template
// syntax, e.g. {{.MovieData}}.
type Persona struct {
	Name     string
	Template string
}

// Render substitutes data into the template. Every placeholder the template
// references must be present in data.
func (p Persona) Render(data map[string]string) (string, error) {
	tmpl, err := template.New(p.Name).Option("missingkey=error").Parse(p.Template)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplate, p.Name, err)
	}
	if data == nil {
		data = map[string]string{}
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplate, p.Name, err)
	}
	return b.String(), nil
}
