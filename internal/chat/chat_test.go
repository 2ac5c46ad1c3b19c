// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TURN TESTS
// =============================================================================

func TestNewTurn_Pure(t *testing.T) {
	role := RoleUser
	content := "something like Heat"

	a := NewTurn(role, content)
	b := NewTurn(role, content)

	assert.Equal(t, a, b)
	assert.Equal(t, RoleUser, role)
	assert.Equal(t, "something like Heat", content)
}

func TestNewTurn_NoRoleValidation(t *testing.T) {
	turn := NewTurn(Role("narrator"), "x")
	assert.Equal(t, Role("narrator"), turn.Role)
}

func TestTurnConstructors(t *testing.T) {
	tests := []struct {
		name string
		turn Turn
		role Role
	}{
		{"system", NewSystemTurn("s"), RoleSystem},
		{"user", NewUserTurn("u"), RoleUser},
		{"assistant", NewAssistantTurn("a"), RoleAssistant},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.turn.Role != tc.role {
				t.Errorf("Role = %q, want %q", tc.turn.Role, tc.role)
			}
		})
	}
}

// =============================================================================
// CONTEXT TESTS
// =============================================================================

func TestNewContext_SingleSystemTurn(t *testing.T) {
	c, err := NewContext(PersonaBasic, nil, WithModel("gpt-4-turbo-preview"))
	require.NoError(t, err)

	require.Equal(t, 1, c.Len())
	first, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, RoleSystem, first.Role)
	assert.Contains(t, first.Content, "movie critic")
	assert.Equal(t, "gpt-4-turbo-preview", c.Model)
}

func TestNewContext_SubstitutesPlaceholders(t *testing.T) {
	c, err := NewContext(PersonaPartition, map[string]string{
		KeyNewReleases: "\tMOVIE TITLE: Dune: Part Two\n",
		KeyReReleases:  "\tMOVIE TITLE: Casablanca\n",
	})
	require.NoError(t, err)

	system := c.Turns()[0].Content
	assert.Contains(t, system, "NEW RELEASES:\n\tMOVIE TITLE: Dune: Part Two")
	assert.Contains(t, system, "RE-RELEASES:\n\tMOVIE TITLE: Casablanca")
	assert.NotContains(t, system, "{{")
}

func TestNewContext_MissingPlaceholder(t *testing.T) {
	tests := []struct {
		name    string
		persona Persona
		data    map[string]string
	}{
		{"category without data", PersonaCategory, nil},
		{"partition missing re-releases", PersonaPartition, map[string]string{KeyNewReleases: "x"}},
		{"custom", Persona{Name: "custom", Template: "hello {{.Who}}"}, map[string]string{"Other": "x"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewContext(tc.persona, tc.data)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, ErrTemplate), "want ErrTemplate, got %v", err)
		})
	}
}

func TestNewContext_EmptyValuesAllowed(t *testing.T) {
	_, err := NewContext(PersonaCategory, map[string]string{KeyMovieData: ""})
	require.NoError(t, err)
}

func TestContext_AppendOnly(t *testing.T) {
	c, err := NewContext(PersonaBasic, nil)
	require.NoError(t, err)

	c.Append(NewUserTurn("q1"))
	c.Append(NewAssistantTurn("a1"))

	turns := c.Turns()
	turns[1].Content = "mutated"

	assert.Equal(t, "q1", c.Turns()[1].Content)
	last, _ := c.Last()
	assert.Equal(t, NewAssistantTurn("a1"), last)
}

func TestContext_MarshalJSON(t *testing.T) {
	c, err := NewContext(PersonaBasic, nil,
		WithModel("gpt-4-turbo-preview"),
		WithTemperature(0.7),
		WithMaxTokens(500))
	require.NoError(t, err)
	c.Append(NewUserTurn("hi"))

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "gpt-4-turbo-preview", body["model"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.Equal(t, float64(500), body["max_tokens"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, messages[1])
}

func TestContext_MarshalJSON_OmitsUnsetParams(t *testing.T) {
	c, err := NewContext(PersonaBasic, nil, WithModel("m"))
	require.NoError(t, err)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	s := string(data)
	assert.False(t, strings.Contains(s, "temperature"))
	assert.False(t, strings.Contains(s, "max_tokens"))
}

// =============================================================================
// MODE TESTS
// =============================================================================

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(" " + strings.ToUpper(string(m)) + " ")
		require.NoError(t, err)
		assert.Equal(t, m, got)

		p, err := PersonaFor(got)
		require.NoError(t, err)
		assert.Equal(t, string(m), p.Name)
	}

	_, err := ParseMode("streaming")
	assert.Error(t, err)
}

func TestMode_NeedsReleases(t *testing.T) {
	assert.False(t, ModeBasic.NeedsReleases())
	assert.True(t, ModePartition.NeedsReleases())
	assert.True(t, ModeCategory.NeedsReleases())
}
