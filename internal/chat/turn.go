// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies who produced a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the wire form of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one utterance in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTurn creates a turn. The role is not validated.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content}
}

// NewSystemTurn creates a system turn.
func NewSystemTurn(content string) Turn {
	return NewTurn(RoleSystem, content)
}

// NewUserTurn creates a user turn.
func NewUserTurn(content string) Turn {
	return NewTurn(RoleUser, content)
}

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(content string) Turn {
	return NewTurn(RoleAssistant, content)
}
