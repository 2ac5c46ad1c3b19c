// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/recommender/internal/chat"
	"github.com/jeranaias/recommender/internal/cloud"
	"github.com/jeranaias/recommender/internal/util"
)

// DefaultPrompt is shown before each user line.
const DefaultPrompt = "You > "

// quitCommand ends the session when entered in any case.
const quitCommand = "quit"

// previewWidth bounds user text in log records.
const previewWidth = 48

// =============================================================================
// COLLABORATORS
// =============================================================================

// LineReader supplies user input. io.EOF ends the session cleanly.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Printer shows replies and the closing summary.
type Printer interface {
	Reply(name, content string)
	Summary(s Status)
}

// Dispatcher sends the conversation plus userText and appends the reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, conv *chat.Context, userText string) (cloud.Usage, error)
}

// =============================================================================
// STATE
// =============================================================================

// State is the loop's lifecycle state.
type State int

const (
	StateAwaitingInput State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting-input"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// =============================================================================
// LOOP
// =============================================================================

// Loop drives one conversation. It is not safe for concurrent use.
type Loop struct {
	conv       *chat.Context
	dispatcher Dispatcher
	reader     LineReader
	printer    Printer
	logger     *slog.Logger

	id        string
	name      string
	prompt    string
	state     State
	usage     cloud.Usage
	exchanges int
	startTime time.Time
}

// NewLoop creates a loop over conv in StateAwaitingInput.
func NewLoop(conv *chat.Context, d Dispatcher, r LineReader, p Printer) *Loop {
	return &Loop{
		conv:       conv,
		dispatcher: d,
		reader:     r,
		printer:    p,
		logger:     slog.Default(),
		id:         newSessionID(),
		name:       "assistant",
		prompt:     DefaultPrompt,
		state:      StateAwaitingInput,
		startTime:  time.Now(),
	}
}

// WithName sets the label printed before replies.
func (l *Loop) WithName(name string) *Loop {
	if name != "" {
		l.name = name
	}
	return l
}

// WithPrompt sets the input prompt.
func (l *Loop) WithPrompt(prompt string) *Loop {
	l.prompt = prompt
	return l
}

// WithLogger sets the logger.
func (l *Loop) WithLogger(logger *slog.Logger) *Loop {
	l.logger = logger.With("session_id", l.id)
	return l
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

// Run reads lines until the user quits, input ends, or a dispatch fails.
// It returns the usage summed over every completed exchange. A dispatch
// error ends the session and is returned.
func (l *Loop) Run(ctx context.Context) (cloud.Usage, error) {
	if l.conv == nil {
		l.state = StateTerminated
		return cloud.Usage{}, cloud.ErrNoContext
	}

	l.logger.Info("session started", "turns", l.conv.Len())

	for l.state == StateAwaitingInput {
		if err := ctx.Err(); err != nil {
			l.state = StateTerminated
			return l.usage, err
		}

		line, err := l.reader.ReadLine(l.prompt)
		if errors.Is(err, io.EOF) {
			l.terminate("end of input")
			break
		}
		if err != nil {
			l.state = StateTerminated
			return l.usage, fmt.Errorf("failed to read input: %w", err)
		}

		if err := l.Step(ctx, line); err != nil {
			return l.usage, err
		}
	}

	return l.usage, nil
}

// Step handles one line of input. Empty input or "quit" terminates the
// loop without dispatching.
func (l *Loop) Step(ctx context.Context, line string) error {
	if l.state == StateTerminated {
		return nil
	}

	text := strings.TrimSpace(line)
	if IsQuit(text) {
		l.terminate("quit")
		return nil
	}

	l.logger.Debug("user input", "preview", util.Preview(text, previewWidth))

	usage, err := l.dispatcher.Dispatch(ctx, l.conv, text)
	if err != nil {
		l.state = StateTerminated
		l.logger.Error("dispatch failed", "error", err)
		return err
	}

	l.exchanges++
	l.usage.PromptTokens += usage.PromptTokens
	l.usage.CompletionTokens += usage.CompletionTokens
	l.usage.TotalTokens += usage.TotalTokens

	if reply, ok := l.conv.Last(); ok {
		l.printer.Reply(l.name, reply.Content)
	}
	return nil
}

func (l *Loop) terminate(reason string) {
	l.state = StateTerminated
	status := l.Status()
	l.logger.Info("session ended",
		"reason", reason,
		"exchanges", status.Exchanges,
		"total_tokens", status.Usage.TotalTokens,
		"duration", FormatDuration(status.Duration))
	l.printer.Summary(status)
}

// IsQuit reports whether trimmed input ends the session.
func IsQuit(text string) bool {
	return text == "" || strings.EqualFold(text, quitCommand)
}

// newSessionID returns a time-ordered session ID.
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status summarises a session.
type Status struct {
	SessionID string
	StartTime time.Time
	Duration  time.Duration
	Exchanges int
	Usage     cloud.Usage
	State     State
}

// Status returns the current session status.
func (l *Loop) Status() Status {
	return Status{
		SessionID: l.id,
		StartTime: l.startTime,
		Duration:  time.Since(l.startTime),
		Exchanges: l.exchanges,
		Usage:     l.usage,
		State:     l.state,
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}
