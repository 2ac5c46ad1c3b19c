// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/recommender/internal/chat"
	"github.com/jeranaias/recommender/internal/cloud"
)

// =============================================================================
// FAKES
// =============================================================================

type scriptReader struct {
	lines   []string
	prompts []string
	err     error
}

func (r *scriptReader) ReadLine(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		if r.err != nil {
			return "", r.err
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

type countingDispatcher struct {
	calls []string
	usage cloud.Usage
	err   error
}

func (d *countingDispatcher) Dispatch(_ context.Context, conv *chat.Context, text string) (cloud.Usage, error) {
	d.calls = append(d.calls, text)
	conv.Append(chat.NewUserTurn(text))
	if d.err != nil {
		return cloud.Usage{}, d.err
	}
	conv.Append(chat.NewAssistantTurn(fmt.Sprintf("reply %d", len(d.calls))))
	return d.usage, nil
}

type recordingPrinter struct {
	replies   []string
	summaries []Status
}

func (p *recordingPrinter) Reply(name, content string) {
	p.replies = append(p.replies, name+" > "+content)
}

func (p *recordingPrinter) Summary(s Status) {
	p.summaries = append(p.summaries, s)
}

func newConv(t *testing.T) *chat.Context {
	t.Helper()
	conv, err := chat.NewContext(chat.PersonaBasic, nil)
	require.NoError(t, err)
	return conv
}

// =============================================================================
// LOOP TESTS
// =============================================================================

func TestLoop_AlternatingTurns(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("%d exchanges", n), func(t *testing.T) {
			var lines []string
			for i := 0; i < n; i++ {
				lines = append(lines, fmt.Sprintf("question %d", i))
			}
			lines = append(lines, "quit")

			conv := newConv(t)
			d := &countingDispatcher{usage: cloud.Usage{TotalTokens: 10}}
			p := &recordingPrinter{}
			loop := NewLoop(conv, d, &scriptReader{lines: lines}, p).WithName("recommender")

			_, err := loop.Run(context.Background())
			require.NoError(t, err)

			turns := conv.Turns()
			require.Len(t, turns, 1+2*n)
			assert.Equal(t, chat.RoleSystem, turns[0].Role)
			for i := 1; i < len(turns); i++ {
				want := chat.RoleUser
				if i%2 == 0 {
					want = chat.RoleAssistant
				}
				assert.Equal(t, want, turns[i].Role, "turn %d", i)
			}
			assert.Len(t, p.replies, n)
		})
	}
}

func TestLoop_QuitVariants(t *testing.T) {
	inputs := []string{"quit", "QUIT", "Quit", "  quit  ", "", "   ", "\t\n"}

	for _, input := range inputs {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			d := &countingDispatcher{}
			p := &recordingPrinter{}
			loop := NewLoop(newConv(t), d, &scriptReader{lines: []string{input, "never read"}}, p)

			usage, err := loop.Run(context.Background())
			require.NoError(t, err)

			assert.Empty(t, d.calls)
			assert.Equal(t, StateTerminated, loop.State())
			assert.Equal(t, cloud.Usage{}, usage)
			require.Len(t, p.summaries, 1)
		})
	}
}

func TestLoop_TrimsBeforeDispatch(t *testing.T) {
	d := &countingDispatcher{}
	loop := NewLoop(newConv(t), d, &scriptReader{lines: []string{"  Something like Alien?  \n", "quit"}}, &recordingPrinter{})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Something like Alien?"}, d.calls)
}

func TestLoop_QuitWordInsideSentenceIsDispatched(t *testing.T) {
	d := &countingDispatcher{}
	loop := NewLoop(newConv(t), d, &scriptReader{lines: []string{"quit talking, recommend a movie", "quit"}}, &recordingPrinter{})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.calls, 1)
}

func TestLoop_PrintsNamedReplies(t *testing.T) {
	p := &recordingPrinter{}
	loop := NewLoop(newConv(t), &countingDispatcher{}, &scriptReader{lines: []string{"a", "b", "quit"}}, p).
		WithName("recommender")

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"recommender > reply 1", "recommender > reply 2"}, p.replies)
}

func TestLoop_UsageTotal(t *testing.T) {
	d := &countingDispatcher{usage: cloud.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30}}
	p := &recordingPrinter{}
	loop := NewLoop(newConv(t), d, &scriptReader{lines: []string{"a", "b", "c", "QUIT"}}, p)

	usage, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 90, usage.TotalTokens)
	assert.Equal(t, 60, usage.PromptTokens)
	require.Len(t, p.summaries, 1)
	assert.Equal(t, 90, p.summaries[0].Usage.TotalTokens)
	assert.Equal(t, 3, p.summaries[0].Exchanges)
	assert.Equal(t, StateTerminated, p.summaries[0].State)
}

func TestLoop_DispatchErrorIsFatal(t *testing.T) {
	boom := errors.New("connection refused")
	d := &countingDispatcher{err: boom}
	p := &recordingPrinter{}
	loop := NewLoop(newConv(t), d, &scriptReader{lines: []string{"a", "b"}}, p)

	_, err := loop.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, d.calls, 1)
	assert.Equal(t, StateTerminated, loop.State())
	assert.Empty(t, p.replies)
}

func TestLoop_EOFEndsCleanly(t *testing.T) {
	d := &countingDispatcher{}
	p := &recordingPrinter{}
	loop := NewLoop(newConv(t), d, &scriptReader{lines: []string{"a"}}, p)

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.calls, 1)
	assert.Len(t, p.summaries, 1)
}

func TestLoop_ReadError(t *testing.T) {
	r := &scriptReader{err: errors.New("tty gone")}
	_, err := NewLoop(newConv(t), &countingDispatcher{}, r, &recordingPrinter{}).Run(context.Background())
	assert.ErrorContains(t, err, "tty gone")
}

func TestLoop_PromptShown(t *testing.T) {
	r := &scriptReader{lines: []string{"a", "quit"}}
	_, err := NewLoop(newConv(t), &countingDispatcher{}, r, &recordingPrinter{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"You > ", "You > "}, r.prompts)
}

func TestLoop_NilContext(t *testing.T) {
	loop := NewLoop(nil, &countingDispatcher{}, &scriptReader{}, &recordingPrinter{})
	_, err := loop.Run(context.Background())
	assert.ErrorIs(t, err, cloud.ErrNoContext)
}

func TestLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &countingDispatcher{}
	_, err := NewLoop(newConv(t), d, &scriptReader{lines: []string{"a"}}, &recordingPrinter{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.calls)
}

func TestLoop_StepAfterTerminate(t *testing.T) {
	d := &countingDispatcher{}
	loop := NewLoop(newConv(t), d, &scriptReader{}, &recordingPrinter{})

	require.NoError(t, loop.Step(context.Background(), "quit"))
	require.NoError(t, loop.Step(context.Background(), "hello"))
	assert.Empty(t, d.calls)
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestIsQuit(t *testing.T) {
	assert.True(t, IsQuit(""))
	assert.True(t, IsQuit("quit"))
	assert.True(t, IsQuit("qUiT"))
	assert.False(t, IsQuit("quit now"))
	assert.False(t, IsQuit("exit"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "awaiting-input", StateAwaitingInput.String())
	assert.Equal(t, "terminated", StateTerminated.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestStatus_SessionID(t *testing.T) {
	a := NewLoop(newConv(t), &countingDispatcher{}, &scriptReader{}, &recordingPrinter{})
	b := NewLoop(newConv(t), &countingDispatcher{}, &scriptReader{}, &recordingPrinter{})
	assert.NotEmpty(t, a.Status().SessionID)
	assert.NotEqual(t, a.Status().SessionID, b.Status().SessionID)
}
