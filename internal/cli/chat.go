// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for recommender.
//
// Command: chat (default)
// Short:   Start an interactive movie-recommendation chat
//
// Examples:
//   recommender                       Chat using the configured persona mode
//   recommender --mode basic          Chat without release data
//   recommender --model gpt-4o        Use a different model
//
// Interactive input:
//   Enter              Send the message
//   empty line, quit   End the session
//   Ctrl+C, Ctrl+D     End the session
//   Up/Down            Input history

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/jeranaias/recommender/internal/chat"
	"github.com/jeranaias/recommender/internal/cloud"
	"github.com/jeranaias/recommender/internal/config"
	"github.com/jeranaias/recommender/internal/keys"
	"github.com/jeranaias/recommender/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineEditor reads user input with line editing and persistent history.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// historyPath returns where input history is kept. Piped input keeps none.
func historyPath(cfg *config.Config, stdinTTY bool) string {
	if !stdinTTY {
		return ""
	}
	return filepath.Join(filepath.Dir(cfg.Keys.Path), "chat_history")
}

// NewLineEditor creates a LineEditor whose history lives in historyFile. An
// empty historyFile disables history.
func NewLineEditor(historyFile string) *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &LineEditor{
		line:        line,
		historyFile: historyFile,
	}
	e.loadHistory()
	return e
}

func (e *LineEditor) loadHistory() {
	if e.historyFile == "" {
		return
	}
	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine implements session.LineReader. Ctrl+C and Ctrl+D end input.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory writes history with 0600 permissions.
func (e *LineEditor) saveHistory() {
	if e.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	e.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (e *LineEditor) Close() {
	e.saveHistory()
	e.line.Close()
}

// =============================================================================
// OUTPUT
// =============================================================================

// consolePrinter implements session.Printer. Replies are rendered as
// markdown when the output is a terminal.
type consolePrinter struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newConsolePrinter(out io.Writer, markdown bool) *consolePrinter {
	p := &consolePrinter{out: out}
	if markdown {
		width := GetTerminalWidth()
		if width > MaxRenderWidth {
			width = MaxRenderWidth
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width-4),
		)
		if err == nil {
			p.renderer = r
		}
	}
	return p
}

// Reply prints "<name> > <content>" followed by a blank line.
func (p *consolePrinter) Reply(name, content string) {
	if p.renderer == nil {
		fmt.Fprintf(p.out, "%s > %s\n\n", name, content)
		return
	}

	rendered, err := p.renderer.Render(content)
	if err != nil {
		rendered = content + "\n"
	}
	fmt.Fprintf(p.out, "%s >\n%s\n", assistantStyle.Render(name), strings.TrimRight(rendered, "\n"))
}

// Summary prints the session's total token usage.
func (p *consolePrinter) Summary(s session.Status) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, summaryStyle.Render(fmt.Sprintf("Total token usage in this session: %d tokens.", s.Usage.TotalTokens)))
	fmt.Fprintln(p.out)
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat builds the conversation for the configured mode and runs the
// interactive session.
func HandleChat(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	mode, err := chat.ParseMode(cfg.Chat.Mode)
	if err != nil {
		return err
	}

	client, conv, err := prepareSession(ctx, cfg, mode, logger)
	if err != nil {
		return err
	}

	editor := NewLineEditor(historyPath(cfg, IsTTY()))
	defer editor.Close()

	printer := newConsolePrinter(os.Stdout, IsStdoutTTY() && ColorsEnabled())
	name := assistantName(cfg, os.Args[0])

	printWelcome(os.Stdout, name, mode, cfg.Chat.Model)

	loop := session.NewLoop(conv, client, editor, printer).
		WithName(name).
		WithPrompt(promptStyle.Render("You") + " > ").
		WithLogger(logger)

	if _, err := loop.Run(ctx); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}

// prepareSession resolves the API key before any release data is fetched so
// a missing credential is reported without touching the network.
func prepareSession(ctx context.Context, cfg *config.Config, mode chat.Mode, logger *slog.Logger) (*cloud.Client, *chat.Context, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	conv, err := newConversation(ctx, cfg, mode, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, conv, nil
}

// newConversation renders the persona for mode into a fresh Context.
func newConversation(ctx context.Context, cfg *config.Config, mode chat.Mode, logger *slog.Logger) (*chat.Context, error) {
	persona, err := chat.PersonaFor(mode)
	if err != nil {
		return nil, err
	}

	data, err := loadReleaseData(ctx, cfg, mode, logger)
	if err != nil {
		return nil, err
	}

	return chat.NewContext(persona, data,
		chat.WithModel(cfg.Chat.Model),
		chat.WithTemperature(cfg.Chat.Temperature),
		chat.WithMaxTokens(cfg.Chat.MaxTokens),
	)
}

// newClient resolves the API key and builds the dispatcher.
func newClient(cfg *config.Config, logger *slog.Logger) (*cloud.Client, error) {
	store, err := keys.Open(cfg.Keys.Path)
	if err != nil {
		return nil, err
	}
	apiKey, err := keys.NewResolver(store).Resolve(cfg.Keys.Domain)
	if err != nil {
		return nil, err
	}

	client := cloud.NewClient(apiKey).
		WithBaseURL(cfg.Chat.Host).
		WithPath(cfg.Chat.Endpoint).
		WithLogger(logger)
	logger.Info("chat client ready", "endpoint", client.Endpoint(), "model", cfg.Chat.Model, "key", client.KeyFingerprint())
	return client, nil
}

func printWelcome(w io.Writer, name string, mode chat.Mode, model string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render(name)+DimStyle.Render(fmt.Sprintf("  %s persona, %s", mode, model)))
	fmt.Fprintln(w, DimStyle.Render("Ask for a movie recommendation. Enter an empty line or \"quit\" to finish."))
	fmt.Fprintln(w)
}
