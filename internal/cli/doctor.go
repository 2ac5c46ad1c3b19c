// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Doctor command implementation for recommender.
//
// Command: doctor
// Short:   Run setup checks and diagnostics
// Aliases: diag
//
// Checks Performed:
//   1. Config Valid      - Configuration loaded and validated
//   2. API Key           - A key resolves for the configured domain
//   3. Endpoint Reachable - The chat host answers HTTP
//   4. Release Data      - The release source returns records
//   5. Cache Writable    - The release cache directory accepts writes
//
// Exit Codes:
//   0   No check failed
//   1   One or more checks failed

package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/recommender/internal/cloud"
	"github.com/jeranaias/recommender/internal/config"
	"github.com/jeranaias/recommender/internal/keys"
)

// doctorTimeout bounds each network check.
const doctorTimeout = 10 * time.Second

// =============================================================================
// DOCTOR STYLES
// =============================================================================

var (
	checkPassStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	checkWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	checkFailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	fixStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true).
			PaddingLeft(2)
)

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	// CheckPass indicates the check passed successfully.
	CheckPass CheckStatus = iota
	// CheckWarn indicates the check passed with warnings.
	CheckWarn
	// CheckFail indicates the check failed.
	CheckFail
)

// String returns the string representation of the check status.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "Pass"
	case CheckWarn:
		return "Warn"
	case CheckFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// Symbol returns the styled marker for the check status.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return checkPassStyle.Render("[OK]")
	case CheckWarn:
		return checkWarnStyle.Render("[!!]")
	case CheckFail:
		return checkFailStyle.Render("[FAIL]")
	default:
		return "?"
	}
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // Suggested fix
}

// Render returns a formatted string representation of the health check.
func (c *HealthCheck) Render() string {
	result := fmt.Sprintf("%s %s", c.Status.Symbol(), c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		result += "\n" + fixStyle.Render("-> "+c.Fix)
	}
	return result
}

// =============================================================================
// DOCTOR COMMAND
// =============================================================================

// HandleDoctor runs every check and prints the results.
func HandleDoctor(ctx context.Context, cfg *config.Config, args Args, w io.Writer) error {
	checks := []*HealthCheck{
		checkConfigValid(cfg),
		checkAPIKey(cfg, keys.NewResolver),
		checkEndpoint(ctx, cfg, http.DefaultClient),
		checkReleaseData(ctx, cfg),
		checkCacheWritable(cfg),
	}
	if args.JSON {
		return writeChecksJSON(w, checks)
	}
	return reportChecks(w, checks)
}

func countFailed(checks []*HealthCheck) int {
	failed := 0
	for _, check := range checks {
		if check.Status == CheckFail {
			failed++
		}
	}
	return failed
}

func writeChecksJSON(w io.Writer, checks []*HealthCheck) error {
	if failed := countFailed(checks); failed > 0 {
		err := fmt.Errorf("%d health check(s) failed", failed)
		if werr := NewJSONErrorResponse("doctor", checksJSON(checks), err).Write(w); werr != nil {
			return werr
		}
		return err
	}
	return NewJSONResponse("doctor", checksJSON(checks)).Write(w)
}

func reportChecks(w io.Writer, checks []*HealthCheck) error {
	var passed, warned, failed int
	for _, check := range checks {
		switch check.Status {
		case CheckPass:
			passed++
		case CheckWarn:
			warned++
		case CheckFail:
			failed++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("recommender doctor"))
	fmt.Fprintln(w, RenderSeparator(41))
	fmt.Fprintln(w)
	for _, check := range checks {
		fmt.Fprintln(w, check.Render())
	}
	fmt.Fprintln(w)

	parts := []string{fmt.Sprintf("%d passed", passed)}
	if warned > 0 {
		parts = append(parts, checkWarnStyle.Render(fmt.Sprintf("%d warning", warned)))
	}
	if failed > 0 {
		parts = append(parts, checkFailStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintln(w, DimStyle.Render(strings.Join(parts, ", ")))
	fmt.Fprintln(w)

	if failed > 0 {
		return fmt.Errorf("%d health check(s) failed", failed)
	}
	return nil
}

// =============================================================================
// CHECKS
// =============================================================================

// checkConfigValid re-validates the effective configuration.
func checkConfigValid(cfg *config.Config) *HealthCheck {
	check := &HealthCheck{Name: "Config Valid"}
	if err := cfg.Validate(); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Config invalid: %s", err)
		check.Fix = "Run: recommender config show"
		return check
	}
	check.Status = CheckPass
	check.Message = fmt.Sprintf("Config valid (mode %s, model %s)", cfg.Chat.Mode, cfg.Chat.Model)
	return check
}

// checkAPIKey confirms a key resolves for the configured domain.
func checkAPIKey(cfg *config.Config, newResolver func(*keys.Store) *keys.Resolver) *HealthCheck {
	check := &HealthCheck{Name: "API Key"}

	store, err := keys.Open(cfg.Keys.Path)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Key store unreadable: %s", err)
		check.Fix = fmt.Sprintf("Check %s", cfg.Keys.Path)
		return check
	}

	apiKey, err := newResolver(store).Resolve(cfg.Keys.Domain)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("No API key for %s", cfg.Keys.Domain)
		check.Fix = fmt.Sprintf("Run: recommender keys set %s <key>, or set %s", cfg.Keys.Domain, keys.EnvVar)
		return check
	}

	check.Status = CheckPass
	check.Message = fmt.Sprintf("API key found for %s %s", cfg.Keys.Domain, cloud.NewClient(apiKey).APIKeyMasked())
	return check
}

// checkEndpoint confirms the chat host answers. Any HTTP status counts.
func checkEndpoint(ctx context.Context, cfg *config.Config, client *http.Client) *HealthCheck {
	check := &HealthCheck{Name: "Endpoint Reachable"}

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.Chat.Host, nil)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Invalid host: %s", err)
		return check
	}
	resp, err := client.Do(req)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Cannot reach %s", cfg.Chat.Host)
		check.Fix = "Check network access or chat.host"
		return check
	}
	resp.Body.Close()

	check.Status = CheckPass
	check.Message = fmt.Sprintf("%s reachable (HTTP %d)", cfg.Chat.Host, resp.StatusCode)
	return check
}

// checkReleaseData loads release records through the configured source.
func checkReleaseData(ctx context.Context, cfg *config.Config) *HealthCheck {
	check := &HealthCheck{Name: "Release Data"}

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	src, closeSrc, err := openSource(cfg)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Release source unavailable: %s", err)
		return check
	}
	defer closeSrc()

	recs, err := src.Releases(ctx)
	switch {
	case err != nil:
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Release data failed: %s", err)
		check.Fix = "Set [releases] source = \"file\" and point file at a JSON or TOML list"
	case len(recs) == 0:
		check.Status = CheckWarn
		check.Message = "Release source returned no records"
		check.Fix = "The persona will carry empty release data"
	default:
		check.Status = CheckPass
		check.Message = fmt.Sprintf("%d release records from %s", len(recs), cfg.Releases.Source)
	}
	return check
}

// checkCacheWritable confirms the release cache directory accepts writes.
func checkCacheWritable(cfg *config.Config) *HealthCheck {
	check := &HealthCheck{Name: "Cache Writable"}

	if cfg.Releases.CacheTTLHours == 0 {
		check.Status = CheckPass
		check.Message = "Release cache disabled"
		return check
	}

	cacheDir := filepath.Dir(cfg.Releases.CachePath)
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Could not create cache directory: %s", err)
		check.Fix = fmt.Sprintf("Create manually: mkdir -p %s", cacheDir)
		return check
	}

	testFile := filepath.Join(cacheDir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0600); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Cache directory not writable: %s", err)
		check.Fix = fmt.Sprintf("Check permissions: chmod 700 %s", cacheDir)
		return check
	}
	os.Remove(testFile)

	check.Status = CheckPass
	check.Message = "Cache directory writable"
	return check
}
