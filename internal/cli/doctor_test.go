// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/recommender/internal/config"
	"github.com/jeranaias/recommender/internal/keys"
)

func doctorConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Keys.Path = filepath.Join(dir, "keys.toml")
	cfg.Releases.CachePath = filepath.Join(dir, "cache", "releases.db")
	return cfg
}

func TestCheckStatus_String(t *testing.T) {
	assert.Equal(t, "Pass", CheckPass.String())
	assert.Equal(t, "Warn", CheckWarn.String())
	assert.Equal(t, "Fail", CheckFail.String())
	assert.Equal(t, "Unknown", CheckStatus(9).String())
}

func TestHealthCheck_RenderFix(t *testing.T) {
	pass := &HealthCheck{Status: CheckPass, Message: "fine", Fix: "nothing"}
	assert.NotContains(t, pass.Render(), "nothing")

	fail := &HealthCheck{Status: CheckFail, Message: "broken", Fix: "repair it"}
	assert.Contains(t, fail.Render(), "broken")
	assert.Contains(t, fail.Render(), "repair it")
}

func TestCheckConfigValid(t *testing.T) {
	cfg := doctorConfig(t)
	assert.Equal(t, CheckPass, checkConfigValid(cfg).Status)

	cfg.Chat.Mode = "nonsense"
	assert.Equal(t, CheckFail, checkConfigValid(cfg).Status)
}

func TestCheckAPIKey(t *testing.T) {
	t.Setenv(keys.EnvVar, "")
	t.Chdir(t.TempDir())
	cfg := doctorConfig(t)

	check := checkAPIKey(cfg, keys.NewResolver)
	assert.Equal(t, CheckFail, check.Status)
	assert.Contains(t, check.Fix, "keys set")

	t.Setenv(keys.EnvVar, "sk-env-secret")
	check = checkAPIKey(cfg, keys.NewResolver)
	assert.Equal(t, CheckPass, check.Status)
	assert.Contains(t, check.Message, "length=13")
	assert.NotContains(t, check.Message, "sk-env-secret")
}

func TestCheckEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := doctorConfig(t)
	cfg.Chat.Host = server.URL
	check := checkEndpoint(context.Background(), cfg, server.Client())
	assert.Equal(t, CheckPass, check.Status)
	assert.Contains(t, check.Message, "HTTP 404")

	server.Close()
	assert.Equal(t, CheckFail, checkEndpoint(context.Background(), cfg, http.DefaultClient).Status)
}

func TestCheckReleaseData(t *testing.T) {
	cfg := doctorConfig(t)
	cfg.Releases.Source = config.SourceFile
	cfg.Releases.CacheTTLHours = 0

	cfg.Releases.File = filepath.Join(t.TempDir(), "missing.json")
	assert.Equal(t, CheckFail, checkReleaseData(context.Background(), cfg).Status)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0600))
	cfg.Releases.File = empty
	assert.Equal(t, CheckWarn, checkReleaseData(context.Background(), cfg).Status)

	full := filepath.Join(t.TempDir(), "releases.json")
	require.NoError(t, os.WriteFile(full, []byte(`[{"title":"Alien","notes":"Wide"}]`), 0600))
	cfg.Releases.File = full
	check := checkReleaseData(context.Background(), cfg)
	assert.Equal(t, CheckPass, check.Status)
	assert.Contains(t, check.Message, "1 release records")
}

func TestCheckCacheWritable(t *testing.T) {
	cfg := doctorConfig(t)
	assert.Equal(t, CheckPass, checkCacheWritable(cfg).Status)
	assert.DirExists(t, filepath.Dir(cfg.Releases.CachePath))

	cfg.Releases.CacheTTLHours = 0
	assert.Contains(t, checkCacheWritable(cfg).Message, "disabled")
}

func TestReportChecks(t *testing.T) {
	var buf bytes.Buffer
	err := reportChecks(&buf, []*HealthCheck{
		{Status: CheckPass, Message: "one"},
		{Status: CheckWarn, Message: "two"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 passed")

	buf.Reset()
	err = reportChecks(&buf, []*HealthCheck{{Status: CheckFail, Message: "bad"}})
	assert.ErrorContains(t, err, "1 health check(s) failed")
}

func TestWriteChecksJSON(t *testing.T) {
	var buf bytes.Buffer
	err := writeChecksJSON(&buf, []*HealthCheck{
		{Name: "Config Valid", Status: CheckPass, Message: "ok"},
		{Name: "API Key", Status: CheckFail, Message: "missing", Fix: "set one"},
	})
	assert.ErrorContains(t, err, "1 health check(s) failed")

	var resp struct {
		Success bool        `json:"success"`
		Error   *string     `json:"error"`
		Data    []CheckJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Fail", resp.Data[1].Status)
	assert.Equal(t, "set one", resp.Data[1].Fix)
}
