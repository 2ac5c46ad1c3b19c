// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/recommender/internal/chat"
	"github.com/jeranaias/recommender/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete recommender configuration.
type Config struct {
	Chat     ChatConfig     `toml:"chat" json:"chat"`
	Releases ReleasesConfig `toml:"releases" json:"releases"`
	Keys     KeysConfig     `toml:"keys" json:"keys"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// ChatConfig controls the chat-completion request and the persona.
type ChatConfig struct {
	// Model is the chat-completion model name.
	Model string `toml:"model" json:"model"`
	// Host is the API base URL.
	Host string `toml:"host" json:"host"`
	// Endpoint is the chat-completion path on Host.
	Endpoint string `toml:"endpoint" json:"endpoint"`
	// Temperature is sent when non-zero.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens is sent when non-zero.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Mode selects the persona: basic, partition or category.
	Mode string `toml:"mode" json:"mode"`
	// AssistantName labels replies. Empty means the executable name.
	AssistantName string `toml:"assistant_name" json:"assistant_name"`
}

// ReleasesConfig controls where release data comes from.
type ReleasesConfig struct {
	// Source is "numbers" (scrape the release schedule) or "file".
	Source string `toml:"source" json:"source"`
	// File is the JSON or TOML release list used when Source is "file".
	File string `toml:"file" json:"file"`
	// URL is the release-schedule page used when Source is "numbers".
	URL string `toml:"url" json:"url"`
	// Cutoff is the number of records sampled into the prompt. 0 keeps all.
	Cutoff int `toml:"cutoff" json:"cutoff"`
	// CachePath is the SQLite cache location. Empty means ~/.recommender/releases.db.
	CachePath string `toml:"cache_path" json:"cache_path"`
	// CacheTTLHours is how long cached records are served. 0 disables caching.
	CacheTTLHours int `toml:"cache_ttl_hours" json:"cache_ttl_hours"`
}

// KeysConfig locates the API key store.
type KeysConfig struct {
	Path   string `toml:"path" json:"path"`
	Domain string `toml:"domain" json:"domain"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level"`
	// File receives log output. Empty means ~/.recommender/recommender.log.
	File string `toml:"file" json:"file"`
}

// Release source names.
const (
	SourceNumbers = "numbers"
	SourceFile    = "file"
)

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Chat: ChatConfig{
			Model:       "gpt-4-turbo-preview",
			Host:        "https://api.openai.com",
			Endpoint:    "/v1/chat/completions",
			Temperature: 0.7,
			MaxTokens:   500,
			Mode:        string(chat.ModeCategory),
		},
		Releases: ReleasesConfig{
			Source:        SourceNumbers,
			URL:           "https://www.the-numbers.com/movies/release-schedule",
			Cutoff:        7,
			CacheTTLHours: 12,
		},
		Keys: KeysConfig{
			Domain: "api.openai.com",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATHS
// =============================================================================

// ConfigDir returns the configuration directory path (~/.recommender).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".recommender"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.recommender/config.toml, falling back to config.json and then
// to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(tomlPath); statErr == nil {
		return LoadFromPath(tomlPath)
	}

	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(jsonPath); statErr == nil {
		return LoadFromPath(jsonPath)
	}

	return finish(Default())
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are decoded as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("unknown config keys ignored", "path", path, "keys", fmt.Sprint(undecoded))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# recommender configuration file\n")
	buf.WriteString("# Generated by recommender - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.Chat.Model) == "" {
		errs = append(errs, ValidationError{Field: "chat.model", Message: "must not be empty"})
	}
	if err := validateURL(c.Chat.Host); err != nil {
		errs = append(errs, ValidationError{Field: "chat.host", Message: err.Error()})
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", c.Chat.Temperature),
		})
	}
	if c.Chat.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_tokens",
			Message: fmt.Sprintf("must not be negative, got %d", c.Chat.MaxTokens),
		})
	}
	if _, err := chat.ParseMode(c.Chat.Mode); err != nil {
		errs = append(errs, ValidationError{Field: "chat.mode", Message: err.Error()})
	}

	switch c.Releases.Source {
	case SourceNumbers:
		if err := validateURL(c.Releases.URL); err != nil {
			errs = append(errs, ValidationError{Field: "releases.url", Message: err.Error()})
		}
	case SourceFile:
		if strings.TrimSpace(c.Releases.File) == "" {
			errs = append(errs, ValidationError{Field: "releases.file", Message: "required when source is \"file\""})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "releases.source",
			Message: fmt.Sprintf("invalid source '%s', must be one of: %s, %s", c.Releases.Source, SourceNumbers, SourceFile),
		})
	}
	if c.Releases.Cutoff < 0 {
		errs = append(errs, ValidationError{Field: "releases.cutoff", Message: "must not be negative"})
	}
	if c.Releases.CacheTTLHours < 0 {
		errs = append(errs, ValidationError{Field: "releases.cache_ttl_hours", Message: "must not be negative"})
	}

	if strings.TrimSpace(c.Keys.Domain) == "" {
		errs = append(errs, ValidationError{Field: "keys.domain", Message: "must not be empty"})
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got '%s'", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: '%s'", raw)
	}
	return nil
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid level '%s', must be one of: debug, info, warn, error", s)
	}
	return level, nil
}

// SetDefaults fills empty fields from Default and derives paths under the
// config directory.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Chat.Model == "" {
		c.Chat.Model = defaults.Chat.Model
	}
	if c.Chat.Host == "" {
		c.Chat.Host = defaults.Chat.Host
	}
	if c.Chat.Endpoint == "" {
		c.Chat.Endpoint = defaults.Chat.Endpoint
	}
	if c.Chat.Mode == "" {
		c.Chat.Mode = defaults.Chat.Mode
	}
	c.Chat.Mode = strings.ToLower(strings.TrimSpace(c.Chat.Mode))

	if c.Releases.Source == "" {
		c.Releases.Source = defaults.Releases.Source
	}
	if c.Releases.URL == "" {
		c.Releases.URL = defaults.Releases.URL
	}

	if c.Keys.Domain == "" {
		c.Keys.Domain = defaults.Keys.Domain
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}

	dir, err := ConfigDir()
	if err != nil {
		return
	}
	if c.Keys.Path == "" {
		c.Keys.Path = filepath.Join(dir, "keys.toml")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dir, "recommender.log")
	}
	if c.Releases.CachePath == "" {
		c.Releases.CachePath = filepath.Join(dir, "releases.db")
	}
}

// =============================================================================
// ENVIRONMENT VARIABLE OVERRIDES
// =============================================================================

// Environment variables read by ApplyEnvOverrides.
const (
	EnvModel    = "RECOMMENDER_MODEL"
	EnvMode     = "RECOMMENDER_MODE"
	EnvHost     = "RECOMMENDER_HOST"
	EnvCutoff   = "RECOMMENDER_CUTOFF"
	EnvLogLevel = "RECOMMENDER_LOG_LEVEL"
)

// ApplyEnvOverrides applies RECOMMENDER_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv(EnvModel); model != "" {
		c.Chat.Model = model
	}
	if mode := os.Getenv(EnvMode); mode != "" {
		c.Chat.Mode = mode
	}
	if host := os.Getenv(EnvHost); host != "" {
		c.Chat.Host = host
	}
	if cutoff := os.Getenv(EnvCutoff); cutoff != "" {
		if n, err := strconv.Atoi(cutoff); err == nil {
			c.Releases.Cutoff = n
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring %s=%q: not an integer\n", EnvCutoff, cutoff)
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// String returns the configuration as indented JSON. The config holds no
// secrets; API keys live in the key store.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
