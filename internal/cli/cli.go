// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/jeranaias/recommender/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdKeys
	CmdReleases
	CmdConfig
	CmdDoctor
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Verbose    bool
	JSON       bool
	Mode       string
	Model      string
	Cutoff     int // -1 when unset

	// Raw holds the arguments after the command word.
	Raw []string
}

const usageText = `recommender - movie recommendations from a chat model

Usage:
  recommender [flags]                    Start an interactive chat (default)
  recommender chat [flags]               Same as above
  recommender releases [--refresh]       Print the release data sent to the model
  recommender keys set <domain> <key>    Store an API key
  recommender keys list                  List stored keys (masked)
  recommender config [show|path|init]    Show or create the configuration file
  recommender doctor                     Check configuration, key and data sources
  recommender version                    Show version information
  recommender help                       Show this help

Flags:
  --config PATH     Read configuration from PATH
  --mode MODE       Persona mode: basic, partition, category
  --model NAME      Chat-completion model
  --cutoff N        Number of releases sampled into the prompt (0 = all)
  --json            Machine-readable output (releases, doctor)
  -v, --verbose     Log to stderr instead of the log file

Chat:
  Type a message and press Enter. An empty line, "quit", or Ctrl+D ends the
  session and prints the total token usage.

Environment:
  OPENAI_API_KEY          API key (also read from ./.env)
  RECOMMENDER_MODEL       Overrides chat.model
  RECOMMENDER_MODE        Overrides chat.mode
  RECOMMENDER_HOST        Overrides chat.host
  RECOMMENDER_CUTOFF      Overrides releases.cutoff
  RECOMMENDER_LOG_LEVEL   Overrides log.level
  NO_COLOR                Disable colored output
`

// Parse parses command-line arguments (without the program name).
func Parse(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}

	if len(remaining) == 0 {
		return CmdChat, args, nil
	}

	cmd := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch cmd {
	case "chat":
		return CmdChat, args, nil
	case "keys", "key":
		return CmdKeys, args, nil
	case "releases":
		return CmdReleases, args, nil
	case "config":
		return CmdConfig, args, nil
	case "doctor", "diag":
		return CmdDoctor, args, nil
	case "version", "--version":
		return CmdVersion, args, nil
	case "help", "-h", "--help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, &UsageError{Message: fmt.Sprintf("unknown command: %s", remaining[0]), Usage: "recommender help"}
	}
}

// parseGlobalFlags extracts flags that apply to every command.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var remaining []string
	args := Args{Cutoff: -1}

	value := func(i int, name string) (string, error) {
		if i+1 >= len(argv) {
			return "", &UsageError{Message: fmt.Sprintf("flag %s requires a value", name), Usage: "recommender help"}
		}
		return argv[i+1], nil
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		name, inline, hasInline := strings.Cut(arg, "=")

		switch name {
		case "-v", "--verbose":
			args.Verbose = true
			continue
		case "--json":
			args.JSON = true
			continue
		case "--config", "--mode", "--model", "--cutoff":
		default:
			remaining = append(remaining, arg)
			continue
		}

		v := inline
		if !hasInline {
			var err error
			if v, err = value(i, name); err != nil {
				return nil, args, err
			}
			i++
		}

		switch name {
		case "--config":
			args.ConfigPath = v
		case "--mode":
			args.Mode = v
		case "--model":
			args.Model = v
		case "--cutoff":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, args, &UsageError{Message: fmt.Sprintf("invalid --cutoff %q: must be a non-negative integer", v)}
			}
			args.Cutoff = n
		}
	}

	return remaining, args, nil
}

// Execute runs cmd and returns any fatal error.
func Execute(ctx context.Context, cmd Command, args Args) error {
	switch cmd {
	case CmdHelp:
		fmt.Print(usageText)
		return nil
	case CmdVersion:
		printVersion(os.Stdout)
		return nil
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logger, closeLog, err := SetupLogging(cfg, args.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	switch cmd {
	case CmdKeys:
		return HandleKeys(cfg, args, os.Stdout)
	case CmdReleases:
		return HandleReleases(ctx, cfg, args, os.Stdout, logger)
	case CmdConfig:
		return HandleConfig(cfg, args, os.Stdout)
	case CmdDoctor:
		return HandleDoctor(ctx, cfg, args, os.Stdout)
	default:
		return HandleChat(ctx, cfg, logger)
	}
}

// loadConfig loads configuration and applies command-line overrides.
func loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.Mode != "" {
		cfg.Chat.Mode = args.Mode
	}
	if args.Model != "" {
		cfg.Chat.Model = args.Model
	}
	if args.Cutoff >= 0 {
		cfg.Releases.Cutoff = args.Cutoff
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &UsageError{Message: fmt.Sprintf("invalid option: %v", err)}
	}
	return cfg, nil
}

// assistantName returns the label printed before replies: the configured
// name, else the executable's base name without extension.
func assistantName(cfg *config.Config, argv0 string) string {
	if cfg.Chat.AssistantName != "" {
		return cfg.Chat.AssistantName
	}
	base := filepath.Base(argv0)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" && name != "." {
		return name
	}
	return "recommender"
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "recommender %s\n", Version)
	fmt.Fprintf(w, "  Commit:  %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:   %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
