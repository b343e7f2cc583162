// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing for joat.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
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
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdRoute
	CmdStatus
	CmdProfiles
	CmdSetup
	CmdServe
	CmdTestModels
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandStrings = map[Command]string{
	CmdTUI:        "tui",
	CmdAsk:        "ask",
	CmdChat:       "chat",
	CmdRoute:      "route",
	CmdStatus:     "status",
	CmdProfiles:   "profiles",
	CmdSetup:      "setup",
	CmdServe:      "serve",
	CmdTestModels: "test-models",
	CmdConfig:     "config",
	CmdVersion:    "version",
	CmdHelp:       "help",
}

func (c Command) String() string {
	if s, ok := commandStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath   string
	Profile      string
	ProfilesFile string
	Essential    bool
	NoColor      bool
	LogLevel     string
	JSON         bool

	// Command-specific
	Query      string
	Subcommand string
	Level      string
	Yes        bool
	Addr       string
	Model      string

	// Raw args after the command name
	Raw []string
}

// boolFlags never take a value.
var boolFlags = []string{"essential", "no-color", "json", "yes", "y", "help", "h", "version", "v"}

// stringFlags take a value.
var stringFlags = []string{"config", "c", "profile", "p", "profiles-file", "log-level", "level", "addr", "model", "query"}

const usageText = `joat - route each query to the local model built for its task

Usage:
  joat                        Start the TUI (default)
  joat ask "question"         Ask a single question
  joat chat                   Interactive chat
  joat route "question"       Show the routing decision without generating
  joat status, s              Backend and model install status
  joat profiles               List profiles and their task mappings
  joat setup                  Install the recommended models
  joat serve                  Run the HTTP API
  joat test-models            Send a sample query for every task and report
  joat config [show|init|path]
  joat version
  joat help

Global flags:
  -c, --config PATH           Config file (default: ~/.joat/config.toml)
  -p, --profile NAME          Active profile, skipping auto-detection
      --profiles-file PATH    Profile document (JSON or YAML)
      --essential             Essential mode: only high-priority models
      --log-level LEVEL       debug, info, warn or error
      --json                  Machine-readable output
      --no-color              Disable colors

Command flags:
  setup --level LEVEL         high, medium or low (default: high)
  setup --yes                 Install without asking
  serve --addr HOST:PORT      Listen address (default from config)
  test-models --model NAME    Check one model instead of every task
  test-models --query TEXT    Query sent with --model
  config init --yes           Overwrite an existing config file

Environment:
  JOAT_PROFILE                Profile override when --profile is not given
  JOAT_CONFIG                 Config file path
  NO_COLOR                    Disable colors

Exit codes:
  0 success, 1 error, 2 usage, 3 configuration, 4 backend unavailable

Examples:
  joat ask "write a python function that reverses a string"
  joat route --json "what is the integral of x^2"
  joat --essential chat
  joat setup --level medium --yes
  joat --essential test-models
  joat test-models --model llama3 --query "hello"
`

// PrintUsage writes the usage text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// VersionString returns the one-line version banner.
func VersionString() string {
	return fmt.Sprintf("joat %s (commit %s, built %s, %s %s/%s)",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses argv (without the program name). Flags may appear before or
// after the command. With no command, Parse selects the TUI.
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlags...)

	if err := checkFlags(p); err != nil {
		return CmdHelp, Args{}, err
	}

	args := Args{
		ConfigPath:   p.Flag("config", "c"),
		Profile:      p.Flag("profile", "p"),
		ProfilesFile: p.Flag("profiles-file"),
		Essential:    p.BoolFlag("essential"),
		NoColor:      p.BoolFlag("no-color"),
		LogLevel:     p.Flag("log-level"),
		JSON:         p.BoolFlag("json"),
		Level:        p.Flag("level"),
		Yes:          p.BoolFlag("yes", "y"),
		Addr:         p.Flag("addr"),
		Model:        p.Flag("model"),
		Raw:          p.PositionalFrom(1),
	}

	if p.BoolFlag("help", "h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version", "v") {
		return CmdVersion, args, nil
	}

	name := strings.ToLower(p.Subcommand())
	switch name {
	case "", "tui":
		return CmdTUI, args, nil
	case "ask", "q":
		args.Query = JoinPositionalArgs(p, 1)
		return CmdAsk, args, nil
	case "chat":
		return CmdChat, args, nil
	case "route":
		args.Query = JoinPositionalArgs(p, 1)
		if strings.TrimSpace(args.Query) == "" {
			return CmdRoute, args, ErrMissingArgument("query", `joat route "what is 2+2"`)
		}
		return CmdRoute, args, nil
	case "status", "s":
		return CmdStatus, args, nil
	case "profiles", "profile":
		return CmdProfiles, args, nil
	case "setup":
		return CmdSetup, args, nil
	case "serve":
		return CmdServe, args, nil
	case "test-models", "test":
		args.Query = p.Flag("query")
		if args.Query == "" {
			args.Query = JoinPositionalArgs(p, 1)
		}
		if args.Model == "" && strings.TrimSpace(args.Query) != "" {
			return CmdTestModels, args, &UsageError{
				Reason:  "a query needs --model",
				Example: `joat test-models --model llama3 --query "hello"`,
			}
		}
		return CmdTestModels, args, nil
	case "config":
		args.Subcommand = strings.ToLower(p.Positional(1))
		if args.Subcommand == "" {
			args.Subcommand = "show"
		}
		switch args.Subcommand {
		case "show", "init", "path":
		default:
			return CmdConfig, args, &UsageError{
				Reason:  fmt.Sprintf("unknown config subcommand %q", args.Subcommand),
				Example: "joat config show",
			}
		}
		return CmdConfig, args, nil
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	}

	reason := fmt.Sprintf("unknown command %q", name)
	if s := SuggestCommand(name); s != "" {
		reason += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return CmdHelp, args, &UsageError{Reason: reason}
}

// checkFlags rejects flags no command understands.
func checkFlags(p *ArgParser) error {
	known := make(map[string]bool, len(boolFlags)+len(stringFlags))
	for _, n := range boolFlags {
		known[n] = true
	}
	for _, n := range stringFlags {
		known[n] = true
	}

	var unknown []string
	for _, n := range p.FlagNames() {
		if !known[n] {
			unknown = append(unknown, "--"+n)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &UsageError{Reason: "unknown flag: " + strings.Join(unknown, ", ")}
	}

	// A string flag given as the last argument arrives as a boolean.
	for _, n := range stringFlags {
		if p.BoolFlag(n) {
			return &UsageError{Reason: fmt.Sprintf("flag --%s requires a value", n)}
		}
	}
	return nil
}

// versionOutput is the --json payload of version.
type versionOutput struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (a *App) runVersion() error {
	if a.Args.JSON {
		return a.printJSON("version", versionOutput{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		})
	}
	fmt.Fprintln(a.Stdout, VersionString())
	return nil
}
