// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command routing and usage text for chatrevamp.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/roster"
	"github.com/jeranaias/chatrevamp-tui/internal/theme"
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
	CmdLogin
	CmdRegister
	CmdLogout
	CmdWhoami
	CmdTheme
	CmdMembers
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdTUI:      "tui",
	CmdLogin:    "login",
	CmdRegister: "register",
	CmdLogout:   "logout",
	CmdWhoami:   "whoami",
	CmdTheme:    "theme",
	CmdMembers:  "members",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool
	ConfigPath string

	// Command-specific
	Name       string // the unrecognised word for CmdUnknown
	Email      string
	Hospital   string
	FullName   string
	ThemeMode  string
	Refresh    bool
	Subcommand string

	// config get/set
	ConfigKey    string
	ConfigValues []string

	// Raw args (remaining after the command word)
	Raw []string
}

const usageText = `chatrevamp - hospital team chat in the terminal

Usage:
  chatrevamp                          Start the TUI (default)
  chatrevamp tui                      Start the TUI
  chatrevamp login [email]            Sign in and save the session
  chatrevamp register                 Create an account and sign in
  chatrevamp logout                   Sign out and forget the saved session
  chatrevamp whoami                   Show the signed-in user
  chatrevamp theme [light|dark|system]
                                      Show or change the theme preference
  chatrevamp members [--refresh]      List your hospital's members
  chatrevamp config [show|get|set|reset|path]
                                      View or edit the configuration file
  chatrevamp version                  Show version information
  chatrevamp help                     Show this help

Register options:
  --name NAME                         Full name
  --email EMAIL                       Email address
  --hospital CODE                     Hospital code

Global flags:
  -c, --config PATH                   Use this config file instead of ~/.chatrevamp/config.toml
  -q, --quiet                         Print only errors
  -v, --verbose                       Log debug output to stderr
  --json                              Print results as JSON

Environment:
  CHATREVAMP_API_URL                  REST backend, e.g. http://127.0.0.1:8000/api
  CHATREVAMP_CHAT_URL                 Chat relay, e.g. ws://127.0.0.1:8000/ws
  CHATREVAMP_STORAGE                  file, sqlite, memory (optionally backend:path)
  CHATREVAMP_LOG_LEVEL                debug, info, warn, error
  CHATREVAMP_THEME_FILE               File holding "light" or "dark" to follow
  NO_COLOR                            Disable colored output

Version: %s
`

// PrintUsage writes the usage text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "chatrevamp version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses args (without the program name) and returns the command
// and its arguments. No arguments means the TUI.
func ParseArgs(args []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(args)
	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	word := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining
	p := NewArgParser(remaining)

	switch word {
	case "tui":
		return CmdTUI, parsed

	case "login", "signin":
		parsed.Email = p.FlagOrDefault("email", p.Positional(0))
		return CmdLogin, parsed

	case "register", "signup":
		parsed.FullName = p.Flag("name")
		parsed.Email = p.Flag("email")
		parsed.Hospital = p.FlagOrDefault("hospital", p.Flag("hospital-code"))
		return CmdRegister, parsed

	case "logout", "signout":
		return CmdLogout, parsed

	case "whoami", "me":
		return CmdWhoami, parsed

	case "theme":
		parsed.ThemeMode = p.Subcommand()
		return CmdTheme, parsed

	case "members", "roster":
		parsed.Refresh = p.BoolFlag("refresh") || p.BoolFlag("r")
		return CmdMembers, parsed

	case "config":
		parsed.Subcommand = strings.ToLower(p.Subcommand())
		parsed.ConfigKey = p.Positional(1)
		for i := 2; i < p.PositionalCount(); i++ {
			parsed.ConfigValues = append(parsed.ConfigValues, p.Positional(i))
		}
		return CmdConfig, parsed

	case "version", "--version", "-V":
		return CmdVersion, parsed

	case "help", "--help", "-h":
		parsed.Subcommand = p.Subcommand()
		return CmdHelp, parsed

	default:
		parsed.Name = word
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags pulls the global flags out of args wherever they appear.
func parseGlobalFlags(args []string) ([]string, Args) {
	var (
		remaining []string
		parsed    Args
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "-c", "--config":
			if i+1 < len(args) {
				i++
				parsed.ConfigPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
	}
	return remaining, parsed
}

// =============================================================================
// COMMAND ENVIRONMENT
// =============================================================================

// Env carries what the non-TUI commands need. main builds it after loading
// the config; the controllers have already restored their stored state.
type Env struct {
	Auth   *auth.Controller
	Theme  *theme.Controller
	Roster *roster.Controller
	// Prompt is nil when stdin is not interactive.
	Prompt Prompter
	Out    io.Writer
	Now    func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) prompter(operation string) (Prompter, error) {
	if e.Prompt == nil {
		return nil, &TTYRequiredError{Operation: operation}
	}
	return e.Prompt, nil
}

// say prints a human-readable line unless --quiet or --json is set.
func (e *Env) say(args Args, format string, a ...interface{}) {
	if args.Quiet || args.JSON {
		return
	}
	fmt.Fprintf(e.Out, format+"\n", a...)
}

// HandleVersion handles the "version" command.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(w)
	}
	PrintVersion(w)
	return nil
}

// HandleUnknown reports a command word that is not recognised.
func HandleUnknown(args Args) error {
	return &UsageError{
		Reason:  fmt.Sprintf("unknown command %q", args.Name),
		Example: "chatrevamp help",
	}
}
