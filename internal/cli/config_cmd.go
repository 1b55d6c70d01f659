// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - View and modify the configuration file.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Effective settings, after .env and environment overrides
//   get <key>           One effective setting
//   set <key> <value>   Write a setting to the config file
//   reset               Write the defaults to the config file
//   path                Show the config file path
//
// set and reset edit the file only; environment overrides still win at
// startup.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/chatrevamp-tui/internal/config"
	"github.com/jeranaias/chatrevamp-tui/internal/util"
)

// ConfigData is the payload of "config show".
type ConfigData struct {
	Path     string                 `json:"path"`
	Settings map[string]interface{} `json:"settings"`
}

// HandleConfig handles the "config" command. It runs before the services
// start so a broken file can still be inspected and repaired.
func HandleConfig(w io.Writer, args Args) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(w, args, path)
	case "get":
		return handleConfigGet(w, args)
	case "set":
		return handleConfigSet(w, args, path)
	case "reset":
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		return configDone(w, args, "reset", path, "Configuration reset to defaults")
	case "path":
		if args.JSON {
			return NewJSONResponse("config", map[string]string{"path": path}).Print(w)
		}
		fmt.Fprintln(w, path)
		return nil
	}
	return &UsageError{
		Reason:  fmt.Sprintf("unknown config subcommand %q", args.Subcommand),
		Example: "chatrevamp config set roster.ttl_minutes 10",
	}
}

func configFilePath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPath()
}

// loadEffective loads the config the other commands would run with.
func loadEffective(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

func handleConfigShow(w io.Writer, args Args, path string) error {
	cfg, err := loadEffective(args)
	if err != nil {
		return err
	}

	settings := make(map[string]interface{}, len(config.AllKeys()))
	for _, key := range config.AllKeys() {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		settings[key] = v
	}
	if args.JSON {
		return NewJSONResponse("config", ConfigData{Path: path, Settings: settings}).Print(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	fmt.Fprintln(w, DimStyle.Render(path))
	fmt.Fprintln(w, RenderSeparator())
	section := ""
	for _, key := range config.AllKeys() {
		if s, _, ok := strings.Cut(key, "."); ok && s != section {
			section = s
			fmt.Fprintln(w, HighlightStyle.Render("["+section+"]"))
		}
		fmt.Fprintf(w, "  %s %s\n", DimStyle.Render(util.PadRight(key, 26)), ValueStyle.Render(showValue(settings[key])))
	}
	return nil
}

func handleConfigGet(w io.Writer, args Args) error {
	if args.ConfigKey == "" {
		return &UsageError{Reason: "config get needs a key", Example: "chatrevamp config get api.base_url"}
	}
	cfg, err := loadEffective(args)
	if err != nil {
		return err
	}
	v, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return &UsageError{Reason: err.Error(), Example: "chatrevamp config show"}
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{args.ConfigKey: v}).Print(w)
	}
	fmt.Fprintln(w, showValue(v))
	return nil
}

func handleConfigSet(w io.Writer, args Args, path string) error {
	if args.ConfigKey == "" || len(args.ConfigValues) == 0 {
		return &UsageError{Reason: "config set needs a key and a value", Example: "chatrevamp config set ui.compact_mode true"}
	}
	value := strings.Join(args.ConfigValues, " ")

	// Edit what is on disk, not the effective config, so environment
	// overrides are not written back.
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := cfg.Set(args.ConfigKey, value); err != nil {
		return &UsageError{Reason: err.Error(), Example: "chatrevamp config show"}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	return configDone(w, args, "set", path, fmt.Sprintf("Set %s = %s", args.ConfigKey, value))
}

func configDone(w io.Writer, args Args, op, path, msg string) error {
	if args.JSON {
		return NewJSONResponse("config", map[string]string{"op": op, "path": path}).Print(w)
	}
	if !args.Quiet {
		fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("✓"), msg)
	}
	return nil
}

func showValue(v interface{}) string {
	if s, ok := v.(string); ok && s == "" {
		return "(unset)"
	}
	return fmt.Sprint(v)
}
