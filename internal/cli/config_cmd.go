// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Show, create and locate the configuration file.
//
// Command: config [show|init|path]
//
//	show   print the effective configuration (file, env and flags applied)
//	init   write a default config file; --yes overwrites an existing one
//	path   print the config file path
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/joat/internal/config"
)

func (a *App) runConfig() error {
	switch a.Args.Subcommand {
	case "init":
		return a.configInit()
	case "path":
		return a.configPathCmd()
	default:
		return a.configShow()
	}
}

func (a *App) configShow() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	shown := *cfg
	if shown.Backend.APIKey != "" {
		shown.Backend.APIKey = "********"
	}

	if a.Args.JSON {
		return a.printJSON("config", shown)
	}
	text, err := config.Marshal(&shown)
	if err != nil {
		return err
	}
	fmt.Fprint(a.Stdout, text)
	return nil
}

// resolvedConfigPath is the file config init writes and config path
// reports.
func (a *App) resolvedConfigPath() (string, error) {
	if p := a.configPath(); p != "" {
		return p, nil
	}
	p, err := config.ConfigPathTOML()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return p, nil
}

func (a *App) configInit() error {
	path, err := a.resolvedConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !a.Args.Yes {
		return &UsageError{
			Reason:  fmt.Sprintf("config file %s already exists", path),
			Example: "joat config init --yes",
		}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &ConfigError{Err: err}
	}

	if err := config.Save(config.Default(), path); err != nil {
		return &ConfigError{Err: err}
	}
	if a.Args.JSON {
		return a.printJSON("config", map[string]string{"path": path})
	}
	fmt.Fprintf(a.Stdout, "%s wrote %s\n", RenderStatus("ok"), path)
	return nil
}

func (a *App) configPathCmd() error {
	path, err := a.resolvedConfigPath()
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if a.Args.JSON {
		return a.printJSON("config", map[string]any{"path": path, "exists": exists})
	}
	fmt.Fprintln(a.Stdout, path)
	return nil
}
