// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Command dispatch, configuration loading and engine setup.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/jeranaias/joat/internal/config"
	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/logging"
	"github.com/jeranaias/joat/internal/model"
)

// BackendFactory builds the inference backend for a configuration.
type BackendFactory func(cfg *config.Config, logger *slog.Logger) (engine.Inference, error)

// App runs one parsed command. The zero value is not usable; use NewApp.
type App struct {
	Args Args

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// NewBackend builds the inference backend. Tests replace it.
	NewBackend BackendFactory

	// Interactive reports whether stdin and stdout are terminals.
	Interactive bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewApp returns an App wired to the process's standard streams.
func NewApp(args Args) *App {
	return &App{
		Args:        args,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		NewBackend:  engine.NewBackend,
		Interactive: IsTTY() && IsStdoutTTY(),
	}
}

// Run executes cmd and returns the process exit code.
func (a *App) Run(ctx context.Context, cmd Command) int {
	if a.Args.NoColor {
		DisableColors()
	}

	err := a.dispatch(ctx, cmd)
	if err == nil {
		return ExitSuccess
	}

	var shown *reportedError
	if !errors.As(err, &shown) {
		if a.Args.JSON {
			DisplayError(a.Stdout, err, true)
		} else {
			DisplayError(a.Stderr, err, false)
		}
	}
	return GetExitCode(err)
}

func (a *App) dispatch(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(a.Stdout)
		return nil
	case CmdVersion:
		return a.runVersion()
	case CmdConfig:
		return a.runConfig()
	}

	if _, err := a.loadConfig(); err != nil {
		return err
	}

	switch cmd {
	case CmdAsk:
		return a.runAsk(ctx)
	case CmdChat:
		return a.runChat(ctx)
	case CmdRoute:
		return a.runRoute(ctx)
	case CmdStatus:
		return a.runStatus(ctx)
	case CmdProfiles:
		return a.runProfiles(ctx)
	case CmdSetup:
		return a.runSetup(ctx)
	case CmdServe:
		return a.runServe(ctx)
	case CmdTestModels:
		return a.runTestModels(ctx)
	case CmdTUI:
		return a.runTUI(ctx)
	}
	return &UsageError{Reason: "unknown command " + cmd.String()}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// configPath is --config, then JOAT_CONFIG, then "" for the default file.
func (a *App) configPath() string {
	if a.Args.ConfigPath != "" {
		return a.Args.ConfigPath
	}
	if a.Getenv != nil {
		return a.Getenv("JOAT_CONFIG")
	}
	return ""
}

// loadConfig loads the configuration once and applies command-line
// overrides.
func (a *App) loadConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg, err := config.Load(a.configPath())
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if a.Args.ProfilesFile != "" {
		cfg.Profiles.File = a.Args.ProfilesFile
	}
	if a.Args.Essential {
		cfg.Routing.EssentialMode = true
	}
	if a.Args.LogLevel != "" {
		if _, err := logging.ParseLevel(a.Args.LogLevel); err != nil {
			return nil, ErrInvalidValue("log-level", a.Args.LogLevel, err)
		}
		cfg.Log.Level = a.Args.LogLevel
	}

	a.cfg = cfg
	return cfg, nil
}

// loggerFor builds the logger for cmd. Commands other than serve stay at
// warn or above unless --log-level asks for more; the TUI logs nothing.
func (a *App) loggerFor(cmd Command) (*slog.Logger, error) {
	if a.logger != nil {
		return a.logger, nil
	}
	if cmd == CmdTUI {
		a.logger = logging.Discard()
		return a.logger, nil
	}

	level := a.cfg.Log.Level
	if cmd != CmdServe && a.Args.LogLevel == "" {
		if lvl, err := logging.ParseLevel(level); err == nil && lvl < slog.LevelWarn {
			level = "warn"
		}
	}
	logger, err := logging.New(a.Stderr, level, a.cfg.Log.Format)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	a.logger = logger
	return logger, nil
}

// newEngine builds the backend and engine for cmd. progress receives
// auto-pull reports.
func (a *App) newEngine(ctx context.Context, cmd Command, progress model.ProgressFunc) (*engine.Engine, error) {
	logger, err := a.loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	backend, err := a.NewBackend(a.cfg, logger)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	return engine.New(ctx, engine.Options{
		Config:   a.cfg,
		Backend:  backend,
		Profile:  a.Args.Profile,
		Getenv:   a.Getenv,
		Progress: progress,
		Logger:   logger,
	})
}

// printJSON writes a success envelope for command.
func (a *App) printJSON(command string, data any) error {
	return NewJSONResponse(command, data).Print(a.Stdout)
}
