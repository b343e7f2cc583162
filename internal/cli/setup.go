// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - Install the recommended models.
//
// Command: setup
//
// Flags:
//
//	--level LEVEL   high (default), medium or low; each level includes
//	                the ones above it
//	--yes, -y       install without asking
//	--json          print the plan (and results with --yes) as JSON
//
// Setup starts Ollama when it is installed but not running, lists the
// recommended models that are missing, asks for confirmation and pulls
// them two at a time.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/joat/internal/setup"
)

// starter is implemented by backends that can launch their server.
type starter interface {
	EnsureRunning(ctx context.Context) error
}

// installConcurrency is how many models are pulled at once.
const installConcurrency = 2

// setupResult is one installed model in the --json payload.
type setupResult struct {
	Model      string `json:"model"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// setupOutput is the --json payload of setup.
type setupOutput struct {
	Plan    setup.Plan    `json:"plan"`
	Results []setupResult `json:"results,omitempty"`
}

func (a *App) runSetup(ctx context.Context) error {
	level := setup.PriorityHigh
	if a.Args.Level != "" {
		l, err := setup.ParsePriority(a.Args.Level)
		if err != nil {
			return ErrInvalidValue("level", a.Args.Level, err)
		}
		level = l
	}

	logger, err := a.loggerFor(CmdSetup)
	if err != nil {
		return err
	}
	backend, err := a.NewBackend(a.cfg, logger)
	if err != nil {
		return &ConfigError{Err: err}
	}
	puller, ok := backend.(setup.Puller)
	if !ok {
		return &ConfigError{Err: fmt.Errorf("the %s backend cannot install models; use backend.kind = \"ollama\"", a.cfg.Backend.Kind)}
	}

	if s, ok := backend.(starter); ok {
		err = s.EnsureRunning(ctx)
	} else {
		err = backend.CheckRunning(ctx)
	}
	if err != nil {
		return err
	}

	installed, err := backend.InstalledModels(ctx)
	if err != nil {
		return err
	}
	plan := setup.BuildPlan(installed, level)

	if a.Args.JSON && (plan.Empty() || !a.Args.Yes) {
		return a.printJSON("setup", setupOutput{Plan: plan})
	}

	if !a.Args.JSON {
		printPlan(a, plan)
		if plan.Empty() {
			return nil
		}
		if !a.Args.Yes && !PromptYesNo(a.Stdin, a.Stdout, fmt.Sprintf("Download %s?", plan.TotalHuman())) {
			fmt.Fprintln(a.Stdout, DimStyle.Render("Setup canceled."))
			return nil
		}
	}

	progress := newProgressPrinter(a.Stderr)
	results := setup.NewInstaller(puller, installConcurrency, progress.Report, logger).Install(ctx, plan.Names())

	out := setupOutput{Plan: plan}
	failed := 0
	for _, r := range results {
		sr := setupResult{Model: r.Model, OK: r.OK(), DurationMs: r.Duration.Milliseconds()}
		if r.Err != nil {
			sr.Error = r.Err.Error()
			failed++
		}
		out.Results = append(out.Results, sr)
	}

	var failErr error
	if failed > 0 {
		failErr = fmt.Errorf("%d of %d models failed to install", failed, len(results))
	}

	if a.Args.JSON {
		if failErr != nil {
			_ = NewJSONErrorResponse("setup", out, failErr).Print(a.Stdout)
			return reported(failErr)
		}
		return a.printJSON("setup", out)
	}

	fmt.Fprintln(a.Stdout)
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(a.Stdout, "  %s %s %s\n", RenderStatus("ok"), r.Model,
				DimStyle.Render(formatDuration(r.Duration.Round(time.Millisecond))))
		} else {
			fmt.Fprintf(a.Stdout, "  %s %s %s\n", RenderStatus("failed"), r.Model, ErrorStyle.Render(r.Err.Error()))
		}
	}
	return failErr
}

func printPlan(a *App, plan setup.Plan) {
	w := a.Stdout
	if plan.Empty() {
		fmt.Fprintln(w, SuccessStyle.Render(fmt.Sprintf("All %s-priority models are installed.", plan.Level)))
		return
	}
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Models to install (level %s)", plan.Level)))
	for _, m := range plan.Models {
		tasks := make([]string, len(m.Tasks))
		for i, t := range m.Tasks {
			tasks[i] = string(t)
		}
		fmt.Fprintf(w, "  %-14s %-8s %s\n", m.Name, m.Priority, DimStyle.Render(fmt.Sprint(tasks)))
	}
	fmt.Fprintln(w, RenderField("Total download:", plan.TotalHuman()))
}
