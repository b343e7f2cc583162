// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// test_models_cmd.go - Check that the mapped models answer.
//
// Command: test-models [--model NAME [--query TEXT]]
// Aliases: test
//
// Without --model, sends one sample query per task type through the full
// routing pipeline and reports which model answered; with --essential the
// run shows the essential-mode fallbacks. With --model, sends one query
// straight to that model. Exits 4 when the backend is down and 1 when any
// check fails.
//
// Examples:
//
//	joat test-models
//	joat --essential test-models --json
//	joat test-models --model llama3 --query "hello"
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/router"
)

func (a *App) runTestModels(ctx context.Context) error {
	eng, err := a.newEngine(ctx, CmdTestModels, newProgressPrinter(a.Stderr).Report)
	if err != nil {
		return err
	}

	if err := eng.Backend().CheckRunning(ctx); err != nil {
		return &router.RouteError{
			Kind:    router.ErrKindBackendUnavailable,
			Message: fmt.Sprintf("%s backend at %s is not reachable", a.cfg.Backend.Kind, a.cfg.Backend.URL),
			Cause:   err,
		}
	}

	if a.Args.Model != "" {
		return a.testOneModel(ctx, eng)
	}

	if !a.Args.JSON {
		mode := ""
		if a.Args.Essential || a.cfg.Routing.EssentialMode {
			mode = " (essential mode)"
		}
		fmt.Fprintln(a.Stdout, TitleStyle.Render("joat model check"+mode))
		fmt.Fprintln(a.Stdout, RenderField("Profile:", eng.Profile().Name))
		fmt.Fprintln(a.Stdout, RenderSeparator(50))
	}

	report := eng.CheckModels(ctx, a.Args.Essential)
	if err := ctx.Err(); err != nil {
		return err
	}

	var failErr error
	if failed := len(report.Failed()); failed > 0 {
		failErr = fmt.Errorf("%d of %d model checks failed", failed, len(report.Checks))
	}

	if a.Args.JSON {
		out := testModelsOutput{CheckReport: report, Passed: report.Passed(), Total: len(report.Checks), Verdict: report.Verdict()}
		if failErr != nil {
			_ = NewJSONErrorResponse("test-models", out, failErr).Print(a.Stdout)
			return reported(failErr)
		}
		return a.printJSON("test-models", out)
	}

	for _, c := range report.Checks {
		printCheck(a.Stdout, c)
	}
	printCheckSummary(a.Stdout, report)
	return reported(failErr)
}

// testModelsOutput is the --json payload of test-models.
type testModelsOutput struct {
	engine.CheckReport
	Passed  int    `json:"passed"`
	Total   int    `json:"total"`
	Verdict string `json:"verdict"`
}

func (a *App) testOneModel(ctx context.Context, eng *engine.Engine) error {
	c := eng.CheckModel(ctx, a.Args.Model, a.Args.Query)

	if a.Args.JSON {
		if c.Error != nil {
			_ = NewJSONErrorResponse("test-models", c, c.Error).Print(a.Stdout)
			return reported(c.Error)
		}
		return a.printJSON("test-models", c)
	}

	w := a.Stdout
	fmt.Fprintln(w, TitleStyle.Render("joat model check: "+a.Args.Model))
	fmt.Fprintln(w, RenderField("Query:", c.Query))
	if c.Error != nil {
		fmt.Fprintf(w, "%s %s\n", RenderStatus("failed"), c.Error.Message)
		return reported(c.Error)
	}
	fmt.Fprintf(w, "%s %s\n", RenderStatus("ok"), DimStyle.Render(formatDuration(c.Duration)))
	fmt.Fprintln(w, c.Preview)
	return nil
}

func printCheck(w io.Writer, c engine.ModelCheck) {
	state := "ok"
	if !c.OK() {
		state = "failed"
	}
	fmt.Fprintf(w, "%s %-28s %s\n", RenderStatus(state), c.Task, c.MappedModel)
	fmt.Fprintf(w, "     %s\n", DimStyle.Render(c.Query))
	if c.RoutedTask != "" && c.RoutedTask != c.Task {
		fmt.Fprintf(w, "     routed as %s\n", c.RoutedTask)
	}
	if c.UsedFallback {
		fmt.Fprintf(w, "     %s\n", InfoStyle.Render(c.FallbackReason))
	}
	if c.Error != nil {
		fmt.Fprintf(w, "     %s %s\n", ErrorStyle.Render(string(c.Error.Kind)+":"), c.Error.Message)
		return
	}
	fmt.Fprintf(w, "     answered by %s in %s\n", c.ModelUsed, formatDuration(c.Duration))
}

func printCheckSummary(w io.Writer, r engine.CheckReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("Summary"))
	fmt.Fprintf(w, "%d/%d models working\n", r.Passed(), len(r.Checks))
	for _, c := range r.Failed() {
		model := c.ModelUsed
		if model == "" {
			model = c.MappedModel
		}
		fmt.Fprintf(w, "  %s %s -> %s: %s\n", RenderStatus("failed"), c.Task, model, c.Error.Message)
	}

	switch r.Verdict() {
	case "all":
		fmt.Fprintln(w, SuccessStyle.Render("All models are working."))
	case "most":
		fmt.Fprintln(w, WarningStyle.Render("Most models are working."))
	default:
		fmt.Fprintln(w, ErrorStyle.Render("Some models need attention."))
	}
}
