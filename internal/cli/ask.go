// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler.
//
// Command: ask [question]
// Aliases: q
//
// Examples:
//
//	joat ask "What is the capital of France?"
//	joat ask --json "Write a haiku about autumn"
//	echo "summarize this" | joat ask
//
// The query may also be read from stdin when it is "-" or omitted and stdin
// is not a terminal. Responses are rendered as markdown on a terminal and
// streamed raw otherwise.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/router"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	markdownOnce     sync.Once
	markdownRenderer *glamour.TermRenderer
)

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content string) string {
	markdownOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(min(GetTerminalWidth()-4, 100)),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// ASK
// =============================================================================

// askOutput is the --json payload of ask.
type askOutput struct {
	Response       string           `json:"response"`
	TaskType       router.TaskType  `json:"task_type"`
	ModelUsed      string           `json:"model_used,omitempty"`
	UsedFallback   bool             `json:"used_fallback"`
	FallbackReason string           `json:"fallback_reason,omitempty"`
	ErrorKind      router.ErrorKind `json:"error_kind,omitempty"`
	DurationMs     int64            `json:"duration_ms"`
}

func newAskOutput(res engine.Result) askOutput {
	out := askOutput{
		Response:       res.Response,
		TaskType:       res.TaskType,
		ModelUsed:      res.ModelUsed,
		UsedFallback:   res.UsedFallback,
		FallbackReason: res.FallbackReason,
		DurationMs:     res.Duration.Milliseconds(),
	}
	if res.Error != nil {
		out.ErrorKind = res.Error.Kind
	}
	return out
}

// maxStdinQuery bounds how much of stdin is read as a query.
const maxStdinQuery = 4 * router.MaxQueryLength

func (a *App) runAsk(ctx context.Context) error {
	query, err := a.askQuery()
	if err != nil {
		return err
	}

	progress := newProgressPrinter(a.Stderr)
	eng, err := a.newEngine(ctx, CmdAsk, progress.Report)
	if err != nil {
		return err
	}

	if a.Args.JSON {
		res := eng.Process(ctx, query, nil, a.Args.Essential)
		if res.Error != nil {
			_ = NewJSONErrorResponse("ask", newAskOutput(res), res.Error).Print(a.Stdout)
			return reported(res.Error)
		}
		return a.printJSON("ask", newAskOutput(res))
	}

	var res engine.Result
	if isTerminalWriter(a.Stdout) {
		res = eng.Process(ctx, query, nil, a.Args.Essential)
		if res.Error == nil {
			printRendered(a.Stdout, res)
		}
	} else {
		res = eng.ProcessStream(ctx, query, nil, a.Args.Essential, func(tok string) {
			io.WriteString(a.Stdout, tok)
		})
		if res.Error == nil && !strings.HasSuffix(res.Response, "\n") {
			fmt.Fprintln(a.Stdout)
		}
	}
	if res.Error != nil {
		return res.Error
	}

	fmt.Fprintln(a.Stderr, DimStyle.Render(routeSummary(res.TaskType, res.ModelUsed, res.Duration)))
	return nil
}

// askQuery returns the query from the arguments or stdin.
func (a *App) askQuery() (string, error) {
	query := a.Args.Query
	if query == "-" || (strings.TrimSpace(query) == "" && a.Stdin != nil && !isTerminalReader(a.Stdin)) {
		data, err := io.ReadAll(io.LimitReader(a.Stdin, maxStdinQuery))
		if err != nil {
			return "", fmt.Errorf("failed to read query from stdin: %w", err)
		}
		query = string(data)
	}
	if strings.TrimSpace(query) == "" {
		return "", ErrMissingArgument("question", `joat ask "What is the capital of France?"`)
	}
	return query, nil
}

// printRendered prints the fallback notice styled, then the markdown body.
func printRendered(w io.Writer, res engine.Result) {
	body := res.Response
	if res.UsedFallback {
		notice := engine.FallbackNotice(res.FallbackReason)
		body = strings.TrimPrefix(body, notice)
		fmt.Fprint(w, InfoStyle.Render(strings.TrimSuffix(notice, "\n"))+"\n")
	}
	fmt.Fprint(w, renderMarkdown(body))
}

// routeSummary is the one-line trailer printed after a response.
func routeSummary(task router.TaskType, modelName string, d time.Duration) string {
	return fmt.Sprintf("[%s -> %s, %s]", task, modelName, formatDuration(d))
}
