// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"strings"
	"time"

	"github.com/jeranaias/joat/internal/router"
	"github.com/jeranaias/joat/internal/util"
)

// =============================================================================
// SAMPLE QUERIES
// =============================================================================

// SampleQuery is a representative query for one task type.
type SampleQuery struct {
	Task  router.TaskType `json:"task"`
	Query string          `json:"query"`
}

var sampleQueries = map[router.TaskType]string{
	router.TaskCodingGeneration:        "Write a Python function to calculate fibonacci numbers",
	router.TaskTextGeneration:          "Write a short story about a robot learning to paint",
	router.TaskMathematicalReasoning:   "Solve the equation: 3x + 7 = 22",
	router.TaskCommonsenseReasoning:    "Why do people wear coats in winter?",
	router.TaskQuestionAnswering:       "What is the capital of Japan?",
	router.TaskDialogueSystems:         "Tell me a joke",
	router.TaskSummarization:           "Summarize the key points of machine learning",
	router.TaskSentimentAnalysis:       "Analyze the sentiment of this text: 'I love this new phone!'",
	router.TaskVisualQuestionAnswering: "Describe what you would see in a sunset",
	router.TaskVideoQuestionAnswering:  "What happens in a typical movie scene",
}

// DefaultCheckQuery is sent by CheckModel when no query is given.
const DefaultCheckQuery = "Reply with one short sentence introducing yourself."

// checkPreviewRunes bounds the response kept per check.
const checkPreviewRunes = 200

// SampleQueries returns one sample query per task type, in declaration
// order.
func SampleQueries() []SampleQuery {
	tasks := router.TaskTypes()
	out := make([]SampleQuery, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, SampleQuery{Task: t, Query: sampleQueries[t]})
	}
	return out
}

// =============================================================================
// CHECKS
// =============================================================================

// ModelCheck is the outcome of sending one query to one model.
type ModelCheck struct {
	// Task is the task the sample query was written for; empty for a
	// single-model check.
	Task router.TaskType `json:"task,omitempty"`
	// MappedModel is the active profile's model for Task.
	MappedModel string `json:"mapped_model,omitempty"`
	Query       string `json:"query"`

	RoutedTask     router.TaskType    `json:"routed_task,omitempty"`
	ModelUsed      string             `json:"model_used,omitempty"`
	UsedFallback   bool               `json:"used_fallback"`
	FallbackReason string             `json:"fallback_reason,omitempty"`
	Preview        string             `json:"preview,omitempty"`
	Error          *router.RouteError `json:"error,omitempty"`
	Duration       time.Duration      `json:"duration_ns"`
}

// OK reports whether the model answered.
func (c ModelCheck) OK() bool { return c.Error == nil }

// CheckReport collects the checks of one CheckModels run.
type CheckReport struct {
	Profile   string       `json:"profile"`
	Essential bool         `json:"essential"`
	Checks    []ModelCheck `json:"checks"`
}

// Passed returns how many checks succeeded.
func (r CheckReport) Passed() int {
	n := 0
	for _, c := range r.Checks {
		if c.OK() {
			n++
		}
	}
	return n
}

// Failed returns the checks that did not succeed.
func (r CheckReport) Failed() []ModelCheck {
	var out []ModelCheck
	for _, c := range r.Checks {
		if !c.OK() {
			out = append(out, c)
		}
	}
	return out
}

// Verdict summarizes the run: "all" when every check passed, "most" at 80%
// or better, otherwise "attention".
func (r CheckReport) Verdict() string {
	passed, total := r.Passed(), len(r.Checks)
	switch {
	case total > 0 && passed == total:
		return "all"
	case passed*5 >= total*4 && total > 0:
		return "most"
	default:
		return "attention"
	}
}

// CheckModels sends each sample query through the full pipeline, one at a
// time, and reports which model answered. Checks stop early once ctx is
// done.
func (e *Engine) CheckModels(ctx context.Context, essential bool) CheckReport {
	report := CheckReport{
		Profile:   e.resolution.Profile.Name,
		Essential: essential || e.cfg.Routing.EssentialMode,
	}
	for _, s := range SampleQueries() {
		if ctx.Err() != nil {
			break
		}
		mapped, _ := e.resolution.Profile.Model(s.Task)
		res := e.Process(ctx, s.Query, nil, essential)
		c := ModelCheck{
			Task:           s.Task,
			MappedModel:    mapped,
			Query:          s.Query,
			RoutedTask:     res.TaskType,
			ModelUsed:      res.ModelUsed,
			UsedFallback:   res.UsedFallback,
			FallbackReason: res.FallbackReason,
			Error:          res.Error,
			Duration:       res.Duration,
		}
		if res.OK() {
			c.Preview = preview(strings.TrimPrefix(res.Response, FallbackNotice(res.FallbackReason)))
		}
		e.logger.Debug("model check", "task", s.Task, "model", res.ModelUsed, "ok", res.OK())
		report.Checks = append(report.Checks, c)
	}
	return report
}

// CheckModel sends query straight to modelName with no history, skipping
// classification. An empty query uses DefaultCheckQuery.
func (e *Engine) CheckModel(ctx context.Context, modelName, query string) ModelCheck {
	if strings.TrimSpace(query) == "" {
		query = DefaultCheckQuery
	}
	start := time.Now()
	c := ModelCheck{Query: query, ModelUsed: modelName}

	err := e.ensureModel(ctx, modelName)
	var text string
	if err == nil {
		text, err = e.backend.Generate(ctx, modelName, query, nil)
	}
	c.Duration = time.Since(start)
	if err != nil {
		c.Error = backendError("", err)
		e.logger.Warn("model check failed", "model", modelName, "kind", c.Error.Kind, "error", err)
		return c
	}
	c.Preview = preview(text)
	return c
}

func preview(s string) string {
	return util.TruncateRunes(strings.TrimSpace(s), checkPreviewRunes)
}
