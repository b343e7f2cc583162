// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"time"

	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
)

// Result is the outcome of processing one query.
type Result struct {
	Response       string             `json:"response"`
	TaskType       router.TaskType    `json:"task_type"`
	ModelUsed      string             `json:"model_used,omitempty"`
	UsedFallback   bool               `json:"used_fallback"`
	FallbackReason string             `json:"fallback_reason,omitempty"`
	Error          *router.RouteError `json:"error,omitempty"`
	Duration       time.Duration      `json:"duration_ns"`

	Decision router.RoutingDecision `json:"-"`
}

// OK reports whether a response was produced.
func (r Result) OK() bool { return r.Error == nil }

// FallbackNotice returns the line prepended to responses produced by an
// essential-mode fallback.
func FallbackNotice(reason string) string {
	return "[INFO] " + reason + "\n"
}

// Process routes query and generates a response with history as context.
// When the decision used a fallback, the response starts with a notice.
func (e *Engine) Process(ctx context.Context, query string, history []model.Message, essential bool) Result {
	return e.process(ctx, query, history, essential, nil)
}

// ProcessStream is Process with tokens delivered to onToken as they arrive.
// Backends that cannot stream deliver the whole response as one token.
func (e *Engine) ProcessStream(ctx context.Context, query string, history []model.Message, essential bool, onToken func(string)) Result {
	if onToken == nil {
		onToken = func(string) {}
	}
	return e.process(ctx, query, history, essential, onToken)
}

func (e *Engine) process(ctx context.Context, query string, history []model.Message, essential bool, onToken func(string)) Result {
	start := time.Now()
	d := e.Route(query, essential)
	res := Result{
		TaskType:       d.TaskType,
		ModelUsed:      d.ModelName,
		UsedFallback:   d.UsedFallback,
		FallbackReason: d.FallbackReason,
		Error:          d.Error,
		Decision:       d,
	}
	if !d.OK() {
		res.Duration = time.Since(start)
		return res
	}

	if err := e.ensureModel(ctx, d.ModelName); err != nil {
		return e.fail(res, d, err, start)
	}

	notice := ""
	if d.UsedFallback {
		notice = FallbackNotice(d.FallbackReason)
	}

	var text string
	var err error
	if onToken != nil {
		if notice != "" {
			onToken(notice)
		}
		if s, ok := e.backend.(Streamer); ok {
			text, err = s.GenerateStream(ctx, d.ModelName, query, history, onToken)
		} else if text, err = e.backend.Generate(ctx, d.ModelName, query, history); err == nil {
			onToken(text)
		}
	} else {
		text, err = e.backend.Generate(ctx, d.ModelName, query, history)
	}
	if err != nil {
		return e.fail(res, d, err, start)
	}

	res.Response = notice + text
	res.Duration = time.Since(start)
	e.logger.Debug("query processed", "task", d.TaskType, "model", d.ModelName, "duration", res.Duration)
	return res
}

// ensureModel pulls modelName first when auto-pull is on, the backend can
// pull, and the model is not installed.
func (e *Engine) ensureModel(ctx context.Context, modelName string) error {
	if !e.cfg.Backend.AutoPull {
		return nil
	}
	puller, ok := e.backend.(Puller)
	if !ok {
		return nil
	}
	installed, err := e.backend.InstalledModels(ctx)
	if err != nil {
		return err
	}
	if profile.IsInstalled(modelName, installed) {
		return nil
	}
	e.logger.Info("auto-pulling model", "model", modelName)
	return puller.Pull(ctx, modelName, e.progress)
}

func (e *Engine) fail(res Result, d router.RoutingDecision, err error, start time.Time) Result {
	rerr := backendError(d.TaskType, err)
	e.stats.RecordError(rerr.Kind)
	e.logger.Warn("generation failed", "task", d.TaskType, "model", d.ModelName, "kind", rerr.Kind, "error", err)
	res.Error = rerr
	res.Duration = time.Since(start)
	return res
}
