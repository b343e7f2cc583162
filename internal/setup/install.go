// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package setup

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/joat/internal/logging"
	"github.com/jeranaias/joat/internal/model"
)

// Puller downloads a model, reporting progress.
type Puller interface {
	Pull(ctx context.Context, name string, progress model.ProgressFunc) error
}

// Result is the outcome of installing one model.
type Result struct {
	Model    string        `json:"model"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the model was installed.
func (r Result) OK() bool { return r.Err == nil }

// Installer pulls models concurrently.
type Installer struct {
	puller      Puller
	concurrency int
	progress    model.ProgressFunc
	logger      *slog.Logger
}

// NewInstaller creates an installer running at most concurrency pulls at once.
// progress may be nil; it is called from multiple goroutines.
func NewInstaller(p Puller, concurrency int, progress model.ProgressFunc, logger *slog.Logger) *Installer {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Installer{
		puller:      p,
		concurrency: concurrency,
		progress:    progress,
		logger:      logging.OrDiscard(logger),
	}
}

// Install pulls every model and returns one result per model in input order.
// A failed pull never cancels its siblings; only ctx does.
func (in *Installer) Install(ctx context.Context, models []string) []Result {
	results := make([]Result, len(models))

	var g errgroup.Group
	g.SetLimit(in.concurrency)
	for i, name := range models {
		g.Go(func() error {
			start := time.Now()
			err := ctx.Err()
			if err == nil {
				err = in.puller.Pull(ctx, name, in.progress)
			}
			results[i] = Result{Model: name, Err: err, Duration: time.Since(start)}
			if err != nil {
				in.logger.Warn("model install failed", "model", name, "error", err)
			} else {
				in.logger.Info("model installed", "model", name, "duration", results[i].Duration)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Succeeded returns the names of installed models from results.
func Succeeded(results []Result) []string {
	var out []string
	for _, r := range results {
		if r.OK() {
			out = append(out, r.Model)
		}
	}
	return out
}
