// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
)

// ModelStatus is the install state of one task's model.
type ModelStatus struct {
	Task         router.TaskType `json:"task"`
	Model        string          `json:"model"`
	Installed    bool            `json:"installed"`
	HighPriority bool            `json:"high_priority"`
	Suggestions  []string        `json:"suggestions,omitempty"`
}

// Status describes the backend and the active profile.
type Status struct {
	Backend      string         `json:"backend"`
	BackendURL   string         `json:"backend_url"`
	Running      bool           `json:"running"`
	BackendError string         `json:"backend_error,omitempty"`
	Profile      string         `json:"profile"`
	Source       profile.Source `json:"source"`
	Essential    bool           `json:"essential"`
	HighPriority []string       `json:"high_priority"`
	Models       []ModelStatus  `json:"models"`
	Installed    []string       `json:"installed"`
}

// MissingCount returns how many mapped models are not installed.
func (s Status) MissingCount() int {
	n := 0
	for _, m := range s.Models {
		if !m.Installed {
			n++
		}
	}
	return n
}

// Status probes the backend and lists installed models concurrently, then
// reports per-task install state for the active profile.
func (e *Engine) Status(ctx context.Context) Status {
	st := Status{
		Backend:      e.cfg.Backend.Kind,
		BackendURL:   e.cfg.Backend.URL,
		Profile:      e.resolution.Profile.Name,
		Source:       e.resolution.Source,
		Essential:    e.cfg.Routing.EssentialMode,
		HighPriority: e.router.Policy().HighPriority(),
	}

	var probeErr, listErr error
	var installed []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		probeErr = e.backend.CheckRunning(gctx)
		return nil
	})
	g.Go(func() error {
		installed, listErr = e.backend.InstalledModels(gctx)
		return nil
	})
	_ = g.Wait()

	st.Running = probeErr == nil
	switch {
	case probeErr != nil:
		st.BackendError = probeErr.Error()
	case listErr != nil:
		st.BackendError = listErr.Error()
	}
	st.Installed = installed

	policy := e.router.Policy()
	for _, task := range router.TaskTypes() {
		m, ok := e.resolution.Profile.Model(task)
		if !ok {
			continue
		}
		ms := ModelStatus{
			Task:         task,
			Model:        m,
			Installed:    profile.IsInstalled(m, installed),
			HighPriority: policy.IsHighPriority(m),
		}
		if !ms.Installed && len(installed) > 0 {
			ms.Suggestions = profile.Suggest(m, installed, 3)
		}
		st.Models = append(st.Models, ms)
	}
	return st
}
