// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/joat/internal/config"
	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
)

func TestSampleQueriesCoverEveryTask(t *testing.T) {
	samples := SampleQueries()
	tasks := router.TaskTypes()
	require.Len(t, samples, len(tasks))
	for i, s := range samples {
		if s.Task != tasks[i] {
			t.Errorf("SampleQueries()[%d].Task = %q, want %q", i, s.Task, tasks[i])
		}
		if strings.TrimSpace(s.Query) == "" {
			t.Errorf("SampleQueries()[%d] has an empty query", i)
		}
	}
}

func TestCheckModels(t *testing.T) {
	backend := &fakeBackend{installed: regularModels, response: "ok"}
	e := newEngine(t, config.Default(), backend, profile.Regular)

	report := e.CheckModels(context.Background(), false)

	assert.Equal(t, profile.Regular, report.Profile)
	assert.False(t, report.Essential)
	require.Len(t, report.Checks, len(router.TaskTypes()))
	assert.Equal(t, len(report.Checks), report.Passed())
	assert.Empty(t, report.Failed())
	assert.Equal(t, "all", report.Verdict())
	assert.Len(t, backend.calls, len(report.Checks))

	byTask := make(map[router.TaskType]ModelCheck, len(report.Checks))
	for _, c := range report.Checks {
		byTask[c.Task] = c
	}
	math := byTask[router.TaskMathematicalReasoning]
	assert.Equal(t, "wizard-math", math.MappedModel)
	assert.Equal(t, "wizard-math", math.ModelUsed)
	assert.Equal(t, router.TaskMathematicalReasoning, math.RoutedTask)
	assert.Equal(t, "ok", math.Preview)

	qa := byTask[router.TaskQuestionAnswering]
	assert.Equal(t, "mistral", qa.ModelUsed)
}

func TestCheckModelsEssential(t *testing.T) {
	backend := &fakeBackend{installed: regularModels, response: "ok"}
	e := newEngine(t, essentialConfig(), backend, profile.Regular)

	report := e.CheckModels(context.Background(), false)

	assert.True(t, report.Essential)
	require.NotEmpty(t, report.Failed())
	assert.NotEqual(t, "all", report.Verdict())

	for _, c := range report.Checks {
		if c.Task == router.TaskMathematicalReasoning {
			require.NotNil(t, c.Error)
			assert.Equal(t, router.ErrKindFallbackExhausted, c.Error.Kind)
			assert.Empty(t, c.ModelUsed)
		}
		if c.UsedFallback {
			assert.Equal(t, "llama3", c.ModelUsed)
			assert.NotEmpty(t, c.FallbackReason)
			assert.False(t, strings.HasPrefix(c.Preview, "[INFO]"), "preview keeps the notice: %q", c.Preview)
		}
	}
}

func TestCheckModelsStopsWhenCanceled(t *testing.T) {
	backend := &fakeBackend{installed: regularModels, response: "ok"}
	e := newEngine(t, config.Default(), backend, profile.Regular)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := e.CheckModels(ctx, false)

	assert.Empty(t, report.Checks)
	assert.Empty(t, backend.calls)
}

func TestCheckReportVerdict(t *testing.T) {
	build := func(passed, failed int) CheckReport {
		var r CheckReport
		for i := 0; i < passed; i++ {
			r.Checks = append(r.Checks, ModelCheck{})
		}
		for i := 0; i < failed; i++ {
			r.Checks = append(r.Checks, ModelCheck{Error: &router.RouteError{Kind: router.ErrKindGenerationFailure}})
		}
		return r
	}

	tests := []struct {
		passed, failed int
		want           string
	}{
		{10, 0, "all"},
		{8, 2, "most"},
		{7, 3, "attention"},
		{0, 0, "attention"},
		{0, 4, "attention"},
	}
	for _, tt := range tests {
		r := build(tt.passed, tt.failed)
		if got := r.Verdict(); got != tt.want {
			t.Errorf("Verdict(%d/%d) = %q, want %q", tt.passed, tt.passed+tt.failed, got, tt.want)
		}
		if got := r.Passed(); got != tt.passed {
			t.Errorf("Passed() = %d, want %d", got, tt.passed)
		}
	}
}

func TestCheckModel(t *testing.T) {
	t.Run("default query", func(t *testing.T) {
		backend := &fakeBackend{installed: regularModels, response: "  hi there \n"}
		e := newEngine(t, config.Default(), backend, profile.Regular)

		c := e.CheckModel(context.Background(), "phi3", "")

		require.True(t, c.OK(), "error: %v", c.Error)
		assert.Equal(t, DefaultCheckQuery, c.Query)
		assert.Equal(t, "phi3", c.ModelUsed)
		assert.Equal(t, "hi there", c.Preview)
		require.Len(t, backend.calls, 1)
		assert.Equal(t, genCall{model: "phi3", query: DefaultCheckQuery}, backend.calls[0])
		assert.Empty(t, backend.pulled)
	})

	t.Run("missing model is pulled", func(t *testing.T) {
		backend := &fakeBackend{response: "ok"}
		e := newEngine(t, config.Default(), backend, profile.Regular)

		c := e.CheckModel(context.Background(), "tinyllama", "hello")

		require.True(t, c.OK(), "error: %v", c.Error)
		assert.Equal(t, []string{"tinyllama"}, backend.pulled)
	})

	t.Run("long response is cut", func(t *testing.T) {
		backend := &fakeBackend{installed: regularModels, response: strings.Repeat("x", 500)}
		e := newEngine(t, config.Default(), backend, profile.Regular)

		c := e.CheckModel(context.Background(), "phi3", "hello")
		if n := utf8.RuneCountInString(c.Preview); n != checkPreviewRunes {
			t.Errorf("preview length = %d, want %d", n, checkPreviewRunes)
		}
	})

	t.Run("backend error", func(t *testing.T) {
		genErr := errors.New("model 'phi3' exploded: CUDA OOM")
		backend := &fakeBackend{installed: regularModels, genErr: genErr}
		e := newEngine(t, config.Default(), backend, profile.Regular)

		c := e.CheckModel(context.Background(), "phi3", "hello")

		require.False(t, c.OK())
		assert.Equal(t, router.ErrKindGenerationFailure, c.Error.Kind)
		assert.Equal(t, genErr.Error(), c.Error.Message)
		assert.Equal(t, "phi3", c.ModelUsed)
		assert.Empty(t, c.Preview)
	})
}
