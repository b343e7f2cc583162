// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testProfile() map[TaskType]string {
	return map[TaskType]string{
		TaskCodingGeneration:      "modelA",
		TaskMathematicalReasoning: "modelB",
	}
}

func TestResolveModelNormalMode(t *testing.T) {
	p := NewFallbackPolicy(testProfile(), []string{"modelB"}, nil)

	res := p.ResolveModel(TaskCodingGeneration, false)
	if res.Err != nil || res.Model != "modelA" || res.UsedFallback {
		t.Errorf("mapped task = %+v, want modelA without fallback", res)
	}

	res = p.ResolveModel(TaskSummarization, false)
	if res.Model != "" {
		t.Errorf("unmapped task Model = %q, want empty", res.Model)
	}
	if !errors.Is(res.Err, ErrUnmappedTask) {
		t.Errorf("unmapped task Err = %v, want unmapped_task", res.Err)
	}
	if res.Err.TaskType != TaskSummarization {
		t.Errorf("Err.TaskType = %q, want %q", res.Err.TaskType, TaskSummarization)
	}
}

func TestResolveModelEssentialMode(t *testing.T) {
	tests := []struct {
		name         string
		highPriority []string
		fallbacks    map[TaskType]string
		task         TaskType
		wantModel    string
		wantFallback bool
		wantKind     ErrorKind
	}{
		{
			name:         "primary is high priority",
			highPriority: []string{"modelA", "modelB"},
			task:         TaskCodingGeneration,
			wantModel:    "modelA",
		},
		{
			name:         "fallback to high priority model",
			highPriority: []string{"modelB"},
			fallbacks:    map[TaskType]string{TaskCodingGeneration: "modelB"},
			task:         TaskCodingGeneration,
			wantModel:    "modelB",
			wantFallback: true,
		},
		{
			name:         "no fallback configured",
			highPriority: []string{"modelB"},
			task:         TaskCodingGeneration,
			wantKind:     ErrKindFallbackExhausted,
		},
		{
			name:         "fallback is not high priority",
			highPriority: []string{"modelB"},
			fallbacks:    map[TaskType]string{TaskCodingGeneration: "modelC"},
			task:         TaskCodingGeneration,
			wantKind:     ErrKindFallbackExhausted,
		},
		{
			name:         "unmapped task with usable fallback",
			highPriority: []string{"modelB"},
			fallbacks:    map[TaskType]string{TaskSummarization: "modelB"},
			task:         TaskSummarization,
			wantModel:    "modelB",
			wantFallback: true,
		},
		{
			name:         "unmapped task without fallback",
			highPriority: []string{"modelB"},
			task:         TaskSummarization,
			wantKind:     ErrKindFallbackExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFallbackPolicy(testProfile(), tt.highPriority, tt.fallbacks)
			res := p.ResolveModel(tt.task, true)

			if res.Model != tt.wantModel {
				t.Errorf("Model = %q, want %q", res.Model, tt.wantModel)
			}
			if res.UsedFallback != tt.wantFallback {
				t.Errorf("UsedFallback = %v, want %v", res.UsedFallback, tt.wantFallback)
			}
			if tt.wantKind == "" {
				if res.Err != nil {
					t.Errorf("Err = %v, want nil", res.Err)
				}
				return
			}
			if res.Err == nil || res.Err.Kind != tt.wantKind {
				t.Errorf("Err = %v, want kind %q", res.Err, tt.wantKind)
			}
			if res.Reason != "" {
				t.Errorf("Reason = %q on failure, want empty", res.Reason)
			}
		})
	}
}

func TestFallbackReasonNamesModelsAndTask(t *testing.T) {
	p := NewFallbackPolicy(testProfile(), []string{"modelB"}, map[TaskType]string{TaskCodingGeneration: "modelB"})
	res := p.ResolveModel(TaskCodingGeneration, true)
	require.True(t, res.UsedFallback)
	for _, want := range []string{"modelA", "modelB", "coding_generation"} {
		if !strings.Contains(res.Reason, want) {
			t.Errorf("Reason %q does not mention %q", res.Reason, want)
		}
	}
}

func TestFallbackPolicyCopiesInputs(t *testing.T) {
	profile := testProfile()
	hp := []string{"modelB"}
	fb := map[TaskType]string{TaskCodingGeneration: "modelB"}
	p := NewFallbackPolicy(profile, hp, fb)

	profile[TaskCodingGeneration] = "changed"
	hp[0] = "changed"
	delete(fb, TaskCodingGeneration)

	res := p.ResolveModel(TaskCodingGeneration, true)
	if res.Model != "modelB" || !res.UsedFallback {
		t.Errorf("policy observed caller mutation: %+v", res)
	}
}

func TestHighPriorityModels(t *testing.T) {
	profile := map[TaskType]string{
		TaskCodingGeneration:      "codellama",
		TaskTextGeneration:        "llama3",
		TaskDialogueSystems:       "llama3",
		TaskSummarization:         "mixtral",
		TaskMathematicalReasoning: "",
	}

	got := HighPriorityModels(HighPriorityProfile, profile, nil)
	require.Equal(t, []string{"codellama", "llama3", "mixtral"}, got)

	got = HighPriorityModels(HighPriorityAllowlist, profile, []string{"llama3", "mistral"})
	require.Equal(t, []string{"llama3"}, got)

	got = HighPriorityModels(HighPriorityAllowlist, profile, nil)
	require.Empty(t, got)
}

func TestParseHighPriorityPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    HighPriorityPolicy
		wantErr bool
	}{
		{"", HighPriorityProfile, false},
		{"profile", HighPriorityProfile, false},
		{"allowlist", HighPriorityAllowlist, false},
		{"everything", "", true},
	}
	for _, tt := range tests {
		got, err := ParseHighPriorityPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHighPriorityPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseHighPriorityPolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUsableFallbacks(t *testing.T) {
	p := NewFallbackPolicy(testProfile(), []string{"modelB"}, map[TaskType]string{
		TaskCodingGeneration: "modelB",
		TaskSummarization:    "modelZ",
	})
	got := p.UsableFallbacks()
	require.Equal(t, map[TaskType]string{TaskCodingGeneration: "modelB"}, got)
}
