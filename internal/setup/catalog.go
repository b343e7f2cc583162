// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package setup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/joat/internal/router"
)

// =============================================================================
// PRIORITY
// =============================================================================

// Priority orders models for installation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns 0 for high, 1 for medium, 2 for low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Includes reports whether a model of priority q is installed at level p.
func (p Priority) Includes(q Priority) bool {
	return q.Rank() <= p.Rank()
}

// ParsePriority parses a level name, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q (want high, medium or low)", s)
}

// =============================================================================
// CATALOG
// =============================================================================

// Entry is the recommended model for one task type.
type Entry struct {
	Task        router.TaskType `json:"task"`
	Model       string          `json:"model"`
	Description string          `json:"description"`
	Size        int64           `json:"size"`
	Priority    Priority        `json:"priority"`
}

const gb = 1_000_000_000

// catalog mirrors the regular-sized profile.
var catalog = []Entry{
	{router.TaskCodingGeneration, "codellama", "Code generation, debugging, programming tasks", 38 * gb / 10, PriorityHigh},
	{router.TaskTextGeneration, "llama3", "Creative writing, content generation", 47 * gb / 10, PriorityHigh},
	{router.TaskMathematicalReasoning, "wizard-math", "Math problems, calculations, equations", 41 * gb / 10, PriorityHigh},
	{router.TaskCommonsenseReasoning, "phi3", "Logical reasoning, explanations, common sense", 27 * gb / 10, PriorityMedium},
	{router.TaskQuestionAnswering, "mistral", "Factual questions, information retrieval", 41 * gb / 10, PriorityHigh},
	{router.TaskDialogueSystems, "llama3", "General conversation, chat", 47 * gb / 10, PriorityHigh},
	{router.TaskSummarization, "mixtral", "Text summarization, key point extraction", 26 * gb, PriorityLow},
	{router.TaskSentimentAnalysis, "phi3", "Emotion analysis, sentiment detection", 27 * gb / 10, PriorityMedium},
	{router.TaskVisualQuestionAnswering, "llava", "Image analysis, visual questions", 45 * gb / 10, PriorityMedium},
	{router.TaskVideoQuestionAnswering, "llama3", "Video analysis, motion understanding", 47 * gb / 10, PriorityLow},
}

// Catalog returns a copy of the catalog in task order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for a task.
func Lookup(task router.TaskType) (Entry, bool) {
	for _, e := range catalog {
		if e.Task == task {
			return e, true
		}
	}
	return Entry{}, false
}

// HighPriorityModels returns the distinct high-priority models, sorted.
// It is the default allow-list for the "allowlist" high-priority policy.
func HighPriorityModels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range catalog {
		if e.Priority == PriorityHigh && !seen[e.Model] {
			seen[e.Model] = true
			out = append(out, e.Model)
		}
	}
	sort.Strings(out)
	return out
}
