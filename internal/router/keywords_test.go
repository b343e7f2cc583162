// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(DefaultTables().Keywords)

	tests := []struct {
		name  string
		query string
		want  TaskType
	}{
		{"what is", "What is the capital of Japan?", TaskQuestionAnswering},
		{"summarize wins over article", "Summarize the key points of this article", TaskSummarization},
		{"sentiment", "Analyze sentiment of this review", TaskSentimentAnalysis},
		{"video", "What happens in this video clip?", TaskVideoQuestionAnswering},
		{"image", "Describe image contents", TaskVisualQuestionAnswering},
		{"no keywords", "hello there", TaskDialogueSystems},
		{"gibberish", "xyzzy", TaskDialogueSystems},
		{"empty", "", TaskDialogueSystems},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.query); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

// Equal counts resolve to the earlier task type, wherever the keywords
// appear in the query.
func TestKeywordClassifierTieBreak(t *testing.T) {
	c := NewKeywordClassifier(DefaultTables().Keywords)

	for _, q := range []string{
		"tell me a story and let's chat",
		"let's chat about a story",
	} {
		if got := c.Classify(q); got != TaskTextGeneration {
			t.Errorf("Classify(%q) = %q, want %q", q, got, TaskTextGeneration)
		}
	}
}

func TestKeywordTableOrder(t *testing.T) {
	// Rows supplied out of order are stored in declaration order.
	table, err := NewKeywordTable([]KeywordEntry{
		{Task: TaskVideoQuestionAnswering, Keywords: []string{"zeta"}},
		{Task: TaskCodingGeneration, Keywords: []string{"alpha"}},
	})
	require.NoError(t, err)

	counts := table.Counts("alpha zeta")
	require.Len(t, counts, len(TaskTypes()))
	if counts[0].Task != TaskCodingGeneration || counts[0].Count != 1 {
		t.Errorf("counts[0] = %+v, want coding_generation=1", counts[0])
	}
	last := counts[len(counts)-1]
	if last.Task != TaskVideoQuestionAnswering || last.Count != 1 {
		t.Errorf("last = %+v, want video_question_answering=1", last)
	}

	c := NewKeywordClassifier(table)
	if got := c.Classify("ZETA and ALPHA"); got != TaskCodingGeneration {
		t.Errorf("Classify = %q, want %q", got, TaskCodingGeneration)
	}
}

func TestKeywordTableRejectsBadRows(t *testing.T) {
	_, err := NewKeywordTable([]KeywordEntry{{Task: "cooking", Keywords: []string{"bake"}}})
	if err == nil {
		t.Error("unknown task: expected error")
	}

	_, err = NewKeywordTable([]KeywordEntry{
		{Task: TaskSummarization, Keywords: []string{"a"}},
		{Task: TaskSummarization, Keywords: []string{"b"}},
	})
	if err == nil {
		t.Error("duplicate task: expected error")
	}
}

func TestKeywordsLowerCased(t *testing.T) {
	table, err := NewKeywordTable([]KeywordEntry{{Task: TaskSummarization, Keywords: []string{"  TL;DR "}}})
	require.NoError(t, err)
	require.Equal(t, []string{"tl;dr"}, table.Keywords(TaskSummarization))
}
