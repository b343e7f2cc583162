// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTablesShape(t *testing.T) {
	tables := DefaultTables()
	if tables.Math.Len() != 9 {
		t.Errorf("math patterns = %d, want 9", tables.Math.Len())
	}
	if tables.Coding.Len() != 9 {
		t.Errorf("coding patterns = %d, want 9", tables.Coding.Len())
	}
	if tables.Threshold != DefaultConfidenceThreshold {
		t.Errorf("Threshold = %v, want %v", tables.Threshold, DefaultConfidenceThreshold)
	}
	for _, task := range TaskTypes() {
		if len(tables.Keywords.Keywords(task)) == 0 {
			t.Errorf("no keywords for %s", task)
		}
	}
}

func TestDefaultTableSpecIsFresh(t *testing.T) {
	a := DefaultTableSpec()
	a.Triggers[0] = "mutated"
	b := DefaultTableSpec()
	if b.Triggers[0] != "solve" {
		t.Errorf("DefaultTableSpec shares state: %q", b.Triggers[0])
	}
}

func TestParseTablesOverrides(t *testing.T) {
	doc := []byte(`
confidence_threshold: 0.5
triggers: [solve, derive]
keywords:
  - task: summarization
    keywords: [tldr, recap]
`)
	tables, err := ParseTables(doc)
	require.NoError(t, err)

	if tables.Threshold != 0.5 {
		t.Errorf("Threshold = %v, want 0.5", tables.Threshold)
	}
	require.Equal(t, []string{"solve", "derive"}, tables.Triggers)
	require.Equal(t, []string{"tldr", "recap"}, tables.Keywords.Keywords(TaskSummarization))

	// Rows not named in the document keep their built-in keywords.
	require.Contains(t, tables.Keywords.Keywords(TaskQuestionAnswering), "what is")
	// Indicators were not overridden.
	require.Equal(t, 9, tables.Math.Len())

	c := NewTaskClassifier(tables)
	if got := c.ClassifyTask("give me a recap"); got != TaskSummarization {
		t.Errorf("ClassifyTask(recap) = %q, want summarization", got)
	}
}

func TestParseTablesJSON(t *testing.T) {
	doc := []byte(`{"math_clues": ["lemma"], "clue_bonus": 4}`)
	tables, err := ParseTables(doc)
	require.NoError(t, err)

	v := NewDisambiguator(tables).Disambiguate("lemma")
	if v.MathScore != 4 {
		t.Errorf("MathScore = %v, want 4", v.MathScore)
	}
}

func TestParseTablesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "keywords: [unterminated"},
		{"bad regex", "math_indicators:\n  strong: ['(oops']"},
		{"unknown task", "keywords:\n  - task: cooking\n    keywords: [bake]"},
		{"duplicate task", "keywords:\n  - task: summarization\n    keywords: [a]\n  - task: summarization\n    keywords: [b]"},
		{"threshold out of range", "confidence_threshold: 1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTables([]byte(tt.doc)); err == nil {
				t.Errorf("ParseTables(%q) succeeded, want error", tt.doc)
			}
		})
	}
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("confidence_threshold: 0.4\n"), 0o600))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	if tables.Threshold != 0.4 {
		t.Errorf("Threshold = %v, want 0.4", tables.Threshold)
	}

	_, err = LoadTables(filepath.Join(dir, "missing.yaml"))
	if !errors.Is(err, ErrConfig) {
		t.Errorf("missing file error = %v, want config kind", err)
	}
}

func TestWithThreshold(t *testing.T) {
	base := DefaultTables()

	strict, err := base.WithThreshold(0.9)
	require.NoError(t, err)
	if strict.Threshold != 0.9 {
		t.Errorf("Threshold = %v, want 0.9", strict.Threshold)
	}
	if base.Threshold != DefaultConfidenceThreshold {
		t.Errorf("base threshold changed to %v", base.Threshold)
	}
	if strict.Math != base.Math {
		t.Error("compiled indicator sets were not shared")
	}

	if _, err := base.WithThreshold(1.5); err == nil {
		t.Error("WithThreshold(1.5) succeeded")
	}
}
