// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"strings"
)

// ============================================================================
// KEYWORD CLASSIFIER
// ============================================================================

// KeywordTable maps task types to keyword lists. Rows keep declaration order
// so the first row wins ties.
type KeywordTable struct {
	rows []KeywordEntry
}

// NewKeywordTable validates entries and orders them by task declaration
// order. Task types without an entry get an empty row; duplicates are
// rejected.
func NewKeywordTable(entries []KeywordEntry) (*KeywordTable, error) {
	byTask := make(map[TaskType][]string, len(entries))
	for _, e := range entries {
		if !e.Task.Valid() {
			return nil, fmt.Errorf("keyword table: unknown task type %q", e.Task)
		}
		if _, dup := byTask[e.Task]; dup {
			return nil, fmt.Errorf("keyword table: duplicate entry for %s", e.Task)
		}
		byTask[e.Task] = lowerAll(e.Keywords)
	}

	rows := make([]KeywordEntry, 0, len(allTaskTypes))
	for _, t := range allTaskTypes {
		rows = append(rows, KeywordEntry{Task: t, Keywords: byTask[t]})
	}
	return &KeywordTable{rows: rows}, nil
}

// Keywords returns a copy of the keywords for task.
func (k *KeywordTable) Keywords(task TaskType) []string {
	for _, r := range k.rows {
		if r.Task == task {
			return append([]string(nil), r.Keywords...)
		}
	}
	return nil
}

// Counts returns, in declaration order, how many keywords of each task occur
// in the lower-cased query.
func (k *KeywordTable) Counts(query string) []KeywordCount {
	lower := strings.ToLower(query)
	out := make([]KeywordCount, len(k.rows))
	for i, r := range k.rows {
		n := 0
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				n++
			}
		}
		out[i] = KeywordCount{Task: r.Task, Count: n}
	}
	return out
}

// KeywordCount is one task's keyword hit count.
type KeywordCount struct {
	Task  TaskType
	Count int
}

// KeywordClassifier picks the task with the most keyword hits.
type KeywordClassifier struct {
	table *KeywordTable
}

// NewKeywordClassifier returns a classifier over table.
func NewKeywordClassifier(table *KeywordTable) *KeywordClassifier {
	return &KeywordClassifier{table: table}
}

// Classify returns the task with the highest count. Ties go to the earlier
// task; zero hits everywhere yields DefaultTask.
func (c *KeywordClassifier) Classify(query string) TaskType {
	best, bestCount := DefaultTask, 0
	for _, kc := range c.table.Counts(query) {
		// Strictly greater keeps the first task on ties.
		if kc.Count > bestCount {
			best, bestCount = kc.Task, kc.Count
		}
	}
	return best
}
