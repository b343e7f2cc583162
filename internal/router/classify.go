// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"golang.org/x/text/unicode/norm"
)

// ============================================================================
// TASK CLASSIFIER
// ============================================================================

// Classification is the full result of classifying one query.
type Classification struct {
	Task       TaskType
	Stage      Stage
	Confidence float64
	// Verdict is set when the disambiguator ran.
	Verdict *Verdict
}

// TaskClassifier combines the disambiguator and the keyword classifier.
// It holds only immutable tables and is safe for concurrent use.
type TaskClassifier struct {
	tables        *Tables
	disambiguator *Disambiguator
	keywords      *KeywordClassifier
}

// NewTaskClassifier builds a classifier over tables. A nil tables value
// selects DefaultTables.
func NewTaskClassifier(tables *Tables) *TaskClassifier {
	if tables == nil {
		tables = DefaultTables()
	}
	return &TaskClassifier{
		tables:        tables,
		disambiguator: NewDisambiguator(tables),
		keywords:      NewKeywordClassifier(tables.Keywords),
	}
}

// ClassifyTask returns the task type for query.
func (c *TaskClassifier) ClassifyTask(query string) TaskType {
	return c.Classify(query).Task
}

// Classify runs both stages and reports which one decided.
func (c *TaskClassifier) Classify(query string) Classification {
	query = NormalizeQuery(query)

	if c.disambiguator.Triggered(query) {
		v := c.disambiguator.Disambiguate(query)
		if v.Task != "" && v.Confidence > c.tables.Threshold {
			return Classification{
				Task:       v.Task,
				Stage:      StageDisambiguator,
				Confidence: v.Confidence,
				Verdict:    &v,
			}
		}
		return Classification{
			Task:    c.keywords.Classify(query),
			Stage:   StageKeywords,
			Verdict: &v,
		}
	}

	return Classification{
		Task:  c.keywords.Classify(query),
		Stage: StageKeywords,
	}
}

// NormalizeQuery puts query into Unicode NFC so composed and decomposed
// spellings of the same text classify identically.
func NormalizeQuery(query string) string {
	if norm.NFC.IsNormalString(query) {
		return query
	}
	return norm.NFC.String(query)
}
