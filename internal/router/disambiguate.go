// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"math"
	"strings"
)

// ============================================================================
// MATH / CODING DISAMBIGUATION
// ============================================================================

// Verdict is the outcome of a disambiguation. Task is empty when the two
// domains scored equally.
type Verdict struct {
	Task        TaskType
	Confidence  float64
	MathScore   float64
	CodingScore float64
}

// Disambiguator separates mathematics queries from programming queries.
type Disambiguator struct {
	tables *Tables
}

// NewDisambiguator returns a disambiguator over the given tables.
func NewDisambiguator(tables *Tables) *Disambiguator {
	return &Disambiguator{tables: tables}
}

// Disambiguate scores query against both indicator sets, applies the
// context-clue and "solve" adjustments, and returns the winning domain with
// its normalized margin.
func (d *Disambiguator) Disambiguate(query string) Verdict {
	t := d.tables
	lower := strings.ToLower(query)

	mathScore := t.Math.Score(query)
	codingScore := t.Coding.Score(query)

	if containsAny(lower, t.mathClues) {
		mathScore += t.clueBonus
	}
	if containsAny(lower, t.codingClues) {
		codingScore += t.clueBonus
	}

	if t.solve.Token != "" && strings.Contains(lower, t.solve.Token) {
		if containsAny(lower, t.solve.MathContext) {
			mathScore += t.solve.Bonus
		} else if containsAny(lower, t.solve.CodingContext) {
			codingScore += t.solve.Bonus
		}
	}

	v := Verdict{MathScore: mathScore, CodingScore: codingScore}
	switch {
	case mathScore > codingScore:
		v.Task = TaskMathematicalReasoning
	case codingScore > mathScore:
		v.Task = TaskCodingGeneration
	default:
		return v
	}
	v.Confidence = math.Abs(mathScore-codingScore) / math.Max(mathScore+codingScore, 1.0)
	return v
}

// Triggered reports whether query contains one of the trigger words that
// make the disambiguator eligible.
func (d *Disambiguator) Triggered(query string) bool {
	return containsAny(strings.ToLower(query), d.tables.Triggers)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
