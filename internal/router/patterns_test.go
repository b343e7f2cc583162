// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndicatorSetScore(t *testing.T) {
	set, err := CompileIndicators("test", IndicatorSpec{
		Strong: []string{`foo`},
		Medium: []string{`bar`},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  float64
	}{
		{"no match", "nothing here", 0},
		{"empty", "", 0},
		{"strong once", "foo", 3.0},
		{"medium once", "bar", 1.5},
		{"case insensitive", "Foo FOO BAR", 7.5},
		{"counts every match", "foo foo foo", 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.Score(tt.query); got != tt.want {
				t.Errorf("Score(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestIndicatorSetNonOverlapping(t *testing.T) {
	set, err := CompileIndicators("test", IndicatorSpec{Strong: []string{`aa`}})
	require.NoError(t, err)

	// "aaaaa" holds two non-overlapping matches, not four.
	if got := set.Score("aaaaa"); got != 6.0 {
		t.Errorf("Score = %v, want 6", got)
	}
}

func TestIndicatorSetNil(t *testing.T) {
	var set *IndicatorSet
	if got := set.Score("anything"); got != 0 {
		t.Errorf("nil set Score = %v, want 0", got)
	}
}

func TestCompileIndicatorsRejectsBadPattern(t *testing.T) {
	_, err := CompileIndicators("math", IndicatorSpec{Medium: []string{`(unclosed`}})
	if err == nil {
		t.Fatal("expected compile error")
	}
}

func TestDefaultIndicators(t *testing.T) {
	tables := DefaultTables()

	tests := []struct {
		name  string
		set   *IndicatorSet
		query string
		want  float64
	}{
		{"math equation and equals sign", tables.Math, "Solve the equation: 3x + 7 = 22", 6.0},
		{"math arithmetic", tables.Math, "12 * 4", 3.0},
		{"math medium verb", tables.Math, "please calculate it", 1.5},
		{"coding function", tables.Coding, "a python function", 3.0},
		{"coding upper-case API matches", tables.Coding, "call the api", 3.0},
		{"coding nothing", tables.Coding, "Solve the equation: 3x + 7 = 22", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Score(tt.query); got != tt.want {
				t.Errorf("%s.Score(%q) = %v, want %v", tt.set.Name(), tt.query, got, tt.want)
			}
		})
	}
}

func TestScoreDoesNotDependOnHistory(t *testing.T) {
	tables := DefaultTables()
	q := "calculate the derivative of sin(x)"
	first := tables.Math.Score(q)
	for i := 0; i < 10; i++ {
		if got := tables.Math.Score(q); got != first {
			t.Fatalf("run %d: Score = %v, want %v", i, got, first)
		}
	}
}
