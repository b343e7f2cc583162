// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"regexp"
)

// ============================================================================
// PATTERN SCORER
// ============================================================================

// weightedPattern is one compiled indicator.
type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
}

// IndicatorSet is the compiled, weighted indicator list for one domain.
// It is immutable after CompileIndicators returns.
type IndicatorSet struct {
	name     string
	patterns []weightedPattern
}

// CompileIndicators compiles every pattern in spec case-insensitively.
func CompileIndicators(name string, spec IndicatorSpec) (*IndicatorSet, error) {
	set := &IndicatorSet{
		name:     name,
		patterns: make([]weightedPattern, 0, len(spec.Strong)+len(spec.Medium)),
	}
	add := func(tier string, exprs []string, weight float64) error {
		for _, expr := range exprs {
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				return fmt.Errorf("%s %s indicator %q: %w", name, tier, expr, err)
			}
			set.patterns = append(set.patterns, weightedPattern{re: re, weight: weight})
		}
		return nil
	}
	if err := add("strong", spec.Strong, StrongWeight); err != nil {
		return nil, err
	}
	if err := add("medium", spec.Medium, MediumWeight); err != nil {
		return nil, err
	}
	return set, nil
}

// Name returns the domain name given at compile time.
func (s *IndicatorSet) Name() string {
	return s.name
}

// Len returns the number of patterns in the set.
func (s *IndicatorSet) Len() int {
	return len(s.patterns)
}

// Score sums, over every pattern, the number of non-overlapping matches in
// query multiplied by the pattern's tier weight. A nil set scores zero.
func (s *IndicatorSet) Score(query string) float64 {
	if s == nil || query == "" {
		return 0
	}
	var score float64
	for _, p := range s.patterns {
		if n := len(p.re.FindAllStringIndex(query, -1)); n > 0 {
			score += float64(n) * p.weight
		}
	}
	return score
}
