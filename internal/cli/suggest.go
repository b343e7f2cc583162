// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - "Did you mean" for mistyped commands.

package cli

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// commandNames lists every command and alias accepted by Parse.
var commandNames = []string{
	"ask", "chat", "route", "status", "profiles", "setup", "serve", "tui",
	"config", "version", "help", "test-models",
	"s", "q", "profile", "test",
}

// SuggestCommand returns the closest command to input, or "" when nothing
// is close. Typos are matched by edit distance; abbreviations ("stat",
// "prof") by fuzzy subsequence.
func SuggestCommand(input string) string {
	input = strings.ToLower(input)
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}

	best, bestDistance := "", -1
	for _, cmd := range commandNames {
		d := levenshteinDistance(input, cmd)
		if d == 0 {
			return ""
		}
		if d <= maxDistance && (bestDistance == -1 || d < bestDistance) {
			best, bestDistance = cmd, d
		}
	}
	if best != "" {
		return best
	}

	if matches := fuzzy.Find(input, commandNames); len(matches) > 0 {
		return matches[0].Str
	}
	return ""
}

// levenshteinDistance is the single-character edit distance between s1
// and s2, computed with two rolling rows.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	cols := len(s2) + 1
	prev := make([]int, cols)
	curr := make([]int, cols)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j < cols; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[cols-1]
}
