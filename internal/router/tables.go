// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"strings"
)

// ============================================================================
// TABLE DEFINITIONS
// ============================================================================

// Tier weights for indicator matches.
const (
	StrongWeight = 3.0
	MediumWeight = 1.5
)

// Defaults for the disambiguation stage.
const (
	DefaultClueBonus           = 2.0
	DefaultSolveBonus          = 1.5
	DefaultConfidenceThreshold = 0.3
)

// IndicatorSpec lists the regular expressions for one domain, split into
// tiers. Patterns are matched case-insensitively.
type IndicatorSpec struct {
	Strong []string `yaml:"strong" json:"strong"`
	Medium []string `yaml:"medium" json:"medium"`
}

// SolveRule adjusts scores for the verb that is equally at home in both
// domains. Math context is checked first; coding context only applies when
// no math context was found.
type SolveRule struct {
	Token         string   `yaml:"token" json:"token"`
	MathContext   []string `yaml:"math_context" json:"math_context"`
	CodingContext []string `yaml:"coding_context" json:"coding_context"`
	Bonus         float64  `yaml:"bonus" json:"bonus"`
}

// KeywordEntry is one row of the keyword table.
type KeywordEntry struct {
	Task     TaskType `yaml:"task" json:"task"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// TableSpec is the uncompiled form of every classification table. It is the
// shape of an external tables document.
type TableSpec struct {
	MathIndicators   IndicatorSpec  `yaml:"math_indicators" json:"math_indicators"`
	CodingIndicators IndicatorSpec  `yaml:"coding_indicators" json:"coding_indicators"`
	MathClues        []string       `yaml:"math_clues" json:"math_clues"`
	CodingClues      []string       `yaml:"coding_clues" json:"coding_clues"`
	ClueBonus        float64        `yaml:"clue_bonus" json:"clue_bonus"`
	Solve            SolveRule      `yaml:"solve" json:"solve"`
	Triggers         []string       `yaml:"triggers" json:"triggers"`
	Keywords         []KeywordEntry `yaml:"keywords" json:"keywords"`
	Threshold        float64        `yaml:"confidence_threshold" json:"confidence_threshold"`
}

// Tables is the compiled, read-only form of a TableSpec. Build it once and
// share it between classifiers.
type Tables struct {
	Math      *IndicatorSet
	Coding    *IndicatorSet
	Keywords  *KeywordTable
	Triggers  []string
	Threshold float64

	mathClues   []string
	codingClues []string
	clueBonus   float64
	solve       SolveRule
}

// NewTables validates and compiles spec.
func NewTables(spec TableSpec) (*Tables, error) {
	mathSet, err := CompileIndicators("math", spec.MathIndicators)
	if err != nil {
		return nil, err
	}
	codingSet, err := CompileIndicators("coding", spec.CodingIndicators)
	if err != nil {
		return nil, err
	}
	keywords, err := NewKeywordTable(spec.Keywords)
	if err != nil {
		return nil, err
	}
	if spec.Threshold < 0 || spec.Threshold > 1 {
		return nil, fmt.Errorf("confidence threshold %.2f outside [0,1]", spec.Threshold)
	}
	if spec.ClueBonus < 0 || spec.Solve.Bonus < 0 {
		return nil, fmt.Errorf("bonuses must not be negative")
	}

	return &Tables{
		Math:        mathSet,
		Coding:      codingSet,
		Keywords:    keywords,
		Triggers:    lowerAll(spec.Triggers),
		Threshold:   spec.Threshold,
		mathClues:   lowerAll(spec.MathClues),
		codingClues: lowerAll(spec.CodingClues),
		clueBonus:   spec.ClueBonus,
		solve: SolveRule{
			Token:         strings.ToLower(spec.Solve.Token),
			MathContext:   lowerAll(spec.Solve.MathContext),
			CodingContext: lowerAll(spec.Solve.CodingContext),
			Bonus:         spec.Solve.Bonus,
		},
	}, nil
}

// DefaultTables compiles DefaultTableSpec. The built-in patterns are known
// to compile, so a failure here is a programming error.
func DefaultTables() *Tables {
	t, err := NewTables(DefaultTableSpec())
	if err != nil {
		panic(fmt.Sprintf("router: default tables: %v", err))
	}
	return t
}

// WithThreshold returns a copy of t that uses th as the confidence
// threshold. The compiled pattern sets are shared.
func (t *Tables) WithThreshold(th float64) (*Tables, error) {
	if th < 0 || th > 1 {
		return nil, fmt.Errorf("confidence threshold %.2f outside [0,1]", th)
	}
	c := *t
	c.Threshold = th
	return &c, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ============================================================================
// BUILT-IN TABLES
// ============================================================================

// DefaultTableSpec returns a fresh copy of the built-in tables.
func DefaultTableSpec() TableSpec {
	return TableSpec{
		MathIndicators: IndicatorSpec{
			Strong: []string{
				`\b\d+\s*[\+\-\*/\^]\s*\d+`,
				`\b(?:sin|cos|tan|log|ln|sqrt|integral|derivative)\b`,
				`\b(?:equation|formula|theorem|proof|algebra|calculus|geometry|statistics)\b`,
				`\b(?:solve for [a-z]|find [a-z]|what is [a-z])\b`,
				`\b(?:degrees|radians|percentage|probability)\b`,
				`[=<>≤≥≠±∞π∑∏∫]`,
			},
			Medium: []string{
				`\b(?:calculate|compute|evaluate|simplify|factor)\b`,
				`\b(?:number|value|result|answer)\s+(?:of|is|equals)\b`,
				`\b(?:math|mathematics|mathematical)\b`,
			},
		},
		CodingIndicators: IndicatorSpec{
			Strong: []string{
				`\b(?:def|class|import|from|return|if|else|elif|for|while|try|except)\b`,
				`\b(?:function|variable|array|object|string|boolean|integer)\b`,
				`\b(?:debug|compile|run|execute|script|program|code)\b`,
				`\b(?:API|database|server|client|web|framework)\b`,
				`[\{\}\[\]();<>].*[\{\}\[\]();]`,
				`\b(?:\.py|\.js|\.java|\.cpp|\.html|\.css)\b`,
			},
			Medium: []string{
				`\b(?:algorithm|data structure|loop|recursion|iteration)\b`,
				`\b(?:implement|develop|build|create)\s+(?:a|an|the)?\s*(?:program|function|class|script)\b`,
				`\b(?:programming|coding|software|development)\b`,
			},
		},
		MathClues:   []string{"equation", "derivative", "integral", "theorem"},
		CodingClues: []string{"function", "class", "import", "debug"},
		ClueBonus:   DefaultClueBonus,
		Solve: SolveRule{
			Token:         "solve",
			MathContext:   []string{"for x", "for y", "equation", "formula"},
			CodingContext: []string{"problem", "challenge", "leetcode", "algorithm"},
			Bonus:         DefaultSolveBonus,
		},
		Triggers:  []string{"solve", "algorithm", "problem", "calculate", "compute"},
		Keywords:  defaultKeywords(),
		Threshold: DefaultConfidenceThreshold,
	}
}

func defaultKeywords() []KeywordEntry {
	return []KeywordEntry{
		{TaskCodingGeneration, []string{
			"code", "program", "function", "class", "algorithm", "debug", "fix",
			"implement", "create a script", "write code", "coding", "programming",
			"software", "development",
		}},
		{TaskTextGeneration, []string{
			"write", "generate", "create text", "story", "article", "essay",
			"content", "compose", "draft", "text generation", "creative writing",
		}},
		{TaskMathematicalReasoning, []string{
			"solve", "calculate", "math", "mathematics", "equation", "formula",
			"problem", "arithmetic", "algebra", "geometry", "statistics", "probability",
		}},
		{TaskCommonsenseReasoning, []string{
			"why", "how", "explain", "reason", "logic", "common sense",
			"understanding", "concept", "principle", "theory", "reasoning",
		}},
		{TaskQuestionAnswering, []string{
			"what is", "who is", "where is", "when", "which", "answer", "question",
			"information", "fact", "knowledge", "definition",
		}},
		{TaskDialogueSystems, []string{
			"chat", "conversation", "talk", "discuss", "opinion", "advice", "help",
			"conversational", "interactive", "dialogue",
		}},
		{TaskSummarization, []string{
			"summarize", "summary", "brief", "overview", "condense", "extract",
			"key points", "main points", "gist",
		}},
		{TaskSentimentAnalysis, []string{
			"sentiment", "emotion", "feeling", "mood", "tone", "attitude", "opinion",
			"positive", "negative", "neutral", "analyze sentiment",
		}},
		{TaskVisualQuestionAnswering, []string{
			"image", "picture", "photo", "visual", "see", "look at", "describe image",
			"what do you see", "image analysis", "computer vision",
		}},
		{TaskVideoQuestionAnswering, []string{
			"video", "movie", "clip", "footage", "motion", "action", "scene",
			"video analysis", "what happens in", "describe video",
		}},
	}
}
