// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"
)

// ============================================================================
// TASK TYPE
// ============================================================================

// TaskType is one of the fixed categories a query is classified into.
type TaskType string

const (
	TaskCodingGeneration        TaskType = "coding_generation"
	TaskTextGeneration          TaskType = "text_generation"
	TaskMathematicalReasoning   TaskType = "mathematical_reasoning"
	TaskCommonsenseReasoning    TaskType = "commonsense_reasoning"
	TaskQuestionAnswering       TaskType = "question_answering"
	TaskDialogueSystems         TaskType = "dialogue_systems"
	TaskSummarization           TaskType = "summarization"
	TaskSentimentAnalysis       TaskType = "sentiment_analysis"
	TaskVisualQuestionAnswering TaskType = "visual_question_answering"
	TaskVideoQuestionAnswering  TaskType = "video_question_answering"

	// TaskError is reported on decisions rejected before classification.
	// It is never produced by the classifier.
	TaskError TaskType = "error"
)

// DefaultTask is returned by the keyword stage when nothing matches.
const DefaultTask = TaskDialogueSystems

// allTaskTypes is the declaration order. Keyword tie-breaks depend on it.
var allTaskTypes = [...]TaskType{
	TaskCodingGeneration,
	TaskTextGeneration,
	TaskMathematicalReasoning,
	TaskCommonsenseReasoning,
	TaskQuestionAnswering,
	TaskDialogueSystems,
	TaskSummarization,
	TaskSentimentAnalysis,
	TaskVisualQuestionAnswering,
	TaskVideoQuestionAnswering,
}

// TaskTypes returns every task type in declaration order.
func TaskTypes() []TaskType {
	out := make([]TaskType, len(allTaskTypes))
	copy(out, allTaskTypes[:])
	return out
}

// Valid reports whether t is one of the classifier's task types.
func (t TaskType) Valid() bool {
	for _, tt := range allTaskTypes {
		if tt == t {
			return true
		}
	}
	return false
}

// String returns the wire name of the task type.
func (t TaskType) String() string {
	return string(t)
}

// Label returns a short human-readable name for display.
func (t TaskType) Label() string {
	switch t {
	case TaskCodingGeneration:
		return "Coding"
	case TaskTextGeneration:
		return "Writing"
	case TaskMathematicalReasoning:
		return "Math"
	case TaskCommonsenseReasoning:
		return "Reasoning"
	case TaskQuestionAnswering:
		return "Q&A"
	case TaskDialogueSystems:
		return "Chat"
	case TaskSummarization:
		return "Summary"
	case TaskSentimentAnalysis:
		return "Sentiment"
	case TaskVisualQuestionAnswering:
		return "Vision"
	case TaskVideoQuestionAnswering:
		return "Video"
	case TaskError:
		return "Error"
	default:
		return string(t)
	}
}

// ParseTaskType converts a wire name into a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown task type %q", s)
	}
	return t, nil
}

// ============================================================================
// ERROR KINDS
// ============================================================================

// ErrorKind tags a routing or generation failure so callers can branch on
// the kind instead of parsing messages.
type ErrorKind string

const (
	// ErrKindValidation: the query was rejected before classification.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindConfig: profile or table configuration is unusable.
	ErrKindConfig ErrorKind = "config"
	// ErrKindUnmappedTask: the active profile has no model for the task.
	ErrKindUnmappedTask ErrorKind = "unmapped_task"
	// ErrKindFallbackExhausted: essential mode found no high-priority model.
	ErrKindFallbackExhausted ErrorKind = "fallback_exhausted"
	// ErrKindBackendUnavailable: the inference backend could not be reached.
	ErrKindBackendUnavailable ErrorKind = "backend_unavailable"
	// ErrKindGenerationFailure: the backend was reached but generation failed.
	ErrKindGenerationFailure ErrorKind = "generation_failure"
)

// RouteError is the tagged error carried by a RoutingDecision.
type RouteError struct {
	Kind     ErrorKind `json:"kind"`
	TaskType TaskType  `json:"task_type,omitempty"`
	Message  string    `json:"message"`
	Cause    error     `json:"-"`
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RouteError) Unwrap() error {
	return e.Cause
}

// Is matches any *RouteError of the same kind, so the sentinels below work
// with errors.Is.
func (e *RouteError) Is(target error) bool {
	t, ok := target.(*RouteError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation         = &RouteError{Kind: ErrKindValidation}
	ErrConfig             = &RouteError{Kind: ErrKindConfig}
	ErrUnmappedTask       = &RouteError{Kind: ErrKindUnmappedTask}
	ErrFallbackExhausted  = &RouteError{Kind: ErrKindFallbackExhausted}
	ErrBackendUnavailable = &RouteError{Kind: ErrKindBackendUnavailable}
	ErrGenerationFailure  = &RouteError{Kind: ErrKindGenerationFailure}
)

// KindOf returns the kind of the first RouteError in err's chain, or "" if
// there is none.
func KindOf(err error) ErrorKind {
	var re *RouteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// ============================================================================
// ROUTING DECISION
// ============================================================================

// Stage records which classifier stage produced the task type.
type Stage string

const (
	StageNone          Stage = ""
	StageDisambiguator Stage = "disambiguator"
	StageKeywords      Stage = "keywords"
)

// RoutingDecision is the result of routing one query. ModelName is empty if
// and only if Error is set.
type RoutingDecision struct {
	TaskType       TaskType    `json:"task_type"`
	ModelName      string      `json:"model_name,omitempty"`
	UsedFallback   bool        `json:"used_fallback"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
	Error          *RouteError `json:"error,omitempty"`

	// Classification details, useful for debugging tables.
	Stage      Stage   `json:"stage,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// OK reports whether a model was selected.
func (d RoutingDecision) OK() bool {
	return d.Error == nil && d.ModelName != ""
}
