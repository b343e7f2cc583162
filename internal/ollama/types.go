// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/joat/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message is a chat message in the /api/chat wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesFrom converts conversation turns to the chat wire format.
// Empty turns are skipped.
func MessagesFrom(turns []model.Message) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		if t.Content == "" {
			continue
		}
		out = append(out, Message{Role: t.Role.String(), Content: t.Content})
	}
	return out
}

// Options are the sampling parameters sent with a request.
type Options struct {
	NumPredict    int      `json:"num_predict,omitempty"`
	Temperature   float64  `json:"temperature,omitempty"`
	TopP          float64  `json:"top_p,omitempty"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

// DefaultOptions returns the sampling defaults used when none are configured.
func DefaultOptions() *Options {
	return &Options{
		NumPredict:    1000,
		Temperature:   0.7,
		TopP:          0.9,
		RepeatPenalty: 1.1,
	}
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	System  string   `json:"system,omitempty"`
	Options *Options `json:"options,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// PullRequest is the body of POST /api/pull.
type PullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// ShowModelRequest is the body of POST /api/show.
type ShowModelRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is a complete or streamed /api/generate response.
type GenerateResponse struct {
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
	Response        string    `json:"response"`
	Done            bool      `json:"done"`
	DoneReason      string    `json:"done_reason,omitempty"`
	TotalDuration   int64     `json:"total_duration,omitempty"`
	PromptEvalCount int       `json:"prompt_eval_count,omitempty"`
	EvalCount       int       `json:"eval_count,omitempty"`
	EvalDuration    int64     `json:"eval_duration,omitempty"`
}

// TokensPerSecond returns the generation speed, or 0 when unknown.
func (r *GenerateResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	return float64(r.EvalCount) / (float64(r.EvalDuration) / 1e9)
}

// ChatResponse is a complete /api/chat response.
type ChatResponse struct {
	Model         string    `json:"model"`
	CreatedAt     time.Time `json:"created_at"`
	Message       Message   `json:"message"`
	Done          bool      `json:"done"`
	DoneReason    string    `json:"done_reason,omitempty"`
	TotalDuration int64     `json:"total_duration,omitempty"`
	EvalCount     int       `json:"eval_count,omitempty"`
}

// ModelInfo describes an installed model as listed by /api/tags.
type ModelInfo struct {
	Name       string       `json:"name"`
	Model      string       `json:"model,omitempty"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// FormatSize returns the on-disk size in human units.
func (m *ModelInfo) FormatSize() string {
	return humanize.IBytes(uint64(m.Size))
}

// ModelDetails holds model metadata reported by Ollama.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the /api/tags response.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ShowModelResponse is the /api/show response.
type ShowModelResponse struct {
	License    string       `json:"license"`
	Modelfile  string       `json:"modelfile"`
	Parameters string       `json:"parameters"`
	Template   string       `json:"template"`
	Details    ModelDetails `json:"details"`
}

// pullLine is one NDJSON line of a streamed /api/pull response.
type pullLine struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// OllamaError is the error body Ollama returns on failure.
type OllamaError struct {
	Error string `json:"error"`
}

// StreamChunk is one token batch of a streamed generation.
type StreamChunk struct {
	Content    string
	Done       bool
	DoneReason string
	Model      string

	TotalDuration    time.Duration
	CompletionTokens int
}

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)
