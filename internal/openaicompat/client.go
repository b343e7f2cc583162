// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openaicompat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/joat/internal/logging"
	"github.com/jeranaias/joat/internal/model"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config configures the backend.
type Config struct {
	// BaseURL is the API root, including the /v1 suffix.
	BaseURL string
	// APIKey is optional for local servers.
	APIKey string
	// Timeout bounds non-streaming requests.
	Timeout time.Duration
	// ProbeTimeout bounds CheckRunning (default: 5s).
	ProbeTimeout time.Duration

	MaxTokens   int
	Temperature float32
	TopP        float32

	Logger *slog.Logger
}

// =============================================================================
// ERRORS
// =============================================================================

// Error is a backend failure tagged with whether the server was reachable.
type Error struct {
	Op          string
	Unreachable bool
	Err         error
}

func (e *Error) Error() string {
	return "openai-compatible " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Unavailable reports whether the server could not be reached.
func (e *Error) Unavailable() bool { return e.Unreachable }

// ErrEmptyResponse is returned when a completion has no choices.
var ErrEmptyResponse = errors.New("empty response")

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		return &Error{Op: op, Unreachable: apiErr.HTTPStatusCode == http.StatusServiceUnavailable, Err: err}
	case errors.As(err, &reqErr):
		return &Error{Op: op, Unreachable: reqErr.HTTPStatusCode == http.StatusServiceUnavailable, Err: err}
	}
	var ne net.Error
	unreachable := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.As(err, &ne)
	return &Error{Op: op, Unreachable: unreachable, Err: err}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible server. Safe for concurrent use.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a client. An empty BaseURL targets a local LM Studio server.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:1234/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{}

	return &Client{
		api:    openai.NewClientWithConfig(oc),
		cfg:    cfg,
		logger: logging.OrDiscard(cfg.Logger),
	}
}

// CheckRunning probes the models endpoint.
func (c *Client) CheckRunning(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()
	_, err := c.api.ListModels(ctx)
	return wrap("probe", err)
}

// InstalledModels returns the model IDs the server reports.
func (c *Client) InstalledModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, wrap("list models", err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

// Generate runs a chat completion with history followed by query.
func (c *Client) Generate(ctx context.Context, modelName, query string, history []model.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, c.request(modelName, query, history))
	if err != nil {
		return "", wrap("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Op: "chat completion", Err: ErrEmptyResponse}
	}

	c.logger.Debug("generation complete",
		"model", modelName,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams a chat completion, calling onToken per delta.
func (c *Client) GenerateStream(ctx context.Context, modelName, query string, history []model.Message, onToken func(string)) (string, error) {
	req := c.request(modelName, query, history)
	req.Stream = true

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", wrap("chat stream", err)
	}
	defer func() { _ = stream.Close() }()

	var b strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), wrap("chat stream", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		if onToken != nil {
			onToken(delta)
		}
	}
}

func (c *Client) request(modelName, query string, history []model.Message) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    convertMessages(history, query),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
	}
}

// convertMessages maps conversation turns to chat messages and appends the
// query as the final user message.
func convertMessages(history []model.Message, query string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case model.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case model.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if query != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: query})
	}
	return out
}
