// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/joat/internal/logging"
	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/profile"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	BaseURL string

	// Timeout for non-streaming requests (default: 120s)
	Timeout time.Duration

	// ProbeTimeout bounds CheckRunning (default: 5s)
	ProbeTimeout time.Duration

	// MaxRetries for requests that never reached the server (default: 2)
	MaxRetries int

	// RetryDelay between retries (default: 500ms)
	RetryDelay time.Duration

	// Options are the sampling parameters sent with every generation.
	Options *Options

	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://127.0.0.1:11434",
		Timeout:      120 * time.Second,
		ProbeTimeout: 5 * time.Second,
		MaxRetries:   2,
		RetryDelay:   500 * time.Millisecond,
		Options:      DefaultOptions(),
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	client := ollama.NewClient()
//	if err := client.CheckRunning(ctx); err != nil {
//	    return err
//	}
//	text, err := client.Generate(ctx, "llama3.2:3b", "What is 2+2?", nil)
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
	logger       *slog.Logger
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
// Zero fields are filled from DefaultConfig.
func NewClientWithConfig(config *ClientConfig) *Client {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	cfg := *config

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.Options == nil {
		cfg.Options = def.Options
	}

	return &Client{
		config:     &cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		// Streams are bounded by the caller's context, not a client timeout.
		streamClient: &http.Client{},
		logger:       logging.OrDiscard(cfg.Logger),
	}
}

// Config returns a copy of the effective configuration.
func (c *Client) Config() ClientConfig {
	return *c.config
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable, bounded by ProbeTimeout.
func (c *Client) CheckRunning(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all installed models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var result ListModelsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/tags", nil, &result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

// InstalledModels returns the names of all installed models.
func (c *Client) InstalledModels(ctx context.Context) ([]string, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names, nil
}

// ModelAvailable reports whether name is installed, accepting the ":latest"
// tag and base-name matches.
func (c *Client) ModelAvailable(ctx context.Context, name string) (bool, error) {
	installed, err := c.InstalledModels(ctx)
	if err != nil {
		return false, err
	}
	return profile.IsInstalled(name, installed), nil
}

// ShowModel retrieves details about a model.
func (c *Client) ShowModel(ctx context.Context, name string) (*ShowModelResponse, error) {
	var result ShowModelResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/show", ShowModelRequest{Name: name}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate runs a non-streaming completion for query with history rendered
// into the prompt, and returns the response text.
func (c *Client) Generate(ctx context.Context, modelName, query string, history []model.Message) (string, error) {
	resp, err := c.GenerateRaw(ctx, GenerateRequest{
		Model:  modelName,
		Prompt: model.FormatPrompt(history, query),
	})
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// GenerateRaw sends a prepared request with streaming disabled. Nil options
// are replaced by the configured ones.
func (c *Client) GenerateRaw(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false
	if req.Options == nil {
		req.Options = c.config.Options
	}

	start := time.Now()
	var result GenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate", req, &result); err != nil {
		return nil, err
	}
	c.logger.Debug("generation complete",
		"model", req.Model,
		"eval_count", result.EvalCount,
		"duration", time.Since(start))
	return &result, nil
}

// GenerateStream runs a streaming completion and calls onToken for each
// token batch. It returns the accumulated response.
func (c *Client) GenerateStream(ctx context.Context, modelName, query string, history []model.Message, onToken func(string)) (string, error) {
	body := GenerateRequest{
		Model:   modelName,
		Prompt:  model.FormatPrompt(history, query),
		Stream:  true,
		Options: c.config.Options,
	}

	resp, err := c.openStream(ctx, "/api/generate", body)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	reader := NewStreamReader(resp.Body)
	err = reader.Process(ctx, func(chunk StreamChunk) {
		if onToken != nil && chunk.Content != "" {
			onToken(chunk.Content)
		}
	})
	if err != nil {
		return reader.Accumulated(), transportError(err)
	}
	return reader.Accumulated(), nil
}

// Chat sends a non-streaming chat request.
func (c *Client) Chat(ctx context.Context, modelName string, messages []Message, opts *Options) (*ChatResponse, error) {
	if opts == nil {
		opts = c.config.Options
	}
	req := ChatRequest{Model: modelName, Messages: messages, Stream: false, Options: opts}

	var result ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// PULL
// =============================================================================

// Pull downloads a model, reporting streamed progress. It succeeds only when
// the stream reports status "success".
func (c *Client) Pull(ctx context.Context, name string, progress model.ProgressFunc) error {
	resp, err := c.openStream(ctx, "/api/pull", PullRequest{Name: name, Stream: true})
	if err != nil {
		if TypeOf(err) == ErrTypeModelNotFound || TypeOf(err) == ErrTypeInvalidResponse {
			return &ClientError{Type: ErrTypePullFailed, Message: "pull " + name + " failed", Cause: err}
		}
		return err
	}
	defer drainAndClose(resp.Body)

	c.logger.Info("pulling model", "model", name)
	dec := newLineDecoder(resp.Body)
	for {
		var line pullLine
		if err := dec.next(ctx, &line); err != nil {
			if err == io.EOF {
				return &ClientError{Type: ErrTypePullFailed, Message: "pull " + name + " ended before success"}
			}
			return transportError(err)
		}
		if line.Error != "" {
			return &ClientError{Type: ErrTypePullFailed, Message: "pull " + name + ": " + line.Error}
		}
		if progress != nil {
			progress(model.PullProgress{
				Model:     name,
				Status:    line.Status,
				Digest:    line.Digest,
				Total:     line.Total,
				Completed: line.Completed,
			})
		}
		if line.Status == "success" {
			c.logger.Info("model pulled", "model", name)
			return nil
		}
	}
}

// =============================================================================
// TRANSPORT
// =============================================================================

// doJSON performs a request and decodes a JSON response, retrying only when
// the server could not be reached.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return transportError(ctx.Err())
			case <-time.After(c.config.RetryDelay):
			}
			c.logger.Debug("retrying ollama request", "path", path, "attempt", attempt)
		}

		lastErr = c.doOnce(ctx, c.httpClient, method, path, payload, out)
		if lastErr == nil || TypeOf(lastErr) != ErrTypeNotRunning || ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, hc *http.Client, method, path string, payload []byte, out any) error {
	resp, err := c.send(ctx, hc, method, path, payload)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// openStream posts body and returns the open response for line decoding.
func (c *Client) openStream(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}
	return c.send(ctx, c.streamClient, http.MethodPost, path, payload)
}

// send issues the request and converts non-200 responses to ClientErrors.
// On success the caller owns the response body.
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, payload []byte) (*http.Response, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, rdr)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer drainAndClose(resp.Body)

	msg := path + " failed: " + resp.Status
	var ollamaErr OllamaError
	if err := json.NewDecoder(resp.Body).Decode(&ollamaErr); err == nil && ollamaErr.Error != "" {
		msg = ollamaErr.Error
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &ClientError{Type: ErrTypeModelNotFound, Message: msg}
	}
	return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: msg}
}

// drainAndClose drains and closes a response body so the connection can be reused.
func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	_ = r.Close()
}
