// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jeranaias/joat/internal/config"
	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/ollama"
	"github.com/jeranaias/joat/internal/openaicompat"
	"github.com/jeranaias/joat/internal/router"
)

// Inference is the backend the engine generates with.
type Inference interface {
	CheckRunning(ctx context.Context) error
	InstalledModels(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, modelName, query string, history []model.Message) (string, error)
}

// Streamer is implemented by backends that can stream tokens.
type Streamer interface {
	GenerateStream(ctx context.Context, modelName, query string, history []model.Message, onToken func(string)) (string, error)
}

// Puller is implemented by backends that can install models.
type Puller interface {
	Pull(ctx context.Context, name string, progress model.ProgressFunc) error
}

// NewBackend builds the inference client named by cfg.Backend.Kind.
func NewBackend(cfg *config.Config, logger *slog.Logger) (Inference, error) {
	switch cfg.Backend.Kind {
	case config.BackendOllama:
		return ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:    cfg.Backend.URL,
			Timeout:    cfg.Backend.Timeout(),
			MaxRetries: cfg.Backend.MaxRetries,
			Options: &ollama.Options{
				NumPredict:    cfg.Generation.MaxTokens,
				Temperature:   cfg.Generation.Temperature,
				TopP:          cfg.Generation.TopP,
				RepeatPenalty: cfg.Generation.RepeatPenalty,
			},
			Logger: logger,
		}), nil
	case config.BackendOpenAI:
		return openaicompat.New(openaicompat.Config{
			BaseURL:     cfg.Backend.URL,
			APIKey:      cfg.Backend.APIKey,
			Timeout:     cfg.Backend.Timeout(),
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: float32(cfg.Generation.Temperature),
			TopP:        float32(cfg.Generation.TopP),
			Logger:      logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

// unavailable is implemented by backend errors that know whether the server
// was reachable.
type unavailable interface {
	Unavailable() bool
}

// backendError wraps an inference failure so callers see a routing-level
// kind. The backend's own error text becomes the message, unchanged.
func backendError(task router.TaskType, err error) *router.RouteError {
	var re *router.RouteError
	if errors.As(err, &re) {
		return re
	}

	var u unavailable
	if errors.As(err, &u) && u.Unavailable() {
		return &router.RouteError{
			Kind:     router.ErrKindBackendUnavailable,
			TaskType: task,
			Message:  err.Error(),
			Cause:    err,
		}
	}
	return &router.RouteError{
		Kind:     router.ErrKindGenerationFailure,
		TaskType: task,
		Message:  err.Error(),
		Cause:    err,
	}
}
