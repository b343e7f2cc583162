// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jeranaias/joat/internal/router"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed validation.
func (e ValidateErrors) Has(field string) bool {
	for _, v := range e {
		if v.Field == field {
			return true
		}
	}
	return false
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the configuration and returns ValidateErrors listing
// every problem found, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Routing
	policy, err := c.Routing.Policy()
	if err != nil {
		add("routing.high_priority", "%v", err)
	}
	if policy == router.HighPriorityAllowlist && len(c.Routing.Allowlist) == 0 {
		add("routing.allowlist", "must not be empty when high_priority = %q", router.HighPriorityAllowlist)
	}
	for task, model := range c.Routing.Fallbacks {
		if _, err := router.ParseTaskType(task); err != nil {
			add("routing.fallbacks", "%v", err)
		}
		if strings.TrimSpace(model) == "" {
			add("routing.fallbacks", "empty model for %s", task)
		}
	}
	if th := c.Routing.ConfidenceThreshold; th != nil && (*th < 0 || *th > 1) {
		add("routing.confidence_threshold", "%.2f outside [0,1]", *th)
	}

	// Backend
	switch c.Backend.Kind {
	case BackendOllama, BackendOpenAI:
	default:
		add("backend.kind", "invalid kind %q, must be one of: %s, %s", c.Backend.Kind, BackendOllama, BackendOpenAI)
	}
	if c.Backend.URL == "" {
		add("backend.url", "must not be empty")
	} else if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		add("backend.url", "invalid URL %q", c.Backend.URL)
	}
	if c.Backend.TimeoutSecs <= 0 {
		add("backend.timeout_seconds", "must be positive")
	}
	if c.Backend.MaxRetries < 0 {
		add("backend.max_retries", "cannot be negative")
	}

	// Generation
	if c.Generation.MaxTokens <= 0 {
		add("generation.max_tokens", "must be positive")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		add("generation.temperature", "%.2f outside [0,2]", c.Generation.Temperature)
	}
	if c.Generation.TopP <= 0 || c.Generation.TopP > 1 {
		add("generation.top_p", "%.2f outside (0,1]", c.Generation.TopP)
	}

	// Server
	if c.Server.Workers <= 0 {
		add("server.workers", "must be positive")
	}
	if c.Server.QueueSize < 0 {
		add("server.queue_size", "cannot be negative")
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "cannot be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		add("server.max_body_bytes", "must be positive")
	}

	// Log
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		add("log.format", "invalid format %q, must be text or json", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
