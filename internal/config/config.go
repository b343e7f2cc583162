// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/joat/internal/router"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete joat configuration.
type Config struct {
	Version    string           `toml:"version" json:"version"`
	Profiles   ProfilesConfig   `toml:"profiles" json:"profiles"`
	Routing    RoutingConfig    `toml:"routing" json:"routing"`
	Backend    BackendConfig    `toml:"backend" json:"backend"`
	Generation GenerationConfig `toml:"generation" json:"generation"`
	Server     ServerConfig     `toml:"server" json:"server"`
	Log        LogConfig        `toml:"log" json:"log"`
}

// ProfilesConfig selects the profile document and the active profile.
type ProfilesConfig struct {
	// File is the profile document; empty uses the built-in one.
	File string `toml:"file" json:"file"`
	// Active names the profile explicitly, skipping env and auto-detection.
	Active string `toml:"active" json:"active"`
	// EnvVar is the override variable consulted by the resolver.
	EnvVar string `toml:"env_var" json:"env_var"`
}

// RoutingConfig contains classification and essential-mode settings.
type RoutingConfig struct {
	EssentialMode bool              `toml:"essential_mode" json:"essential_mode"`
	HighPriority  string            `toml:"high_priority" json:"high_priority"`
	Allowlist     []string          `toml:"allowlist" json:"allowlist"`
	Fallbacks     map[string]string `toml:"fallbacks" json:"fallbacks"`
	// ConfidenceThreshold overrides the tables threshold when set.
	ConfidenceThreshold *float64 `toml:"confidence_threshold,omitempty" json:"confidence_threshold,omitempty"`
	// TablesFile optionally replaces parts of the classification tables.
	TablesFile string `toml:"tables_file" json:"tables_file"`
}

// BackendConfig selects and configures the inference backend.
type BackendConfig struct {
	// Kind is "ollama" or "openai" (any OpenAI-compatible server).
	Kind        string `toml:"kind" json:"kind"`
	URL         string `toml:"url" json:"url"`
	APIKey      string `toml:"api_key" json:"api_key,omitempty"`
	TimeoutSecs int    `toml:"timeout_seconds" json:"timeout_seconds"`
	MaxRetries  int    `toml:"max_retries" json:"max_retries"`
	// AutoPull installs a missing model before generating with it.
	AutoPull bool `toml:"auto_pull" json:"auto_pull"`
}

// GenerationConfig holds sampling options sent with every request.
type GenerationConfig struct {
	MaxTokens     int     `toml:"max_tokens" json:"max_tokens"`
	Temperature   float64 `toml:"temperature" json:"temperature"`
	TopP          float64 `toml:"top_p" json:"top_p"`
	RepeatPenalty float64 `toml:"repeat_penalty" json:"repeat_penalty"`
}

// ServerConfig configures `joat serve`.
type ServerConfig struct {
	Addr         string  `toml:"addr" json:"addr"`
	Workers      int     `toml:"workers" json:"workers"`
	QueueSize    int     `toml:"queue_size" json:"queue_size"`
	RateLimit    float64 `toml:"rate_limit" json:"rate_limit"`
	MaxBodyBytes int64   `toml:"max_body_bytes" json:"max_body_bytes"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

// Backend kinds.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// CurrentVersion is written into new configuration files.
const CurrentVersion = "1"

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Profiles: ProfilesConfig{
			EnvVar: "JOAT_PROFILE",
		},
		Routing: RoutingConfig{
			HighPriority: string(router.HighPriorityProfile),
			Fallbacks:    map[string]string{},
		},
		Backend: BackendConfig{
			Kind:        BackendOllama,
			URL:         "http://127.0.0.1:11434",
			TimeoutSecs: 120,
			MaxRetries:  2,
			AutoPull:    true,
		},
		Generation: GenerationConfig{
			MaxTokens:     1000,
			Temperature:   0.7,
			TopP:          0.9,
			RepeatPenalty: 1.1,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8088",
			Workers:      4,
			QueueSize:    64,
			RateLimit:    10,
			MaxBodyBytes: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Timeout returns the backend timeout as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// Policy parses the high-priority policy name.
func (r RoutingConfig) Policy() (router.HighPriorityPolicy, error) {
	return router.ParseHighPriorityPolicy(r.HighPriority)
}

// FallbackTable converts the configured fallbacks into a task-keyed map.
func (r RoutingConfig) FallbackTable() (map[router.TaskType]string, error) {
	out := make(map[router.TaskType]string, len(r.Fallbacks))
	for k, v := range r.Fallbacks {
		task, err := router.ParseTaskType(k)
		if err != nil {
			return nil, fmt.Errorf("routing.fallbacks: %w", err)
		}
		out[task] = v
	}
	return out, nil
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the joat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".joat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}
