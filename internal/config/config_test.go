// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/joat/internal/router"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadTOMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, "config.toml", `
[routing]
essential_mode = true
high_priority = "allowlist"
allowlist = ["llama3", "mistral"]

[routing.fallbacks]
coding_generation = "llama3"

[generation]
temperature = 0.2
`)
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	require.True(t, cfg.Routing.EssentialMode)
	require.Equal(t, "allowlist", cfg.Routing.HighPriority)
	require.Equal(t, []string{"llama3", "mistral"}, cfg.Routing.Allowlist)
	require.Equal(t, 0.2, cfg.Generation.Temperature)

	// untouched sections keep defaults
	require.Equal(t, 1000, cfg.Generation.MaxTokens)
	require.Equal(t, "http://127.0.0.1:11434", cfg.Backend.URL)
	require.True(t, cfg.Backend.AutoPull)

	table, err := cfg.Routing.FallbackTable()
	require.NoError(t, err)
	require.Equal(t, map[router.TaskType]string{router.TaskCodingGeneration: "llama3"}, table)
}

func TestLoadAllowlistDefaultsToHighPriorityCatalog(t *testing.T) {
	path := writeFile(t, "config.toml", "[routing]\nhigh_priority = \"allowlist\"\n")
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, []string{"codellama", "llama3", "mistral", "wizard-math"}, cfg.Routing.Allowlist)
}

func TestConfidenceThresholdUnsetByDefault(t *testing.T) {
	if th := Default().Routing.ConfidenceThreshold; th != nil {
		t.Errorf("Default().Routing.ConfidenceThreshold = %v, want nil", *th)
	}

	path := writeFile(t, "config.toml", "[routing]\nconfidence_threshold = 0.5\n")
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Routing.ConfidenceThreshold)
	require.Equal(t, 0.5, *cfg.Routing.ConfidenceThreshold)
}

func TestLoadTOMLRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.toml", "[routing]\nessential = true\n")
	_, err := LoadFromPath(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "routing.essential")
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"backend": {"kind": "openai", "url": "http://localhost:1234/v1"}}`)
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, BackendOpenAI, cfg.Backend.Kind)
	require.Equal(t, 120, cfg.Backend.TimeoutSecs)
}

func TestLoadWithoutFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().Backend, cfg.Backend)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("JOAT_OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("JOAT_ESSENTIAL", "yes")
	t.Setenv("JOAT_PROFILE_FILE", "/etc/joat/profiles.yaml")
	t.Setenv("JOAT_LOG_LEVEL", "DEBUG")
	t.Setenv("JOAT_SERVER_ADDR", ":9000")
	t.Setenv("JOAT_BACKEND", "OpenAI")
	t.Setenv("JOAT_API_KEY", "sk-test")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	require.Equal(t, "http://gpu-box:11434", cfg.Backend.URL)
	require.True(t, cfg.Routing.EssentialMode)
	require.Equal(t, "/etc/joat/profiles.yaml", cfg.Profiles.File)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, BackendOpenAI, cfg.Backend.Kind)
	require.Equal(t, "sk-test", cfg.Backend.APIKey)
}

func TestEnvOverrideCanDisableEssential(t *testing.T) {
	t.Setenv("JOAT_ESSENTIAL", "0")
	cfg := Default()
	cfg.Routing.EssentialMode = true
	cfg.ApplyEnvOverrides()
	require.False(t, cfg.Routing.EssentialMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad policy", func(c *Config) { c.Routing.HighPriority = "vip" }, "routing.high_priority"},
		{"allowlist empty", func(c *Config) { c.Routing.HighPriority = "allowlist" }, "routing.allowlist"},
		{"fallback task", func(c *Config) { c.Routing.Fallbacks["cooking"] = "chef" }, "routing.fallbacks"},
		{"fallback model", func(c *Config) { c.Routing.Fallbacks["summarization"] = " " }, "routing.fallbacks"},
		{"threshold", func(c *Config) { th := 1.2; c.Routing.ConfidenceThreshold = &th }, "routing.confidence_threshold"},
		{"backend kind", func(c *Config) { c.Backend.Kind = "grpc" }, "backend.kind"},
		{"backend url empty", func(c *Config) { c.Backend.URL = "" }, "backend.url"},
		{"backend url relative", func(c *Config) { c.Backend.URL = "localhost" }, "backend.url"},
		{"timeout", func(c *Config) { c.Backend.TimeoutSecs = 0 }, "backend.timeout_seconds"},
		{"max tokens", func(c *Config) { c.Generation.MaxTokens = 0 }, "generation.max_tokens"},
		{"top_p", func(c *Config) { c.Generation.TopP = 0 }, "generation.top_p"},
		{"workers", func(c *Config) { c.Server.Workers = 0 }, "server.workers"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want ValidateErrors", err)
			}
			if !verrs.Has(tt.field) {
				t.Errorf("Validate() = %v, want error on %s", err, tt.field)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joat", "config.toml")

	cfg := Default()
	cfg.Routing.EssentialMode = true
	cfg.Routing.Fallbacks["video_question_answering"] = "llama3"
	cfg.Profiles.Active = "small_sized_models"
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Routing, loaded.Routing)
	require.Equal(t, cfg.Profiles, loaded.Profiles)

	out, err := Marshal(cfg)
	require.NoError(t, err)
	require.Contains(t, out, "essential_mode = true")
}
