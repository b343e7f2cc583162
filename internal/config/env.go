// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strings"
)

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies JOAT_* environment variables over the loaded
// values.
func (c *Config) ApplyEnvOverrides() {
	if kind := os.Getenv("JOAT_BACKEND"); kind != "" {
		c.Backend.Kind = strings.ToLower(kind)
	}
	if url := os.Getenv("JOAT_OLLAMA_URL"); url != "" {
		c.Backend.URL = url
	}
	if key := os.Getenv("JOAT_API_KEY"); key != "" {
		c.Backend.APIKey = key
	}
	if essential := os.Getenv("JOAT_ESSENTIAL"); essential != "" {
		c.Routing.EssentialMode = parseBool(essential)
	}
	if file := os.Getenv("JOAT_PROFILE_FILE"); file != "" {
		c.Profiles.File = file
	}
	if level := os.Getenv("JOAT_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if addr := os.Getenv("JOAT_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
