// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates joat's configuration.
//
// Supports TOML and JSON files, with defaults, environment variable
// overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (JOAT_*)
//   - the file given with --config
//   - ~/.joat/config.toml
//   - ~/.joat/config.json
//   - Built-in defaults
//
// JOAT_PROFILE is deliberately not handled here: it is the profile
// resolver's override and only applies when it names a known profile.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	table, err := cfg.Routing.FallbackTable()
package config
