// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile loads task-to-model profiles and picks the active one.
//
// A profile document has one top-level key per profile name; each value maps
// task type names to model identifiers:
//
//	{
//	  "small_sized_models":   {"coding_generation": "qwen2.5-coder:1.5b", ...},
//	  "regular_sized_models": {"coding_generation": "codellama", ...}
//	}
//
// JSON, YAML and TOML documents are accepted. The Resolver selects the
// active profile once, from an explicit name, the JOAT_PROFILE environment
// variable, or by checking which models the backend has installed.
package profile
