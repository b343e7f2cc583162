// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// BaseName strips the tag from a model identifier ("llama3:8b" -> "llama3").
func BaseName(model string) string {
	if i := strings.IndexByte(model, ':'); i >= 0 {
		return model[:i]
	}
	return model
}

// IsInstalled reports whether model is present in installed. A model
// matches an installed name that is identical, equal to model + ":latest",
// or shares its base name.
func IsInstalled(model string, installed []string) bool {
	if model == "" {
		return false
	}
	base := BaseName(model)
	latest := model + ":latest"
	for _, name := range installed {
		if name == model || name == latest || BaseName(name) == base {
			return true
		}
	}
	return false
}

// MissingModels returns the profile's models not present in installed,
// sorted.
func MissingModels(p Profile, installed []string) []string {
	var out []string
	for _, m := range p.ModelNames() {
		if !IsInstalled(m, installed) {
			out = append(out, m)
		}
	}
	return out
}

// AllInstalled reports whether every model of p is installed. An empty
// profile never counts as installed.
func AllInstalled(p Profile, installed []string) bool {
	names := p.ModelNames()
	if len(names) == 0 {
		return false
	}
	for _, m := range names {
		if !IsInstalled(m, installed) {
			return false
		}
	}
	return true
}

// Suggest returns up to limit installed names that fuzzily resemble model,
// best match first. Used for "did you mean" hints when a model is missing.
func Suggest(model string, installed []string, limit int) []string {
	pattern := BaseName(model)
	if pattern == "" || len(installed) == 0 || limit <= 0 {
		return nil
	}
	matches := fuzzy.Find(pattern, installed)
	out := make([]string, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
