// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTables reads a YAML (or JSON) tables document and compiles it on top
// of the built-in tables.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RouteError{Kind: ErrKindConfig, Message: fmt.Sprintf("read tables %s", path), Cause: err}
	}
	t, err := ParseTables(data)
	if err != nil {
		return nil, &RouteError{Kind: ErrKindConfig, Message: fmt.Sprintf("tables %s", path), Cause: err}
	}
	return t, nil
}

// ParseTables compiles a tables document. Sections absent from the document
// keep their built-in values. Keyword rows replace the built-in row for the
// same task and leave the other rows alone.
func ParseTables(data []byte) (*Tables, error) {
	spec := DefaultTableSpec()
	builtin := spec.Keywords
	spec.Keywords = nil

	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	merged, err := mergeKeywords(builtin, spec.Keywords)
	if err != nil {
		return nil, err
	}
	spec.Keywords = merged
	return NewTables(spec)
}

func mergeKeywords(base, override []KeywordEntry) ([]KeywordEntry, error) {
	seen := make(map[TaskType]bool, len(override))
	byTask := make(map[TaskType][]string, len(override))
	for _, e := range override {
		if seen[e.Task] {
			return nil, fmt.Errorf("keyword table: duplicate entry for %s", e.Task)
		}
		seen[e.Task] = true
		byTask[e.Task] = e.Keywords
	}

	out := make([]KeywordEntry, 0, len(base)+len(override))
	for _, e := range base {
		if kws, ok := byTask[e.Task]; ok {
			out = append(out, KeywordEntry{Task: e.Task, Keywords: kws})
			delete(byTask, e.Task)
			continue
		}
		out = append(out, e)
	}
	// Whatever is left names a task the built-in table lacks; NewKeywordTable
	// decides whether it is valid.
	for _, e := range override {
		if kws, ok := byTask[e.Task]; ok {
			out = append(out, KeywordEntry{Task: e.Task, Keywords: kws})
		}
	}
	return out, nil
}
