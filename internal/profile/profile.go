// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/joat/internal/router"
)

// Well-known profile names.
const (
	Small   = "small_sized_models"
	Regular = "regular_sized_models"
)

//go:embed models_mapping.json
var defaultDocument []byte

// ============================================================================
// ERRORS
// ============================================================================

// ConfigError reports an unusable profile document or profile name.
// It matches router.ErrConfig under errors.Is.
type ConfigError struct {
	Path    string
	Profile string
	Reason  string
	Err     error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("profile config")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Profile != "" {
		fmt.Fprintf(&b, " [%s]", e.Profile)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is lets callers test for the config error kind without importing this
// package.
func (e *ConfigError) Is(target error) bool {
	return router.KindOf(target) == router.ErrKindConfig
}

// ============================================================================
// PROFILE
// ============================================================================

// Profile is a named task-to-model mapping.
type Profile struct {
	Name   string
	Models map[router.TaskType]string
}

// Model returns the model for task.
func (p Profile) Model(task router.TaskType) (string, bool) {
	m, ok := p.Models[task]
	return m, ok && m != ""
}

// ModelNames returns the distinct models of the profile, sorted.
func (p Profile) ModelNames() []string {
	seen := make(map[string]bool, len(p.Models))
	out := make([]string, 0, len(p.Models))
	for _, m := range p.Models {
		if m != "" && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// Unmapped returns, in declaration order, the task types without a model.
func (p Profile) Unmapped() []router.TaskType {
	var out []router.TaskType
	for _, t := range router.TaskTypes() {
		if _, ok := p.Model(t); !ok {
			out = append(out, t)
		}
	}
	return out
}

// Mapping returns a copy of the task-to-model map.
func (p Profile) Mapping() map[router.TaskType]string {
	out := make(map[router.TaskType]string, len(p.Models))
	for k, v := range p.Models {
		out[k] = v
	}
	return out
}

// ============================================================================
// DOCUMENT
// ============================================================================

// Format is a profile document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension. Unknown extensions
// are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Document is a parsed set of profiles.
type Document struct {
	Path     string
	profiles map[string]Profile
}

// Load reads and validates the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		reason := "unreadable"
		if os.IsNotExist(err) {
			reason = "file not found"
		}
		return nil, &ConfigError{Path: path, Reason: reason, Err: err}
	}
	doc, err := Parse(data, FormatFromPath(path))
	if err != nil {
		if ce, ok := err.(*ConfigError); ok {
			ce.Path = path
		}
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// Default returns the built-in document.
func Default() *Document {
	doc, err := Parse(defaultDocument, FormatJSON)
	if err != nil {
		panic(fmt.Sprintf("profile: built-in document: %v", err))
	}
	doc.Path = "<built-in>"
	return doc
}

// Parse decodes and validates a document.
func Parse(data []byte, format Format) (*Document, error) {
	raw := make(map[string]any)
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		_, err = toml.Decode(string(data), &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("malformed %s", format), Err: err}
	}
	if len(raw) == 0 {
		return nil, &ConfigError{Reason: "no profiles defined"}
	}

	doc := &Document{profiles: make(map[string]Profile, len(raw))}
	for name, value := range raw {
		p, err := toProfile(name, value)
		if err != nil {
			return nil, err
		}
		doc.profiles[name] = p
	}
	return doc, nil
}

func toProfile(name string, value any) (Profile, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return Profile{}, &ConfigError{Profile: name, Reason: "profile must be an object of task to model pairs"}
	}
	p := Profile{Name: name, Models: make(map[router.TaskType]string, len(obj))}
	for key, v := range obj {
		task, err := router.ParseTaskType(key)
		if err != nil {
			return Profile{}, &ConfigError{Profile: name, Reason: "invalid task", Err: err}
		}
		model, ok := v.(string)
		if !ok {
			return Profile{}, &ConfigError{Profile: name, Reason: fmt.Sprintf("model for %s must be a string, got %T", key, v)}
		}
		p.Models[task] = strings.TrimSpace(model)
	}
	return p, nil
}

// Names returns the profile names, sorted.
func (d *Document) Names() []string {
	out := make([]string, 0, len(d.profiles))
	for name := range d.profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the document defines name.
func (d *Document) Has(name string) bool {
	_, ok := d.profiles[name]
	return ok
}

// Get returns the named profile. A missing name is a configuration error.
func (d *Document) Get(name string) (Profile, error) {
	p, ok := d.profiles[name]
	if !ok {
		return Profile{}, &ConfigError{
			Path:    d.Path,
			Profile: name,
			Reason:  fmt.Sprintf("profile not found (known: %s)", strings.Join(d.Names(), ", ")),
		}
	}
	return Profile{Name: p.Name, Models: p.Mapping()}, nil
}
