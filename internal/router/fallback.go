// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"sort"
)

// ============================================================================
// HIGH-PRIORITY POLICY
// ============================================================================

// HighPriorityPolicy selects how the essential-mode model set is derived.
type HighPriorityPolicy string

const (
	// HighPriorityProfile treats every model in the active profile as
	// high-priority.
	HighPriorityProfile HighPriorityPolicy = "profile"
	// HighPriorityAllowlist keeps only the active profile's models that also
	// appear on an allow-list.
	HighPriorityAllowlist HighPriorityPolicy = "allowlist"
)

// ParseHighPriorityPolicy parses a policy name. Empty means profile.
func ParseHighPriorityPolicy(s string) (HighPriorityPolicy, error) {
	switch HighPriorityPolicy(s) {
	case "", HighPriorityProfile:
		return HighPriorityProfile, nil
	case HighPriorityAllowlist:
		return HighPriorityAllowlist, nil
	default:
		return "", fmt.Errorf("unknown high-priority policy %q (want %q or %q)", s, HighPriorityProfile, HighPriorityAllowlist)
	}
}

// HighPriorityModels derives the high-priority model set for a profile.
// The result is sorted and free of duplicates.
func HighPriorityModels(policy HighPriorityPolicy, profile map[TaskType]string, allowlist []string) []string {
	allowed := make(map[string]bool, len(allowlist))
	for _, m := range allowlist {
		allowed[m] = true
	}

	seen := make(map[string]bool, len(profile))
	out := make([]string, 0, len(profile))
	for _, m := range profile {
		if m == "" || seen[m] {
			continue
		}
		if policy == HighPriorityAllowlist && !allowed[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// ============================================================================
// FALLBACK POLICY
// ============================================================================

// Resolution is the outcome of resolving a model for a task. Model is empty
// if and only if Err is set.
type Resolution struct {
	Model        string
	UsedFallback bool
	Reason       string
	Err          *RouteError
}

// FallbackPolicy maps a task to a model through the active profile and, in
// essential mode, restricts the choice to high-priority models.
type FallbackPolicy struct {
	profile      map[TaskType]string
	highPriority map[string]struct{}
	fallbacks    map[TaskType]string
}

// NewFallbackPolicy copies its inputs; later changes by the caller have no
// effect on the policy.
func NewFallbackPolicy(profile map[TaskType]string, highPriority []string, fallbacks map[TaskType]string) *FallbackPolicy {
	p := &FallbackPolicy{
		profile:      make(map[TaskType]string, len(profile)),
		highPriority: make(map[string]struct{}, len(highPriority)),
		fallbacks:    make(map[TaskType]string, len(fallbacks)),
	}
	for k, v := range profile {
		p.profile[k] = v
	}
	for _, m := range highPriority {
		p.highPriority[m] = struct{}{}
	}
	for k, v := range fallbacks {
		p.fallbacks[k] = v
	}
	return p
}

// IsHighPriority reports whether model may be used in essential mode.
func (p *FallbackPolicy) IsHighPriority(model string) bool {
	if model == "" {
		return false
	}
	_, ok := p.highPriority[model]
	return ok
}

// ModelFor returns the profile's model for task.
func (p *FallbackPolicy) ModelFor(task TaskType) (string, bool) {
	m, ok := p.profile[task]
	return m, ok && m != ""
}

// HighPriority returns the high-priority set, sorted.
func (p *FallbackPolicy) HighPriority() []string {
	out := make([]string, 0, len(p.highPriority))
	for m := range p.highPriority {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// UsableFallbacks returns the fallback entries whose target is high-priority.
func (p *FallbackPolicy) UsableFallbacks() map[TaskType]string {
	out := make(map[TaskType]string)
	for t, m := range p.fallbacks {
		if p.IsHighPriority(m) {
			out[t] = m
		}
	}
	return out
}

// ResolveModel selects the model for task. Outside essential mode this is a
// plain profile lookup. In essential mode a model that is not high-priority
// is replaced by the task's fallback, provided the fallback is itself
// high-priority.
func (p *FallbackPolicy) ResolveModel(task TaskType, essential bool) Resolution {
	primary, mapped := p.ModelFor(task)

	if essential && !p.IsHighPriority(primary) {
		fb, ok := p.fallbacks[task]
		if !ok || !p.IsHighPriority(fb) {
			return Resolution{Err: &RouteError{
				Kind:     ErrKindFallbackExhausted,
				TaskType: task,
				Message: fmt.Sprintf("essential mode: no high-priority model available for task type %q; "+
					"install a suitable model or disable essential mode", task),
			}}
		}
		from := primary
		if !mapped {
			from = "<unmapped>"
		}
		return Resolution{
			Model:        fb,
			UsedFallback: true,
			Reason: fmt.Sprintf("essential mode: falling back from %q to high-priority model %q for task %q",
				from, fb, task),
		}
	}

	if !mapped {
		return Resolution{Err: &RouteError{
			Kind:     ErrKindUnmappedTask,
			TaskType: task,
			Message:  fmt.Sprintf("no model configured for task type %q", task),
		}}
	}
	return Resolution{Model: primary}
}
