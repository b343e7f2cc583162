// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ============================================================================
// ROUTING STATISTICS
// ============================================================================

// Stats tracks cumulative routing statistics. Safe for concurrent use.
type Stats struct {
	mu sync.RWMutex

	total     int
	fallbacks int
	byTask    map[TaskType]int
	byStage   map[Stage]int
	errors    map[ErrorKind]int
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	TotalQueries int               `json:"total_queries"`
	Fallbacks    int               `json:"fallbacks"`
	ByTask       map[TaskType]int  `json:"by_task"`
	ByStage      map[Stage]int     `json:"by_stage"`
	Errors       map[ErrorKind]int `json:"errors"`
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	s := &Stats{}
	s.resetLocked()
	return s
}

func (s *Stats) resetLocked() {
	s.total = 0
	s.fallbacks = 0
	s.byTask = make(map[TaskType]int)
	s.byStage = make(map[Stage]int)
	s.errors = make(map[ErrorKind]int)
}

// Record counts one routing decision.
func (s *Stats) Record(d RoutingDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.byTask[d.TaskType]++
	if d.Stage != StageNone {
		s.byStage[d.Stage]++
	}
	if d.UsedFallback {
		s.fallbacks++
	}
	if d.Error != nil {
		s.errors[d.Error.Kind]++
	}
}

// RecordError counts a failure that happened after routing, such as a
// generation error from the backend.
func (s *Stats) RecordError(kind ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[kind]++
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatsSnapshot{
		TotalQueries: s.total,
		Fallbacks:    s.fallbacks,
		ByTask:       make(map[TaskType]int, len(s.byTask)),
		ByStage:      make(map[Stage]int, len(s.byStage)),
		Errors:       make(map[ErrorKind]int, len(s.errors)),
	}
	for k, v := range s.byTask {
		snap.ByTask[k] = v
	}
	for k, v := range s.byStage {
		snap.ByStage[k] = v
	}
	for k, v := range s.errors {
		snap.Errors[k] = v
	}
	return snap
}

// Reset clears all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Summary returns a one-line human-readable summary.
func (s *Stats) Summary() string {
	snap := s.Snapshot()
	if snap.TotalQueries == 0 {
		return "No queries routed yet"
	}

	tasks := make([]string, 0, len(snap.ByTask))
	for _, t := range allTaskTypes {
		if n := snap.ByTask[t]; n > 0 {
			tasks = append(tasks, fmt.Sprintf("%s %d", t.Label(), n))
		}
	}

	errs := 0
	kinds := make([]string, 0, len(snap.Errors))
	for k, n := range snap.Errors {
		errs += n
		kinds = append(kinds, fmt.Sprintf("%s %d", k, n))
	}
	sort.Strings(kinds)

	line := fmt.Sprintf("Routing Stats: %d queries | %d fallbacks | %d errors", snap.TotalQueries, snap.Fallbacks, errs)
	if len(tasks) > 0 {
		line += " | " + strings.Join(tasks, ", ")
	}
	if len(kinds) > 0 {
		line += " | " + strings.Join(kinds, ", ")
	}
	return line
}
