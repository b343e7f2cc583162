// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package setup

import (
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
)

// PlannedModel is one model to install.
type PlannedModel struct {
	Name     string            `json:"name"`
	Size     int64             `json:"size"`
	Priority Priority          `json:"priority"`
	Tasks    []router.TaskType `json:"tasks"`
}

// Plan is the ordered set of models to install.
type Plan struct {
	Level     Priority       `json:"level"`
	Models    []PlannedModel `json:"models"`
	TotalSize int64          `json:"total_size"`
}

// Empty reports whether nothing needs installing.
func (p Plan) Empty() bool {
	return len(p.Models) == 0
}

// Names returns the planned model names in install order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Models))
	for i, m := range p.Models {
		names[i] = m.Name
	}
	return names
}

// TotalHuman returns the total download size in human units.
func (p Plan) TotalHuman() string {
	return humanize.Bytes(uint64(p.TotalSize))
}

// BuildPlan lists the distinct catalog models that are not installed and whose
// priority is within level. A model shared by several tasks takes the highest
// of their priorities. Models are sorted by priority, then name.
func BuildPlan(installed []string, level Priority) Plan {
	byName := make(map[string]*PlannedModel)
	var order []string
	for _, e := range catalog {
		pm, ok := byName[e.Model]
		if !ok {
			pm = &PlannedModel{Name: e.Model, Size: e.Size, Priority: e.Priority}
			byName[e.Model] = pm
			order = append(order, e.Model)
		}
		if e.Priority.Rank() < pm.Priority.Rank() {
			pm.Priority = e.Priority
		}
		pm.Tasks = append(pm.Tasks, e.Task)
	}

	plan := Plan{Level: level}
	for _, name := range order {
		pm := byName[name]
		if !level.Includes(pm.Priority) || profile.IsInstalled(name, installed) {
			continue
		}
		plan.Models = append(plan.Models, *pm)
		plan.TotalSize += pm.Size
	}

	sort.SliceStable(plan.Models, func(i, j int) bool {
		a, b := plan.Models[i], plan.Models[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.Name < b.Name
	})
	return plan
}
