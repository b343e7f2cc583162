// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Small formatting and progress helpers shared by commands.
package cli

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/jeranaias/joat/internal/model"
)

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}

// =============================================================================
// PULL PROGRESS
// =============================================================================

// progressPrinter writes one line per status change or 10% step of a
// download. Several models may report at once.
type progressPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	last map[string]string
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, last: make(map[string]string)}
}

// Report has the model.ProgressFunc signature.
func (p *progressPrinter) Report(pr model.PullProgress) {
	line := pr.Status
	if pct := pr.Percent(); pct >= 0 {
		line = fmt.Sprintf("%s %3.0f%%", pr.Status, math.Floor(pct/10)*10)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last[pr.Model] == line {
		return
	}
	p.last[pr.Model] = line
	fmt.Fprintf(p.w, "  %s %s\n", DimStyle.Render(pr.Model+":"), line)
}
