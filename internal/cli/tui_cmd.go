// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui_cmd.go - Start the full-screen interface (the default command).
package cli

import (
	"context"

	tui "github.com/jeranaias/joat/internal/ui/chat"
)

func (a *App) runTUI(ctx context.Context) error {
	if !a.Interactive {
		return &UsageError{
			Reason:  "the TUI needs a terminal; use a subcommand when piping",
			Example: `joat ask "What is the capital of France?"`,
		}
	}

	eng, err := a.newEngine(ctx, CmdTUI, nil)
	if err != nil {
		return err
	}
	return tui.Run(ctx, eng, tui.Options{
		Profile:   eng.Profile().Name,
		Source:    string(eng.Resolution().Source),
		Backend:   a.cfg.Backend.Kind,
		Essential: a.Args.Essential || eng.Essential(),
		Version:   Version,
	})
}
