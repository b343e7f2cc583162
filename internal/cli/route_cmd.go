// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// route_cmd.go - Show the routing decision for a query without generating.
//
// Command: route [question]
//
// Examples:
//
//	joat route "def reverse(s): return s[::-1]"
//	joat route --essential --json "solve 2x + 3 = 7"
package cli

import (
	"context"
	"fmt"
	"strconv"
)

func (a *App) runRoute(ctx context.Context) error {
	eng, err := a.newEngine(ctx, CmdRoute, nil)
	if err != nil {
		return err
	}

	d := eng.Route(a.Args.Query, a.Args.Essential)

	if a.Args.JSON {
		if d.Error != nil {
			_ = NewJSONErrorResponse("route", d, d.Error).Print(a.Stdout)
			return reported(d.Error)
		}
		return a.printJSON("route", d)
	}

	w := a.Stdout
	fmt.Fprintln(w, RenderField("Task:", string(d.TaskType)))
	if d.Stage != "" {
		fmt.Fprintln(w, RenderField("Stage:", string(d.Stage)))
	}
	if d.Confidence > 0 {
		fmt.Fprintln(w, RenderField("Confidence:", strconv.FormatFloat(d.Confidence, 'f', 2, 64)))
	}
	fmt.Fprintln(w, RenderField("Profile:", eng.Profile().Name))
	if d.Error != nil {
		return d.Error
	}
	fmt.Fprintln(w, RenderField("Model:", d.ModelName))
	if d.UsedFallback {
		fmt.Fprintln(w, InfoStyle.Render(d.FallbackReason))
	}
	return nil
}
