// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status and profiles commands.
//
// Command: status
// Aliases: s
//
// Shows whether the backend is reachable, which profile is active and why,
// and which of the profile's models are installed. Exits with code 4 when
// the backend cannot be reached.
//
// Command: profiles
// Aliases: profile
//
// Lists every profile in the profile document with its task mapping.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/ollama"
	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
)

// =============================================================================
// STATUS
// =============================================================================

// statusOutput is the --json payload of status.
type statusOutput struct {
	engine.Status
	// Sizes maps installed model names to their on-disk size.
	Sizes map[string]string `json:"sizes,omitempty"`
}

// modelLister is implemented by backends that report model sizes.
type modelLister interface {
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
}

func (a *App) runStatus(ctx context.Context) error {
	eng, err := a.newEngine(ctx, CmdStatus, nil)
	if err != nil {
		return err
	}

	out := statusOutput{Status: eng.Status(ctx)}
	if lister, ok := eng.Backend().(modelLister); ok && out.Running {
		if infos, err := lister.ListModels(ctx); err == nil {
			out.Sizes = make(map[string]string, len(infos))
			for i := range infos {
				out.Sizes[infos[i].Name] = infos[i].FormatSize()
			}
		}
	}

	var downErr error
	if !out.Running {
		downErr = &router.RouteError{
			Kind:    router.ErrKindBackendUnavailable,
			Message: fmt.Sprintf("%s backend at %s is not reachable", out.Backend, out.BackendURL),
		}
	}

	if a.Args.JSON {
		if downErr != nil {
			_ = NewJSONErrorResponse("status", out, downErr).Print(a.Stdout)
			return reported(downErr)
		}
		return a.printJSON("status", out)
	}

	printStatus(a.Stdout, out)
	return downErr
}

func printStatus(w io.Writer, st statusOutput) {
	fmt.Fprintln(w, TitleStyle.Render("joat status"))
	fmt.Fprintln(w, RenderSeparator(40))

	backend := fmt.Sprintf("%s (%s) ", st.Backend, st.BackendURL)
	if st.Running {
		backend += RenderStatus("ok")
	} else {
		backend += RenderStatus("error")
	}
	fmt.Fprintln(w, RenderField("Backend:", backend))
	if st.BackendError != "" {
		fmt.Fprintln(w, RenderField("", DimStyle.Render(st.BackendError)))
	}
	fmt.Fprintln(w, RenderField("Profile:", fmt.Sprintf("%s (%s)", st.Profile, st.Source)))
	fmt.Fprintln(w, RenderField("Essential mode:", onOff(st.Essential)))
	hp := "(none)"
	if len(st.HighPriority) > 0 {
		hp = strings.Join(st.HighPriority, ", ")
	}
	fmt.Fprintln(w, RenderField("High priority:", hp))
	fmt.Fprintln(w)

	fmt.Fprintln(w, SectionStyle.Render("Models"))
	for _, m := range st.Models {
		state := "missing"
		if m.Installed {
			state = "installed"
		}
		line := fmt.Sprintf("  %s %-28s %s", RenderStatus(state), m.Task, m.Model)
		if m.HighPriority {
			line += " " + DimStyle.Render("(high priority)")
		}
		if size := installedSize(m.Model, st.Sizes); size != "" && m.Installed {
			line += " " + DimStyle.Render(size)
		}
		if len(m.Suggestions) > 0 {
			line += " " + WarningStyle.Render("did you mean "+strings.Join(m.Suggestions, ", ")+"?")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	missing := st.MissingCount()
	switch {
	case !st.Running:
		fmt.Fprintln(w, ErrorStyle.Render("Backend is not reachable."))
	case missing == 0:
		fmt.Fprintln(w, SuccessStyle.Render("All models installed."))
	default:
		fmt.Fprintf(w, "%s Run 'joat setup' to install them.\n",
			WarningStyle.Render(fmt.Sprintf("%d of %d models missing.", missing, len(st.Models))))
	}
}

// installedSize finds the size of the installed copy of modelName.
func installedSize(modelName string, sizes map[string]string) string {
	if s, ok := sizes[modelName]; ok {
		return s
	}
	if s, ok := sizes[modelName+":latest"]; ok {
		return s
	}
	base := profile.BaseName(modelName)
	for name, s := range sizes {
		if profile.BaseName(name) == base {
			return s
		}
	}
	return ""
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// =============================================================================
// PROFILES
// =============================================================================

// profileEntry is one profile in the --json payload of profiles.
type profileEntry struct {
	Name    string                     `json:"name"`
	Active  bool                       `json:"active"`
	Mapping map[router.TaskType]string `json:"mapping"`
}

// profilesOutput is the --json payload of profiles.
type profilesOutput struct {
	Active   string         `json:"active"`
	Source   profile.Source `json:"source"`
	Profiles []profileEntry `json:"profiles"`
}

func (a *App) runProfiles(ctx context.Context) error {
	eng, err := a.newEngine(ctx, CmdProfiles, nil)
	if err != nil {
		return err
	}

	doc := eng.Document()
	active := eng.Profile().Name
	out := profilesOutput{Active: active, Source: eng.Resolution().Source}
	for _, name := range doc.Names() {
		p, err := doc.Get(name)
		if err != nil {
			return err
		}
		out.Profiles = append(out.Profiles, profileEntry{Name: name, Active: name == active, Mapping: p.Mapping()})
	}

	if a.Args.JSON {
		return a.printJSON("profiles", out)
	}

	w := a.Stdout
	for i, p := range out.Profiles {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := p.Name
		if p.Active {
			title += " " + SuccessStyle.Render("(active, "+string(out.Source)+")")
		}
		fmt.Fprintln(w, TitleStyle.Render(title))
		for _, task := range router.TaskTypes() {
			m, ok := p.Mapping[task]
			if !ok {
				m = DimStyle.Render("(unmapped)")
			}
			fmt.Fprintf(w, "  %-28s %s\n", task, m)
		}
	}
	return nil
}
