// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the TUI.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style
	Essential   lipgloss.Style

	// Sidebar
	Sidebar       lipgloss.Style
	SidebarTitle  lipgloss.Style
	SidebarItem   lipgloss.Style
	SidebarActive lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageBody    lipgloss.Style
	RouteInfo      lipgloss.Style
	Notice         lipgloss.Style

	// Input and status
	InputPrompt lipgloss.Style
	StatusBar   lipgloss.Style
	StatusOK    lipgloss.Style
	StatusError lipgloss.Style
	Spinner     lipgloss.Style
	Muted       lipgloss.Style
}

// SidebarWidth is the width of the conversation list, border included.
const SidebarWidth = 26

// NewTheme builds the theme for the current terminal.
func NewTheme() *Theme {
	return newTheme(termenv.ColorProfile(), termenv.HasDarkBackground())
}

func newTheme(profile termenv.Profile, dark bool) *Theme {
	t := &Theme{IsDark: dark, ColorProfile: profile}

	t.Header = lipgloss.NewStyle().Background(SurfaceDim).Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.HeaderInfo = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Essential = lipgloss.NewStyle().Foreground(Amber).Bold(true)

	t.Sidebar = lipgloss.NewStyle().
		Width(SidebarWidth - 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay)
	t.SidebarTitle = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SidebarActive = lipgloss.NewStyle().Foreground(TextPrimary).Background(SelectionBg).Bold(true)

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.MessageBody = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.RouteInfo = lipgloss.NewStyle().Foreground(TextMuted).PaddingLeft(2)
	t.Notice = lipgloss.NewStyle().Foreground(Amber).PaddingLeft(2)

	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.StatusBar = lipgloss.NewStyle().Background(SurfaceDim).Foreground(TextSecondary).Padding(0, 1)
	t.StatusOK = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusError = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	return t
}
