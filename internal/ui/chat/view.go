// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/ui/styles"
	"github.com/jeranaias/joat/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Starting joat..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSidebar(m.viewport.Height),
		" "+m.viewport.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.input.View(),
		m.renderStatus(),
	)
}

// =============================================================================
// HEADER AND STATUS
// =============================================================================

func (m *Model) renderHeader() string {
	t := m.theme
	parts := []string{t.HeaderTitle.Render("joat")}
	if m.opts.Version != "" {
		parts = append(parts, t.HeaderInfo.Render(m.opts.Version))
	}
	profile := m.opts.Profile
	if m.opts.Source != "" {
		profile += " (" + m.opts.Source + ")"
	}
	parts = append(parts, t.HeaderInfo.Render("profile "+profile))
	if m.opts.Backend != "" {
		parts = append(parts, t.HeaderInfo.Render(m.opts.Backend))
	}
	if m.opts.Essential {
		parts = append(parts, t.Essential.Render("ESSENTIAL"))
	}
	return t.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m *Model) renderStatus() string {
	t := m.theme
	var left string
	switch {
	case m.gen != nil:
		left = m.spinner.View() + " generating"
	case m.status != "" && m.statusErr:
		left = t.StatusError.Render(m.status)
	case m.status != "":
		left = t.StatusOK.Render(m.status)
	}
	right := m.help.ShortHelpView(m.keys.ShortHelp())

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return t.StatusBar.Width(m.width).Render(util.TruncateWidth(left, max(m.width-2, 1)))
	}
	return t.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// SIDEBAR
// =============================================================================

// renderSidebar lists the conversations, newest last, padded to height.
func (m *Model) renderSidebar(height int) string {
	t := m.theme
	inner := styles.SidebarWidth - 2
	lines := []string{t.SidebarTitle.Render("Conversations")}
	for i, c := range m.conversations {
		title := util.TruncateWidth(fmt.Sprintf("%d. %s", i+1, c.DisplayTitle()), inner)
		if i == m.active {
			lines = append(lines, t.SidebarActive.Render(title))
		} else {
			lines = append(lines, t.SidebarItem.Render(title))
		}
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return t.Sidebar.Render(strings.Join(lines, "\n"))
}

// =============================================================================
// CONVERSATION
// =============================================================================

// renderConversation renders the active conversation for a pane of the
// given width, with the streaming reply at the end.
func (m *Model) renderConversation(width int) string {
	t := m.theme
	conv := m.Active()
	bodyWidth := max(width-2, 10)

	var b strings.Builder
	if conv.IsEmpty() && m.gen == nil {
		b.WriteString(t.Muted.Render("Each message is routed to the model for its task. Type a question and press Enter."))
		return b.String()
	}

	for _, msg := range conv.Messages {
		m.renderMessage(&b, msg, bodyWidth)
	}

	if m.gen != nil && m.gen.convID == conv.ID {
		b.WriteString(t.AssistantLabel.Render("joat") + " " + m.spinner.View() + "\n")
		if m.partial.Len() > 0 {
			b.WriteString(t.MessageBody.Width(bodyWidth).Render(m.partial.String()) + "\n")
		}
	}
	return b.String()
}

func (m *Model) renderMessage(b *strings.Builder, msg *model.Message, width int) {
	t := m.theme
	switch msg.Role {
	case model.RoleUser:
		b.WriteString(t.UserLabel.Render("You") + "\n")
		b.WriteString(t.MessageBody.Width(width).Render(msg.Content) + "\n\n")
	default:
		label := msg.ModelName
		if label == "" {
			label = msg.Role.DisplayName()
		}
		b.WriteString(t.AssistantLabel.Render(label) + "\n")

		content := msg.Content
		if msg.UsedFallback {
			if notice, rest, ok := strings.Cut(content, "\n"); ok && strings.HasPrefix(notice, "[INFO]") {
				b.WriteString(t.Notice.Width(width).Render(notice) + "\n")
				content = rest
			}
		}
		b.WriteString(t.MessageBody.Width(width).Render(content) + "\n")
		if msg.TaskType != "" {
			b.WriteString(t.RouteInfo.Render(routeLine(msg)) + "\n")
		}
		b.WriteString("\n")
	}
}
