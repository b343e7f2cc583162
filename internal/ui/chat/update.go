// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/router"
	"github.com/jeranaias/joat/internal/ui/styles"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tokenMsg:
		if m.gen == nil || msg.convID != m.gen.convID {
			return m, nil
		}
		m.partial.WriteString(msg.token)
		m.refresh()
		return m, m.gen.next()

	case doneMsg:
		m.finish(msg)
		return m, nil

	case spinner.TickMsg:
		if m.gen == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.gen != nil {
			m.gen.cancel()
		}
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.gen != nil {
			m.gen.cancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keys.New):
		if m.gen == nil {
			m.conversations = append(m.conversations, model.NewConversation())
			m.active = len(m.conversations) - 1
			m.status, m.statusErr = "", false
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
		if m.gen == nil && len(m.conversations) > 1 {
			step := 1
			if key.Matches(msg, m.keys.Prev) {
				step = len(m.conversations) - 1
			}
			m.active = (m.active + step) % len(m.conversations)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.gen == nil {
			m.Active().Clear()
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line to the active conversation. History is the
// conversation before the new message.
func (m *Model) submit() tea.Cmd {
	if m.gen != nil {
		return nil
	}
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return nil
	}

	conv := m.Active()
	history := conv.Turns()
	conv.AddUserMessage(query)
	m.input.Reset()
	m.partial.Reset()
	m.status, m.statusErr = "", false

	m.gen = startGeneration(m.ctx, m.proc, conv.ID, query, history, m.opts.Essential)
	m.refresh()
	return tea.Batch(m.gen.next(), m.spinner.Tick)
}

// finish records a completed generation. A failed query is taken back out
// of the conversation and returned to the input line.
func (m *Model) finish(msg doneMsg) {
	if m.gen == nil || msg.convID != m.gen.convID {
		return
	}
	m.gen = nil
	m.partial.Reset()

	conv := m.conversation(msg.convID)
	if conv == nil {
		return
	}
	res := msg.result

	if res.Error != nil {
		if last := conv.LastMessage(); last != nil && last.Role == model.RoleUser && last.Content == msg.query {
			conv.Messages = conv.Messages[:len(conv.Messages)-1]
		}
		if m.input.Value() == "" {
			m.input.SetValue(msg.query)
			m.input.CursorEnd()
		}
		m.status, m.statusErr = errorStatus(res.Error), true
		m.refresh()
		return
	}

	reply := conv.AddAssistantMessage(res.Response)
	reply.TaskType = res.TaskType
	reply.ModelName = res.ModelUsed
	reply.UsedFallback = res.UsedFallback
	reply.Duration = res.Duration
	m.status, m.statusErr = routeLine(reply), false
	m.refresh()
}

func errorStatus(err *router.RouteError) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return err.Error()
}

// routeLine describes how a reply was produced.
func routeLine(m *model.Message) string {
	s := fmt.Sprintf("%s via %s, %.1fs", m.TaskType, m.ModelName, m.Duration.Seconds())
	if m.UsedFallback {
		s += " (fallback)"
	}
	return s
}

// resize lays out the panes for a width x height terminal.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true

	// header, input and status lines
	bodyHeight := max(height-3, 1)
	m.viewport.Width = max(width-styles.SidebarWidth-1, 10)
	m.viewport.Height = bodyHeight
	m.input.Width = max(width-4, 10)
	m.help.Width = width
	m.refresh()
}

// refresh re-renders the active conversation into the viewport and keeps
// it scrolled to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation(m.viewport.Width))
	m.viewport.GotoBottom()
}
