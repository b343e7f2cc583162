// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/ui/styles"
)

// Options describe the session shown in the header.
type Options struct {
	Profile   string
	Source    string
	Backend   string
	Essential bool
	Version   string
}

// Model is the bubbletea model of the TUI. Use it through a pointer.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	proc   Processor
	opts   Options

	keys  KeyMap
	theme *styles.Theme

	conversations []*model.Conversation
	active        int

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	width  int
	height int
	ready  bool

	gen     *generation
	partial strings.Builder

	// status is the last route summary or error, shown in the status bar.
	status    string
	statusErr bool
}

// maxInputChars bounds the input line.
const maxInputChars = 8000

// New creates a model with one empty conversation.
func New(ctx context.Context, proc Processor, opts Options) *Model {
	ctx, cancel := context.WithCancel(ctx)

	ti := textinput.New()
	ti.Placeholder = "Ask anything..."
	ti.Prompt = "> "
	ti.CharLimit = maxInputChars
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := styles.NewTheme()
	sp.Style = theme.Spinner
	ti.PromptStyle = theme.InputPrompt

	return &Model{
		ctx:           ctx,
		cancel:        cancel,
		proc:          proc,
		opts:          opts,
		keys:          DefaultKeyMap(),
		theme:         theme,
		conversations: []*model.Conversation{model.NewConversation()},
		input:         ti,
		viewport:      viewport.New(80, 20),
		spinner:       sp,
		help:          help.New(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Active returns the conversation being shown.
func (m *Model) Active() *model.Conversation {
	return m.conversations[m.active]
}

// Conversations returns every conversation, oldest first.
func (m *Model) Conversations() []*model.Conversation {
	return m.conversations
}

// Generating reports whether a request is running.
func (m *Model) Generating() bool {
	return m.gen != nil
}

func (m *Model) conversation(id string) *model.Conversation {
	for _, c := range m.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Run starts the TUI in the alternate screen and blocks until the user
// quits or ctx is done.
func Run(ctx context.Context, proc Processor, opts Options) error {
	m := New(ctx, proc, opts)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-m.ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
