// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/model"
)

// Processor routes and answers queries. *engine.Engine implements it.
type Processor interface {
	ProcessStream(ctx context.Context, query string, history []model.Message, essential bool, onToken func(string)) engine.Result
}

// =============================================================================
// MESSAGES
// =============================================================================

// tokenMsg delivers one streamed token.
type tokenMsg struct {
	convID string
	token  string
}

// doneMsg ends a generation.
type doneMsg struct {
	convID string
	query  string
	result engine.Result
}

// =============================================================================
// GENERATION
// =============================================================================

// generation is one running request. Its goroutine sends tokenMsgs and
// exactly one doneMsg on events, then closes it.
type generation struct {
	convID string
	query  string
	events chan tea.Msg
	cancel context.CancelFunc
}

// startGeneration runs query in the background. Tokens are dropped once the
// generation is canceled; the doneMsg is dropped only when parent is done.
func startGeneration(parent context.Context, proc Processor, convID, query string, history []model.Message, essential bool) *generation {
	ctx, cancel := context.WithCancel(parent)
	g := &generation{
		convID: convID,
		query:  query,
		events: make(chan tea.Msg, 64),
		cancel: cancel,
	}

	go func() {
		defer close(g.events)
		defer cancel()

		res := proc.ProcessStream(ctx, query, history, essential, func(tok string) {
			select {
			case g.events <- tokenMsg{convID: convID, token: tok}:
			case <-ctx.Done():
			}
		})
		select {
		case g.events <- doneMsg{convID: convID, query: query, result: res}:
		case <-parent.Done():
		}
	}()
	return g
}

// next waits for the generation's next message.
func (g *generation) next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-g.events
		if !ok {
			return nil
		}
		return msg
	}
}
