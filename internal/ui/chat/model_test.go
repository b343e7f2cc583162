// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/router"
)

// fakeProcessor answers every query with fixed tokens, or with err when set.
type fakeProcessor struct {
	mu        sync.Mutex
	histories [][]model.Message
	tokens    []string
	err       *router.RouteError
	// block makes ProcessStream wait for cancellation.
	block bool
}

func (f *fakeProcessor) ProcessStream(ctx context.Context, query string, history []model.Message, essential bool, onToken func(string)) engine.Result {
	f.mu.Lock()
	f.histories = append(f.histories, history)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return engine.Result{
			TaskType: router.TaskDialogueSystems,
			Error:    &router.RouteError{Kind: router.ErrKindBackendUnavailable, Message: "generation", Cause: ctx.Err()},
		}
	}
	if f.err != nil {
		return engine.Result{TaskType: router.TaskCodingGeneration, Error: f.err}
	}
	for _, tok := range f.tokens {
		onToken(tok)
	}
	return engine.Result{
		Response:  strings.Join(f.tokens, ""),
		TaskType:  router.TaskCodingGeneration,
		ModelUsed: "codellama",
		Duration:  1500 * time.Millisecond,
	}
}

func newTestModel(t *testing.T, proc Processor) *Model {
	t.Helper()
	m := New(context.Background(), proc, Options{Profile: "regular", Source: "explicit", Backend: "ollama"})
	t.Cleanup(m.cancel)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

// send types query and presses Enter.
func send(m *Model, query string) {
	m.input.SetValue(query)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

// drain feeds generation messages back into the model until it finishes.
func drain(t *testing.T, m *Model) {
	t.Helper()
	for i := 0; m.gen != nil; i++ {
		require.Less(t, i, 100, "generation did not finish")
		msg := m.gen.next()()
		require.NotNil(t, msg)
		m.Update(msg)
	}
}

func TestSubmitStreamsReply(t *testing.T) {
	proc := &fakeProcessor{tokens: []string{"def ", "reverse(s):"}}
	m := newTestModel(t, proc)

	send(m, "write a python function")
	require.True(t, m.Generating())
	assert.Equal(t, "", m.input.Value())
	drain(t, m)

	conv := m.Active()
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	reply := conv.Messages[1]
	assert.Equal(t, "def reverse(s):", reply.Content)
	assert.Equal(t, "codellama", reply.ModelName)
	assert.Equal(t, router.TaskCodingGeneration, reply.TaskType)
	assert.Equal(t, "write a python function", conv.DisplayTitle())
	assert.False(t, m.statusErr)
	assert.Contains(t, m.status, "coding_generation via codellama")

	view := m.View()
	assert.Contains(t, view, "codellama")
	assert.Contains(t, view, "profile regular (explicit)")
}

func TestSubmitSendsEarlierTurnsAsHistory(t *testing.T) {
	proc := &fakeProcessor{tokens: []string{"ok"}}
	m := newTestModel(t, proc)

	send(m, "first")
	drain(t, m)
	send(m, "second")
	drain(t, m)

	require.Len(t, proc.histories, 2)
	assert.Empty(t, proc.histories[0])
	require.Len(t, proc.histories[1], 2)
	assert.Equal(t, "first", proc.histories[1][0].Content)
	assert.Equal(t, "ok", proc.histories[1][1].Content)
}

func TestEmptyInputIsIgnored(t *testing.T) {
	m := newTestModel(t, &fakeProcessor{})
	send(m, "   ")
	if m.Generating() {
		t.Error("Generating() = true after empty input, want false")
	}
}

func TestSubmitWhileGeneratingIsIgnored(t *testing.T) {
	proc := &fakeProcessor{tokens: []string{"ok"}}
	m := newTestModel(t, proc)

	send(m, "first")
	send(m, "second")
	drain(t, m)

	assert.Equal(t, 2, m.Active().MessageCount())
	assert.Equal(t, "second", m.input.Value())
}

func TestFailedQueryReturnsToInput(t *testing.T) {
	proc := &fakeProcessor{err: &router.RouteError{Kind: router.ErrKindFallbackExhausted, Message: "no high-priority model"}}
	m := newTestModel(t, proc)

	send(m, "solve x^2 = 4")
	drain(t, m)

	assert.True(t, m.Active().IsEmpty())
	assert.Equal(t, "solve x^2 = 4", m.input.Value())
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "fallback_exhausted")
}

func TestCancelStopsGeneration(t *testing.T) {
	proc := &fakeProcessor{block: true}
	m := newTestModel(t, proc)

	send(m, "hello")
	require.True(t, m.Generating())
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	drain(t, m)

	assert.Equal(t, "canceled", m.status)
	assert.Equal(t, "hello", m.input.Value())
}

func TestConversationSwitching(t *testing.T) {
	proc := &fakeProcessor{tokens: []string{"hi"}}
	m := newTestModel(t, proc)

	send(m, "alpha question")
	drain(t, m)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Len(t, m.Conversations(), 2)
	assert.Equal(t, 1, m.active)
	assert.True(t, m.Active().IsEmpty())

	send(m, "beta question")
	drain(t, m)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.active)
	assert.Equal(t, "alpha question", m.Active().DisplayTitle())

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 1, m.active)

	sidebar := m.renderSidebar(10)
	assert.Contains(t, sidebar, "1. alpha question")
	assert.Contains(t, sidebar, "2. beta question")
}

func TestClearConversation(t *testing.T) {
	m := newTestModel(t, &fakeProcessor{tokens: []string{"hi"}})
	send(m, "hello")
	drain(t, m)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.True(t, m.Active().IsEmpty())
}

func TestQuitCancelsContext(t *testing.T) {
	m := newTestModel(t, &fakeProcessor{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Error(t, m.ctx.Err())
}

func TestFallbackNoticeRenderedSeparately(t *testing.T) {
	m := newTestModel(t, &fakeProcessor{})
	reply := m.Active().AddAssistantMessage(engine.FallbackNotice("essential mode: falling back") + "answer")
	reply.UsedFallback = true
	reply.ModelName = "llama3"

	out := m.renderConversation(80)
	assert.Contains(t, out, "[INFO] essential mode: falling back")
	assert.Contains(t, out, "answer")
}
