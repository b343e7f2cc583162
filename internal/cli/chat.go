// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler.
//
// Command: chat
//
// Every message is routed on its own; earlier turns are sent along as
// context, so a conversation can move between models.
//
// Interactive commands (with or without a leading slash):
//
//	help       show available commands
//	history    show recent turns
//	clear      clear conversation history
//	status     show profile and routing statistics
//	quit, exit leave the chat (Ctrl+C and Ctrl+D also work)
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/joat/internal/config"
	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/model"
)

const (
	// historyTurns is how many exchanges the history command shows.
	historyTurns = 20
	// historyPreviewRunes bounds each history line.
	historyPreviewRunes = 100
)

// =============================================================================
// LINE EDITING
// =============================================================================

// lineReader provides input history and line editing for interactive chat.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(configDir, "chat_history")}

	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Read prompts for one line, recording non-empty input in the history.
func (r *lineReader) Read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history (0600) and restores the terminal.
func (r *lineReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession is the state of one interactive chat.
type chatSession struct {
	eng       *engine.Engine
	conv      *model.Conversation
	out       io.Writer
	essential bool
	// markdown renders whole responses; otherwise tokens are streamed.
	markdown bool

	queries   int
	fallbacks int
	failures  int
	started   time.Time
}

func newChatSession(eng *engine.Engine, out io.Writer, essential, markdown bool) *chatSession {
	return &chatSession{
		eng:       eng,
		conv:      model.NewConversation(),
		out:       out,
		essential: essential,
		markdown:  markdown,
		started:   time.Now(),
	}
}

// handleLine handles one line of input and reports whether the session
// continues.
func (s *chatSession) handleLine(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}

	switch strings.ToLower(strings.TrimPrefix(input, "/")) {
	case "quit", "exit", "q":
		return false
	case "help", "h", "?":
		s.printHelp()
		return true
	case "history":
		s.printHistory()
		return true
	case "clear":
		s.conv.Clear()
		fmt.Fprintln(s.out, DimStyle.Render("Conversation cleared."))
		return true
	case "status":
		s.printStatus()
		return true
	}

	s.send(ctx, input)
	return ctx.Err() == nil
}

// send routes and answers one message, recording the exchange on success.
func (s *chatSession) send(ctx context.Context, query string) {
	history := s.conv.Turns()
	s.queries++

	var res engine.Result
	if s.markdown {
		res = s.eng.Process(ctx, query, history, s.essential)
		if res.Error == nil {
			printRendered(s.out, res)
		}
	} else {
		res = s.eng.ProcessStream(ctx, query, history, s.essential, func(tok string) {
			io.WriteString(s.out, tok)
		})
		if res.Error == nil && !strings.HasSuffix(res.Response, "\n") {
			fmt.Fprintln(s.out)
		}
	}

	if res.Error != nil {
		s.failures++
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(s.out, WarningStyle.Render("[Canceled]"))
			return
		}
		fmt.Fprintf(s.out, "%s %v\n", ErrorStyle.Render("[ERROR]"), res.Error)
		if hint := hintFor(res.Error); hint != "" {
			fmt.Fprintln(s.out, DimStyle.Render(hint))
		}
		return
	}
	if res.UsedFallback {
		s.fallbacks++
	}
	fmt.Fprintln(s.out, DimStyle.Render(routeSummary(res.TaskType, res.ModelUsed, res.Duration)))

	s.conv.AddUserMessage(query)
	reply := s.conv.AddAssistantMessage(res.Response)
	reply.TaskType = res.TaskType
	reply.ModelName = res.ModelUsed
	reply.UsedFallback = res.UsedFallback
	reply.Duration = res.Duration
}

func (s *chatSession) printHelp() {
	fmt.Fprintln(s.out, SectionStyle.Render("Commands"))
	fmt.Fprintln(s.out, "  help      show this help")
	fmt.Fprintln(s.out, "  history   show recent turns")
	fmt.Fprintln(s.out, "  clear     clear conversation history")
	fmt.Fprintln(s.out, "  status    show profile and routing statistics")
	fmt.Fprintln(s.out, "  quit      leave the chat")
	fmt.Fprintln(s.out, DimStyle.Render("Anything else is sent as a message."))
}

func (s *chatSession) printHistory() {
	if s.conv.IsEmpty() {
		fmt.Fprintln(s.out, DimStyle.Render("No history yet."))
		return
	}
	for _, m := range s.conv.Tail(2 * historyTurns) {
		label := m.Role.DisplayName()
		if m.Role == model.RoleAssistant && m.ModelName != "" {
			label = m.ModelName
		}
		fmt.Fprintf(s.out, "  %s %s\n", LabelStyle.Width(14).Render(label+":"), m.Preview(historyPreviewRunes))
	}
}

func (s *chatSession) printStatus() {
	fmt.Fprintln(s.out, RenderField("Profile:", fmt.Sprintf("%s (%s)", s.eng.Profile().Name, s.eng.Resolution().Source)))
	fmt.Fprintln(s.out, RenderField("Essential mode:", onOff(s.essential || s.eng.Essential())))
	fmt.Fprintln(s.out, RenderField("Messages:", fmt.Sprint(s.conv.MessageCount())))
	fmt.Fprintln(s.out, RenderField("Routing:", s.eng.Stats().Summary()))
}

// summary is printed when the session ends.
func (s *chatSession) summary() string {
	return fmt.Sprintf("%d queries, %d fallbacks, %d errors in %s",
		s.queries, s.fallbacks, s.failures, formatDuration(time.Since(s.started).Round(time.Second)))
}

// =============================================================================
// COMMAND
// =============================================================================

func (a *App) runChat(ctx context.Context) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	progress := newProgressPrinter(a.Stderr)
	eng, err := a.newEngine(ctx, CmdChat, progress.Report)
	if err != nil {
		return err
	}

	session := newChatSession(eng, a.Stdout, a.Args.Essential, isTerminalWriter(a.Stdout))
	fmt.Fprintln(a.Stdout, TitleStyle.Render("joat chat"))
	fmt.Fprintln(a.Stdout, DimStyle.Render(fmt.Sprintf("profile %s, essential mode %s. Type 'help' for commands.",
		eng.Profile().Name, onOff(a.Args.Essential || eng.Essential()))))

	reader := newLineReader()
	defer reader.Close()

	for {
		input, err := reader.Read(PromptStyle.Render("joat> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				return err
			}
			fmt.Fprintln(a.Stdout)
			break
		}
		if !session.handleLine(ctx, input) {
			break
		}
	}

	fmt.Fprintln(a.Stdout, DimStyle.Render(session.summary()))
	return nil
}
