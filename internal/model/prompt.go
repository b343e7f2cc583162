// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// FormatPrompt renders history plus the current query as a plain-text
// completion prompt, one "Role: content" line per turn. When the final turn
// is not the user's, a trailing "Assistant:" cue is added.
func FormatPrompt(history []Message, query string) string {
	turns := make([]Message, 0, len(history)+1)
	turns = append(turns, history...)
	if query != "" {
		turns = append(turns, Message{Role: RoleUser, Content: query})
	}
	return RenderTurns(turns)
}

// RenderTurns renders turns without appending a query.
func RenderTurns(turns []Message) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Role.promptLabel())
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != RoleUser {
		b.WriteString("\nAssistant:")
	}
	return b.String()
}
