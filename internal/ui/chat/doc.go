// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the joat terminal UI: a conversation list on the left, the
active conversation on the right and an input line below.

Every message is routed on its own, so one conversation can use several
models; each reply shows the task type and model that produced it.
Generation runs off the update loop and streams tokens back as messages.

# Keys

	Enter        send
	Esc          cancel the running generation
	Ctrl+N       new conversation
	Tab          next conversation (Shift+Tab: previous)
	Ctrl+L       clear the active conversation
	PgUp/PgDn    scroll
	Ctrl+C       quit

# Usage

	err := chat.Run(ctx, eng, chat.Options{Profile: "regular"})
*/
package chat
