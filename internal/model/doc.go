// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// History is owned by the caller. The router never reads it; only the
// inference step does, through FormatPrompt.
//
// # Key Types
//
//   - Role: message role enumeration (user, assistant, system)
//   - Message: a single turn with routing metadata for assistant replies
//   - Conversation: an ordered, bounded list of turns with a stable ID
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("What is the capital of Japan?")
//	prompt := model.FormatPrompt(conv.Messages, "And of France?")
package model
