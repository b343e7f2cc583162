// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openaicompat is an inference backend for servers that speak the
// OpenAI chat-completions API, such as LM Studio, vLLM or llama.cpp's server.
//
// It offers the same surface the engine uses from the Ollama client,
// except model pulls, which such servers do not expose.
package openaicompat
