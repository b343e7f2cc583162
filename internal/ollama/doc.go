// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
//
// It is the inference collaborator for routed queries: listing installed
// models, pulling missing ones with streamed progress, and running
// completions through /api/generate.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - ClientError: typed failure (not_running, timeout, model_not_found, ...)
//   - StreamReader: NDJSON reader for streamed generations
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL: "http://127.0.0.1:11434",
//	})
//	names, err := client.InstalledModels(ctx)
//	text, err := client.Generate(ctx, "llama3.2:3b", "What is 2+2?", history)
//
// Pulls report progress through a callback:
//
//	err := client.Pull(ctx, "phi3:mini", func(p model.PullProgress) {
//	    fmt.Printf("%s %.0f%%\n", p.Status, p.Percent())
//	})
package ollama
