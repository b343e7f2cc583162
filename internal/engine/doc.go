// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine assembles the routing system: it resolves the active
// profile once, builds the router around it, and hands routed queries to
// the inference backend.
//
// Routing never performs I/O. Everything that talks to the backend
// (profile auto-detection, auto-pull, generation, status probes) lives
// here, and backend failures are reported as backend_unavailable or
// generation_failure rather than as classification errors. The backend's
// error text is kept as the message.
//
// CheckModels and CheckModel send sample queries to confirm that the
// profile's models answer.
package engine
