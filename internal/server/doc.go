// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the routing engine over HTTP.
//
// # Endpoints
//
//   - POST /v1/route   - classify a query and pick its model, no generation
//   - POST /v1/query   - route and generate; runs on the task pool
//   - GET  /v1/profile - active profile, how it was chosen, its mapping
//   - GET  /v1/stats   - routing statistics and pool counts
//   - GET  /health     - liveness plus backend reachability
//   - GET  /metrics    - Prometheus metrics
//
// Every request passes through recovery, request ID, logging, per-client
// rate limiting and a body size limit, in that order.
//
// # Status Codes
//
// Validation failures (empty or oversized query, bad history role) are 400.
// Routing failures (unmapped task, exhausted fallback) are 422. Backend
// failures are 502. A full task queue is 503.
//
// # Usage
//
//	srv := server.New(eng, pool, server.Options{Config: cfg.Server})
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
