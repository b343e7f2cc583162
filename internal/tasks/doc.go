// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks runs generation jobs on a bounded worker pool.
//
// Routing is cheap and synchronous; generation is not. The HTTP server
// submits each generation as a Task so the number of concurrent backend
// calls stays bounded, and waits on the task or its own request context.
//
// # Key Types
//
//   - Task: one job with status, timing, result and error
//   - Pool: fixed workers reading from a bounded queue, with recent history
//   - TaskStatus: queued, running, complete, failed, canceled
//
// # Usage
//
//	pool := tasks.NewPool(tasks.Options{Workers: 4, QueueSize: 64})
//	pool.Start()
//	defer pool.Stop(ctx)
//
//	task, err := pool.Submit("generate", func(ctx context.Context) (any, error) {
//	    return eng.Process(ctx, query, nil), nil
//	})
//	result, err := task.Wait(ctx)
package tasks
