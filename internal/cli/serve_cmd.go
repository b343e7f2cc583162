// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - Run the HTTP API until interrupted.
//
// Command: serve [--addr HOST:PORT]
package cli

import (
	"context"
	"time"

	"github.com/jeranaias/joat/internal/server"
	"github.com/jeranaias/joat/internal/tasks"
)

// poolDrainTimeout bounds how long in-flight generations may finish after
// the server stops accepting requests.
const poolDrainTimeout = 30 * time.Second

func (a *App) runServe(ctx context.Context) error {
	if a.Args.Addr != "" {
		a.cfg.Server.Addr = a.Args.Addr
	}

	eng, err := a.newEngine(ctx, CmdServe, nil)
	if err != nil {
		return err
	}
	logger := a.logger

	pool := tasks.NewPool(tasks.Options{
		Workers:     a.cfg.Server.Workers,
		QueueSize:   a.cfg.Server.QueueSize,
		TaskTimeout: a.cfg.Backend.Timeout(),
		Logger:      logger,
	})
	pool.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), poolDrainTimeout)
		defer cancel()
		if err := pool.Stop(stopCtx); err != nil {
			logger.Warn("task pool did not drain", "error", err)
		}
		logger.Info("task pool stopped", "summary", pool.Summary())
	}()

	srv := server.New(eng, pool, server.Options{
		Config:  a.cfg.Server,
		Version: Version,
		Logger:  logger,
	})
	return srv.Run(ctx)
}
