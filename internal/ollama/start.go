// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// ErrExecutableNotFound is returned when no ollama binary can be located.
var ErrExecutableNotFound = errors.New("ollama executable not found in PATH or common install locations")

// startupWait bounds how long EnsureRunning polls a freshly started server.
const startupWait = 10 * time.Second

// FindExecutable returns the path of the ollama binary, checking PATH first
// and then the platform's usual install locations.
func FindExecutable() (string, error) {
	for _, name := range executableNames() {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	for _, p := range candidatePaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrExecutableNotFound
}

// EnsureRunning checks whether Ollama answers and, if not, launches
// "ollama serve" in the background and waits for it to become ready.
func (c *Client) EnsureRunning(ctx context.Context) error {
	if err := c.CheckRunning(ctx); err == nil {
		return nil
	}

	path, err := FindExecutable()
	if err != nil {
		return &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: err}
	}

	cmd := exec.Command(path, "serve")
	cmd.Env = os.Environ()
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return &ClientError{Type: ErrTypeNotRunning, Message: "failed to start " + path, Cause: err}
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}
	c.logger.Info("started ollama", "path", path)

	return c.waitReady(ctx, startupWait)
}

// waitReady polls CheckRunning until it succeeds or wait elapses.
func (c *Client) waitReady(ctx context.Context, wait time.Duration) error {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		probe, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		lastErr = c.CheckRunning(probe)
		cancel()
		if lastErr == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return transportError(ctx.Err())
		case <-deadline.C:
			return &ClientError{Type: ErrTypeNotRunning, Message: "Ollama started but is not responding", Cause: lastErr}
		case <-tick.C:
		}
	}
}
