// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package ollama

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// Windows process creation flags
const (
	createNoWindow  = 0x08000000
	detachedProcess = 0x00000008
)

func executableNames() []string {
	return []string{"ollama.exe", "ollama"}
}

// candidatePaths lists common install locations on Windows.
func candidatePaths() []string {
	var paths []string
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		paths = append(paths, filepath.Join(local, "Programs", "Ollama", "ollama.exe"))
	}
	paths = append(paths,
		`C:\Program Files\Ollama\ollama.exe`,
		`C:\Program Files (x86)\Ollama\ollama.exe`,
	)
	if home := os.Getenv("USERPROFILE"); home != "" {
		paths = append(paths, filepath.Join(home, "Ollama", "ollama.exe"))
	}
	return paths
}

// detach starts the server without a console so it outlives joat.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | createNoWindow | detachedProcess,
	}
}
