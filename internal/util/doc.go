// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small string and file helpers shared by the CLI, the
// router logs and the configuration writer.
//
//	preview := util.TruncateRunes(turn.Content, 100)
//	title := util.TruncateWidth(conv.Title, 24)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
