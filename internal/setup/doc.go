// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package setup plans and performs model installation.
//
// The catalog records, per task type, the recommended model with its
// approximate download size and an install priority. Plan selects the
// missing models at or above a priority level; Installer pulls them
// concurrently with a bounded limit.
package setup
