// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for joat.
//
// Parse turns argv into a Command and Args; an App runs the command against
// the routing engine and returns a process exit code.
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err, false)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	os.Exit(cli.NewApp(args).Run(ctx, cmd))
//
// # Commands
//
//   - (none), tui: full-screen chat
//   - ask, q: one query, streamed or rendered as markdown
//   - chat: line-mode interactive chat
//   - route: routing decision only, no generation
//   - status, s: backend reachability and model install state
//   - profiles: profile document contents
//   - setup: install the recommended models
//   - serve: HTTP API
//   - test-models: send sample queries and report which models answer
//   - config show|init|path
//   - version, help
//
// # Output
//
// Every command accepts --json and then writes a single envelope with
// success, data, error, timestamp and command fields.
//
// # Exit Codes
//
//	0  success
//	1  general error
//	2  usage error
//	3  configuration error
//	4  inference backend unavailable
package cli
