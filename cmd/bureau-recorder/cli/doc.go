// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command framework for bureau-recorder.
//
// [Command] is a named node with optional [Command.Subcommands], a
// [pflag.FlagSet] factory, and a Run function. [Command.Execute]
// handles flag parsing, subcommand routing, and help output with
// examples. Unknown subcommands and flags get a "did you mean"
// suggestion when the closest known name is within three edits.
//
// [NewCommandLogger] builds the process slog logger, choosing text or
// JSON output by whether stderr is a terminal.
package cli
