// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command-line framework for workspacesync.
//
// A [Command] has a name, optional nested [Command.Subcommands], a
// [pflag.FlagSet] factory and a Run function. [Command.Execute] routes
// the first positional argument to a subcommand, parses flags, and
// prints help with examples on -h, --help or "help". Unknown commands
// and flags get a suggestion when one is within edit distance 3.
//
// Flags are usually declared as tagged struct fields and bound with
// [FlagsFromParams]; [JSONOutput] adds a --json switch to any params
// struct. [NewLogger] picks a text or JSON slog handler depending on
// whether stderr is a terminal.
package cli
