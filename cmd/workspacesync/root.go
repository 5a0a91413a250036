// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/workspacesync/cmd/workspacesync/cli"
	"github.com/bureau-foundation/workspacesync/lib/version"
)

// rootCommand builds the command tree. Command results go to stdout;
// help and logs go to stderr.
func rootCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "workspacesync",
		Description: `workspacesync: content-addressed snapshots of solutions.

Build the Merkle checksum tree of a solution described by a manifest,
serve its objects over a Unix socket, and replicate them incrementally
on the other side.`,
		Subcommands: []*cli.Command{
			checksumCommand(stdout),
			dumpCommand(stdout),
			serveCommand(),
			syncCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string) error {
					_, err := fmt.Fprintf(stdout, "workspacesync %s\n", version.Full())
					return err
				},
			},
		},
	}
}
