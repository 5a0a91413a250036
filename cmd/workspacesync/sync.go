// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/workspacesync/cmd/workspacesync/cli"
	"github.com/bureau-foundation/workspacesync/lib/assetsync"
	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

type syncParams struct {
	configParams
	cli.JSONOutput
	Socket string `flag:"socket,s" desc:"socket path (default: sync.socket_path)"`
	Root   string `flag:"root" desc:"root checksum to replicate (default: the newest served scope)"`
	Verify bool   `flag:"verify" desc:"rebuild the checksum tree locally and compare roots"`
}

type syncResult struct {
	Root      string `json:"root"`
	Solution  string `json:"solution"`
	Projects  int    `json:"projects"`
	Documents int    `json:"documents"`
	Objects   int    `json:"objects"`
	Fetched   int    `json:"fetched"`
	Requests  int    `json:"requests"`

	// Local is the locally rebuilt root checksum; set with --verify.
	Local    string `json:"local,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// exitVerifyFailed is the exit code of a sync whose rebuilt checksum
// differs from the served one.
const exitVerifyFailed = 2

func syncCommand(stdout io.Writer) *cli.Command {
	var params syncParams
	return &cli.Command{
		Name:    "sync",
		Summary: "Replicate a served snapshot and rebuild its solution",
		Description: `Connect to a workspacesync server, fetch every object reachable from a
root checksum, and rebuild the solution from them. With --verify the
rebuilt solution is checksummed locally; a mismatch exits with code 2.`,
		Usage: "workspacesync sync [flags]",
		Examples: []cli.Example{
			{Description: "Replicate the newest scope and check it", Command: "workspacesync sync --verify"},
			{Command: "workspacesync sync --root 3f9a...c2 --json"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("sync", &params) },
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			env, err := newEnvironment(params.configParams)
			if err != nil {
				return err
			}
			socket := params.Socket
			if socket == "" {
				socket = env.config.Sync.SocketPath
			}
			client := assetsync.NewClient(socket, env.serializer)

			root, err := selectRoot(ctx, client, params.Root)
			if err != nil {
				return err
			}
			replica := assetsync.NewReplica()
			defer replica.Close()

			stats, err := assetsync.NewSynchronizer(client, replica, env.config.Sync.BatchSize, env.logger).Sync(ctx, root)
			if err != nil {
				return err
			}
			solution, err := assetsync.Rehydrate(replica, root)
			if err != nil {
				return err
			}

			result := syncResult{
				Root:      root.String(),
				Solution:  solution.ID().String(),
				Projects:  len(solution.Projects()),
				Documents: countDocuments(solution),
				Objects:   replica.Len(),
				Fetched:   stats.Fetched,
				Requests:  stats.Requests,
			}
			if params.Verify {
				local, err := rebuildChecksum(ctx, env, solution)
				if err != nil {
					return fmt.Errorf("verifying: %w", err)
				}
				result.Local = local.String()
				result.Verified = local == root
				if !result.Verified {
					env.logger.Error("rebuilt checksum differs from served checksum",
						"served", root.Short(),
						"rebuilt", local.Short(),
					)
				}
			}

			if params.OutputJSON {
				err = cli.WriteJSON(stdout, result)
			} else {
				err = printSyncResult(stdout, result, params.Verify)
			}
			if err != nil {
				return err
			}
			if params.Verify && !result.Verified {
				return &cli.ExitError{Code: exitVerifyFailed}
			}
			return nil
		},
	}
}

// selectRoot parses text, or asks the server for its newest scope when
// text is empty.
func selectRoot(ctx context.Context, client *assetsync.Client, text string) (checksum.Checksum, error) {
	if text != "" {
		return checksum.Parse(text)
	}
	scopes, err := client.Scopes(ctx)
	if err != nil {
		return checksum.Checksum{}, err
	}
	if len(scopes) == 0 {
		return checksum.Checksum{}, errors.New("the server has no live scopes; pass --root or start serve first")
	}
	newest := slices.MaxFunc(scopes, func(a, b assetsync.ScopeInfo) int {
		return cmp.Compare(a.CreatedUnixNano, b.CreatedUnixNano)
	})
	return newest.Checksum, nil
}

// rebuildChecksum checksums solution in a scratch service.
func rebuildChecksum(ctx context.Context, env *environment, solution *workspace.SolutionState) (checksum.Checksum, error) {
	service, err := env.newService()
	if err != nil {
		return checksum.Checksum{}, err
	}
	scope, err := service.CreateScope(ctx, solution)
	if err != nil {
		return checksum.Checksum{}, err
	}
	sum := scope.Checksum()
	return sum, scope.Close()
}

func countDocuments(solution *workspace.SolutionState) int {
	var count int
	for _, project := range solution.Projects() {
		count += len(project.Documents()) + len(project.AdditionalDocuments())
	}
	return count
}

func printSyncResult(w io.Writer, result syncResult, verify bool) error {
	_, err := fmt.Fprintf(w, "root       %s\nsolution   %s\nprojects   %d\ndocuments  %d\nobjects    %d (%d fetched in %d requests)\n",
		result.Root, result.Solution, result.Projects, result.Documents,
		result.Objects, result.Fetched, result.Requests)
	if err != nil || !verify {
		return err
	}
	status := "ok"
	if !result.Verified {
		status = "MISMATCH " + result.Local
	}
	_, err = fmt.Fprintf(w, "verified   %s\n", status)
	return err
}
