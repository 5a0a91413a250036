// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/workspacesync/cmd/workspacesync/cli"
	"github.com/bureau-foundation/workspacesync/lib/assetsync"
	"github.com/bureau-foundation/workspacesync/lib/version"
)

type serveParams struct {
	configParams
	Socket        string        `flag:"socket,s" desc:"socket path (default: sync.socket_path)"`
	SweepInterval time.Duration `flag:"sweep-interval" desc:"how often to report long-lived scopes" default:"1m"`
}

func serveCommand() *cli.Command {
	var params serveParams
	return &cli.Command{
		Name:    "serve",
		Summary: "Serve a manifest's snapshot on a Unix socket",
		Description: `Build a scope over the solution described by a manifest and answer
get_objects requests for it until interrupted. Scopes open longer than
scopes.leak_threshold are reported every --sweep-interval.`,
		Usage: "workspacesync serve [flags] <manifest>",
		Examples: []cli.Example{
			{Description: "Serve on the configured socket", Command: "workspacesync serve ws.jsonc"},
			{Command: "workspacesync serve --socket /tmp/ws.sock ws.jsonc"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("serve", &params) },
		Run: func(ctx context.Context, args []string) error {
			file, err := requireOneArgument(args, "manifest path")
			if err != nil {
				return err
			}
			if params.SweepInterval <= 0 {
				return fmt.Errorf("--sweep-interval must be positive, got %s", params.SweepInterval)
			}
			env, err := newEnvironment(params.configParams)
			if err != nil {
				return err
			}
			threshold, err := env.config.LeakThreshold()
			if err != nil {
				return err
			}
			socket := params.Socket
			if socket == "" {
				socket = env.config.Sync.SocketPath
			}

			service, err := env.newService()
			if err != nil {
				return err
			}
			scope, loaded, err := createScope(ctx, service, file)
			if err != nil {
				return err
			}
			env.logger.Info("serving snapshot",
				"solution", loaded.manifest.Name,
				"checksum", scope.Checksum().Short(),
				"socket", socket,
				"version", version.Info(),
			)

			server := assetsync.NewServer(socket, service, env.logger)
			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				return server.Serve(ctx)
			})
			group.Go(func() error {
				service.WatchScopes(ctx, params.SweepInterval, threshold)
				return nil
			})
			return errors.Join(group.Wait(), scope.Close())
		},
	}
}
