// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/workspacesync/cmd/workspacesync/cli"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
)

type checksumParams struct {
	configParams
	cli.JSONOutput
}

type checksumResult struct {
	Solution string            `json:"solution"`
	Checksum string            `json:"checksum"`
	Projects []projectChecksum `json:"projects"`
}

type projectChecksum struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
}

func checksumCommand(stdout io.Writer) *cli.Command {
	var params checksumParams
	return &cli.Command{
		Name:    "checksum",
		Summary: "Print the checksum of a manifest's solution",
		Description: `Load the solution described by a manifest, build its checksum tree,
and print the root checksum. The checksum depends only on the
solution's content and the manifest's modification time, so it is
stable across runs.`,
		Usage: "workspacesync checksum [flags] <manifest>",
		Examples: []cli.Example{
			{Description: "Root checksum only", Command: "workspacesync checksum ws.jsonc"},
			{Description: "Per-project checksums as JSON", Command: "workspacesync checksum --json ws.jsonc"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("checksum", &params) },
		Run: func(ctx context.Context, args []string) error {
			file, err := requireOneArgument(args, "manifest path")
			if err != nil {
				return err
			}
			env, err := newEnvironment(params.configParams)
			if err != nil {
				return err
			}
			service, err := env.newService()
			if err != nil {
				return err
			}
			scope, loaded, err := createScope(ctx, service, file)
			if err != nil {
				return err
			}
			defer scope.Close()

			if !params.OutputJSON {
				_, err := fmt.Fprintln(stdout, scope.Checksum())
				return err
			}

			result := checksumResult{
				Solution: loaded.manifest.Name,
				Checksum: scope.Checksum().String(),
				Projects: make([]projectChecksum, 0, len(loaded.solution.Projects())),
			}
			projects := service.GetObject(scope.Root().Projects()).(*serialization.ChecksumCollection)
			for index, project := range loaded.solution.Projects() {
				result.Projects = append(result.Projects, projectChecksum{
					Name:     project.Info().Name,
					Checksum: projects.Items()[index].String(),
				})
			}
			return cli.WriteJSON(stdout, result)
		},
	}
}
