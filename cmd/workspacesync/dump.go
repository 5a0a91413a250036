// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/workspacesync/cmd/workspacesync/cli"
	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/codec"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/snapshot"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

type dumpParams struct {
	configParams
	cli.JSONOutput
	Depth int  `flag:"depth,d" desc:"levels below the root to print (0 prints the whole tree)"`
	Full  bool `flag:"full" desc:"print full checksums instead of short prefixes"`
}

// dumpNode is the JSON form of one tree node.
type dumpNode struct {
	Kind     checksum.Kind `json:"kind"`
	Checksum string        `json:"checksum"`
	Label    string        `json:"label,omitempty"`
	Children []*dumpNode   `json:"children,omitempty"`
}

func dumpCommand(stdout io.Writer) *cli.Command {
	var params dumpParams
	return &cli.Command{
		Name:    "dump",
		Summary: "Print the checksum tree of a manifest's solution",
		Description: `Load the solution described by a manifest and print its checksum tree,
one node per line: kind, checksum and a short label. Output is colored
when stdout is a terminal.`,
		Usage: "workspacesync dump [flags] <manifest>",
		Examples: []cli.Example{
			{Description: "Solution, projects and their children", Command: "workspacesync dump --depth 3 ws.jsonc"},
			{Description: "Machine-readable tree", Command: "workspacesync dump --json ws.jsonc | jq '.children[1]'"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("dump", &params) },
		Run: func(ctx context.Context, args []string) error {
			file, err := requireOneArgument(args, "manifest path")
			if err != nil {
				return err
			}
			if params.Depth < 0 {
				return fmt.Errorf("--depth must not be negative, got %d", params.Depth)
			}
			env, err := newEnvironment(params.configParams)
			if err != nil {
				return err
			}
			service, err := env.newService()
			if err != nil {
				return err
			}
			scope, _, err := createScope(ctx, service, file)
			if err != nil {
				return err
			}
			defer scope.Close()

			below := params.Depth
			if below == 0 {
				below = -1
			}
			tree := buildDumpTree(service.Collection(), scope.Checksum(), below, params.Full)
			if params.OutputJSON {
				return cli.WriteJSON(stdout, tree)
			}
			printer := newTreePrinter(false, 0)
			if file, ok := stdout.(*os.File); ok && cli.ColorEnabled(file) {
				printer = newTreePrinter(true, cli.TerminalWidth(file))
			}
			var builder strings.Builder
			printer.print(&builder, tree, "", "")
			_, err = io.WriteString(stdout, builder.String())
			return err
		},
	}
}

// buildDumpTree resolves sum and its descendants down to below levels
// under it; a negative below has no limit. Every checksum under a
// live scope resolves.
func buildDumpTree(collection *snapshot.Collection, sum checksum.Checksum, below int, full bool) *dumpNode {
	object := collection.GetChecksumObject(sum)
	node := &dumpNode{Kind: object.Kind(), Label: describe(object)}
	if full {
		node.Checksum = sum.String()
	} else {
		node.Checksum = sum.Short()
	}
	if below == 0 {
		return node
	}
	if parent, ok := object.(serialization.Node); ok {
		for _, child := range parent.Children() {
			node.Children = append(node.Children, buildDumpTree(collection, child, below-1, full))
		}
	}
	return node
}

// describe returns a short human label for object, or "".
func describe(object snapshot.ChecksumObject) string {
	switch object := object.(type) {
	case *serialization.ChecksumCollection:
		if object.Len() == 1 {
			return "1 item"
		}
		return fmt.Sprintf("%d items", object.Len())
	case *snapshot.SourceTextAsset:
		return documentPath(object.Document().Info())
	case *snapshot.Asset:
		switch value := object.Value().(type) {
		case workspace.SolutionInfo:
			return value.ID.String()
		case workspace.ProjectInfo:
			return fmt.Sprintf("%s (%s)", value.Name, value.Language)
		case workspace.DocumentInfo:
			return documentPath(value)
		case *workspace.ProjectReference:
			return value.ProjectID.String()
		case *workspace.MetadataReference:
			return value.String()
		case *workspace.AnalyzerReference:
			return fmt.Sprintf("%s (%s)", value.FullPath(), value.Variant())
		case workspace.CompilationOptions:
			// Parse options have the same method set.
			return value.Language() + " " + diagnose(value)
		}
	}
	return ""
}

// diagnose renders options in CBOR diagnostic notation, or "" if they
// do not encode.
func diagnose(options any) string {
	data, err := codec.Marshal(options)
	if err != nil {
		return ""
	}
	notation, err := codec.Diagnose(data)
	if err != nil {
		return ""
	}
	return notation
}

func documentPath(info workspace.DocumentInfo) string {
	return path.Join(path.Join(info.Folders...), info.Name)
}

// treePrinter renders a dumpNode tree with box-drawing branches. A
// positive width truncates lines to that many columns.
type treePrinter struct {
	kind  func(string) string
	sum   func(string) string
	label func(string) string
	width int
}

func newTreePrinter(color bool, width int) treePrinter {
	if !color {
		plain := func(s string) string { return s }
		return treePrinter{kind: plain, sum: plain, label: plain, width: width}
	}
	kind := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sum := lipgloss.NewStyle().Faint(true)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	return treePrinter{
		kind:  func(s string) string { return kind.Render(s) },
		sum:   func(s string) string { return sum.Render(s) },
		label: func(s string) string { return label.Render(s) },
		width: width,
	}
}

func (p treePrinter) print(w *strings.Builder, node *dumpNode, branch, indent string) {
	line := branch + p.kind(string(node.Kind)) + " " + p.sum(node.Checksum)
	if node.Label != "" {
		line += " " + p.label(node.Label)
	}
	if p.width > 0 {
		line = ansi.Truncate(line, p.width, "…")
	}
	w.WriteString(line)
	w.WriteString("\n")
	for index, child := range node.Children {
		if index == len(node.Children)-1 {
			p.print(w, child, indent+"└── ", indent+"    ")
		} else {
			p.print(w, child, indent+"├── ", indent+"│   ")
		}
	}
}
