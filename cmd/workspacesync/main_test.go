// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/workspacesync/cmd/workspacesync/cli"
	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/testutil"
)

const libraryManifest = `{
  // A Go tool and the Python models it reads.
  "name": "library",
  "projects": [
    {
      "name": "models",
      "language": "Python",
      "directory": "models",
      "documents": ["*.py"],
      "compilation_options": {"interpreter_version": "3.12"},
    },
    {
      "name": "tool",
      "language": "Go",
      "directory": "tool",
      "documents": ["*.go", "internal/*.go"],
      "additional_documents": ["README.md"],
      "compilation_options": {"module_path": "example.com/library/tool", "go_version": "1.25"},
      "project_references": [{"project": "models"}],
      "metadata_references": [{"path": "lib/strings.a", "in_memory": true}],
      "analyzers": [{"path": "tools/lint.so"}],
    },
  ],
  "options": {"tab_width": "4"},
}`

type fixture struct {
	manifest string
	config   string
	socket   string
}

// newFixture writes the library manifest, its sources and a
// configuration using heap storage and a socket under /tmp.
func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"library.jsonc":            libraryManifest,
		"models/book.py":           "class Book: ...\n",
		"models/author.py":         "class Author: ...\n",
		"tool/main.go":             "package main\n\nfunc main() {}\n",
		"tool/internal/catalog.go": "package internal\n",
		"tool/README.md":           "# tool\n",
		"tool/lib/strings.a":       "!<arch>\n",
	}
	for name, content := range files {
		file := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	socket := filepath.Join(testutil.SocketDir(t), "workspacesync.sock")
	config := filepath.Join(root, "workspacesync.yaml")
	content := "storage:\n  memory_mapped: false\nlog:\n  level: error\nsync:\n  socket_path: " + socket + "\n  batch_size: 8\n"
	if err := os.WriteFile(config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return fixture{manifest: filepath.Join(root, "library.jsonc"), config: config, socket: socket}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	root := rootCommand(&stdout)
	root.Output = &bytes.Buffer{}
	err := root.Execute(context.Background(), args)
	return stdout.String(), err
}

func TestChecksumIsStable(t *testing.T) {
	fixture := newFixture(t)
	first, err := execute(t, "checksum", "--config", fixture.config, fixture.manifest)
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if _, err := checksum.Parse(strings.TrimSpace(first)); err != nil {
		t.Fatalf("output %q is not a checksum: %v", first, err)
	}
	second, err := execute(t, "checksum", "--config", fixture.config, fixture.manifest)
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if first != second {
		t.Errorf("checksum changed between runs: %s vs %s", first, second)
	}
}

func TestChecksumJSON(t *testing.T) {
	fixture := newFixture(t)
	output, err := execute(t, "checksum", "--json", "-c", fixture.config, fixture.manifest)
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	var result checksumResult
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("decoding %s: %v", output, err)
	}
	if result.Solution != "library" || len(result.Projects) != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Projects[0].Name != "models" || result.Projects[1].Name != "tool" {
		t.Errorf("projects = %+v", result.Projects)
	}
	if result.Projects[0].Checksum == result.Projects[1].Checksum {
		t.Error("distinct projects share a checksum")
	}
}

func TestChecksumChangesWithContent(t *testing.T) {
	fixture := newFixture(t)
	before, err := execute(t, "checksum", "--config", fixture.config, fixture.manifest)
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	book := filepath.Join(filepath.Dir(fixture.manifest), "models", "book.py")
	if err := os.WriteFile(book, []byte("class Book:\n    title: str\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	after, err := execute(t, "checksum", "--config", fixture.config, fixture.manifest)
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if before == after {
		t.Error("editing a document did not change the solution checksum")
	}
}

func TestDump(t *testing.T) {
	fixture := newFixture(t)
	output, err := execute(t, "dump", "--depth", "2", "--config", fixture.config, fixture.manifest)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	for _, want := range []string{"SolutionState ", "├── SolutionInfo", "└── Projects", "2 items", "ProjectState"} {
		if !strings.Contains(output, want) {
			t.Errorf("dump output lacks %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "DocumentState") {
		t.Errorf("--depth 2 printed document nodes:\n%s", output)
	}
}

func TestDumpJSON(t *testing.T) {
	fixture := newFixture(t)
	output, err := execute(t, "dump", "--json", "--full", "--config", fixture.config, fixture.manifest)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	var tree dumpNode
	if err := json.Unmarshal([]byte(output), &tree); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if tree.Kind != checksum.KindSolutionState || len(tree.Children) != 2 {
		t.Fatalf("root = %+v", tree)
	}
	if _, err := checksum.Parse(tree.Checksum); err != nil {
		t.Errorf("--full checksum %q: %v", tree.Checksum, err)
	}

	var texts, options []string
	var walk func(*dumpNode)
	walk = func(node *dumpNode) {
		switch node.Kind {
		case checksum.KindSourceText:
			texts = append(texts, node.Label)
		case checksum.KindCompilationOptions:
			options = append(options, node.Label)
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(&tree)
	// Two models, two Go sources and the README.
	if len(texts) != 5 {
		t.Errorf("source texts = %v, want 5", texts)
	}
	if !slices.ContainsFunc(options, func(label string) bool {
		return strings.HasPrefix(label, "Go {") && strings.Contains(label, `"go_version": "1.25"`)
	}) {
		t.Errorf("compilation option labels = %q", options)
	}
}

func TestVersion(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(output, "workspacesync ") {
		t.Errorf("version output = %q", output)
	}
}

func TestMissingManifestArgument(t *testing.T) {
	_, err := execute(t, "checksum")
	if err == nil || !strings.Contains(err.Error(), "manifest path is required") {
		t.Errorf("error = %v", err)
	}
}

func TestServeAndSync(t *testing.T) {
	fixture := newFixture(t)
	served, err := execute(t, "checksum", "--config", fixture.config, fixture.manifest)
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wait sync.WaitGroup
	wait.Add(1)
	go func() {
		defer wait.Done()
		root := rootCommand(&bytes.Buffer{})
		if err := root.Execute(ctx, []string{"serve", "--config", fixture.config, fixture.manifest}); err != nil {
			t.Errorf("serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		wait.Wait()
	})
	waitForSocket(t, fixture.socket)

	output, err := execute(t, "sync", "--verify", "--json", "--config", fixture.config)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	var result syncResult
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("decoding %s: %v", output, err)
	}
	if result.Root != strings.TrimSpace(served) {
		t.Errorf("synced root %s, served %s", result.Root, served)
	}
	if !result.Verified || result.Local != result.Root {
		t.Errorf("verification failed: %+v", result)
	}
	if result.Projects != 2 || result.Documents != 5 {
		t.Errorf("rehydrated %d projects and %d documents", result.Projects, result.Documents)
	}
	if result.Fetched != result.Objects || result.Requests < 2 {
		t.Errorf("stats = %+v", result)
	}

	// An explicit root selects the same scope.
	output, err = execute(t, "sync", "--root", result.Root, "--config", fixture.config)
	if err != nil {
		t.Fatalf("sync --root: %v", err)
	}
	if !strings.Contains(output, "root       "+result.Root) {
		t.Errorf("sync output:\n%s", output)
	}
}

func TestSyncUnknownRoot(t *testing.T) {
	fixture := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	var wait sync.WaitGroup
	wait.Add(1)
	go func() {
		defer wait.Done()
		root := rootCommand(&bytes.Buffer{})
		if err := root.Execute(ctx, []string{"serve", "--config", fixture.config, fixture.manifest}); err != nil {
			t.Errorf("serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		wait.Wait()
	})
	waitForSocket(t, fixture.socket)

	unknown := checksum.Create(checksum.KindSolutionState, []byte("not served"))
	_, err := execute(t, "sync", "--root", unknown.String(), "--config", fixture.config)
	if err == nil || !strings.Contains(err.Error(), "object not found") {
		t.Errorf("error = %v, want a missing object error", err)
	}
}

func TestSyncWithoutServer(t *testing.T) {
	fixture := newFixture(t)
	_, err := execute(t, "sync", "--config", fixture.config)
	if err == nil {
		t.Fatal("sync succeeded with no server")
	}
	var exit *cli.ExitError
	if errors.As(err, &exit) {
		t.Errorf("connection failure reported as %v", exit)
	}
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s did not appear before test context expired", path)
		}
		runtime.Gosched()
	}
}
