// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/wire"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

func TestEqualTextsDistinctDocuments(t *testing.T) {
	service := newTestService(t)
	fixture := newTestSolution()
	scope := service.createScope(t, fixture.solution)
	defer scope.Close()

	documents, nodes := documentNodes(t, service.Collection(), scope)
	if len(nodes) != 2 {
		t.Fatalf("project has %d documents, want 2", len(nodes))
	}
	if nodes[0].Text() != nodes[1].Text() {
		t.Error("A.txt and B.txt both contain \"hello\" but their text checksums differ")
	}
	if nodes[0].Checksum() == nodes[1].Checksum() {
		t.Error("A.txt and B.txt have the same document checksum despite different info")
	}

	removed, err := fixture.solution.RemoveDocument(fixture.b)
	if err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	smaller := service.createScope(t, removed)
	defer smaller.Close()
	smallerDocuments, smallerNodes := documentNodes(t, service.Collection(), smaller)
	if len(smallerNodes) != 1 {
		t.Fatalf("project has %d documents after removal, want 1", len(smallerNodes))
	}
	if smallerDocuments.Checksum() == documents.Checksum() {
		t.Error("removing B.txt kept the documents collection checksum")
	}
	if smallerNodes[0].Checksum() != nodes[0].Checksum() {
		t.Error("A.txt changed checksum when B.txt was removed")
	}
	local, ok := smaller.Cache().TryGetChecksumObject(nodes[0].Checksum())
	if !ok {
		t.Fatal("A.txt does not resolve through the second scope's own cache")
	}
	if local != ChecksumObject(nodes[0]) {
		t.Error("A.txt was rebuilt instead of shared between scopes")
	}
}

func TestIndependentTreesAgree(t *testing.T) {
	fixture := newTestSolution()
	first := newTestService(t).createScope(t, fixture.solution)
	defer first.Close()
	second := newTestService(t).createScope(t, fixture.solution)
	defer second.Close()

	if first.Checksum() != second.Checksum() {
		t.Errorf("two services disagree on the solution checksum: %s != %s",
			first.Checksum().Short(), second.Checksum().Short())
	}
	if first.Root() == second.Root() {
		t.Error("independent services shared a node")
	}
}

func TestEditChangesOnlyItsPath(t *testing.T) {
	service := newTestService(t)
	fixture := newTestSolution()
	before := service.createScope(t, fixture.solution)
	defer before.Close()

	edited, err := fixture.solution.WithDocumentText(fixture.b, textOf("goodbye"))
	if err != nil {
		t.Fatalf("WithDocumentText: %v", err)
	}
	after := service.createScope(t, edited)
	defer after.Close()

	if before.Checksum() == after.Checksum() {
		t.Fatal("editing B.txt kept the solution checksum")
	}
	if before.Root().Info() != after.Root().Info() {
		t.Error("editing a document changed the solution info checksum")
	}

	collection := service.Collection()
	beforeProjects := resolve[*serialization.ChecksumCollection](t, collection, before.Root().Projects())
	afterProjects := resolve[*serialization.ChecksumCollection](t, collection, after.Root().Projects())
	beforeProject := resolve[*serialization.ProjectStateChecksums](t, collection, beforeProjects.Items()[0]).Named()
	afterProject := resolve[*serialization.ProjectStateChecksums](t, collection, afterProjects.Items()[0]).Named()

	if beforeProject.Documents == afterProject.Documents {
		t.Error("documents collection checksum did not change")
	}
	unchanged := map[string][2]checksum.Checksum{
		"info":                {beforeProject.Info, afterProject.Info},
		"compilation options": {beforeProject.CompilationOptions, afterProject.CompilationOptions},
		"parse options":       {beforeProject.ParseOptions, afterProject.ParseOptions},
		"metadata references": {beforeProject.MetadataReferences, afterProject.MetadataReferences},
		"analyzer references": {beforeProject.AnalyzerReferences, afterProject.AnalyzerReferences},
	}
	for name, pair := range unchanged {
		if pair[0] != pair[1] {
			t.Errorf("project %s checksum changed", name)
		}
	}

	_, beforeNodes := documentNodes(t, collection, before)
	_, afterNodes := documentNodes(t, collection, after)
	if beforeNodes[0].Checksum() != afterNodes[0].Checksum() {
		t.Error("A.txt checksum changed")
	}
	if beforeNodes[1].Checksum() == afterNodes[1].Checksum() {
		t.Error("B.txt checksum did not change")
	}
	if beforeNodes[1].Info() != afterNodes[1].Info() {
		t.Error("B.txt info checksum changed with its text")
	}
}

func TestBuilderMemoizes(t *testing.T) {
	service := newTestService(t)
	fixture := newTestSolution()
	ctx := context.Background()
	cache := service.Collection().CreateRootTreeNodeCache(fixture.solution)

	first, err := service.Builder().BuildSolution(ctx, cache, fixture.solution)
	if err != nil {
		t.Fatalf("BuildSolution: %v", err)
	}
	builds := service.metricTotal(t, "workspacesync.cache.builds")
	second, err := service.Builder().BuildSolution(ctx, cache, fixture.solution)
	if err != nil {
		t.Fatalf("BuildSolution: %v", err)
	}
	if first != second {
		t.Error("second build returned a different solution node")
	}
	if again := service.metricTotal(t, "workspacesync.cache.builds"); again != builds {
		t.Errorf("second build ran %d factories", again-builds)
	}
	if hits := service.metricTotal(t, "workspacesync.cache.hits"); hits == 0 {
		t.Error("second build recorded no cache hits")
	}
}

func TestWrittenObjectsReadBack(t *testing.T) {
	service := newTestService(t)
	fixture := newTestSolution()
	scope := service.createScope(t, fixture.solution)
	defer scope.Close()
	ctx := context.Background()

	// Walk the whole tree the way a remote reader would: request a
	// level, read it, queue the children of every node read.
	seen := map[checksum.Checksum]bool{}
	queue := []checksum.Checksum{scope.Checksum()}
	for len(queue) > 0 {
		objects, missing := service.FindObjects(queue)
		if len(missing) > 0 {
			t.Fatalf("%d checksums missing from a live scope", len(missing))
		}
		var buffer bytes.Buffer
		if err := service.WriteObjects(ctx, wire.NewWriter(&buffer), objects); err != nil {
			t.Fatalf("WriteObjects: %v", err)
		}
		reader := wire.NewReader(&buffer)
		count := reader.ReadCount()
		if count != len(queue) {
			t.Fatalf("wrote %d objects, want %d", count, len(queue))
		}
		queue = nil
		for range count {
			object, err := service.Serializer().ReadObject(ctx, reader)
			if err != nil {
				t.Fatalf("ReadObject: %v", err)
			}
			seen[object.Checksum] = true
			if node, ok := object.Value.(serialization.Node); ok {
				for _, child := range node.Children() {
					if !seen[child] {
						seen[child] = true
						queue = append(queue, child)
					}
				}
			}
		}
	}
	// solution, info, projects, project, 8 project children, 2
	// documents each with info and text (texts are equal), one
	// metadata and one analyzer reference.
	if len(seen) < 15 {
		t.Errorf("walked %d distinct objects, expected the full tree", len(seen))
	}
}

func TestWriteObjectsWithinBudget(t *testing.T) {
	service := newTestService(t)
	fixture := newTestSolution()
	scope := service.createScope(t, fixture.solution)
	defer scope.Close()
	ctx := context.Background()

	sums := []checksum.Checksum{scope.Checksum(), scope.Root().Info(), scope.Root().Projects()}
	objects, missing := service.FindObjects(sums)
	if len(missing) > 0 {
		t.Fatalf("%d checksums missing from a live scope", len(missing))
	}

	tests := []struct {
		name   string
		budget int
		want   int
	}{
		{"first object always fits", 1, 1},
		{"everything fits", 1 << 20, 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buffer bytes.Buffer
			written, err := service.WriteObjectsWithin(ctx, wire.NewWriter(&buffer), objects, test.budget)
			if err != nil {
				t.Fatalf("WriteObjectsWithin: %v", err)
			}
			if written != test.want {
				t.Fatalf("wrote %d objects, want %d", written, test.want)
			}
			reader := wire.NewReader(&buffer)
			if count := reader.ReadCount(); count != written {
				t.Fatalf("count prefix = %d, want %d", count, written)
			}
			for index := range written {
				object, err := service.Serializer().ReadObject(ctx, reader)
				if err != nil {
					t.Fatalf("ReadObject: %v", err)
				}
				if object.Checksum != sums[index] {
					t.Errorf("object %d = %s, want %s", index, object.Checksum.Short(), sums[index].Short())
				}
			}
			if buffer.Len() != 0 {
				t.Errorf("%d trailing bytes", buffer.Len())
			}
		})
	}
}

func TestSourceTextChangedOnDisk(t *testing.T) {
	service := newTestService(t)
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	projectID := workspace.NewProjectID("p")
	document := workspace.NewDocumentState(
		workspace.DocumentInfo{ID: workspace.NewDocumentID(projectID, "main.go"), Name: "main.go", FilePath: path},
		workspace.FileTextLoader{Path: path},
	)
	asset, err := NewSourceTextAsset(context.Background(), service.Serializer(), document)
	if err != nil {
		t.Fatalf("NewSourceTextAsset: %v", err)
	}

	var buffer bytes.Buffer
	if err := asset.WriteObjectTo(context.Background(), wire.NewWriter(&buffer)); err != nil {
		t.Fatalf("WriteObjectTo before edit: %v", err)
	}

	if err := os.WriteFile(path, []byte("package changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = asset.WriteObjectTo(context.Background(), wire.NewWriter(&buffer))
	if !errors.Is(err, ErrTextChanged) {
		t.Errorf("error = %v, want ErrTextChanged", err)
	}
}

func TestCancelledBuildRegistersNothing(t *testing.T) {
	service := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := service.CreateScope(ctx, newTestSolution().solution); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if scopes := service.Collection().Scopes(); len(scopes) != 0 {
		t.Errorf("%d scopes registered after a cancelled build", len(scopes))
	}
}

func TestUnknownLanguageFailsBuild(t *testing.T) {
	service := newTestService(t)
	fixture := newTestSolution()
	project, _ := fixture.solution.Project(fixture.project)
	info := project.Info()
	info.Language = "Fortran"
	solution, err := fixture.solution.UpdateProject(project.WithInfo(info).WithCompilationOptions(unknownOptions{}))
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if _, err := service.CreateScope(context.Background(), solution); !errors.Is(err, serialization.ErrUnknownLanguage) {
		t.Errorf("error = %v, want ErrUnknownLanguage", err)
	}
}

type unknownOptions struct{}

func (unknownOptions) Language() string { return "Fortran" }
