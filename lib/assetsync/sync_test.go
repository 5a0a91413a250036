// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetsync

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

func TestSyncAndRehydrateOverSocket(t *testing.T) {
	remote := newSnapshotService(t)
	solution := newTestSolution()
	scope := createScope(t, remote, solution)
	defer scope.Close()
	client := NewClient(startServer(t, remote), newSerializer())

	replica := NewReplica()
	defer replica.Close()
	stats, err := NewSynchronizer(client, replica, 8, testLogger()).Sync(context.Background(), scope.Checksum())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Fetched == 0 || stats.Fetched != replica.Len() {
		t.Errorf("fetched %d objects, replica holds %d", stats.Fetched, replica.Len())
	}
	if stats.Reused != 0 {
		t.Errorf("reused %d objects from an empty replica", stats.Reused)
	}

	rehydrated, err := Rehydrate(replica, scope.Checksum())
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if !rehydrated.Info().Equal(solution.Info()) {
		t.Errorf("solution info = %+v, want %+v", rehydrated.Info(), solution.Info())
	}
	if len(rehydrated.Projects()) != 2 {
		t.Fatalf("rehydrated %d projects, want 2", len(rehydrated.Projects()))
	}
	app := rehydrated.Projects()[1]
	if len(app.AdditionalDocuments()) != 1 || len(app.ProjectReferences()) != 1 ||
		len(app.MetadataReferences()) != 1 || len(app.AnalyzerReferences()) != 2 {
		t.Errorf("app project lost members: %d additional, %d project refs, %d metadata refs, %d analyzer refs",
			len(app.AdditionalDocuments()), len(app.ProjectReferences()),
			len(app.MetadataReferences()), len(app.AnalyzerReferences()))
	}

	// The rehydrated solution checksums to the same root locally.
	local := newSnapshotService(t)
	localScope := createScope(t, local, rehydrated)
	defer localScope.Close()
	if localScope.Checksum() != scope.Checksum() {
		t.Errorf("rehydrated root = %s, remote root = %s", localScope.Checksum().Short(), scope.Checksum().Short())
	}
}

func TestSyncWithSmallResponseBudget(t *testing.T) {
	remote := newSnapshotService(t)
	scope := createScope(t, remote, newTestSolution())
	defer scope.Close()
	socketPath := startServer(t, remote, func(server *Server) { server.SetResponseBudget(64) })

	replica := NewReplica()
	defer replica.Close()
	stats, err := NewSynchronizer(NewClient(socketPath, newSerializer()), replica, 0, testLogger()).Sync(context.Background(), scope.Checksum())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Fetched != replica.Len() {
		t.Errorf("fetched %d objects, replica holds %d", stats.Fetched, replica.Len())
	}
	if _, err := Rehydrate(replica, scope.Checksum()); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
}

func TestIncrementalSyncFetchesOnlyChanges(t *testing.T) {
	remote := newSnapshotService(t)
	source := &serviceSource{service: remote, serializer: newSerializer()}
	solution := newTestSolution()
	first := createScope(t, remote, solution)
	defer first.Close()

	replica := NewReplica()
	defer replica.Close()
	synchronizer := NewSynchronizer(source, replica, 0, testLogger())
	initial, err := synchronizer.Sync(context.Background(), first.Checksum())
	if err != nil {
		t.Fatalf("first Sync: %v", err)
	}

	main := solution.Projects()[1].Documents()[0]
	edited, err := solution.WithDocumentText(main.ID(), textOf("package main\n\nfunc main() {}\n"))
	if err != nil {
		t.Fatalf("WithDocumentText: %v", err)
	}
	second := createScope(t, remote, edited)
	defer second.Close()

	update, err := synchronizer.Sync(context.Background(), second.Checksum())
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	// New: solution node, projects collection, app node, app documents
	// collection, main.go node and its text.
	if update.Fetched != 6 {
		t.Errorf("incremental sync fetched %d objects, want 6", update.Fetched)
	}
	if update.Reused == 0 || update.Fetched >= initial.Fetched {
		t.Errorf("incremental sync reused %d and fetched %d (initial fetched %d)",
			update.Reused, update.Fetched, initial.Fetched)
	}

	rehydrated, err := Rehydrate(replica, second.Checksum())
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	document, ok := rehydrated.Document(main.ID())
	if !ok {
		t.Fatal("edited document missing after rehydration")
	}
	text, err := document.Text(context.Background())
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text.String() != "package main\n\nfunc main() {}\n" {
		t.Errorf("text = %q", text.String())
	}
}

func TestSyncBatches(t *testing.T) {
	remote := newSnapshotService(t)
	source := &serviceSource{service: remote, serializer: newSerializer()}
	scope := createScope(t, remote, newTestSolution())
	defer scope.Close()

	stats, err := NewSynchronizer(source, NewReplica(), 3, testLogger()).Sync(context.Background(), scope.Checksum())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	for index, request := range source.requests {
		if len(request) > 3 {
			t.Errorf("request %d asked for %d checksums, batch size is 3", index, len(request))
		}
	}
	if stats.Requests != len(source.requests) {
		t.Errorf("stats counted %d requests, source saw %d", stats.Requests, len(source.requests))
	}
}

func TestSyncOfClosedScopeIsMissing(t *testing.T) {
	remote := newSnapshotService(t)
	source := &serviceSource{service: remote, serializer: newSerializer()}
	scope := createScope(t, remote, newTestSolution())
	root := scope.Checksum()
	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := NewSynchronizer(source, NewReplica(), 0, testLogger()).Sync(context.Background(), root)
	if !errors.Is(err, ErrMissingObject) {
		t.Errorf("error = %v, want ErrMissingObject", err)
	}
}

func TestSyncCancelled(t *testing.T) {
	remote := newSnapshotService(t)
	source := &serviceSource{service: remote, serializer: newSerializer()}
	scope := createScope(t, remote, newTestSolution())
	defer scope.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	replica := NewReplica()
	if _, err := NewSynchronizer(source, replica, 0, testLogger()).Sync(ctx, scope.Checksum()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if replica.Len() != 0 {
		t.Errorf("cancelled sync stored %d objects", replica.Len())
	}
}

func TestRehydrateIncompleteReplica(t *testing.T) {
	remote := newSnapshotService(t)
	source := &serviceSource{service: remote, serializer: newSerializer()}
	scope := createScope(t, remote, newTestSolution())
	defer scope.Close()

	replica := NewReplica()
	objects, _, err := source.GetObjects(context.Background(), []checksum.Checksum{scope.Checksum()})
	if err != nil {
		t.Fatalf("GetObjects: %v", err)
	}
	replica.Put(objects[0])

	if _, err := Rehydrate(replica, scope.Checksum()); !errors.Is(err, ErrMissingObject) {
		t.Errorf("error = %v, want ErrMissingObject", err)
	}
}

func TestReplicaLookupChecksKind(t *testing.T) {
	remote := newSnapshotService(t)
	source := &serviceSource{service: remote, serializer: newSerializer()}
	scope := createScope(t, remote, newTestSolution())
	defer scope.Close()

	replica := NewReplica()
	objects, _, err := source.GetObjects(context.Background(), []checksum.Checksum{scope.Root().Info()})
	if err != nil {
		t.Fatalf("GetObjects: %v", err)
	}
	if !replica.Put(objects[0]) {
		t.Fatal("first Put reported a duplicate")
	}
	if replica.Put(objects[0]) {
		t.Error("second Put reported a new object")
	}
	if _, err := Lookup[workspace.SolutionInfo](replica, scope.Root().Info(), checksum.KindSolutionInfo); err != nil {
		t.Errorf("Lookup: %v", err)
	}
	if _, err := Lookup[workspace.ProjectInfo](replica, scope.Root().Info(), checksum.KindProjectInfo); err == nil {
		t.Error("Lookup accepted the wrong kind")
	}
}
