// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetsync

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/languages"
	"github.com/bureau-foundation/workspacesync/lib/languages/golang"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/snapshot"
	"github.com/bureau-foundation/workspacesync/lib/testutil"
	"github.com/bureau-foundation/workspacesync/lib/wire"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newSerializer() *serialization.Serializer {
	return serialization.New(serialization.Options{Languages: languages.Lookup, Logger: testLogger()})
}

func newSnapshotService(t *testing.T) *snapshot.Service {
	t.Helper()
	service, err := snapshot.NewService(snapshot.Options{
		Serializer: newSerializer(),
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func createScope(t *testing.T, service *snapshot.Service, solution *workspace.SolutionState) *snapshot.Scope {
	t.Helper()
	scope, err := service.CreateScope(context.Background(), solution)
	if err != nil {
		t.Fatalf("CreateScope: %v", err)
	}
	return scope
}

func textOf(content string) workspace.TextLoader {
	return workspace.TextConstant(workspace.NewSourceText(content, "utf-8", workspace.ChecksumSHA256))
}

// newTestSolution returns a two-project solution: "lib" with two
// documents and "app" referencing "lib", with one reference of each
// kind and an additional document.
func newTestSolution() *workspace.SolutionState {
	libID := workspace.NewProjectID("lib")
	appID := workspace.NewProjectID("app")

	lib := workspace.NewProjectState(
		workspace.ProjectInfo{ID: libID, Version: workspace.NewVersionStamp(epoch), Name: "lib", AssemblyName: "example.com/lib", Language: workspace.LanguageGo},
		&golang.CompilationOptions{ModulePath: "example.com/lib", GoVersion: "1.25"},
		&golang.ParseOptions{LanguageVersion: "go1.25"},
	).AddDocuments(
		workspace.NewDocumentState(workspace.DocumentInfo{ID: workspace.NewDocumentID(libID, "lib.go"), Name: "lib.go", FilePath: "/src/lib/lib.go"}, textOf("package lib\n")),
		workspace.NewDocumentState(workspace.DocumentInfo{ID: workspace.NewDocumentID(libID, "util.go"), Name: "util.go", Folders: []string{"internal"}}, textOf("package lib\n\nfunc Util() {}\n")),
	)

	app := workspace.NewProjectState(
		workspace.ProjectInfo{ID: appID, Version: workspace.NewVersionStamp(epoch), Name: "app", AssemblyName: "example.com/app", Language: workspace.LanguageGo},
		&golang.CompilationOptions{ModulePath: "example.com/app", GoVersion: "1.25", BuildTags: []string{"netgo"}},
		&golang.ParseOptions{LanguageVersion: "go1.25", ParseComments: true},
	).AddDocuments(
		workspace.NewDocumentState(workspace.DocumentInfo{ID: workspace.NewDocumentID(appID, "main.go"), Name: "main.go"}, textOf("package main\n")),
	).AddAdditionalDocuments(
		workspace.NewDocumentState(workspace.DocumentInfo{ID: workspace.NewDocumentID(appID, "README.md"), Name: "README.md"}, textOf("# app\n")),
	).AddProjectReferences(
		&workspace.ProjectReference{ProjectID: libID},
	).AddMetadataReferences(
		workspace.NewMetadataFileReference("/usr/lib/go/pkg/fmt.a", workspace.MetadataReferenceProperties{Aliases: []string{"fmt"}}),
	).AddAnalyzerReferences(
		workspace.NewAnalyzerFileReference("/opt/analyzers/vet.so", "vet"),
		workspace.NewUnresolvedAnalyzerReference("/opt/analyzers/missing.so"),
	)

	return workspace.NewSolutionState(workspace.SolutionInfo{
		ID:       workspace.NewSolutionID("workspace"),
		Version:  workspace.NewVersionStamp(epoch),
		FilePath: "/src/go.work",
	}, lib, app)
}

// startServer serves service on a fresh socket until the test ends and
// returns the socket path. configure runs before Serve.
func startServer(t *testing.T, service *snapshot.Service, configure ...func(*Server)) string {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "sync.sock")
	server := NewServer(socketPath, service, testLogger())
	for _, apply := range configure {
		apply(server)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wait sync.WaitGroup
	wait.Add(1)
	go func() {
		defer wait.Done()
		if err := server.Serve(ctx); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		wait.Wait()
	})
	waitForSocket(t, socketPath)
	return socketPath
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

// serviceSource answers GetObjects straight from a snapshot service,
// through the same write and read path the socket uses.
type serviceSource struct {
	service    *snapshot.Service
	serializer *serialization.Serializer
	requests   [][]checksum.Checksum
}

func (s *serviceSource) GetObjects(ctx context.Context, sums []checksum.Checksum) ([]serialization.Object, []checksum.Checksum, error) {
	s.requests = append(s.requests, sums)
	objects, missing := s.service.FindObjects(sums)
	var found []snapshot.ChecksumObject
	for _, object := range objects {
		if object != nil {
			found = append(found, object)
		}
	}
	var buffer bytes.Buffer
	if err := s.service.WriteObjects(ctx, wire.NewWriter(&buffer), found); err != nil {
		return nil, nil, err
	}
	reader := wire.NewReader(&buffer)
	count := reader.ReadCount()
	decoded := make([]serialization.Object, 0, wire.Prealloc(count))
	for range count {
		object, err := s.serializer.ReadObject(ctx, reader)
		if err != nil {
			return nil, nil, err
		}
		decoded = append(decoded, object)
	}
	return decoded, missing, reader.Err()
}
