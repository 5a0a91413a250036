// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/clock"
	"github.com/bureau-foundation/workspacesync/lib/languages"
	"github.com/bureau-foundation/workspacesync/lib/languages/golang"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type testService struct {
	*Service
	clock  *clock.FakeClock
	reader *sdkmetric.ManualReader
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	fake := clock.Fake(epoch)
	reader := sdkmetric.NewManualReader()
	service, err := NewService(Options{
		Serializer:    serialization.New(serialization.Options{Languages: languages.Lookup}),
		Clock:         fake,
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testService{Service: service, clock: fake, reader: reader}
}

// metricTotal sums every data point of the named int64 sum metric.
func (s *testService) metricTotal(t *testing.T, name string) int64 {
	t.Helper()
	var collected metricdata.ResourceMetrics
	if err := s.reader.Collect(context.Background(), &collected); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}
	var total int64
	for _, scopeMetrics := range collected.ScopeMetrics {
		for _, recorded := range scopeMetrics.Metrics {
			if recorded.Name != name {
				continue
			}
			sum, ok := recorded.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T", name, recorded.Data)
			}
			for _, point := range sum.DataPoints {
				total += point.Value
			}
		}
	}
	return total
}

func (s *testService) createScope(t *testing.T, solution *workspace.SolutionState) *Scope {
	t.Helper()
	scope, err := s.CreateScope(context.Background(), solution)
	if err != nil {
		t.Fatalf("CreateScope: %v", err)
	}
	return scope
}

type testSolution struct {
	solution *workspace.SolutionState
	project  workspace.ProjectID
	a, b     workspace.DocumentID
}

func textOf(content string) workspace.TextLoader {
	return workspace.TextConstant(workspace.NewSourceText(content, "utf-8", workspace.ChecksumSHA256))
}

// newTestSolution returns one Go project with documents A.txt and B.txt,
// both containing "hello", plus one reference of each kind.
func newTestSolution() testSolution {
	projectID := workspace.NewProjectID("app")
	a := workspace.NewDocumentID(projectID, "A.txt")
	b := workspace.NewDocumentID(projectID, "B.txt")

	project := workspace.NewProjectState(
		workspace.ProjectInfo{
			ID:           projectID,
			Version:      workspace.NewVersionStamp(epoch),
			Name:         "app",
			AssemblyName: "example.com/app",
			Language:     workspace.LanguageGo,
		},
		&golang.CompilationOptions{ModulePath: "example.com/app", GoVersion: "1.25"},
		&golang.ParseOptions{LanguageVersion: "go1.25", ParseComments: true},
	).AddDocuments(
		workspace.NewDocumentState(workspace.DocumentInfo{ID: a, Name: "A.txt"}, textOf("hello")),
		workspace.NewDocumentState(workspace.DocumentInfo{ID: b, Name: "B.txt"}, textOf("hello")),
	).AddMetadataReferences(
		workspace.NewMetadataFileReference("/usr/lib/go/pkg/fmt.a", workspace.MetadataReferenceProperties{}),
	).AddAnalyzerReferences(
		workspace.NewAnalyzerFileReference("/opt/analyzers/vet.so", "vet"),
	)

	solution := workspace.NewSolutionState(workspace.SolutionInfo{
		ID:       workspace.NewSolutionID("workspace"),
		Version:  workspace.NewVersionStamp(epoch),
		FilePath: "/src/go.work",
	}, project)
	return testSolution{solution: solution, project: projectID, a: a, b: b}
}

// resolve fetches the object for sum through the collection and
// asserts its type.
func resolve[T ChecksumObject](t *testing.T, collection *Collection, sum checksum.Checksum) T {
	t.Helper()
	object, ok := collection.TryGetChecksumObject(sum)
	if !ok {
		t.Fatalf("checksum %s does not resolve", sum.Short())
	}
	typed, ok := object.(T)
	if !ok {
		t.Fatalf("checksum %s resolves to %T", sum.Short(), object)
	}
	return typed
}

// documentNodes walks from a scope's root to the documents of its first
// project.
func documentNodes(t *testing.T, collection *Collection, scope *Scope) (*serialization.ChecksumCollection, []*serialization.DocumentStateChecksums) {
	t.Helper()
	projects := resolve[*serialization.ChecksumCollection](t, collection, scope.Root().Projects())
	project := resolve[*serialization.ProjectStateChecksums](t, collection, projects.Items()[0])
	documents := resolve[*serialization.ChecksumCollection](t, collection, project.Named().Documents)
	var nodes []*serialization.DocumentStateChecksums
	for _, sum := range documents.Items() {
		nodes = append(nodes, resolve[*serialization.DocumentStateChecksums](t, collection, sum))
	}
	return documents, nodes
}
