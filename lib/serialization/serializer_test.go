// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serialization_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/languages"
	"github.com/bureau-foundation/workspacesync/lib/languages/golang"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/testutil"
	"github.com/bureau-foundation/workspacesync/lib/wire"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

func newSerializer() *serialization.Serializer {
	return serialization.New(serialization.Options{Languages: languages.Lookup})
}

// roundtrip writes value as a framed object and reads it back.
func roundtrip(t *testing.T, serializer *serialization.Serializer, kind checksum.Kind, value any) serialization.Object {
	t.Helper()
	ctx := context.Background()
	sum, err := serializer.CreateChecksum(ctx, value, kind)
	if err != nil {
		t.Fatalf("CreateChecksum(%s): %v", kind, err)
	}
	var buffer bytes.Buffer
	if err := serializer.WriteObject(ctx, wire.NewWriter(&buffer), kind, sum, value); err != nil {
		t.Fatalf("WriteObject(%s): %v", kind, err)
	}
	object, err := serializer.ReadObject(ctx, wire.NewReader(&buffer))
	if err != nil {
		t.Fatalf("ReadObject(%s): %v", kind, err)
	}
	if buffer.Len() != 0 {
		t.Errorf("%s: %d unread bytes", kind, buffer.Len())
	}
	if object.Kind != kind || object.Checksum != sum {
		t.Errorf("%s: read back %s %s, want %s %s", kind, object.Kind, object.Checksum.Short(), kind, sum.Short())
	}
	return object
}

func TestLeafRoundtrip(t *testing.T) {
	serializer := newSerializer()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	projectID := workspace.NewProjectID("core")

	t.Run("SolutionInfo", func(t *testing.T) {
		info := workspace.SolutionInfo{
			ID:       workspace.NewSolutionID("sln"),
			Version:  workspace.NewVersionStamp(now),
			FilePath: "/src/app/go.work",
		}
		got := roundtrip(t, serializer, checksum.KindSolutionInfo, info).Value.(workspace.SolutionInfo)
		if !got.Equal(info) {
			t.Errorf("got %+v, want %+v", got, info)
		}
	})

	t.Run("SolutionInfoZeroVersion", func(t *testing.T) {
		info := workspace.SolutionInfo{ID: workspace.NewSolutionID("")}
		got := roundtrip(t, serializer, checksum.KindSolutionInfo, info).Value.(workspace.SolutionInfo)
		if !got.Equal(info) || !got.Version.UTC.IsZero() {
			t.Errorf("got %+v, want %+v", got, info)
		}
	})

	t.Run("ProjectInfo", func(t *testing.T) {
		info := workspace.ProjectInfo{
			ID:           projectID,
			Version:      workspace.NewVersionStamp(now).Next(now.Add(time.Second)),
			Name:         "core",
			AssemblyName: "example.com/app/core",
			Language:     workspace.LanguageGo,
			FilePath:     "/src/app/core/go.mod",
		}
		got := roundtrip(t, serializer, checksum.KindProjectInfo, info).Value.(workspace.ProjectInfo)
		if !got.Equal(info) {
			t.Errorf("got %+v, want %+v", got, info)
		}
	})

	t.Run("DocumentInfo", func(t *testing.T) {
		info := workspace.DocumentInfo{
			ID:             workspace.NewDocumentID(projectID, "main.go"),
			Name:           "main.go",
			Folders:        []string{"cmd", "app"},
			SourceCodeKind: workspace.SourceCodeScript,
			IsGenerated:    true,
		}
		got := roundtrip(t, serializer, checksum.KindDocumentInfo, info).Value.(workspace.DocumentInfo)
		if !got.Equal(info) {
			t.Errorf("got %+v, want %+v", got, info)
		}
	})

	t.Run("CompilationOptions", func(t *testing.T) {
		options := &golang.CompilationOptions{
			ModulePath: "example.com/app",
			GoVersion:  "1.25",
			BuildTags:  []string{"integration"},
			CGOEnabled: true,
		}
		got := roundtrip(t, serializer, checksum.KindCompilationOptions, options).Value.(*golang.CompilationOptions)
		if !got.Equal(options) {
			t.Errorf("got %+v, want %+v", got, options)
		}
	})

	t.Run("ParseOptions", func(t *testing.T) {
		options := &golang.ParseOptions{LanguageVersion: "go1.25", ParseComments: true}
		got := roundtrip(t, serializer, checksum.KindParseOptions, options).Value.(*golang.ParseOptions)
		if *got != *options {
			t.Errorf("got %+v, want %+v", got, options)
		}
	})

	t.Run("ProjectReference", func(t *testing.T) {
		reference := &workspace.ProjectReference{ProjectID: projectID, Aliases: []string{"core"}}
		got := roundtrip(t, serializer, checksum.KindProjectReference, reference).Value.(*workspace.ProjectReference)
		if !got.Equal(reference) {
			t.Errorf("got %+v, want %+v", got, reference)
		}
	})

	t.Run("MetadataReference", func(t *testing.T) {
		reference := workspace.NewMetadataFileReference("/usr/lib/go/pkg/fmt.a",
			workspace.MetadataReferenceProperties{Kind: workspace.MetadataImageModule})
		got := roundtrip(t, serializer, checksum.KindMetadataReference, reference).Value.(*workspace.MetadataReference)
		if got.FilePath() != reference.FilePath() || got.Variant() != reference.Variant() {
			t.Errorf("got %s, want %s", got, reference)
		}
	})

	t.Run("AnalyzerReference", func(t *testing.T) {
		reference := workspace.NewAnalyzerFileReference("/opt/analyzers/vet.so", "vet")
		got := roundtrip(t, serializer, checksum.KindAnalyzerReference, reference).Value.(*workspace.AnalyzerReference)
		if !got.Equal(reference) {
			t.Errorf("got %+v, want %+v", got, reference)
		}
	})

	t.Run("SourceText", func(t *testing.T) {
		text := workspace.NewSourceText("package main\n", "utf-8", workspace.ChecksumSHA1)
		got := roundtrip(t, serializer, checksum.KindSourceText, text).Value.(*workspace.SourceText)
		if !got.Equal(text) {
			t.Errorf("got %q (%s), want %q (%s)", got.String(), got.Algorithm(), text.String(), text.Algorithm())
		}
	})

	t.Run("OptionSet", func(t *testing.T) {
		options := workspace.NewOptionSet(map[string]string{"tabs": "true", "width": "100"})
		got := roundtrip(t, serializer, checksum.KindOptionSet, options).Value.(*workspace.OptionSet)
		if !got.Equal(options) {
			t.Errorf("got keys %v, want %v", got.Keys(), options.Keys())
		}
	})
}

func TestNodeRoundtrip(t *testing.T) {
	serializer := newSerializer()
	a := checksum.Create(checksum.KindDocumentInfo, []byte("a"))
	b := checksum.Create(checksum.KindSourceText, []byte("b"))

	nodes := []serialization.Node{
		serialization.NewDocumentStateChecksums(a, b),
		serialization.NewSolutionStateChecksums(a, b),
		serialization.NewProjectStateChecksums(serialization.ProjectChildren{
			Info: a, CompilationOptions: b, ParseOptions: a, Documents: b,
			ProjectReferences: a, MetadataReferences: b, AnalyzerReferences: a, AdditionalDocuments: b,
		}),
		serialization.NewChecksumCollection(checksum.KindDocuments, []checksum.Checksum{a, b, a}),
		serialization.NewChecksumCollection(checksum.KindProjects, nil),
	}
	for _, original := range nodes {
		got := roundtrip(t, serializer, original.Kind(), original).Value.(serialization.Node)
		if got.Checksum() != original.Checksum() {
			t.Errorf("%s: checksum changed", original.Kind())
		}
		if len(got.Children()) != len(original.Children()) {
			t.Errorf("%s: %d children, want %d", original.Kind(), len(got.Children()), len(original.Children()))
		}
	}
}

func TestNodeWriteObjectToMatchesWriteObject(t *testing.T) {
	ctx := context.Background()
	serializer := newSerializer()
	collection := serialization.NewChecksumCollection(checksum.KindAnalyzerReferences, []checksum.Checksum{
		checksum.Create(checksum.KindAnalyzerReference, []byte("x")),
	})

	var direct, framed bytes.Buffer
	if err := collection.WriteObjectTo(ctx, wire.NewWriter(&direct)); err != nil {
		t.Fatalf("WriteObjectTo: %v", err)
	}
	if err := serializer.WriteObject(ctx, wire.NewWriter(&framed), collection.Kind(), collection.Checksum(), collection); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	if !bytes.Equal(direct.Bytes(), framed.Bytes()) {
		t.Error("WriteObjectTo and WriteObject disagree")
	}
}

func TestCollectionChecksumIsOrderSensitive(t *testing.T) {
	a := checksum.Create(checksum.KindDocumentInfo, []byte("a"))
	b := checksum.Create(checksum.KindDocumentInfo, []byte("b"))
	ab := serialization.NewChecksumCollection(checksum.KindDocuments, []checksum.Checksum{a, b})
	ba := serialization.NewChecksumCollection(checksum.KindDocuments, []checksum.Checksum{b, a})
	if ab.Checksum() == ba.Checksum() {
		t.Error("reordering members kept the checksum")
	}
	other := serialization.NewChecksumCollection(checksum.KindAdditionalDocuments, []checksum.Checksum{a, b})
	if ab.Checksum() == other.Checksum() {
		t.Error("collections of different kinds share a checksum")
	}
}

func TestChecksumIsDeterministic(t *testing.T) {
	ctx := context.Background()
	info := workspace.DocumentInfo{
		ID:   workspace.NewDocumentID(workspace.NewProjectID("p"), "d"),
		Name: "d.go",
	}
	first, err := newSerializer().CreateChecksum(ctx, info, checksum.KindDocumentInfo)
	if err != nil {
		t.Fatalf("CreateChecksum: %v", err)
	}
	second, err := newSerializer().CreateChecksum(ctx, info, checksum.KindDocumentInfo)
	if err != nil {
		t.Fatalf("CreateChecksum: %v", err)
	}
	if first != second {
		t.Error("checksum differs between serializers")
	}

	renamed := info
	renamed.Name = "e.go"
	third, err := newSerializer().CreateChecksum(ctx, renamed, checksum.KindDocumentInfo)
	if err != nil {
		t.Fatalf("CreateChecksum: %v", err)
	}
	if third == first {
		t.Error("renaming a document kept its checksum")
	}
}

func TestSourceTextChecksumFollowsContent(t *testing.T) {
	same := serialization.SourceTextChecksum(workspace.NewSourceText("x := 1", "utf-8", 0))
	again := serialization.SourceTextChecksum(workspace.NewSourceText("x := 1", "utf-8", 0))
	if same != again {
		t.Error("equal texts hash differently")
	}
	for name, text := range map[string]*workspace.SourceText{
		"content":   workspace.NewSourceText("x := 2", "utf-8", 0),
		"encoding":  workspace.NewSourceText("x := 1", "", 0),
		"algorithm": workspace.NewSourceText("x := 1", "utf-8", workspace.ChecksumSHA1),
	} {
		if serialization.SourceTextChecksum(text) == same {
			t.Errorf("changing the %s kept the checksum", name)
		}
	}
}

func TestTamperedPayloadIsViolation(t *testing.T) {
	ctx := context.Background()
	serializer := newSerializer()
	a := checksum.Create(checksum.KindDocumentInfo, []byte("a"))
	b := checksum.Create(checksum.KindDocumentInfo, []byte("b"))
	collection := serialization.NewChecksumCollection(checksum.KindDocuments, []checksum.Checksum{a, b})

	var buffer bytes.Buffer
	if err := collection.WriteObjectTo(ctx, wire.NewWriter(&buffer)); err != nil {
		t.Fatalf("WriteObjectTo: %v", err)
	}
	tampered := buffer.Bytes()
	tampered[len(tampered)-1] ^= 0xff

	testutil.RequireViolation(t, "checksum mismatch", func() {
		serializer.ReadObject(ctx, wire.NewReader(bytes.NewReader(tampered)))
	})
}

func TestUnknownKindIsViolation(t *testing.T) {
	var buffer bytes.Buffer
	w := wire.NewWriter(&buffer)
	w.WriteKind("Compilation")
	w.WriteChecksum(checksum.Null)

	testutil.RequireViolation(t, "Compilation", func() {
		newSerializer().ReadObject(context.Background(), wire.NewReader(&buffer))
	})
}

func TestWrongValueTypeIsViolation(t *testing.T) {
	testutil.RequireViolation(t, "cannot be a DocumentInfo", func() {
		newSerializer().CreateChecksum(context.Background(), "not an info", checksum.KindDocumentInfo)
	})
}

func TestUnknownLanguage(t *testing.T) {
	serializer := serialization.New(serialization.Options{})
	options := &golang.CompilationOptions{ModulePath: "example.com/app"}
	_, err := serializer.CreateChecksum(context.Background(), options, checksum.KindCompilationOptions)
	if !errors.Is(err, serialization.ErrUnknownLanguage) {
		t.Errorf("error = %v, want ErrUnknownLanguage", err)
	}
}

func TestTruncatedObject(t *testing.T) {
	ctx := context.Background()
	serializer := newSerializer()
	info := workspace.SolutionInfo{ID: workspace.NewSolutionID("s"), FilePath: "/s"}
	sum, err := serializer.CreateChecksum(ctx, info, checksum.KindSolutionInfo)
	if err != nil {
		t.Fatalf("CreateChecksum: %v", err)
	}
	var buffer bytes.Buffer
	if err := serializer.WriteObject(ctx, wire.NewWriter(&buffer), checksum.KindSolutionInfo, sum, info); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	truncated := buffer.Bytes()[:buffer.Len()-3]
	if _, err := serializer.ReadObject(ctx, wire.NewReader(bytes.NewReader(truncated))); err == nil {
		t.Error("expected an error for a truncated object")
	}
}

func TestGenericDeserialize(t *testing.T) {
	ctx := context.Background()
	serializer := newSerializer()
	text := workspace.NewSourceText("body", "utf-8", 0)
	var buffer bytes.Buffer
	if err := serializer.Serialize(ctx, wire.NewWriter(&buffer), text, checksum.KindSourceText); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := serialization.Deserialize[*workspace.SourceText](ctx, serializer, checksum.KindSourceText, wire.NewReader(&buffer))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.String() != "body" {
		t.Errorf("got %q", got.String())
	}
}

func TestCorruptCountIsShortRead(t *testing.T) {
	for _, kind := range []checksum.Kind{checksum.KindOptionSet, checksum.KindProjects} {
		t.Run(string(kind), func(t *testing.T) {
			var buffer bytes.Buffer
			wire.NewWriter(&buffer).WriteInt32(wire.MaxLength)
			_, err := newSerializer().Deserialize(context.Background(), kind, wire.NewReader(&buffer))
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("Deserialize error = %v, want io.ErrUnexpectedEOF", err)
			}
		})
	}
}
