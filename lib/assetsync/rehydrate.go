// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetsync

import (
	"fmt"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// Rehydrate rebuilds the solution whose checksum tree has root at its
// top. Every object of the tree must already be in replica; a gap fails
// with ErrMissingObject. Document texts become constant loaders, and
// metadata references keep the images decoded into the replica, so the
// replica must stay open while the solution is in use.
func Rehydrate(replica *Replica, root checksum.Checksum) (*workspace.SolutionState, error) {
	node, err := Lookup[*serialization.SolutionStateChecksums](replica, root, checksum.KindSolutionState)
	if err != nil {
		return nil, err
	}
	info, err := Lookup[workspace.SolutionInfo](replica, node.Info(), checksum.KindSolutionInfo)
	if err != nil {
		return nil, err
	}
	projects, err := collection(replica, node.Projects(), checksum.KindProjects, rehydrateProject)
	if err != nil {
		return nil, err
	}
	return workspace.NewSolutionState(info, projects...), nil
}

func rehydrateProject(replica *Replica, sum checksum.Checksum) (*workspace.ProjectState, error) {
	node, err := Lookup[*serialization.ProjectStateChecksums](replica, sum, checksum.KindProjectState)
	if err != nil {
		return nil, err
	}
	children := node.Named()
	info, err := Lookup[workspace.ProjectInfo](replica, children.Info, checksum.KindProjectInfo)
	if err != nil {
		return nil, err
	}
	compilation, err := Lookup[workspace.CompilationOptions](replica, children.CompilationOptions, checksum.KindCompilationOptions)
	if err != nil {
		return nil, err
	}
	parse, err := Lookup[workspace.ParseOptions](replica, children.ParseOptions, checksum.KindParseOptions)
	if err != nil {
		return nil, err
	}
	documents, err := collection(replica, children.Documents, checksum.KindDocuments, rehydrateDocument)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", info.Name, err)
	}
	additional, err := collection(replica, children.AdditionalDocuments, checksum.KindAdditionalDocuments, rehydrateDocument)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", info.Name, err)
	}
	projectReferences, err := collection(replica, children.ProjectReferences, checksum.KindProjectReferences, leaf[*workspace.ProjectReference](checksum.KindProjectReference))
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", info.Name, err)
	}
	metadataReferences, err := collection(replica, children.MetadataReferences, checksum.KindMetadataReferences, leaf[*workspace.MetadataReference](checksum.KindMetadataReference))
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", info.Name, err)
	}
	analyzerReferences, err := collection(replica, children.AnalyzerReferences, checksum.KindAnalyzerReferences, leaf[*workspace.AnalyzerReference](checksum.KindAnalyzerReference))
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", info.Name, err)
	}

	return workspace.NewProjectState(info, compilation, parse).
		AddDocuments(documents...).
		AddAdditionalDocuments(additional...).
		AddProjectReferences(projectReferences...).
		AddMetadataReferences(metadataReferences...).
		AddAnalyzerReferences(analyzerReferences...), nil
}

func rehydrateDocument(replica *Replica, sum checksum.Checksum) (*workspace.DocumentState, error) {
	node, err := Lookup[*serialization.DocumentStateChecksums](replica, sum, checksum.KindDocumentState)
	if err != nil {
		return nil, err
	}
	info, err := Lookup[workspace.DocumentInfo](replica, node.Info(), checksum.KindDocumentInfo)
	if err != nil {
		return nil, err
	}
	text, err := Lookup[*workspace.SourceText](replica, node.Text(), checksum.KindSourceText)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", info.Name, err)
	}
	return workspace.NewDocumentState(info, workspace.TextConstant(text)), nil
}

// collection rehydrates each member of the collection node at sum.
func collection[T any](replica *Replica, sum checksum.Checksum, kind checksum.Kind, rehydrate func(*Replica, checksum.Checksum) (T, error)) ([]T, error) {
	node, err := Lookup[*serialization.ChecksumCollection](replica, sum, kind)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, node.Len())
	for index, item := range node.Items() {
		value, err := rehydrate(replica, item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", kind, index, err)
		}
		items = append(items, value)
	}
	return items, nil
}

func leaf[T any](kind checksum.Kind) func(*Replica, checksum.Checksum) (T, error) {
	return func(replica *Replica, sum checksum.Checksum) (T, error) {
		return Lookup[T](replica, sum, kind)
	}
}
