// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/invariant"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// AssetBuilder builds the leaves of a snapshot.
type AssetBuilder struct {
	serializer *serialization.Serializer
}

// NewAssetBuilder returns an AssetBuilder that checksums values with
// serializer.
func NewAssetBuilder(serializer *serialization.Serializer) *AssetBuilder {
	return &AssetBuilder{serializer: serializer}
}

// Build returns the asset for value as kind, memoized in cache under
// key. For KindSourceText, value is the *workspace.DocumentState whose
// text the asset stands for.
func (b *AssetBuilder) Build(ctx context.Context, cache *TreeNodeCache, key, value any, kind checksum.Kind) (ChecksumObject, error) {
	return cache.GetOrCreateAsset(ctx, key, kind, func(ctx context.Context) (ChecksumObject, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if kind == checksum.KindSourceText {
			document, ok := value.(*workspace.DocumentState)
			if !ok {
				invariant.Fail("source text asset needs a document, got %T", value)
			}
			asset, err := NewSourceTextAsset(ctx, b.serializer, document)
			if err != nil {
				return nil, err
			}
			return asset, nil
		}
		asset, err := NewAsset(ctx, b.serializer, value, kind)
		if err != nil {
			return nil, err
		}
		return asset, nil
	})
}

// Builder builds the hierarchical nodes of a snapshot, delegating
// leaves to an AssetBuilder. Siblings in a collection are built
// concurrently.
type Builder struct {
	assets      *AssetBuilder
	concurrency int
}

// NewBuilder returns a Builder. concurrency bounds the sibling builds
// in flight per collection; zero means GOMAXPROCS.
func NewBuilder(assets *AssetBuilder, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Builder{assets: assets, concurrency: concurrency}
}

// BuildSolution returns the solution node, memoized in cache.
func (b *Builder) BuildSolution(ctx context.Context, cache *TreeNodeCache, solution *workspace.SolutionState) (*serialization.SolutionStateChecksums, error) {
	object, err := cache.GetOrCreateNode(ctx, solution, checksum.KindSolutionState, func(ctx context.Context) (ChecksumObject, error) {
		children := cache.SubCache(solution)
		info, err := b.assets.Build(ctx, children, solution, solution.Info(), checksum.KindSolutionInfo)
		if err != nil {
			return nil, err
		}
		projects, err := buildCollection(ctx, b, children, solution, checksum.KindProjects, solution.Projects(),
			func(ctx context.Context, project *workspace.ProjectState) (ChecksumObject, error) {
				return b.BuildProject(ctx, children, project)
			})
		if err != nil {
			return nil, err
		}
		return serialization.NewSolutionStateChecksums(info.Checksum(), projects.Checksum()), nil
	})
	if err != nil {
		return nil, err
	}
	return nodeAs[*serialization.SolutionStateChecksums](object), nil
}

// BuildProject returns the project node, memoized in cache.
func (b *Builder) BuildProject(ctx context.Context, cache *TreeNodeCache, project *workspace.ProjectState) (*serialization.ProjectStateChecksums, error) {
	object, err := cache.GetOrCreateNode(ctx, project, checksum.KindProjectState, func(ctx context.Context) (ChecksumObject, error) {
		children := cache.SubCache(project)
		var sums serialization.ProjectChildren

		info, err := b.assets.Build(ctx, children, project, project.Info(), checksum.KindProjectInfo)
		if err != nil {
			return nil, err
		}
		sums.Info = info.Checksum()

		compilationOptions, err := b.assets.Build(ctx, children, project.CompilationOptions(), project.CompilationOptions(), checksum.KindCompilationOptions)
		if err != nil {
			return nil, err
		}
		sums.CompilationOptions = compilationOptions.Checksum()

		parseOptions, err := b.assets.Build(ctx, children, project.ParseOptions(), project.ParseOptions(), checksum.KindParseOptions)
		if err != nil {
			return nil, err
		}
		sums.ParseOptions = parseOptions.Checksum()

		buildDocument := func(ctx context.Context, document *workspace.DocumentState) (ChecksumObject, error) {
			return b.BuildDocument(ctx, children, document)
		}
		documents, err := buildCollection(ctx, b, children, project, checksum.KindDocuments, project.Documents(), buildDocument)
		if err != nil {
			return nil, err
		}
		sums.Documents = documents.Checksum()

		projectReferences, err := buildLeafCollection(ctx, b, children, project, checksum.KindProjectReferences,
			checksum.KindProjectReference, project.ProjectReferences())
		if err != nil {
			return nil, err
		}
		sums.ProjectReferences = projectReferences.Checksum()

		metadataReferences, err := buildLeafCollection(ctx, b, children, project, checksum.KindMetadataReferences,
			checksum.KindMetadataReference, project.MetadataReferences())
		if err != nil {
			return nil, err
		}
		sums.MetadataReferences = metadataReferences.Checksum()

		analyzerReferences, err := buildLeafCollection(ctx, b, children, project, checksum.KindAnalyzerReferences,
			checksum.KindAnalyzerReference, project.AnalyzerReferences())
		if err != nil {
			return nil, err
		}
		sums.AnalyzerReferences = analyzerReferences.Checksum()

		additionalDocuments, err := buildCollection(ctx, b, children, project, checksum.KindAdditionalDocuments,
			project.AdditionalDocuments(), buildDocument)
		if err != nil {
			return nil, err
		}
		sums.AdditionalDocuments = additionalDocuments.Checksum()

		return serialization.NewProjectStateChecksums(sums), nil
	})
	if err != nil {
		return nil, err
	}
	return nodeAs[*serialization.ProjectStateChecksums](object), nil
}

// BuildDocument returns the document node, memoized in cache.
func (b *Builder) BuildDocument(ctx context.Context, cache *TreeNodeCache, document *workspace.DocumentState) (*serialization.DocumentStateChecksums, error) {
	object, err := cache.GetOrCreateNode(ctx, document, checksum.KindDocumentState, func(ctx context.Context) (ChecksumObject, error) {
		children := cache.SubCache(document)
		info, err := b.assets.Build(ctx, children, document, document.Info(), checksum.KindDocumentInfo)
		if err != nil {
			return nil, err
		}
		text, err := b.assets.Build(ctx, children, document, document, checksum.KindSourceText)
		if err != nil {
			return nil, err
		}
		return serialization.NewDocumentStateChecksums(info.Checksum(), text.Checksum()), nil
	})
	if err != nil {
		return nil, err
	}
	return nodeAs[*serialization.DocumentStateChecksums](object), nil
}

// buildCollection builds the collection node of kind over items,
// memoized in cache under key (the owner of the items). Each item is
// built by build, up to the builder's concurrency at a time; the
// collection's order is the order of items regardless of which
// finishes first.
func buildCollection[T any](ctx context.Context, b *Builder, cache *TreeNodeCache, key any, kind checksum.Kind, items []T, build func(context.Context, T) (ChecksumObject, error)) (*serialization.ChecksumCollection, error) {
	object, err := cache.GetOrCreateNode(ctx, key, kind, func(ctx context.Context) (ChecksumObject, error) {
		sums := make([]checksum.Checksum, len(items))
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(b.concurrency)
		for index, item := range items {
			group.Go(func() error {
				built, err := build(groupCtx, item)
				if err != nil {
					return err
				}
				sums[index] = built.Checksum()
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
		return serialization.NewChecksumCollection(kind, sums), nil
	})
	if err != nil {
		return nil, err
	}
	return nodeAs[*serialization.ChecksumCollection](object), nil
}

// buildLeafCollection is buildCollection for references, whose items
// are assets keyed by themselves.
func buildLeafCollection[T any](ctx context.Context, b *Builder, cache *TreeNodeCache, key any, kind, itemKind checksum.Kind, items []T) (*serialization.ChecksumCollection, error) {
	return buildCollection(ctx, b, cache, key, kind, items, func(ctx context.Context, item T) (ChecksumObject, error) {
		return b.assets.Build(ctx, cache, item, item, itemKind)
	})
}

func nodeAs[T ChecksumObject](object ChecksumObject) T {
	typed, ok := object.(T)
	if !ok {
		invariant.Fail("cached %s is a %T", object.Kind(), object)
	}
	return typed
}
