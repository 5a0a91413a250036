// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/workspacesync/lib/languages"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// idNamespace roots the name-derived GUIDs of manifest entities.
var idNamespace = uuid.MustParse("6f1b8d52-3c0e-4a57-9d2e-8b7f4c1a9e30")

// LoadOptions configures Load.
type LoadOptions struct {
	// Directory resolves relative paths. Empty means the working
	// directory.
	Directory string

	// Version stamps every entity. The zero time means the current
	// time.
	Version time.Time

	// Algorithm is the content hash of document texts. The zero value
	// is SHA-256.
	Algorithm workspace.ChecksumAlgorithm
}

// Load validates the manifest and builds the solution it describes.
// Document texts are read lazily through file loaders; in-memory
// metadata references are read now.
func (m *Manifest) Load(ctx context.Context, options LoadOptions) (*workspace.SolutionState, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if options.Version.IsZero() {
		options.Version = time.Now()
	}
	if options.Algorithm == 0 {
		options.Algorithm = workspace.ChecksumSHA256
	}
	directory, err := filepath.Abs(options.Directory)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest directory: %w", err)
	}
	version := workspace.NewVersionStamp(options.Version)

	solutionGUID := uuid.NewSHA1(idNamespace, []byte(m.Name))
	ids := make(map[string]workspace.ProjectID, len(m.Projects))
	for _, project := range m.Projects {
		ids[project.Name] = workspace.ProjectID{
			GUID:      uuid.NewSHA1(solutionGUID, []byte(project.Name)),
			DebugName: project.Name,
		}
	}

	loader := projectLoader{directory: directory, version: version, algorithm: options.Algorithm, ids: ids}
	projects := make([]*workspace.ProjectState, 0, len(m.Projects))
	for _, project := range m.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err := loader.load(project)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", project.Name, err)
		}
		projects = append(projects, state)
	}

	return workspace.NewSolutionState(workspace.SolutionInfo{
		ID:       workspace.SolutionID{GUID: solutionGUID, DebugName: m.Name},
		Version:  version,
		FilePath: m.FilePath,
	}, projects...), nil
}

// GlobalOptions returns the manifest's host-wide options.
func (m *Manifest) GlobalOptions() *workspace.OptionSet {
	return workspace.NewOptionSet(m.Options)
}

type projectLoader struct {
	directory string
	version   workspace.VersionStamp
	algorithm workspace.ChecksumAlgorithm
	ids       map[string]workspace.ProjectID
}

func (l projectLoader) load(project Project) (*workspace.ProjectState, error) {
	id := l.ids[project.Name]
	root := l.resolve(l.directory, project.Directory)

	compilation, parse, _ := languages.NewOptions(project.Language)
	if err := decodeOptions(project.CompilationOptions, compilation); err != nil {
		return nil, fmt.Errorf("compilation_options: %w", err)
	}
	if err := decodeOptions(project.ParseOptions, parse); err != nil {
		return nil, fmt.Errorf("parse_options: %w", err)
	}

	assemblyName := project.AssemblyName
	if assemblyName == "" {
		assemblyName = project.Name
	}
	info := workspace.ProjectInfo{
		ID:           id,
		Version:      l.version,
		Name:         project.Name,
		AssemblyName: assemblyName,
		Language:     project.Language,
		FilePath:     root,
	}
	if project.Output != "" {
		info.OutputFilePath = l.resolve(root, project.Output)
	}

	documents, err := l.documents(id, root, project.Documents)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	additional, err := l.documents(id, root, project.AdditionalDocuments)
	if err != nil {
		return nil, fmt.Errorf("additional_documents: %w", err)
	}

	state := workspace.NewProjectState(info, compilation, parse).
		AddDocuments(documents...).
		AddAdditionalDocuments(additional...)

	for _, reference := range project.ProjectReferences {
		state = state.AddProjectReferences(&workspace.ProjectReference{
			ProjectID:         l.ids[reference.Project],
			Aliases:           reference.Aliases,
			EmbedInteropTypes: reference.EmbedInteropTypes,
		})
	}
	for _, reference := range project.MetadataReferences {
		metadata, err := l.metadata(root, reference)
		if err != nil {
			return nil, err
		}
		state = state.AddMetadataReferences(metadata)
	}
	for _, analyzer := range project.Analyzers {
		file := l.resolve(root, analyzer.Path)
		if _, err := os.Stat(file); err != nil {
			state = state.AddAnalyzerReferences(workspace.NewUnresolvedAnalyzerReference(file))
			continue
		}
		state = state.AddAnalyzerReferences(workspace.NewAnalyzerFileReference(file, analyzer.Display))
	}
	return state, nil
}

// documents expands patterns into document states, in sorted path
// order with duplicates removed.
func (l projectLoader) documents(project workspace.ProjectID, root string, patterns []string) ([]*workspace.DocumentState, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(l.resolve(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matches no files", pattern)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	files = slices.Compact(files)

	documents := make([]*workspace.DocumentState, 0, len(files))
	for _, file := range files {
		relative, err := filepath.Rel(root, file)
		if err != nil {
			relative = file
		}
		relative = filepath.ToSlash(relative)
		folders := splitFolders(relative)
		documents = append(documents, workspace.NewDocumentState(workspace.DocumentInfo{
			ID: workspace.DocumentID{
				ProjectID: project,
				GUID:      uuid.NewSHA1(project.GUID, []byte(relative)),
				DebugName: relative,
			},
			Name:     filepath.Base(file),
			Folders:  folders,
			FilePath: file,
		}, workspace.FileTextLoader{Path: file, Algorithm: l.algorithm}))
	}
	return documents, nil
}

func (l projectLoader) metadata(root string, reference MetadataReference) (*workspace.MetadataReference, error) {
	kind, err := imageKind(reference.Kind)
	if err != nil {
		return nil, err
	}
	properties := workspace.MetadataReferenceProperties{
		Kind:              kind,
		Aliases:           reference.Aliases,
		EmbedInteropTypes: reference.EmbedInteropTypes,
	}
	file := l.resolve(root, reference.Path)
	if !reference.InMemory {
		return workspace.NewMetadataFileReference(file, properties), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading metadata reference: %w", err)
	}
	image := workspace.NewMetadataImage(workspace.BytesChunk(data))
	return workspace.NewMetadataImageReference(image, properties, file), nil
}

func (projectLoader) resolve(base, file string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(base, file)
}

// splitFolders returns the directories of a slash-separated relative
// path, outermost first.
func splitFolders(relative string) []string {
	directory := path.Dir(relative)
	if directory == "." {
		return nil
	}
	return strings.Split(directory, "/")
}

func decodeOptions(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func imageKind(name string) (workspace.MetadataImageKind, error) {
	switch name {
	case "", "assembly":
		return workspace.MetadataImageAssembly, nil
	case "module":
		return workspace.MetadataImageModule, nil
	default:
		return 0, fmt.Errorf("unknown metadata reference kind %q", name)
	}
}
