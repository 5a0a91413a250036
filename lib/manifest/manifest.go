// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest reads solution manifests: JSONC files (JSON with
// comments and trailing commas) that describe a solution on disk, and
// turns them into workspace.SolutionState values.
//
// A minimal manifest:
//
//	{
//	  "name": "shop",
//	  "projects": [
//	    {
//	      "name": "api",
//	      "language": "Go",
//	      "directory": "api",
//	      "documents": ["*.go"],
//	      "compilation_options": {"module_path": "example.com/shop/api", "go_version": "1.25"},
//	    },
//	  ],
//	}
//
// Identifiers are derived from names, so loading the same manifest
// twice yields equal ids and, for unchanged files, equal checksums.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/workspacesync/lib/languages"
)

// Manifest describes a solution.
type Manifest struct {
	// Name names the solution. Required.
	Name string `json:"name"`

	// FilePath is recorded in SolutionInfo. ReadFile fills it with
	// the manifest's own path when empty.
	FilePath string `json:"file_path,omitempty"`

	Projects []Project `json:"projects"`

	// Options become the host-wide option set.
	Options map[string]string `json:"options,omitempty"`
}

// Project describes one project. Paths are relative to Directory,
// which is itself relative to the manifest's directory.
type Project struct {
	Name         string `json:"name"`
	Language     string `json:"language"`
	AssemblyName string `json:"assembly_name,omitempty"`
	Directory    string `json:"directory,omitempty"`
	Output       string `json:"output,omitempty"`

	// Documents and AdditionalDocuments are file paths or
	// filepath.Match patterns. Every entry must match at least one
	// file.
	Documents           []string `json:"documents,omitempty"`
	AdditionalDocuments []string `json:"additional_documents,omitempty"`

	// CompilationOptions and ParseOptions are decoded into the
	// language's concrete option types.
	CompilationOptions json.RawMessage `json:"compilation_options,omitempty"`
	ParseOptions       json.RawMessage `json:"parse_options,omitempty"`

	ProjectReferences  []ProjectReference  `json:"project_references,omitempty"`
	MetadataReferences []MetadataReference `json:"metadata_references,omitempty"`
	Analyzers          []Analyzer          `json:"analyzers,omitempty"`
}

// ProjectReference names another project of the same manifest.
type ProjectReference struct {
	Project           string   `json:"project"`
	Aliases           []string `json:"aliases,omitempty"`
	EmbedInteropTypes bool     `json:"embed_interop_types,omitempty"`
}

// MetadataReference points at compiled metadata.
type MetadataReference struct {
	Path string `json:"path"`

	// Kind is "assembly" (the default) or "module".
	Kind              string   `json:"kind,omitempty"`
	Aliases           []string `json:"aliases,omitempty"`
	EmbedInteropTypes bool     `json:"embed_interop_types,omitempty"`

	// InMemory loads the file when the manifest is loaded and
	// references the bytes rather than the path.
	InMemory bool `json:"in_memory,omitempty"`
}

// Analyzer points at an analyzer. A path that does not exist becomes
// an unresolved analyzer reference rather than an error.
type Analyzer struct {
	Path    string `json:"path"`
	Display string `json:"display,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data and
// decodes the manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &manifest, nil
}

// ReadFile reads and parses the manifest at path.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	manifest, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if manifest.FilePath == "" {
		if absolute, err := filepath.Abs(path); err == nil {
			manifest.FilePath = absolute
		}
	}
	return manifest, nil
}

// Validate checks the manifest's structure without touching the
// filesystem. All problems are reported together.
func (m *Manifest) Validate() error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	names := make(map[string]bool, len(m.Projects))
	for index, project := range m.Projects {
		switch {
		case project.Name == "":
			errs = append(errs, fmt.Errorf("projects[%d]: name is required", index))
		case names[project.Name]:
			errs = append(errs, fmt.Errorf("projects[%d]: duplicate project name %q", index, project.Name))
		}
		names[project.Name] = true
		if _, _, ok := languages.NewOptions(project.Language); !ok {
			errs = append(errs, fmt.Errorf("project %q: unknown language %q (known: %v)", project.Name, project.Language, languages.Names()))
		}
		for _, reference := range project.MetadataReferences {
			if reference.Path == "" {
				errs = append(errs, fmt.Errorf("project %q: metadata reference without a path", project.Name))
			}
			if _, err := imageKind(reference.Kind); err != nil {
				errs = append(errs, fmt.Errorf("project %q: %w", project.Name, err))
			}
		}
		for _, analyzer := range project.Analyzers {
			if analyzer.Path == "" {
				errs = append(errs, fmt.Errorf("project %q: analyzer without a path", project.Name))
			}
		}
	}
	for _, project := range m.Projects {
		for _, reference := range project.ProjectReferences {
			if !names[reference.Project] {
				errs = append(errs, fmt.Errorf("project %q references unknown project %q", project.Name, reference.Project))
			}
			if reference.Project == project.Name {
				errs = append(errs, fmt.Errorf("project %q references itself", project.Name))
			}
		}
	}
	return errors.Join(errs...)
}
