// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"fmt"
	"slices"
)

// DocumentState is an immutable document: its info plus a loader for
// its text.
type DocumentState struct {
	info DocumentInfo
	text TextLoader
}

// NewDocumentState returns a document.
func NewDocumentState(info DocumentInfo, text TextLoader) *DocumentState {
	return &DocumentState{info: info, text: text}
}

func (d *DocumentState) ID() DocumentID         { return d.info.ID }
func (d *DocumentState) Info() DocumentInfo     { return d.info }
func (d *DocumentState) TextLoader() TextLoader { return d.text }

// Text loads the document's text.
func (d *DocumentState) Text(ctx context.Context) (*SourceText, error) {
	text, err := d.text.LoadText(ctx)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.info.ID, err)
	}
	return text, nil
}

// WithText returns a copy of d with a new text loader.
func (d *DocumentState) WithText(text TextLoader) *DocumentState {
	return &DocumentState{info: d.info, text: text}
}

// WithInfo returns a copy of d with new info. The ID must not change.
func (d *DocumentState) WithInfo(info DocumentInfo) *DocumentState {
	return &DocumentState{info: info, text: d.text}
}

// ProjectState is an immutable project. Slices returned by accessors
// are shared with the state and must not be modified.
type ProjectState struct {
	info               ProjectInfo
	compilationOptions CompilationOptions
	parseOptions       ParseOptions

	documents           []*DocumentState
	additionalDocuments []*DocumentState
	projectReferences   []*ProjectReference
	metadataReferences  []*MetadataReference
	analyzerReferences  []*AnalyzerReference
}

// NewProjectState returns an empty project. Options must be pointer
// values: snapshot caches use them as identity keys.
func NewProjectState(info ProjectInfo, compilationOptions CompilationOptions, parseOptions ParseOptions) *ProjectState {
	return &ProjectState{info: info, compilationOptions: compilationOptions, parseOptions: parseOptions}
}

func (p *ProjectState) ID() ProjectID                          { return p.info.ID }
func (p *ProjectState) Info() ProjectInfo                      { return p.info }
func (p *ProjectState) Language() string                       { return p.info.Language }
func (p *ProjectState) CompilationOptions() CompilationOptions { return p.compilationOptions }
func (p *ProjectState) ParseOptions() ParseOptions             { return p.parseOptions }
func (p *ProjectState) Documents() []*DocumentState            { return p.documents }
func (p *ProjectState) AdditionalDocuments() []*DocumentState  { return p.additionalDocuments }
func (p *ProjectState) ProjectReferences() []*ProjectReference { return p.projectReferences }
func (p *ProjectState) MetadataReferences() []*MetadataReference {
	return p.metadataReferences
}
func (p *ProjectState) AnalyzerReferences() []*AnalyzerReference {
	return p.analyzerReferences
}

// Document returns the document with id, searching regular documents
// then additional documents.
func (p *ProjectState) Document(id DocumentID) (*DocumentState, bool) {
	for _, list := range [][]*DocumentState{p.documents, p.additionalDocuments} {
		if index := indexOfDocument(list, id); index >= 0 {
			return list[index], true
		}
	}
	return nil, false
}

func (p *ProjectState) clone() *ProjectState {
	copied := *p
	return &copied
}

// WithInfo returns a copy of p with new info.
func (p *ProjectState) WithInfo(info ProjectInfo) *ProjectState {
	next := p.clone()
	next.info = info
	return next
}

// WithCompilationOptions returns a copy of p with new options.
func (p *ProjectState) WithCompilationOptions(options CompilationOptions) *ProjectState {
	next := p.clone()
	next.compilationOptions = options
	return next
}

// WithParseOptions returns a copy of p with new options.
func (p *ProjectState) WithParseOptions(options ParseOptions) *ProjectState {
	next := p.clone()
	next.parseOptions = options
	return next
}

// AddDocuments returns a copy of p with documents appended.
func (p *ProjectState) AddDocuments(documents ...*DocumentState) *ProjectState {
	next := p.clone()
	next.documents = appendCopy(p.documents, documents...)
	return next
}

// AddAdditionalDocuments returns a copy of p with additional (non-source)
// documents appended.
func (p *ProjectState) AddAdditionalDocuments(documents ...*DocumentState) *ProjectState {
	next := p.clone()
	next.additionalDocuments = appendCopy(p.additionalDocuments, documents...)
	return next
}

// UpdateDocument returns a copy of p with the document of the same ID
// replaced. Every other document pointer is shared.
func (p *ProjectState) UpdateDocument(document *DocumentState) (*ProjectState, error) {
	next := p.clone()
	if index := indexOfDocument(p.documents, document.ID()); index >= 0 {
		next.documents = slices.Clone(p.documents)
		next.documents[index] = document
		return next, nil
	}
	if index := indexOfDocument(p.additionalDocuments, document.ID()); index >= 0 {
		next.additionalDocuments = slices.Clone(p.additionalDocuments)
		next.additionalDocuments[index] = document
		return next, nil
	}
	return nil, fmt.Errorf("project %s has no document %s", p.info.ID, document.ID())
}

// RemoveDocument returns a copy of p without the document.
func (p *ProjectState) RemoveDocument(id DocumentID) (*ProjectState, error) {
	next := p.clone()
	if index := indexOfDocument(p.documents, id); index >= 0 {
		next.documents = slices.Delete(slices.Clone(p.documents), index, index+1)
		return next, nil
	}
	if index := indexOfDocument(p.additionalDocuments, id); index >= 0 {
		next.additionalDocuments = slices.Delete(slices.Clone(p.additionalDocuments), index, index+1)
		return next, nil
	}
	return nil, fmt.Errorf("project %s has no document %s", p.info.ID, id)
}

// AddProjectReferences returns a copy of p with references appended.
func (p *ProjectState) AddProjectReferences(references ...*ProjectReference) *ProjectState {
	next := p.clone()
	next.projectReferences = appendCopy(p.projectReferences, references...)
	return next
}

// AddMetadataReferences returns a copy of p with references appended.
func (p *ProjectState) AddMetadataReferences(references ...*MetadataReference) *ProjectState {
	next := p.clone()
	next.metadataReferences = appendCopy(p.metadataReferences, references...)
	return next
}

// RemoveMetadataReference returns a copy of p without reference. It is
// matched by identity.
func (p *ProjectState) RemoveMetadataReference(reference *MetadataReference) *ProjectState {
	next := p.clone()
	next.metadataReferences = slices.DeleteFunc(slices.Clone(p.metadataReferences),
		func(candidate *MetadataReference) bool { return candidate == reference })
	return next
}

// AddAnalyzerReferences returns a copy of p with references appended.
func (p *ProjectState) AddAnalyzerReferences(references ...*AnalyzerReference) *ProjectState {
	next := p.clone()
	next.analyzerReferences = appendCopy(p.analyzerReferences, references...)
	return next
}

// SolutionState is an immutable solution.
type SolutionState struct {
	info     SolutionInfo
	projects []*ProjectState
}

// NewSolutionState returns a solution holding projects.
func NewSolutionState(info SolutionInfo, projects ...*ProjectState) *SolutionState {
	return &SolutionState{info: info, projects: slices.Clone(projects)}
}

func (s *SolutionState) ID() SolutionID            { return s.info.ID }
func (s *SolutionState) Info() SolutionInfo        { return s.info }
func (s *SolutionState) Projects() []*ProjectState { return s.projects }

// Project returns the project with id.
func (s *SolutionState) Project(id ProjectID) (*ProjectState, bool) {
	index := s.indexOfProject(id)
	if index < 0 {
		return nil, false
	}
	return s.projects[index], true
}

// Document returns the document with id.
func (s *SolutionState) Document(id DocumentID) (*DocumentState, bool) {
	project, ok := s.Project(id.ProjectID)
	if !ok {
		return nil, false
	}
	return project.Document(id)
}

func (s *SolutionState) indexOfProject(id ProjectID) int {
	return slices.IndexFunc(s.projects, func(p *ProjectState) bool { return p.ID() == id })
}

// WithInfo returns a copy of s with new info.
func (s *SolutionState) WithInfo(info SolutionInfo) *SolutionState {
	return &SolutionState{info: info, projects: s.projects}
}

// AddProject returns a copy of s with project appended.
func (s *SolutionState) AddProject(project *ProjectState) (*SolutionState, error) {
	if s.indexOfProject(project.ID()) >= 0 {
		return nil, fmt.Errorf("solution already contains project %s", project.ID())
	}
	return &SolutionState{info: s.info, projects: appendCopy(s.projects, project)}, nil
}

// UpdateProject returns a copy of s with the project of the same ID
// replaced.
func (s *SolutionState) UpdateProject(project *ProjectState) (*SolutionState, error) {
	index := s.indexOfProject(project.ID())
	if index < 0 {
		return nil, fmt.Errorf("solution has no project %s", project.ID())
	}
	projects := slices.Clone(s.projects)
	projects[index] = project
	return &SolutionState{info: s.info, projects: projects}, nil
}

// RemoveProject returns a copy of s without the project.
func (s *SolutionState) RemoveProject(id ProjectID) (*SolutionState, error) {
	index := s.indexOfProject(id)
	if index < 0 {
		return nil, fmt.Errorf("solution has no project %s", id)
	}
	return &SolutionState{info: s.info, projects: slices.Delete(slices.Clone(s.projects), index, index+1)}, nil
}

// WithDocumentText returns a copy of s in which the document's text
// loader is replaced.
func (s *SolutionState) WithDocumentText(id DocumentID, text TextLoader) (*SolutionState, error) {
	document, ok := s.Document(id)
	if !ok {
		return nil, fmt.Errorf("solution has no document %s", id)
	}
	return s.withDocument(document.WithText(text))
}

func (s *SolutionState) withDocument(document *DocumentState) (*SolutionState, error) {
	project, ok := s.Project(document.ID().ProjectID)
	if !ok {
		return nil, fmt.Errorf("solution has no project %s", document.ID().ProjectID)
	}
	updated, err := project.UpdateDocument(document)
	if err != nil {
		return nil, err
	}
	return s.UpdateProject(updated)
}

// RemoveDocument returns a copy of s without the document.
func (s *SolutionState) RemoveDocument(id DocumentID) (*SolutionState, error) {
	project, ok := s.Project(id.ProjectID)
	if !ok {
		return nil, fmt.Errorf("solution has no project %s", id.ProjectID)
	}
	updated, err := project.RemoveDocument(id)
	if err != nil {
		return nil, err
	}
	return s.UpdateProject(updated)
}

func indexOfDocument(documents []*DocumentState, id DocumentID) int {
	return slices.IndexFunc(documents, func(d *DocumentState) bool { return d.ID() == id })
}

// appendCopy appends to a fresh slice so the receiver's backing array
// is never shared with the result.
func appendCopy[T any](base []T, items ...T) []T {
	result := make([]T, 0, len(base)+len(items))
	result = append(result, base...)
	return append(result, items...)
}
