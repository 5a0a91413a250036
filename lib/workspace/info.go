// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import "slices"

// Language names understood by the bundled option codecs.
const (
	LanguageGo     = "Go"
	LanguagePython = "Python"
)

// SolutionInfo is the flat, checksummed description of a solution.
type SolutionInfo struct {
	ID       SolutionID
	Version  VersionStamp
	FilePath string
}

// Equal reports field-wise equality.
func (i SolutionInfo) Equal(other SolutionInfo) bool {
	return i.ID == other.ID && i.Version.Equal(other.Version) && i.FilePath == other.FilePath
}

// ProjectInfo is the flat, checksummed description of a project.
type ProjectInfo struct {
	ID             ProjectID
	Version        VersionStamp
	Name           string
	AssemblyName   string
	Language       string
	FilePath       string
	OutputFilePath string
}

// Equal reports field-wise equality.
func (i ProjectInfo) Equal(other ProjectInfo) bool {
	return i.ID == other.ID && i.Version.Equal(other.Version) &&
		i.Name == other.Name && i.AssemblyName == other.AssemblyName &&
		i.Language == other.Language && i.FilePath == other.FilePath &&
		i.OutputFilePath == other.OutputFilePath
}

// SourceCodeKind distinguishes regular sources from scripts.
type SourceCodeKind int32

const (
	SourceCodeRegular SourceCodeKind = 0
	SourceCodeScript  SourceCodeKind = 1
)

// DocumentInfo is the flat, checksummed description of a document.
// Text is not part of it; it is a separate asset.
type DocumentInfo struct {
	ID             DocumentID
	Name           string
	Folders        []string
	SourceCodeKind SourceCodeKind
	FilePath       string
	IsGenerated    bool
}

// Equal reports field-wise equality. A nil and an empty Folders slice
// are equal.
func (i DocumentInfo) Equal(other DocumentInfo) bool {
	return i.ID == other.ID && i.Name == other.Name &&
		slices.Equal(i.Folders, other.Folders) &&
		i.SourceCodeKind == other.SourceCodeKind &&
		i.FilePath == other.FilePath && i.IsGenerated == other.IsGenerated
}

// CompilationOptions are language-specific compiler settings. The
// concrete types live in the per-language packages; the serializer
// finds the right codec through Language.
type CompilationOptions interface {
	Language() string
}

// ParseOptions are language-specific parser settings.
type ParseOptions interface {
	Language() string
}
