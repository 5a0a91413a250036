// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"slices"
)

// ProjectReference is a reference from one project to another.
type ProjectReference struct {
	ProjectID         ProjectID
	Aliases           []string
	EmbedInteropTypes bool
}

// Equal reports field-wise equality.
func (r *ProjectReference) Equal(other *ProjectReference) bool {
	return r.ProjectID == other.ProjectID && slices.Equal(r.Aliases, other.Aliases) &&
		r.EmbedInteropTypes == other.EmbedInteropTypes
}

// MetadataImageKind distinguishes whole assemblies from modules.
type MetadataImageKind int32

const (
	MetadataImageAssembly MetadataImageKind = 0
	MetadataImageModule   MetadataImageKind = 1
)

// MetadataReferenceProperties are the reference-site settings that
// travel with a metadata reference regardless of where its bytes live.
type MetadataReferenceProperties struct {
	Kind              MetadataImageKind
	Aliases           []string
	EmbedInteropTypes bool
}

// Equal reports field-wise equality.
func (p MetadataReferenceProperties) Equal(other MetadataReferenceProperties) bool {
	return p.Kind == other.Kind && slices.Equal(p.Aliases, other.Aliases) &&
		p.EmbedInteropTypes == other.EmbedInteropTypes
}

// MetadataVariant is the discriminator of a MetadataReference.
type MetadataVariant int32

const (
	// MetadataFile references a file by path. Its identity is the
	// path and properties; the bytes are read by whoever opens it.
	MetadataFile MetadataVariant = 1

	// MetadataInMemory references an in-memory image, optionally
	// annotated with the path it was loaded from.
	MetadataInMemory MetadataVariant = 2
)

func (v MetadataVariant) String() string {
	switch v {
	case MetadataFile:
		return "file"
	case MetadataInMemory:
		return "image"
	default:
		return fmt.Sprintf("MetadataVariant(%d)", int32(v))
	}
}

// MetadataReference is a reference to compiled metadata. Construct it
// with NewMetadataFileReference or NewMetadataImageReference; the
// pointer identity is what snapshot caches key on.
type MetadataReference struct {
	variant    MetadataVariant
	properties MetadataReferenceProperties
	filePath   string
	image      *MetadataImage
}

// NewMetadataFileReference returns a file-backed reference.
func NewMetadataFileReference(filePath string, properties MetadataReferenceProperties) *MetadataReference {
	return &MetadataReference{variant: MetadataFile, properties: properties, filePath: filePath}
}

// NewMetadataImageReference returns a reference to image. filePath may
// be empty.
func NewMetadataImageReference(image *MetadataImage, properties MetadataReferenceProperties, filePath string) *MetadataReference {
	return &MetadataReference{variant: MetadataInMemory, properties: properties, filePath: filePath, image: image}
}

func (r *MetadataReference) Variant() MetadataVariant                { return r.variant }
func (r *MetadataReference) Properties() MetadataReferenceProperties { return r.properties }
func (r *MetadataReference) FilePath() string                        { return r.filePath }

// Image returns the in-memory image, or nil for file references.
func (r *MetadataReference) Image() *MetadataImage { return r.image }

// Close releases the image's resources, if it owns any.
func (r *MetadataReference) Close() error {
	if r.image == nil {
		return nil
	}
	return r.image.Close()
}

func (r *MetadataReference) String() string {
	if r.image == nil || r.filePath != "" {
		return fmt.Sprintf("metadata(%s %s)", r.variant, r.filePath)
	}
	return fmt.Sprintf("metadata(%s %d bytes)", r.variant, r.image.Size())
}

// AnalyzerVariant is the discriminator of an AnalyzerReference.
type AnalyzerVariant int32

const (
	// AnalyzerFile is an analyzer assembly that was found on disk.
	AnalyzerFile AnalyzerVariant = 1

	// AnalyzerUnresolved is a path that could not be loaded. It still
	// takes part in checksums so that fixing the path changes them.
	AnalyzerUnresolved AnalyzerVariant = 2
)

func (v AnalyzerVariant) String() string {
	switch v {
	case AnalyzerFile:
		return "file"
	case AnalyzerUnresolved:
		return "unresolved"
	default:
		return fmt.Sprintf("AnalyzerVariant(%d)", int32(v))
	}
}

// AnalyzerReference is a reference to an analyzer assembly.
type AnalyzerReference struct {
	variant  AnalyzerVariant
	fullPath string
	display  string
}

// NewAnalyzerFileReference returns a resolved analyzer reference.
// display may be empty.
func NewAnalyzerFileReference(fullPath, display string) *AnalyzerReference {
	return &AnalyzerReference{variant: AnalyzerFile, fullPath: fullPath, display: display}
}

// NewUnresolvedAnalyzerReference returns an analyzer reference whose
// path did not load.
func NewUnresolvedAnalyzerReference(fullPath string) *AnalyzerReference {
	return &AnalyzerReference{variant: AnalyzerUnresolved, fullPath: fullPath}
}

func (r *AnalyzerReference) Variant() AnalyzerVariant { return r.variant }
func (r *AnalyzerReference) FullPath() string         { return r.fullPath }
func (r *AnalyzerReference) Display() string          { return r.display }

// Equal reports whether two analyzer references describe the same
// analyzer.
func (r *AnalyzerReference) Equal(other *AnalyzerReference) bool {
	return r.variant == other.variant && r.fullPath == other.fullPath && r.display == other.display
}
