// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checksum

// Kind names the schema of a checksummed object. The set is closed:
// every reader dispatches on it, and a kind outside the set is a
// protocol error. Values are wire constants.
type Kind string

// Hierarchical node kinds.
const (
	KindSolutionState Kind = "SolutionState"
	KindProjectState  Kind = "ProjectState"
	KindDocumentState Kind = "DocumentState"
)

// Collection kinds. A collection node lists the checksums of its
// members in order.
const (
	KindProjects            Kind = "Projects"
	KindDocuments           Kind = "Documents"
	KindAdditionalDocuments Kind = "AdditionalDocuments"
	KindProjectReferences   Kind = "ProjectReferences"
	KindMetadataReferences  Kind = "MetadataReferences"
	KindAnalyzerReferences  Kind = "AnalyzerReferences"
)

// Leaf (asset) kinds.
const (
	KindSolutionInfo       Kind = "SolutionInfo"
	KindProjectInfo        Kind = "ProjectInfo"
	KindDocumentInfo       Kind = "DocumentInfo"
	KindCompilationOptions Kind = "CompilationOptions"
	KindParseOptions       Kind = "ParseOptions"
	KindProjectReference   Kind = "ProjectReference"
	KindMetadataReference  Kind = "MetadataReference"
	KindAnalyzerReference  Kind = "AnalyzerReference"
	KindSourceText         Kind = "SourceText"
	KindOptionSet          Kind = "OptionSet"
)

type kindClass uint8

const (
	classUnknown kindClass = iota
	classNode
	classCollection
	classLeaf
)

var kindClasses = map[Kind]kindClass{
	KindSolutionState: classNode,
	KindProjectState:  classNode,
	KindDocumentState: classNode,

	KindProjects:            classCollection,
	KindDocuments:           classCollection,
	KindAdditionalDocuments: classCollection,
	KindProjectReferences:   classCollection,
	KindMetadataReferences:  classCollection,
	KindAnalyzerReferences:  classCollection,

	KindSolutionInfo:       classLeaf,
	KindProjectInfo:        classLeaf,
	KindDocumentInfo:       classLeaf,
	KindCompilationOptions: classLeaf,
	KindParseOptions:       classLeaf,
	KindProjectReference:   classLeaf,
	KindMetadataReference:  classLeaf,
	KindAnalyzerReference:  classLeaf,
	KindSourceText:         classLeaf,
	KindOptionSet:          classLeaf,
}

// IsValid reports whether k belongs to the closed kind set.
func (k Kind) IsValid() bool {
	return kindClasses[k] != classUnknown
}

// IsCollection reports whether k names a collection node.
func (k Kind) IsCollection() bool {
	return kindClasses[k] == classCollection
}

// HasChildren reports whether objects of kind k are hierarchical
// (a solution, project or document node, or a collection).
func (k Kind) HasChildren() bool {
	class := kindClasses[k]
	return class == classNode || class == classCollection
}

// IsLeaf reports whether k names an asset kind.
func (k Kind) IsLeaf() bool {
	return kindClasses[k] == classLeaf
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	return string(k)
}

// Kinds returns every valid kind. The order is unspecified.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindClasses))
	for kind := range kindClasses {
		kinds = append(kinds, kind)
	}
	return kinds
}
