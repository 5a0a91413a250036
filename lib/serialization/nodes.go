// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serialization

import (
	"context"
	"slices"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/invariant"
	"github.com/bureau-foundation/workspacesync/lib/wire"
)

// Node is a checksummed value whose payload is a list of child
// checksums. All node types in this package implement it.
type Node interface {
	Checksum() checksum.Checksum
	Kind() checksum.Kind
	Children() []checksum.Checksum
	WriteObjectTo(ctx context.Context, w *wire.Writer) error
}

// node is the shared representation of every hierarchical shape.
type node struct {
	kind     checksum.Kind
	checksum checksum.Checksum
	children []checksum.Checksum
}

func newNode(kind checksum.Kind, children []checksum.Checksum) node {
	return node{kind: kind, checksum: checksum.CreateFromChildren(kind, children...), children: children}
}

func (n *node) Checksum() checksum.Checksum { return n.checksum }
func (n *node) Kind() checksum.Kind         { return n.kind }

// Children returns the child checksums in declaration order. The
// slice must not be modified.
func (n *node) Children() []checksum.Checksum { return n.children }

// WriteObjectTo writes the framed node.
func (n *node) WriteObjectTo(ctx context.Context, w *wire.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.WriteKind(n.kind)
	w.WriteChecksum(n.checksum)
	writeNodePayload(w, n)
	return w.Err()
}

// writeNodePayload writes the children of n, preceded by their count
// when n is a collection.
func writeNodePayload(w *wire.Writer, n Node) {
	if n.Kind().IsCollection() {
		w.WriteCount(len(n.Children()))
	}
	for _, child := range n.Children() {
		w.WriteChecksum(child)
	}
}

// SolutionStateChecksums is the solution node.
type SolutionStateChecksums struct {
	node
}

// NewSolutionStateChecksums returns the solution node for its two
// children.
func NewSolutionStateChecksums(info, projects checksum.Checksum) *SolutionStateChecksums {
	return &SolutionStateChecksums{newNode(checksum.KindSolutionState, []checksum.Checksum{info, projects})}
}

func (n *SolutionStateChecksums) Info() checksum.Checksum     { return n.children[0] }
func (n *SolutionStateChecksums) Projects() checksum.Checksum { return n.children[1] }

// ProjectStateChecksums is the project node.
type ProjectStateChecksums struct {
	node
}

// ProjectChildren names the eight children of a project node.
type ProjectChildren struct {
	Info                checksum.Checksum
	CompilationOptions  checksum.Checksum
	ParseOptions        checksum.Checksum
	Documents           checksum.Checksum
	ProjectReferences   checksum.Checksum
	MetadataReferences  checksum.Checksum
	AnalyzerReferences  checksum.Checksum
	AdditionalDocuments checksum.Checksum
}

// NewProjectStateChecksums returns the project node for children.
func NewProjectStateChecksums(children ProjectChildren) *ProjectStateChecksums {
	return &ProjectStateChecksums{newNode(checksum.KindProjectState, []checksum.Checksum{
		children.Info,
		children.CompilationOptions,
		children.ParseOptions,
		children.Documents,
		children.ProjectReferences,
		children.MetadataReferences,
		children.AnalyzerReferences,
		children.AdditionalDocuments,
	})}
}

// Named returns the children by name.
func (n *ProjectStateChecksums) Named() ProjectChildren {
	c := n.children
	return ProjectChildren{
		Info:                c[0],
		CompilationOptions:  c[1],
		ParseOptions:        c[2],
		Documents:           c[3],
		ProjectReferences:   c[4],
		MetadataReferences:  c[5],
		AnalyzerReferences:  c[6],
		AdditionalDocuments: c[7],
	}
}

// DocumentStateChecksums is the document node.
type DocumentStateChecksums struct {
	node
}

// NewDocumentStateChecksums returns the document node for its info and
// text.
func NewDocumentStateChecksums(info, text checksum.Checksum) *DocumentStateChecksums {
	return &DocumentStateChecksums{newNode(checksum.KindDocumentState, []checksum.Checksum{info, text})}
}

func (n *DocumentStateChecksums) Info() checksum.Checksum { return n.children[0] }
func (n *DocumentStateChecksums) Text() checksum.Checksum { return n.children[1] }

// ChecksumCollection is an ordered list of member checksums. Its kind
// says what the members are.
type ChecksumCollection struct {
	node
}

// NewChecksumCollection returns a collection node. kind must be a
// collection kind.
func NewChecksumCollection(kind checksum.Kind, items []checksum.Checksum) *ChecksumCollection {
	invariant.Check(kind.IsCollection(), "%s is not a collection kind", kind)
	return &ChecksumCollection{newNode(kind, slices.Clone(items))}
}

// Items returns the member checksums in order. The slice must not be
// modified.
func (c *ChecksumCollection) Items() []checksum.Checksum { return c.children }

// Len returns the member count.
func (c *ChecksumCollection) Len() int { return len(c.children) }

// fixedChildren is the child count of each non-collection node kind.
var fixedChildren = map[checksum.Kind]int{
	checksum.KindSolutionState: 2,
	checksum.KindProjectState:  8,
	checksum.KindDocumentState: 2,
}

// readNode decodes the payload of a node or collection of kind.
func readNode(kind checksum.Kind, r *wire.Reader) Node {
	count, fixed := fixedChildren[kind]
	if !fixed {
		count = r.ReadCount()
	}
	children := make([]checksum.Checksum, 0, wire.Prealloc(count))
	for range count {
		children = append(children, r.ReadChecksum())
		if r.Err() != nil {
			return nil
		}
	}
	switch kind {
	case checksum.KindSolutionState:
		return NewSolutionStateChecksums(children[0], children[1])
	case checksum.KindProjectState:
		return &ProjectStateChecksums{newNode(kind, children)}
	case checksum.KindDocumentState:
		return NewDocumentStateChecksums(children[0], children[1])
	default:
		return NewChecksumCollection(kind, children)
	}
}
