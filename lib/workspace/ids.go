// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"

	"github.com/google/uuid"
)

// SolutionID identifies a solution across versions. DebugName is for
// humans only and does not take part in equality of the GUID, but it
// is serialized and therefore affects checksums.
type SolutionID struct {
	GUID      uuid.UUID
	DebugName string
}

// NewSolutionID returns a SolutionID with a fresh random GUID.
func NewSolutionID(debugName string) SolutionID {
	return SolutionID{GUID: uuid.New(), DebugName: debugName}
}

func (id SolutionID) String() string {
	return formatID(id.GUID, id.DebugName)
}

// ProjectID identifies a project within a solution.
type ProjectID struct {
	GUID      uuid.UUID
	DebugName string
}

// NewProjectID returns a ProjectID with a fresh random GUID.
func NewProjectID(debugName string) ProjectID {
	return ProjectID{GUID: uuid.New(), DebugName: debugName}
}

func (id ProjectID) String() string {
	return formatID(id.GUID, id.DebugName)
}

// DocumentID identifies a document and names its owning project.
type DocumentID struct {
	ProjectID ProjectID
	GUID      uuid.UUID
	DebugName string
}

// NewDocumentID returns a DocumentID in project with a fresh GUID.
func NewDocumentID(project ProjectID, debugName string) DocumentID {
	return DocumentID{ProjectID: project, GUID: uuid.New(), DebugName: debugName}
}

func (id DocumentID) String() string {
	return formatID(id.GUID, id.DebugName)
}

func formatID(guid uuid.UUID, debugName string) string {
	if debugName == "" {
		return guid.String()
	}
	return fmt.Sprintf("%s (%s)", guid, debugName)
}
