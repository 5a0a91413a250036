// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serialization

import (
	"github.com/bureau-foundation/workspacesync/lib/wire"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// Identifiers are [GUID][string-or-null debug name]. A document ID
// nests its project ID first.

func writeSolutionID(w *wire.Writer, id workspace.SolutionID) {
	w.WriteGUID(id.GUID)
	w.WriteStringOrNull(id.DebugName)
}

func readSolutionID(r *wire.Reader) workspace.SolutionID {
	return workspace.SolutionID{GUID: r.ReadGUID(), DebugName: r.ReadStringOrNull()}
}

// WriteProjectID writes a project ID. Reference serializers use it for
// project references embedded in their own payloads.
func WriteProjectID(w *wire.Writer, id workspace.ProjectID) {
	w.WriteGUID(id.GUID)
	w.WriteStringOrNull(id.DebugName)
}

// ReadProjectID reads a project ID written by WriteProjectID.
func ReadProjectID(r *wire.Reader) workspace.ProjectID {
	return workspace.ProjectID{GUID: r.ReadGUID(), DebugName: r.ReadStringOrNull()}
}

func writeDocumentID(w *wire.Writer, id workspace.DocumentID) {
	WriteProjectID(w, id.ProjectID)
	w.WriteGUID(id.GUID)
	w.WriteStringOrNull(id.DebugName)
}

func readDocumentID(r *wire.Reader) workspace.DocumentID {
	project := ReadProjectID(r)
	return workspace.DocumentID{ProjectID: project, GUID: r.ReadGUID(), DebugName: r.ReadStringOrNull()}
}

func writeVersionStamp(w *wire.Writer, version workspace.VersionStamp) {
	w.WriteInt64(version.UnixNano())
	w.WriteInt32(version.Local)
	w.WriteInt32(version.Global)
}

func readVersionStamp(r *wire.Reader) workspace.VersionStamp {
	nanos := r.ReadInt64()
	local := r.ReadInt32()
	global := r.ReadInt32()
	return workspace.VersionStampFromNanos(nanos, local, global)
}

func writeSolutionInfo(w *wire.Writer, info workspace.SolutionInfo) {
	writeSolutionID(w, info.ID)
	writeVersionStamp(w, info.Version)
	w.WriteStringOrNull(info.FilePath)
}

func readSolutionInfo(r *wire.Reader) workspace.SolutionInfo {
	return workspace.SolutionInfo{
		ID:       readSolutionID(r),
		Version:  readVersionStamp(r),
		FilePath: r.ReadStringOrNull(),
	}
}

func writeProjectInfo(w *wire.Writer, info workspace.ProjectInfo) {
	WriteProjectID(w, info.ID)
	writeVersionStamp(w, info.Version)
	w.WriteString(info.Name)
	w.WriteString(info.AssemblyName)
	w.WriteString(info.Language)
	w.WriteStringOrNull(info.FilePath)
	w.WriteStringOrNull(info.OutputFilePath)
}

func readProjectInfo(r *wire.Reader) workspace.ProjectInfo {
	return workspace.ProjectInfo{
		ID:             ReadProjectID(r),
		Version:        readVersionStamp(r),
		Name:           r.ReadString(),
		AssemblyName:   r.ReadString(),
		Language:       r.ReadString(),
		FilePath:       r.ReadStringOrNull(),
		OutputFilePath: r.ReadStringOrNull(),
	}
}

func writeDocumentInfo(w *wire.Writer, info workspace.DocumentInfo) {
	writeDocumentID(w, info.ID)
	w.WriteString(info.Name)
	w.WriteStrings(info.Folders)
	w.WriteInt32(int32(info.SourceCodeKind))
	w.WriteStringOrNull(info.FilePath)
	w.WriteBool(info.IsGenerated)
}

func readDocumentInfo(r *wire.Reader) workspace.DocumentInfo {
	return workspace.DocumentInfo{
		ID:             readDocumentID(r),
		Name:           r.ReadString(),
		Folders:        r.ReadStrings(),
		SourceCodeKind: workspace.SourceCodeKind(r.ReadInt32()),
		FilePath:       r.ReadStringOrNull(),
		IsGenerated:    r.ReadBool(),
	}
}

func writeProjectReference(w *wire.Writer, reference *workspace.ProjectReference) {
	WriteProjectID(w, reference.ProjectID)
	w.WriteStrings(reference.Aliases)
	w.WriteBool(reference.EmbedInteropTypes)
}

func readProjectReference(r *wire.Reader) *workspace.ProjectReference {
	return &workspace.ProjectReference{
		ProjectID:         ReadProjectID(r),
		Aliases:           r.ReadStrings(),
		EmbedInteropTypes: r.ReadBool(),
	}
}

func writeSourceText(w *wire.Writer, text *workspace.SourceText) {
	w.WriteInt32(int32(text.Algorithm()))
	w.WriteStringOrNull(text.Encoding())
	w.WriteString(text.String())
}

func readSourceText(r *wire.Reader) *workspace.SourceText {
	algorithm := workspace.ChecksumAlgorithm(r.ReadInt32())
	encoding := r.ReadStringOrNull()
	text := r.ReadString()
	return workspace.NewSourceText(text, encoding, algorithm)
}

func writeOptionSet(w *wire.Writer, options *workspace.OptionSet) {
	keys := options.Keys()
	w.WriteCount(len(keys))
	for _, key := range keys {
		value, _ := options.Get(key)
		w.WriteString(key)
		w.WriteString(value)
	}
}

func readOptionSet(r *wire.Reader) *workspace.OptionSet {
	count := r.ReadCount()
	values := make(map[string]string, wire.Prealloc(count))
	for range count {
		key := r.ReadString()
		values[key] = r.ReadString()
		if r.Err() != nil {
			return nil
		}
	}
	return workspace.NewOptionSet(values)
}
