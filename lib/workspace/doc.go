// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace is the in-memory project model that workspacesync
// fingerprints: a [SolutionState] made of [ProjectState]s made of
// [DocumentState]s, plus the leaf values they carry (infos, options,
// references, source text).
//
// Every state is immutable. Edits return a new state that shares every
// unchanged child by pointer, so a document untouched by a project
// edit is the same *DocumentState in the old and new solution. The
// snapshot cache keys off those pointers: structural sharing here is
// what makes incremental checksumming cheap there.
//
// References are closed tagged unions. A [MetadataReference] is either
// a file on disk or an in-memory [MetadataImage]; an
// [AnalyzerReference] is either a resolved file or an unresolved path.
// Consumers switch on the variant and treat anything else as a broken
// invariant.
package workspace
