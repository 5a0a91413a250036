// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package serialization converts the closed set of checksummed values
// to and from the object stream, and computes their checksums.
//
// Every object on the stream is framed as
//
//	[string kind][checksum][payload]
//
// and [Serializer.ReadObject] recomputes the checksum from the decoded
// payload. A mismatch means the writer and reader disagree about a
// layout; that is a broken invariant, not an input error, and it fails
// hard through lib/invariant. So does a kind outside the closed set.
//
// Leaf payloads are the flat values of lib/workspace. Compilation and
// parse options delegate to a per-language [OptionsCodec] found through
// a [LanguageLookup] and cached per language. Metadata and analyzer
// references delegate to a pluggable [ReferenceSerializer], because
// their identity can depend on bytes outside the model.
//
// Hierarchical nodes ([SolutionStateChecksums], [ProjectStateChecksums],
// [DocumentStateChecksums]) and collections ([ChecksumCollection]) hold
// only child checksums. Their checksum is a pure function of kind and
// children, which makes the snapshot tree a Merkle tree.
package serialization
