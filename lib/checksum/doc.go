// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package checksum defines the content identity used by every layer of
// workspacesync: a fixed-width [Checksum] and the closed [Kind]
// enumeration that tags what a checksum describes.
//
// Checksums are BLAKE3 keyed hashes. The key is a fixed domain constant
// so that checksums never collide with hashes computed elsewhere over
// the same bytes. The kind is always mixed into the hash before the
// content, which means two objects with identical bytes but different
// kinds (a document's info and a project's info that happen to
// serialize identically, say) still get different checksums.
//
// Two constructors cover the two node shapes of the checksum tree:
//
//   - [Create] hashes a kind plus the serialized bytes of a leaf value.
//     [NewHasher] is the streaming form for callers that serialize
//     straight into the hash instead of buffering.
//   - [CreateFromChildren] hashes a kind plus an ordered list of child
//     checksums. Hierarchical nodes use it, which makes the whole tree a
//     Merkle structure: identical subtrees yield identical checksums.
//
// This package has no workspacesync-internal dependencies.
package checksum
