// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot builds checksum trees over immutable workspace states
// and keeps them resolvable for as long as a caller holds a [Scope].
//
// A snapshot is a Merkle tree. Leaves are [Asset] values: one flat value
// (a project's info, a document's text, a metadata reference) and its
// checksum. Interior nodes are the node types of lib/serialization,
// which carry only their children's checksums. The root is the
// solution node.
//
// Construction is memoized in a [TreeNodeCache]. The cache is a tree
// that mirrors the solution: the root cache holds the solution entry,
// whose sub-cache holds the solution's info, its projects collection
// and one entry per project, and so on down to documents. Entries are
// keyed by the identity (pointer) of the workspace value they were
// built from, so an unchanged document in a new solution state is the
// same key and is never rebuilt.
//
// A [Collection] owns every live root cache. Before a cache builds a
// missing entry it asks the collection whether another live scope
// already built one for the same key, and if so reuses that object
// (and adopts its sub-cache, so the descendants stay resolvable after
// the other scope closes). Lookups by checksum fan out over every live
// scope and then over the global assets.
//
// Factories may run more than once for the same key under contention.
// The first object stored wins; every caller, including the ones whose
// factories lost, receives the winner.
//
// Programming and protocol errors (closing a scope twice, asking for a
// checksum no live scope can resolve, re-adding a global asset with
// different content) panic through lib/invariant.
package snapshot
