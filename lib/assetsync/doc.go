// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetsync moves snapshot objects between processes.
//
// A [Server] exposes a [snapshot.Service] on a Unix socket using the
// one-request-per-connection CBOR protocol: the client writes a CBOR
// map with an "action" field, the server writes back a [Response]
// envelope and closes the connection. Two actions are registered:
//
//   - "scopes" lists the live scopes and their root checksums.
//   - "get_objects" resolves a batch of checksums and returns the
//     framed objects ([int32 count][object]*) as one byte string,
//     together with the checksums that did not resolve.
//
// On the consuming side a [Synchronizer] walks the tree below a root
// checksum, asks the server only for what its [Replica] lacks, and
// verifies every object as it is decoded. [Rehydrate] turns a complete
// replica back into a [workspace.SolutionState].
package assetsync
