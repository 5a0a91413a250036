// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tempstorage holds large byte blobs (metadata images) outside
// the Go heap for the lifetime of a snapshot.
//
// A [Provider] creates [Storage] handles. Every Storage can be filled
// once from a stream and read back as a stream. Two optional
// capabilities are discovered by type assertion:
//
//   - [Named]: the storage is a file that another process (or another
//     provider over the same directory) can attach to by name and
//     size. Reference serialization uses this to send a chunk table
//     instead of the bytes.
//   - [DirectAccess]: the storage exposes its bytes without copying.
//
// [MappedProvider] backs storage with files in a directory, mapped
// read-only with mmap once written; it supports both capabilities and
// attachment. [MemoryProvider] keeps bytes on the heap and supports
// only DirectAccess, which forces callers onto their full-byte paths.
package tempstorage
