// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress wraps the block compressors used for large binary
// payloads in the object stream, chiefly metadata reference images
// sent in full.
//
// A [Tag] byte travels ahead of every compressed block so the reader
// knows which decoder to use. Tags are wire constants. The caller is
// responsible for also recording the uncompressed size; decoders
// verify it exactly.
package compress
