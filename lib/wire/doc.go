// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the primitive layer of the object stream:
// fixed-width little-endian integers, booleans, length-prefixed strings
// and byte slices, 16-byte GUIDs and 32-byte checksums.
//
// [Writer] and [Reader] carry a sticky error in the style of
// bufio.Writer: after the first failure every later call is a no-op and
// Err reports the original cause. Callers write or read a whole record
// and check Err once.
//
// Layout of each primitive:
//
//	int32, int64      little-endian, fixed width
//	bool              one byte, 0 or 1
//	string            [int32 length][UTF-8 bytes]
//	string-or-null    [int32 length or -1][UTF-8 bytes]
//	bytes             [int32 length][bytes]
//	GUID              16 raw bytes
//	checksum          32 raw bytes
//	kind              string
//
// The Reader bounds every length prefix by [MaxLength] so a corrupt
// stream cannot trigger an unbounded allocation.
package wire
