// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR configuration.
//
// Two encodings coexist in workspacesync with a clear boundary:
//
//   - The object stream (lib/wire, lib/serialization) is a fixed
//     little-endian layout because its bytes feed checksums and must
//     be byte-for-byte reproducible across implementations.
//   - CBOR carries everything else that is internal: language-specific
//     option payloads inside the object stream, the asset
//     synchronization socket protocol, and the replica store index.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. A
// CBOR payload embedded in a checksummed object therefore hashes the
// same every time the same logical value is written.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented use (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types used only over CBOR carry `cbor` struct tags. Types that are
// also printed by the CLI as JSON carry `json` tags, which fxamacker
// reads as a fallback. Never put both on the same field.
package codec
