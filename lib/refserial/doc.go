// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package refserial serializes metadata and analyzer references.
//
// A metadata reference goes on the wire in one of three forms, chosen
// by the writer and announced by a marker:
//
//	1  path         the reader reopens the file itself
//	2  full bytes   the image, block-compressed (lib/compress)
//	3  memory map   a table of (storage name, size), one per chunk;
//	                the reader attaches to the same files
//
// File references always use the path form. Image references use the
// memory-map form when the serializer has a storage provider and every
// chunk of the image is named storage; otherwise they fall back to full
// bytes. The fallback is silent: it is a capability difference, not an
// error.
//
// The checksum of a reference never depends on the form. It is
// computed over the reference's variant, properties, path and (for
// images) the image bytes, so writer and reader agree no matter which
// form carried it.
//
// Images read back from forms 2 and 3 are owned by the returned
// reference: call Close on it to release the storage. A cleanup
// registered with runtime.AddCleanup releases it if the reference is
// collected without Close, but nothing should rely on that.
package refserial
