// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checksum

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// Size is the byte length of a Checksum.
const Size = 32

// Checksum is a content-derived identity. Two values are equal iff the
// kinds and serialized content they were derived from are equal.
type Checksum [Size]byte

// Null is the zero checksum. It never results from hashing and marks
// "no object" in the rare places a slot may be empty.
var Null Checksum

// domainKey is the BLAKE3 key for every workspacesync checksum. The
// bytes are readable ASCII, zero-padded to 32 bytes. Changing it
// invalidates every checksum ever produced.
var domainKey = [32]byte{
	'w', 'o', 'r', 'k', 's', 'p', 'a', 'c', 'e', 's', 'y', 'n', 'c', '.',
	'o', 'b', 'j', 'e', 'c', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// IsNull reports whether c is the zero checksum.
func (c Checksum) IsNull() bool {
	return c == Null
}

// String returns the full hex encoding.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// Short returns the first 12 hex characters, for logs and CLI output.
func (c Checksum) Short() string {
	return hex.EncodeToString(c[:6])
}

// Parse parses a 64-character hex string into a Checksum.
func Parse(hexString string) (Checksum, error) {
	var c Checksum
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return c, fmt.Errorf("parsing checksum: %w", err)
	}
	if len(decoded) != Size {
		return c, fmt.Errorf("checksum is %d bytes, want %d", len(decoded), Size)
	}
	copy(c[:], decoded)
	return c, nil
}

// FromBytes copies a 32-byte slice into a Checksum.
func FromBytes(data []byte) (Checksum, error) {
	var c Checksum
	if len(data) != Size {
		return c, fmt.Errorf("checksum is %d bytes, want %d", len(data), Size)
	}
	copy(c[:], data)
	return c, nil
}

// Hasher accumulates the content of one object. Write the serialized
// payload into it, then call Sum. The kind prefix is written by
// NewHasher, so every Hasher is already bound to a kind.
type Hasher struct {
	hasher hash.Hash
}

// NewHasher returns a Hasher for an object of the given kind.
func NewHasher(kind Kind) *Hasher {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		// Only returned for a key of the wrong length.
		panic("checksum: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(kind)))
	hasher.Write(length[:])
	hasher.Write([]byte(kind))
	return &Hasher{hasher: hasher}
}

// Write adds p to the hashed content. It never fails.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.hasher.Write(p)
}

// WriteChecksum adds a child checksum to the hashed content.
func (h *Hasher) WriteChecksum(c Checksum) {
	h.hasher.Write(c[:])
}

// Sum returns the checksum of everything written so far.
func (h *Hasher) Sum() Checksum {
	var c Checksum
	copy(c[:], h.hasher.Sum(nil))
	return c
}

// Create returns the checksum of a leaf object of the given kind whose
// serialized form is data.
func Create(kind Kind, data []byte) Checksum {
	hasher := NewHasher(kind)
	hasher.Write(data)
	return hasher.Sum()
}

// CreateFromChildren returns the checksum of a hierarchical node. The
// result depends only on the kind and the ordered child checksums.
func CreateFromChildren(kind Kind, children ...Checksum) Checksum {
	hasher := NewHasher(kind)
	for _, child := range children {
		hasher.WriteChecksum(child)
	}
	return hasher.Sum()
}
