// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
)

// nullLength is the length prefix of a null string.
const nullLength = -1

// Writer writes primitives to an underlying io.Writer.
type Writer struct {
	w       io.Writer
	err     error
	scratch [8]byte
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.w.Write(p); err != nil {
		w.err = fmt.Errorf("wire: writing %d bytes: %w", len(p), err)
	}
}

// WriteRaw writes p with no length prefix.
func (w *Writer) WriteRaw(p []byte) {
	w.write(p)
}

// WriteUint8 writes one byte.
func (w *Writer) WriteUint8(value uint8) {
	w.scratch[0] = value
	w.write(w.scratch[:1])
}

// WriteBool writes a boolean as one byte.
func (w *Writer) WriteBool(value bool) {
	if value {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// WriteInt32 writes a 4-byte little-endian integer.
func (w *Writer) WriteInt32(value int32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], uint32(value))
	w.write(w.scratch[:4])
}

// WriteInt64 writes an 8-byte little-endian integer.
func (w *Writer) WriteInt64(value int64) {
	binary.LittleEndian.PutUint64(w.scratch[:8], uint64(value))
	w.write(w.scratch[:8])
}

// WriteCount writes a non-negative element count as int32.
func (w *Writer) WriteCount(count int) {
	if w.err == nil && (count < 0 || count > math.MaxInt32) {
		w.err = fmt.Errorf("wire: count %d out of range", count)
		return
	}
	w.WriteInt32(int32(count))
}

// WriteString writes a length-prefixed string.
func (w *Writer) WriteString(value string) {
	w.WriteCount(len(value))
	w.write([]byte(value))
}

// WriteStringOrNull writes value, encoding the empty string as null.
func (w *Writer) WriteStringOrNull(value string) {
	if value == "" {
		w.WriteInt32(nullLength)
		return
	}
	w.WriteString(value)
}

// WriteStrings writes a count followed by each string.
func (w *Writer) WriteStrings(values []string) {
	w.WriteCount(len(values))
	for _, value := range values {
		w.WriteString(value)
	}
}

// WriteBytes writes a length-prefixed byte slice.
func (w *Writer) WriteBytes(value []byte) {
	w.WriteCount(len(value))
	w.write(value)
}

// WriteGUID writes 16 raw bytes.
func (w *Writer) WriteGUID(value [16]byte) {
	w.write(value[:])
}

// WriteChecksum writes 32 raw bytes.
func (w *Writer) WriteChecksum(value checksum.Checksum) {
	w.write(value[:])
}

// WriteKind writes a kind tag as a string.
func (w *Writer) WriteKind(kind checksum.Kind) {
	w.WriteString(string(kind))
}
