// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
)

// MaxLength bounds every length prefix and element count a Reader
// accepts (256 MiB).
const MaxLength = 256 << 20

// maxPrealloc caps how much a Reader allocates on the strength of a
// length or count alone. Larger values grow as their bytes arrive.
const maxPrealloc = 64 << 10

// Prealloc returns a capacity hint for a container of count elements
// read from the stream. Counts are bounded by MaxLength but not by the
// stream's actual size, so the hint is capped.
func Prealloc(count int) int {
	return min(count, maxPrealloc/64)
}

// ErrMalformed is wrapped by every error caused by stream content (as
// opposed to the underlying reader failing).
var ErrMalformed = errors.New("wire: malformed stream")

// Reader reads primitives from an underlying io.Reader.
type Reader struct {
	r       io.Reader
	err     error
	scratch [8]byte
}

// NewReader returns a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered, if any. A stream that ends
// mid-value reports io.ErrUnexpectedEOF.
func (r *Reader) Err() error {
	return r.err
}

// Fail records err as the reader's error unless one is already set.
// Higher layers use it to report semantic problems through the same
// sticky error.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) malformed(format string, args ...any) {
	r.Fail(fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...)))
}

// ReadFull fills p from the stream.
func (r *Reader) ReadFull(p []byte) {
	if r.err != nil {
		return
	}
	if _, err := io.ReadFull(r.r, p); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		r.err = fmt.Errorf("wire: reading %d bytes: %w", len(p), err)
	}
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() uint8 {
	r.ReadFull(r.scratch[:1])
	if r.err != nil {
		return 0
	}
	return r.scratch[0]
}

// ReadBool reads a boolean. Bytes other than 0 and 1 are malformed.
func (r *Reader) ReadBool() bool {
	value := r.ReadUint8()
	if value > 1 {
		r.malformed("boolean byte %d", value)
		return false
	}
	return value == 1
}

// ReadInt32 reads a 4-byte little-endian integer.
func (r *Reader) ReadInt32() int32 {
	r.ReadFull(r.scratch[:4])
	if r.err != nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(r.scratch[:4]))
}

// ReadInt64 reads an 8-byte little-endian integer.
func (r *Reader) ReadInt64() int64 {
	r.ReadFull(r.scratch[:8])
	if r.err != nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(r.scratch[:8]))
}

// ReadCount reads an element count written by Writer.WriteCount.
func (r *Reader) ReadCount() int {
	count := r.ReadInt32()
	if r.err != nil {
		return 0
	}
	if count < 0 || count > MaxLength {
		r.malformed("count %d out of range", count)
		return 0
	}
	return int(count)
}

func (r *Reader) readLength(allowNull bool) (int, bool) {
	length := r.ReadInt32()
	if r.err != nil {
		return 0, false
	}
	if length == nullLength && allowNull {
		return 0, true
	}
	if length < 0 || length > MaxLength {
		r.malformed("length %d out of range", length)
		return 0, false
	}
	return int(length), false
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() string {
	length, _ := r.readLength(false)
	if r.err != nil || length == 0 {
		return ""
	}
	buffer := r.readPayload(length)
	if r.err != nil {
		return ""
	}
	return string(buffer)
}

// ReadStringOrNull reads a string written by WriteStringOrNull. Null
// decodes to the empty string.
func (r *Reader) ReadStringOrNull() string {
	length, null := r.readLength(true)
	if r.err != nil || null || length == 0 {
		return ""
	}
	buffer := r.readPayload(length)
	if r.err != nil {
		return ""
	}
	return string(buffer)
}

// ReadStrings reads a list written by WriteStrings. An empty list
// decodes to nil.
func (r *Reader) ReadStrings() []string {
	count := r.ReadCount()
	if r.err != nil || count == 0 {
		return nil
	}
	values := make([]string, 0, Prealloc(count))
	for range count {
		values = append(values, r.ReadString())
		if r.err != nil {
			return nil
		}
	}
	return values
}

// ReadBytes reads a length-prefixed byte slice.
func (r *Reader) ReadBytes() []byte {
	length, _ := r.readLength(false)
	if r.err != nil {
		return nil
	}
	buffer := r.readPayload(length)
	if r.err != nil {
		return nil
	}
	return buffer
}

// readPayload reads length bytes. Short payloads are read in one call;
// long ones are copied in pieces so that a corrupt length costs no more
// memory than the stream actually holds.
func (r *Reader) readPayload(length int) []byte {
	if r.err != nil {
		return nil
	}
	if length <= maxPrealloc {
		buffer := make([]byte, length)
		r.ReadFull(buffer)
		return buffer
	}
	var buffer bytes.Buffer
	buffer.Grow(maxPrealloc)
	copied, err := io.CopyN(&buffer, r.r, int64(length))
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		r.err = fmt.Errorf("wire: reading %d bytes (got %d): %w", length, copied, err)
		return nil
	}
	return buffer.Bytes()
}

// ReadGUID reads 16 raw bytes.
func (r *Reader) ReadGUID() [16]byte {
	var value [16]byte
	r.ReadFull(value[:])
	return value
}

// ReadChecksum reads 32 raw bytes.
func (r *Reader) ReadChecksum() checksum.Checksum {
	var value checksum.Checksum
	r.ReadFull(value[:])
	return value
}

// ReadKind reads a kind tag. It does not validate membership in the
// closed set; dispatchers do that.
func (r *Reader) ReadKind() checksum.Kind {
	return checksum.Kind(r.ReadString())
}
