// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ImageChunk is one contiguous piece of a metadata image. Storage
// handles from lib/tempstorage satisfy it directly; [BytesChunk] covers
// plain heap buffers.
type ImageChunk interface {
	Size() int64
	ReadStream(ctx context.Context) (io.ReadCloser, error)
}

// MetadataImage is the byte content of an in-memory metadata reference,
// held as an ordered list of chunks. An image may own its chunks (a
// deserialized image attached to mapped storage does); Close releases
// every chunk that implements io.Closer.
type MetadataImage struct {
	chunks []ImageChunk
	owned  bool

	closeOnce sync.Once
	closeErr  error
}

// NewMetadataImage returns an image over chunks. The image does not own
// them: Close is a no-op.
func NewMetadataImage(chunks ...ImageChunk) *MetadataImage {
	return &MetadataImage{chunks: chunks}
}

// NewOwnedMetadataImage returns an image that closes its chunks on
// Close.
func NewOwnedMetadataImage(chunks ...ImageChunk) *MetadataImage {
	return &MetadataImage{chunks: chunks, owned: true}
}

// Chunks returns the image's chunks in order. The slice must not be
// modified.
func (m *MetadataImage) Chunks() []ImageChunk {
	return m.chunks
}

// Size returns the total byte length.
func (m *MetadataImage) Size() int64 {
	var total int64
	for _, chunk := range m.chunks {
		total += chunk.Size()
	}
	return total
}

// WriteContent streams every chunk, in order, to w.
func (m *MetadataImage) WriteContent(ctx context.Context, w io.Writer) error {
	for index, chunk := range m.chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		stream, err := chunk.ReadStream(ctx)
		if err != nil {
			return fmt.Errorf("opening image chunk %d: %w", index, err)
		}
		copied, err := io.Copy(w, stream)
		closeErr := stream.Close()
		if err != nil {
			return fmt.Errorf("copying image chunk %d: %w", index, err)
		}
		if closeErr != nil {
			return fmt.Errorf("closing image chunk %d: %w", index, closeErr)
		}
		if copied != chunk.Size() {
			return fmt.Errorf("image chunk %d: read %d bytes, expected %d", index, copied, chunk.Size())
		}
	}
	return nil
}

// Bytes returns the whole image as one slice.
func (m *MetadataImage) Bytes(ctx context.Context) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.Grow(int(m.Size()))
	if err := m.WriteContent(ctx, &buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Close releases owned chunks. It is safe to call more than once.
func (m *MetadataImage) Close() error {
	if !m.owned {
		return nil
	}
	m.closeOnce.Do(func() {
		var errs []error
		for _, chunk := range m.chunks {
			if closer, ok := chunk.(io.Closer); ok {
				errs = append(errs, closer.Close())
			}
		}
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}

// BytesChunk is an ImageChunk over a heap slice.
type BytesChunk []byte

func (b BytesChunk) Size() int64 { return int64(len(b)) }

func (b BytesChunk) ReadStream(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
