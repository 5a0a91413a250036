// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tempstorage

import (
	"context"
	"errors"
	"io"
)

// Storage is one blob of temporary storage.
type Storage interface {
	// Size returns the number of bytes written, or 0 before
	// WriteStream completes.
	Size() int64

	// WriteStream fills the storage from r. It may be called once.
	WriteStream(ctx context.Context, r io.Reader) error

	// ReadStream returns a reader over the storage's bytes.
	ReadStream(ctx context.Context) (io.ReadCloser, error)

	// Close releases the storage. Readers obtained earlier must not
	// be used afterwards.
	Close() error
}

// Named is implemented by storage that can be attached to by name.
type Named interface {
	Storage
	Name() string
}

// DirectAccess is implemented by storage that exposes its bytes
// without copying. The slice is valid until Close.
type DirectAccess interface {
	Storage
	Bytes() ([]byte, error)
}

// Provider creates storage.
type Provider interface {
	CreateStorage(ctx context.Context) (Storage, error)
}

// Attacher is implemented by providers that can reopen named storage
// created elsewhere.
type Attacher interface {
	AttachStorage(ctx context.Context, name string, size int64) (Storage, error)
}

// ErrAttachUnsupported is returned by Attach when the provider cannot
// attach to named storage.
var ErrAttachUnsupported = errors.New("tempstorage: provider cannot attach to named storage")

// ErrClosed is returned by operations on closed storage.
var ErrClosed = errors.New("tempstorage: storage is closed")

// ErrAlreadyWritten is returned by a second WriteStream.
var ErrAlreadyWritten = errors.New("tempstorage: storage already written")

// Attach attaches to named storage through provider, or returns
// ErrAttachUnsupported.
func Attach(ctx context.Context, provider Provider, name string, size int64) (Storage, error) {
	attacher, ok := provider.(Attacher)
	if !ok {
		return nil, ErrAttachUnsupported
	}
	return attacher.AttachStorage(ctx, name, size)
}

// WriteBytes creates storage through provider and fills it with data.
func WriteBytes(ctx context.Context, provider Provider, data []byte) (Storage, error) {
	storage, err := provider.CreateStorage(ctx)
	if err != nil {
		return nil, err
	}
	if err := storage.WriteStream(ctx, bytesReader(data)); err != nil {
		storage.Close()
		return nil, err
	}
	return storage, nil
}

// contextReader fails reads once ctx is done, so long copies notice
// cancellation between chunks.
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(p)
}
