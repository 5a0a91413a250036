// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tempstorage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryProvider keeps storage on the Go heap. Its storage is not
// Named, so it cannot be attached to from elsewhere.
type MemoryProvider struct{}

// NewMemoryProvider returns a heap-backed provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// CreateStorage returns empty heap storage.
func (p *MemoryProvider) CreateStorage(ctx context.Context) (Storage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryStorage{}, nil
}

type memoryStorage struct {
	mu      sync.Mutex
	data    []byte
	written bool
	closed  bool
}

func (s *memoryStorage) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.data))
}

func (s *memoryStorage) WriteStream(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(contextReader{ctx: ctx, reader: r})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrClosed
	case s.written:
		return ErrAlreadyWritten
	}
	s.data = data
	s.written = true
	return nil
}

func (s *memoryStorage) ReadStream(ctx context.Context) (io.ReadCloser, error) {
	data, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.data, nil
}

func (s *memoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

func bytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}
