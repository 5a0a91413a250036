// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package tempstorage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// namePrefix starts every storage file name the provider creates.
const namePrefix = "wsync-"

// MappedProvider creates storage as files in a directory. A storage
// file is written with ordinary writes, then mapped read-only with
// MAP_SHARED; readers go through the mapping. Any MappedProvider over
// the same directory can attach to a file by name and size, which is
// how a reader on the other side of a socket reuses an image without
// the bytes crossing the socket.
type MappedProvider struct {
	directory string
	logger    *slog.Logger
}

// NewMappedProvider returns a provider over directory, which must
// exist. A nil logger uses slog.Default.
func NewMappedProvider(directory string, logger *slog.Logger) (*MappedProvider, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return nil, fmt.Errorf("storage directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage directory %s is not a directory", directory)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MappedProvider{directory: directory, logger: logger}, nil
}

// Directory returns the provider's directory.
func (p *MappedProvider) Directory() string {
	return p.directory
}

// CreateStorage reserves a new uniquely named file. The file is
// removed when the storage is closed.
func (p *MappedProvider) CreateStorage(ctx context.Context) (Storage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := namePrefix + uuid.NewString()
	file, err := os.OpenFile(filepath.Join(p.directory, name), os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating storage file: %w", err)
	}
	return &MappedStorage{
		name:   name,
		path:   file.Name(),
		file:   file,
		owner:  true,
		logger: p.logger,
	}, nil
}

// AttachStorage maps an existing storage file read-only. The attached
// storage does not remove the file on Close.
func (p *MappedProvider) AttachStorage(ctx context.Context, name string, size int64) (Storage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name != filepath.Base(name) || !strings.HasPrefix(name, namePrefix) {
		return nil, fmt.Errorf("invalid storage name %q", name)
	}
	if size < 0 {
		return nil, fmt.Errorf("invalid storage size %d", size)
	}
	path := filepath.Join(p.directory, name)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("attaching storage %s: %w", name, err)
	}
	defer unix.Close(fd)

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return nil, fmt.Errorf("stating storage %s: %w", name, err)
	}
	if stat.Size != size {
		return nil, fmt.Errorf("storage %s is %d bytes but %d was expected", name, stat.Size, size)
	}
	data, err := mapReadOnly(fd, size)
	if err != nil {
		return nil, fmt.Errorf("mapping storage %s: %w", name, err)
	}
	p.logger.Debug("attached storage", "name", name, "size", size)
	return &MappedStorage{
		name:    name,
		path:    path,
		data:    data,
		size:    size,
		written: true,
		logger:  p.logger,
	}, nil
}

// MappedStorage is file-backed storage. It implements Named and
// DirectAccess.
type MappedStorage struct {
	name   string
	path   string
	owner  bool
	logger *slog.Logger

	mu      sync.Mutex
	file    *os.File // open until written
	data    []byte   // read-only MAP_SHARED mapping, nil when size is 0
	size    int64
	written bool
	closed  bool
}

// Name returns the file name within the provider's directory.
func (s *MappedStorage) Name() string { return s.name }

// Size returns the number of bytes written.
func (s *MappedStorage) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// WriteStream copies r into the file and maps it.
func (s *MappedStorage) WriteStream(ctx context.Context, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrClosed
	case s.written:
		return ErrAlreadyWritten
	}

	size, err := io.Copy(s.file, contextReader{ctx: ctx, reader: r})
	if err != nil {
		return fmt.Errorf("writing storage %s: %w", s.name, err)
	}
	data, err := mapReadOnly(int(s.file.Fd()), size)
	if err != nil {
		return fmt.Errorf("mapping storage %s: %w", s.name, err)
	}
	// The mapping stays valid after the descriptor is closed.
	if err := s.file.Close(); err != nil {
		unmap(data)
		return fmt.Errorf("closing storage file %s: %w", s.name, err)
	}
	s.file = nil
	s.data = data
	s.size = size
	s.written = true
	return nil
}

// Bytes returns the mapped bytes. The slice is read-only: writing to
// it faults.
func (s *MappedStorage) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.data, nil
}

// ReadStream returns a reader over the mapping. Page faults from I/O
// errors on the backing file surface as read errors.
func (s *MappedStorage) ReadStream(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	return &mappedReader{name: s.name, data: data}, nil
}

// Close unmaps the storage. Owned storage also removes its file.
// Close is idempotent.
func (s *MappedStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			firstErr = fmt.Errorf("closing storage file %s: %w", s.name, err)
		}
		s.file = nil
	}
	if err := unmap(s.data); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("unmapping storage %s: %w", s.name, err)
	}
	s.data = nil
	if s.owner {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("removing storage %s: %w", s.name, err)
		}
	}
	s.logger.Debug("closed storage", "name", s.name, "owner", s.owner)
	return firstErr
}

func mapReadOnly(fd int, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
}

func unmap(data []byte) error {
	if data == nil {
		return nil
	}
	return unix.Munmap(data)
}

type mappedReader struct {
	name   string
	data   []byte
	offset int
}

func (r *mappedReader) Read(p []byte) (count int, err error) {
	if r.offset >= len(r.data) {
		return 0, io.EOF
	}
	// A failing disk under a MAP_SHARED mapping raises SIGBUS; turn it
	// into an error instead of a crash.
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("page fault reading storage %s at offset %d: %v", r.name, r.offset, recovered)
		}
	}()
	count = copy(p, r.data[r.offset:])
	r.offset += count
	return count, nil
}

func (r *mappedReader) Close() error { return nil }
