// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refserial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/compress"
	"github.com/bureau-foundation/workspacesync/lib/invariant"
	"github.com/bureau-foundation/workspacesync/lib/tempstorage"
	"github.com/bureau-foundation/workspacesync/lib/wire"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// Marker announces the wire form of a metadata reference.
type Marker int32

const (
	MarkerPath      Marker = 1
	MarkerBytes     Marker = 2
	MarkerMemoryMap Marker = 3
)

func (m Marker) String() string {
	switch m {
	case MarkerPath:
		return "path"
	case MarkerBytes:
		return "bytes"
	case MarkerMemoryMap:
		return "memory-map"
	default:
		return fmt.Sprintf("Marker(%d)", int32(m))
	}
}

// Options configures a Serializer.
type Options struct {
	// Compression is "auto", "none", "lz4" or "zstd". Empty means
	// auto.
	Compression string

	// CompressionThreshold is the image size below which images are
	// sent uncompressed.
	CompressionThreshold int64

	Logger *slog.Logger
}

// Serializer implements the reference strategy. Without a storage
// provider it is the path strategy: images always travel as bytes and
// are read back onto the heap.
type Serializer struct {
	provider    tempstorage.Provider
	compression string
	threshold   int64
	logger      *slog.Logger
}

// NewPathSerializer returns the baseline strategy.
func NewPathSerializer() *Serializer {
	return &Serializer{compression: "auto", logger: slog.Default()}
}

// NewStorageSerializer returns the storage-aware strategy. Images are
// read back into storage created by provider, and images whose chunks
// are all named storage travel as a chunk table.
func NewStorageSerializer(provider tempstorage.Provider, options Options) (*Serializer, error) {
	serializer := &Serializer{
		provider:    provider,
		compression: options.Compression,
		threshold:   options.CompressionThreshold,
		logger:      options.Logger,
	}
	if serializer.compression == "" {
		serializer.compression = "auto"
	}
	if serializer.compression != "auto" {
		if _, err := compress.ParseTag(serializer.compression); err != nil {
			return nil, err
		}
	}
	if serializer.logger == nil {
		serializer.logger = slog.Default()
	}
	return serializer, nil
}

func writeProperties(w *wire.Writer, properties workspace.MetadataReferenceProperties) {
	w.WriteInt32(int32(properties.Kind))
	w.WriteStrings(properties.Aliases)
	w.WriteBool(properties.EmbedInteropTypes)
}

func readProperties(r *wire.Reader) workspace.MetadataReferenceProperties {
	return workspace.MetadataReferenceProperties{
		Kind:              workspace.MetadataImageKind(r.ReadInt32()),
		Aliases:           r.ReadStrings(),
		EmbedInteropTypes: r.ReadBool(),
	}
}

// MetadataReferenceChecksum hashes the logical content of reference.
func (s *Serializer) MetadataReferenceChecksum(ctx context.Context, reference *workspace.MetadataReference) (checksum.Checksum, error) {
	if err := ctx.Err(); err != nil {
		return checksum.Null, err
	}
	hasher := checksum.NewHasher(checksum.KindMetadataReference)
	w := wire.NewWriter(hasher)
	w.WriteInt32(int32(reference.Variant()))
	writeProperties(w, reference.Properties())
	w.WriteStringOrNull(reference.FilePath())

	switch reference.Variant() {
	case workspace.MetadataFile:
	case workspace.MetadataInMemory:
		image := reference.Image()
		w.WriteInt64(image.Size())
		if err := image.WriteContent(ctx, hasher); err != nil {
			return checksum.Null, fmt.Errorf("hashing %s: %w", reference, err)
		}
	default:
		invariant.UnexpectedValue(reference.Variant())
	}
	return hasher.Sum(), w.Err()
}

// WriteMetadataReference writes the payload of reference.
func (s *Serializer) WriteMetadataReference(ctx context.Context, w *wire.Writer, reference *workspace.MetadataReference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch reference.Variant() {
	case workspace.MetadataFile:
		s.writeHeader(w, MarkerPath, reference)
		return w.Err()
	case workspace.MetadataInMemory:
		if names, sizes, ok := s.chunkTable(reference.Image()); ok {
			s.writeHeader(w, MarkerMemoryMap, reference)
			w.WriteCount(len(names))
			for index := range names {
				w.WriteString(names[index])
				w.WriteInt64(sizes[index])
			}
			return w.Err()
		}
		return s.writeBytes(ctx, w, reference)
	default:
		invariant.UnexpectedValue(reference.Variant())
		return nil
	}
}

func (s *Serializer) writeHeader(w *wire.Writer, marker Marker, reference *workspace.MetadataReference) {
	w.WriteInt32(int32(marker))
	writeProperties(w, reference.Properties())
	w.WriteStringOrNull(reference.FilePath())
}

// chunkTable returns the name and size of every chunk when all of them
// are named storage and this serializer can attach on the other side.
func (s *Serializer) chunkTable(image *workspace.MetadataImage) ([]string, []int64, bool) {
	if s.provider == nil {
		return nil, nil, false
	}
	if _, ok := s.provider.(tempstorage.Attacher); !ok {
		return nil, nil, false
	}
	chunks := image.Chunks()
	if len(chunks) == 0 {
		return nil, nil, false
	}
	names := make([]string, 0, len(chunks))
	sizes := make([]int64, 0, len(chunks))
	for _, chunk := range chunks {
		named, ok := chunk.(tempstorage.Named)
		if !ok {
			return nil, nil, false
		}
		names = append(names, named.Name())
		sizes = append(sizes, named.Size())
	}
	return names, sizes, true
}

func (s *Serializer) writeBytes(ctx context.Context, w *wire.Writer, reference *workspace.MetadataReference) error {
	data, err := reference.Image().Bytes(ctx)
	if err != nil {
		return fmt.Errorf("reading %s: %w", reference, err)
	}
	payload, tag, err := s.compressImage(data)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", reference, err)
	}
	s.writeHeader(w, MarkerBytes, reference)
	w.WriteUint8(uint8(tag))
	w.WriteInt64(int64(len(data)))
	w.WriteBytes(payload)
	s.logger.Debug("wrote metadata image in full",
		"size", len(data), "compressed", len(payload), "compression", tag.String())
	return w.Err()
}

func (s *Serializer) compressImage(data []byte) ([]byte, compress.Tag, error) {
	if int64(len(data)) < s.threshold || s.compression == "none" {
		return data, compress.None, nil
	}
	if s.compression == "auto" {
		return compress.Auto(data)
	}
	tag, err := compress.ParseTag(s.compression)
	if err != nil {
		return nil, 0, err
	}
	compressed, err := compress.Compress(data, tag)
	if errors.Is(err, compress.ErrIncompressible) {
		return data, compress.None, nil
	}
	return compressed, tag, err
}

// ReadMetadataReference reads a payload written by any strategy.
func (s *Serializer) ReadMetadataReference(ctx context.Context, r *wire.Reader) (*workspace.MetadataReference, error) {
	marker := Marker(r.ReadInt32())
	properties := readProperties(r)
	filePath := r.ReadStringOrNull()
	if err := r.Err(); err != nil {
		return nil, err
	}

	switch marker {
	case MarkerPath:
		return workspace.NewMetadataFileReference(filePath, properties), nil
	case MarkerBytes:
		tag := compress.Tag(r.ReadUint8())
		size := r.ReadInt64()
		payload := r.ReadBytes()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if size < 0 || size > wire.MaxLength {
			return nil, fmt.Errorf("%w: image size %d", wire.ErrMalformed, size)
		}
		data, err := compress.Decompress(payload, tag, int(size))
		if err != nil {
			return nil, err
		}
		image, err := s.pinBytes(ctx, data)
		if err != nil {
			return nil, err
		}
		return s.own(workspace.NewMetadataImageReference(image, properties, filePath)), nil
	case MarkerMemoryMap:
		count := r.ReadCount()
		var names []string
		var sizes []int64
		for range count {
			name, size := r.ReadString(), r.ReadInt64()
			if r.Err() != nil {
				break
			}
			names = append(names, name)
			sizes = append(sizes, size)
		}
		if err := r.Err(); err != nil {
			return nil, err
		}
		image, err := s.attach(ctx, names, sizes)
		if err != nil {
			return nil, err
		}
		return s.own(workspace.NewMetadataImageReference(image, properties, filePath)), nil
	default:
		invariant.UnexpectedValue(marker)
		return nil, nil
	}
}

// pinBytes holds a decoded image in storage when a provider is
// configured, and on the heap otherwise.
func (s *Serializer) pinBytes(ctx context.Context, data []byte) (*workspace.MetadataImage, error) {
	if s.provider == nil {
		return workspace.NewMetadataImage(workspace.BytesChunk(data)), nil
	}
	storage, err := tempstorage.WriteBytes(ctx, s.provider, data)
	if err != nil {
		return nil, err
	}
	return workspace.NewOwnedMetadataImage(storage), nil
}

func (s *Serializer) attach(ctx context.Context, names []string, sizes []int64) (*workspace.MetadataImage, error) {
	if s.provider == nil {
		return nil, tempstorage.ErrAttachUnsupported
	}
	chunks := make([]workspace.ImageChunk, 0, len(names))
	for index, name := range names {
		storage, err := tempstorage.Attach(ctx, s.provider, name, sizes[index])
		if err != nil {
			for _, chunk := range chunks {
				chunk.(tempstorage.Storage).Close()
			}
			return nil, fmt.Errorf("attaching image chunk %d: %w", index, err)
		}
		chunks = append(chunks, storage)
	}
	return workspace.NewOwnedMetadataImage(chunks...), nil
}

// own registers a cleanup that closes the reference's image if the
// reference becomes unreachable without Close.
func (s *Serializer) own(reference *workspace.MetadataReference) *workspace.MetadataReference {
	logger := s.logger
	runtime.AddCleanup(reference, func(image *workspace.MetadataImage) {
		if err := image.Close(); err != nil {
			logger.Warn("releasing leaked metadata image", "error", err)
		}
	}, reference.Image())
	return reference
}

// AnalyzerReferenceChecksum hashes the logical content of reference.
func (s *Serializer) AnalyzerReferenceChecksum(reference *workspace.AnalyzerReference) checksum.Checksum {
	hasher := checksum.NewHasher(checksum.KindAnalyzerReference)
	writeAnalyzer(wire.NewWriter(hasher), reference)
	return hasher.Sum()
}

// WriteAnalyzerReference writes the payload of reference. The marker is
// the variant itself.
func (s *Serializer) WriteAnalyzerReference(w *wire.Writer, reference *workspace.AnalyzerReference) error {
	writeAnalyzer(w, reference)
	return w.Err()
}

func writeAnalyzer(w *wire.Writer, reference *workspace.AnalyzerReference) {
	switch reference.Variant() {
	case workspace.AnalyzerFile, workspace.AnalyzerUnresolved:
	default:
		invariant.UnexpectedValue(reference.Variant())
	}
	w.WriteInt32(int32(reference.Variant()))
	w.WriteString(reference.FullPath())
	w.WriteStringOrNull(reference.Display())
}

// ReadAnalyzerReference reads a payload written by
// WriteAnalyzerReference.
func (s *Serializer) ReadAnalyzerReference(r *wire.Reader) (*workspace.AnalyzerReference, error) {
	variant := workspace.AnalyzerVariant(r.ReadInt32())
	fullPath := r.ReadString()
	display := r.ReadStringOrNull()
	if err := r.Err(); err != nil {
		return nil, err
	}
	switch variant {
	case workspace.AnalyzerFile:
		return workspace.NewAnalyzerFileReference(fullPath, display), nil
	case workspace.AnalyzerUnresolved:
		return workspace.NewUnresolvedAnalyzerReference(fullPath), nil
	default:
		invariant.UnexpectedValue(variant)
		return nil, nil
	}
}
