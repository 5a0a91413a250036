// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serialization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/invariant"
	"github.com/bureau-foundation/workspacesync/lib/refserial"
	"github.com/bureau-foundation/workspacesync/lib/wire"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// OptionsCodec encodes one language's compilation and parse options.
type OptionsCodec interface {
	Language() string
	MarshalCompilationOptions(options workspace.CompilationOptions) ([]byte, error)
	UnmarshalCompilationOptions(data []byte) (workspace.CompilationOptions, error)
	MarshalParseOptions(options workspace.ParseOptions) ([]byte, error)
	UnmarshalParseOptions(data []byte) (workspace.ParseOptions, error)
}

// LanguageLookup resolves a language name to its codec.
type LanguageLookup func(language string) (OptionsCodec, bool)

// ErrUnknownLanguage is returned when no codec is registered for a
// project's language.
var ErrUnknownLanguage = errors.New("serialization: no options codec for language")

// ReferenceSerializer turns metadata and analyzer references into
// checksums and payloads. Checksums must depend only on the logical
// content of a reference, never on how the payload was transported, so
// that writer and reader agree.
type ReferenceSerializer interface {
	MetadataReferenceChecksum(ctx context.Context, reference *workspace.MetadataReference) (checksum.Checksum, error)
	WriteMetadataReference(ctx context.Context, w *wire.Writer, reference *workspace.MetadataReference) error
	ReadMetadataReference(ctx context.Context, r *wire.Reader) (*workspace.MetadataReference, error)

	AnalyzerReferenceChecksum(reference *workspace.AnalyzerReference) checksum.Checksum
	WriteAnalyzerReference(w *wire.Writer, reference *workspace.AnalyzerReference) error
	ReadAnalyzerReference(r *wire.Reader) (*workspace.AnalyzerReference, error)
}

// Options configures a Serializer.
type Options struct {
	// Languages resolves option codecs. Nil means no language is
	// known.
	Languages LanguageLookup

	// References serializes metadata and analyzer references. Nil
	// selects the path-only strategy.
	References ReferenceSerializer

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Serializer reads, writes and checksums the closed value set. It is
// safe for concurrent use.
type Serializer struct {
	languages  LanguageLookup
	references ReferenceSerializer
	logger     *slog.Logger

	// codecs caches resolved option codecs by language name.
	codecs sync.Map
}

// New returns a Serializer.
func New(options Options) *Serializer {
	serializer := &Serializer{
		languages:  options.Languages,
		references: options.References,
		logger:     options.Logger,
	}
	if serializer.languages == nil {
		serializer.languages = func(string) (OptionsCodec, bool) { return nil, false }
	}
	if serializer.references == nil {
		serializer.references = refserial.NewPathSerializer()
	}
	if serializer.logger == nil {
		serializer.logger = slog.Default()
	}
	return serializer
}

// References returns the reference strategy in use.
func (s *Serializer) References() ReferenceSerializer {
	return s.references
}

func (s *Serializer) codecFor(language string) (OptionsCodec, error) {
	if cached, ok := s.codecs.Load(language); ok {
		return cached.(OptionsCodec), nil
	}
	resolved, ok := s.languages(language)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownLanguage, language)
	}
	actual, _ := s.codecs.LoadOrStore(language, resolved)
	s.logger.Debug("resolved options codec", "language", language)
	return actual.(OptionsCodec), nil
}

// CreateChecksum returns the checksum of value as an object of kind.
// For nodes it returns the checksum the node already carries.
func (s *Serializer) CreateChecksum(ctx context.Context, value any, kind checksum.Kind) (checksum.Checksum, error) {
	if err := ctx.Err(); err != nil {
		return checksum.Null, err
	}
	if kind.HasChildren() {
		node, ok := value.(Node)
		if !ok {
			mismatch(value, kind)
		}
		return node.Checksum(), nil
	}
	switch kind {
	case checksum.KindSourceText:
		return SourceTextChecksum(asType[*workspace.SourceText](value, kind)), nil
	case checksum.KindMetadataReference:
		return s.references.MetadataReferenceChecksum(ctx, asType[*workspace.MetadataReference](value, kind))
	case checksum.KindAnalyzerReference:
		return s.references.AnalyzerReferenceChecksum(asType[*workspace.AnalyzerReference](value, kind)), nil
	}

	hasher := checksum.NewHasher(kind)
	if err := s.Serialize(ctx, wire.NewWriter(hasher), value, kind); err != nil {
		return checksum.Null, err
	}
	return hasher.Sum(), nil
}

// SourceTextChecksum returns the checksum of a source text asset. It
// hashes the text's own content hash rather than the text, so a large
// document is hashed once by its SourceText and never again here.
func SourceTextChecksum(text *workspace.SourceText) checksum.Checksum {
	hasher := checksum.NewHasher(checksum.KindSourceText)
	w := wire.NewWriter(hasher)
	w.WriteInt32(int32(text.Algorithm()))
	w.WriteStringOrNull(text.Encoding())
	w.WriteBytes(text.ContentHash())
	return hasher.Sum()
}

// Serialize writes the payload of value as kind, without framing.
func (s *Serializer) Serialize(ctx context.Context, w *wire.Writer, value any, kind checksum.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if kind.HasChildren() {
		node, ok := value.(Node)
		if !ok {
			mismatch(value, kind)
		}
		writeNodePayload(w, node)
		return w.Err()
	}

	switch kind {
	case checksum.KindSolutionInfo:
		writeSolutionInfo(w, asType[workspace.SolutionInfo](value, kind))
	case checksum.KindProjectInfo:
		writeProjectInfo(w, asType[workspace.ProjectInfo](value, kind))
	case checksum.KindDocumentInfo:
		writeDocumentInfo(w, asType[workspace.DocumentInfo](value, kind))
	case checksum.KindCompilationOptions:
		options := asType[workspace.CompilationOptions](value, kind)
		codec, err := s.codecFor(options.Language())
		if err != nil {
			return err
		}
		data, err := codec.MarshalCompilationOptions(options)
		if err != nil {
			return fmt.Errorf("encoding compilation options: %w", err)
		}
		w.WriteString(options.Language())
		w.WriteBytes(data)
	case checksum.KindParseOptions:
		options := asType[workspace.ParseOptions](value, kind)
		codec, err := s.codecFor(options.Language())
		if err != nil {
			return err
		}
		data, err := codec.MarshalParseOptions(options)
		if err != nil {
			return fmt.Errorf("encoding parse options: %w", err)
		}
		w.WriteString(options.Language())
		w.WriteBytes(data)
	case checksum.KindProjectReference:
		writeProjectReference(w, asType[*workspace.ProjectReference](value, kind))
	case checksum.KindMetadataReference:
		return s.references.WriteMetadataReference(ctx, w, asType[*workspace.MetadataReference](value, kind))
	case checksum.KindAnalyzerReference:
		return s.references.WriteAnalyzerReference(w, asType[*workspace.AnalyzerReference](value, kind))
	case checksum.KindSourceText:
		writeSourceText(w, asType[*workspace.SourceText](value, kind))
	case checksum.KindOptionSet:
		writeOptionSet(w, asType[*workspace.OptionSet](value, kind))
	default:
		invariant.UnexpectedValue(kind)
	}
	return w.Err()
}

// Deserialize reads the payload of an object of kind.
func (s *Serializer) Deserialize(ctx context.Context, kind checksum.Kind, r *wire.Reader) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kind.HasChildren() {
		node := readNode(kind, r)
		if err := r.Err(); err != nil {
			return nil, err
		}
		return node, nil
	}

	var value any
	switch kind {
	case checksum.KindSolutionInfo:
		value = readSolutionInfo(r)
	case checksum.KindProjectInfo:
		value = readProjectInfo(r)
	case checksum.KindDocumentInfo:
		value = readDocumentInfo(r)
	case checksum.KindCompilationOptions:
		language, data := r.ReadString(), r.ReadBytes()
		if err := r.Err(); err != nil {
			return nil, err
		}
		codec, err := s.codecFor(language)
		if err != nil {
			return nil, err
		}
		return codec.UnmarshalCompilationOptions(data)
	case checksum.KindParseOptions:
		language, data := r.ReadString(), r.ReadBytes()
		if err := r.Err(); err != nil {
			return nil, err
		}
		codec, err := s.codecFor(language)
		if err != nil {
			return nil, err
		}
		return codec.UnmarshalParseOptions(data)
	case checksum.KindProjectReference:
		value = readProjectReference(r)
	case checksum.KindMetadataReference:
		return s.references.ReadMetadataReference(ctx, r)
	case checksum.KindAnalyzerReference:
		return s.references.ReadAnalyzerReference(r)
	case checksum.KindSourceText:
		value = readSourceText(r)
	case checksum.KindOptionSet:
		value = readOptionSet(r)
	default:
		invariant.UnexpectedValue(kind)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return value, nil
}

// Deserialize reads an object payload of kind and returns it as T. A
// payload of the wrong Go type for T is a programming error.
func Deserialize[T any](ctx context.Context, s *Serializer, kind checksum.Kind, r *wire.Reader) (T, error) {
	value, err := s.Deserialize(ctx, kind, r)
	if err != nil {
		var zero T
		return zero, err
	}
	return asType[T](value, kind), nil
}

// Object is a decoded, verified object.
type Object struct {
	Kind     checksum.Kind
	Checksum checksum.Checksum
	Value    any
}

// WriteObject writes value framed with its kind and checksum.
func (s *Serializer) WriteObject(ctx context.Context, w *wire.Writer, kind checksum.Kind, sum checksum.Checksum, value any) error {
	w.WriteKind(kind)
	w.WriteChecksum(sum)
	return s.Serialize(ctx, w, value, kind)
}

// ReadObject reads one framed object and verifies its checksum.
func (s *Serializer) ReadObject(ctx context.Context, r *wire.Reader) (Object, error) {
	kind := r.ReadKind()
	sum := r.ReadChecksum()
	if err := r.Err(); err != nil {
		return Object{}, err
	}
	if !kind.IsValid() {
		invariant.UnexpectedValue(kind)
	}
	value, err := s.Deserialize(ctx, kind, r)
	if err != nil {
		return Object{}, fmt.Errorf("reading %s %s: %w", kind, sum.Short(), err)
	}
	actual, err := s.CreateChecksum(ctx, value, kind)
	if err != nil {
		return Object{}, fmt.Errorf("checksumming %s %s: %w", kind, sum.Short(), err)
	}
	if actual != sum {
		invariant.Fail("checksum mismatch reading %s: stream says %s, content hashes to %s", kind, sum, actual)
	}
	return Object{Kind: kind, Checksum: sum, Value: value}, nil
}

func asType[T any](value any, kind checksum.Kind) T {
	typed, ok := value.(T)
	if !ok {
		mismatch(value, kind)
	}
	return typed
}

func mismatch(value any, kind checksum.Kind) {
	invariant.Fail("value of type %T cannot be a %s", value, kind)
}
