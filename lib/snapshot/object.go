// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/wire"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// ChecksumObject is a node of a checksum tree. It can write itself,
// framed, to a stream; reading is done by serialization.ReadObject.
type ChecksumObject interface {
	Checksum() checksum.Checksum
	Kind() checksum.Kind
	WriteObjectTo(ctx context.Context, w *wire.Writer) error
}

var (
	_ ChecksumObject = (*Asset)(nil)
	_ ChecksumObject = (*SourceTextAsset)(nil)
	_ ChecksumObject = (serialization.Node)(nil)
)

// Asset is a leaf: one value and its checksum.
type Asset struct {
	kind       checksum.Kind
	checksum   checksum.Checksum
	value      any
	serializer *serialization.Serializer
}

// NewAsset checksums value as kind and wraps it.
func NewAsset(ctx context.Context, serializer *serialization.Serializer, value any, kind checksum.Kind) (*Asset, error) {
	sum, err := serializer.CreateChecksum(ctx, value, kind)
	if err != nil {
		return nil, fmt.Errorf("checksumming %s: %w", kind, err)
	}
	return &Asset{kind: kind, checksum: sum, value: value, serializer: serializer}, nil
}

func (a *Asset) Checksum() checksum.Checksum { return a.checksum }
func (a *Asset) Kind() checksum.Kind         { return a.kind }

// Value returns the wrapped value.
func (a *Asset) Value() any { return a.value }

func (a *Asset) WriteObjectTo(ctx context.Context, w *wire.Writer) error {
	return a.serializer.WriteObject(ctx, w, a.kind, a.checksum, a.value)
}

// ErrTextChanged is returned when a document's text no longer matches
// the checksum it had when its snapshot was built. It happens when a
// text loader reads from a file that was edited in between.
var ErrTextChanged = errors.New("snapshot: document text changed since the snapshot was built")

// SourceTextAsset is the text of a document. It holds the document, not
// the text: the text is loaded again when the asset is written, so a
// snapshot of a large solution does not pin every document's contents.
type SourceTextAsset struct {
	checksum   checksum.Checksum
	document   *workspace.DocumentState
	serializer *serialization.Serializer
}

// NewSourceTextAsset loads the document's text once to compute the
// checksum, then drops it.
func NewSourceTextAsset(ctx context.Context, serializer *serialization.Serializer, document *workspace.DocumentState) (*SourceTextAsset, error) {
	text, err := document.Text(ctx)
	if err != nil {
		return nil, err
	}
	return &SourceTextAsset{
		checksum:   serialization.SourceTextChecksum(text),
		document:   document,
		serializer: serializer,
	}, nil
}

func (a *SourceTextAsset) Checksum() checksum.Checksum { return a.checksum }
func (a *SourceTextAsset) Kind() checksum.Kind         { return checksum.KindSourceText }

// Document returns the document the text belongs to.
func (a *SourceTextAsset) Document() *workspace.DocumentState { return a.document }

func (a *SourceTextAsset) WriteObjectTo(ctx context.Context, w *wire.Writer) error {
	text, err := a.document.Text(ctx)
	if err != nil {
		return err
	}
	if actual := serialization.SourceTextChecksum(text); actual != a.checksum {
		return fmt.Errorf("%w: %s was %s, now %s", ErrTextChanged, a.document.ID(), a.checksum.Short(), actual.Short())
	}
	return a.serializer.WriteObject(ctx, w, checksum.KindSourceText, a.checksum, text)
}
