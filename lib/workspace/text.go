// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"unicode/utf8"
)

// ChecksumAlgorithm selects the content hash a SourceText reports. It
// is part of the wire form of source text.
type ChecksumAlgorithm int32

const (
	ChecksumSHA1   ChecksumAlgorithm = 1
	ChecksumSHA256 ChecksumAlgorithm = 2
)

func (a ChecksumAlgorithm) String() string {
	switch a {
	case ChecksumSHA1:
		return "sha1"
	case ChecksumSHA256:
		return "sha256"
	default:
		return fmt.Sprintf("ChecksumAlgorithm(%d)", int32(a))
	}
}

// SourceText is the immutable content of a document.
type SourceText struct {
	text      string
	encoding  string
	algorithm ChecksumAlgorithm

	hashOnce sync.Once
	hash     []byte
}

// NewSourceText returns a SourceText. An empty encoding means none is
// recorded. A zero algorithm selects SHA-256.
func NewSourceText(text, encoding string, algorithm ChecksumAlgorithm) *SourceText {
	if algorithm == 0 {
		algorithm = ChecksumSHA256
	}
	return &SourceText{text: text, encoding: encoding, algorithm: algorithm}
}

func (t *SourceText) String() string               { return t.text }
func (t *SourceText) Encoding() string             { return t.encoding }
func (t *SourceText) Algorithm() ChecksumAlgorithm { return t.algorithm }
func (t *SourceText) Len() int                     { return len(t.text) }

// ContentHash returns the hash of the text under the text's algorithm.
// It is computed once. Unknown algorithms fall back to SHA-256.
func (t *SourceText) ContentHash() []byte {
	t.hashOnce.Do(func() {
		switch t.algorithm {
		case ChecksumSHA1:
			sum := sha1.Sum([]byte(t.text))
			t.hash = sum[:]
		default:
			sum := sha256.Sum256([]byte(t.text))
			t.hash = sum[:]
		}
	})
	return t.hash
}

// Equal reports whether two texts have the same content, encoding and
// algorithm.
func (t *SourceText) Equal(other *SourceText) bool {
	return t.text == other.text && t.encoding == other.encoding && t.algorithm == other.algorithm
}

// TextLoader produces a document's text on demand. Documents keep a
// loader rather than the text so that large buffers are materialized
// only when needed.
type TextLoader interface {
	LoadText(ctx context.Context) (*SourceText, error)
}

// TextConstant returns a loader that always yields text.
func TextConstant(text *SourceText) TextLoader {
	return constantLoader{text: text}
}

type constantLoader struct {
	text *SourceText
}

func (l constantLoader) LoadText(ctx context.Context) (*SourceText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.text, nil
}

// FileTextLoader reads a UTF-8 file each time text is requested.
type FileTextLoader struct {
	Path      string
	Algorithm ChecksumAlgorithm
}

// LoadText reads the file. Invalid UTF-8 is an error.
func (l FileTextLoader) LoadText(ctx context.Context) (*SourceText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("loading text: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("loading text: %s is not valid UTF-8", l.Path)
	}
	return NewSourceText(string(data), "utf-8", l.Algorithm), nil
}
