// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package python holds the Python project options and their codec.
package python

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/workspacesync/lib/codec"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// CompilationOptions are interpreter and type-checker settings.
type CompilationOptions struct {
	InterpreterVersion string   `json:"interpreter_version" cbor:"interpreter_version"`
	OptimizationLevel  int      `json:"optimization_level" cbor:"optimization_level"`
	StrictTyping       bool     `json:"strict_typing" cbor:"strict_typing"`
	SearchPaths        []string `json:"search_paths,omitempty" cbor:"search_paths,omitempty"`
}

// Language returns workspace.LanguagePython.
func (*CompilationOptions) Language() string { return workspace.LanguagePython }

// Equal reports field-wise equality.
func (o *CompilationOptions) Equal(other *CompilationOptions) bool {
	return o.InterpreterVersion == other.InterpreterVersion &&
		o.OptimizationLevel == other.OptimizationLevel &&
		o.StrictTyping == other.StrictTyping && slices.Equal(o.SearchPaths, other.SearchPaths)
}

// ParseOptions are parser settings.
type ParseOptions struct {
	LanguageVersion string   `json:"language_version" cbor:"language_version"`
	FutureImports   []string `json:"future_imports,omitempty" cbor:"future_imports,omitempty"`
	TypeComments    bool     `json:"type_comments" cbor:"type_comments"`
}

// Language returns workspace.LanguagePython.
func (*ParseOptions) Language() string { return workspace.LanguagePython }

// Equal reports field-wise equality.
func (o *ParseOptions) Equal(other *ParseOptions) bool {
	return o.LanguageVersion == other.LanguageVersion &&
		slices.Equal(o.FutureImports, other.FutureImports) && o.TypeComments == other.TypeComments
}

// Codec encodes Python options as deterministic CBOR.
type Codec struct{}

// Language returns workspace.LanguagePython.
func (Codec) Language() string { return workspace.LanguagePython }

func (Codec) MarshalCompilationOptions(options workspace.CompilationOptions) ([]byte, error) {
	typed, ok := options.(*CompilationOptions)
	if !ok {
		return nil, fmt.Errorf("python: unexpected compilation options %T", options)
	}
	return codec.Marshal(typed)
}

func (Codec) UnmarshalCompilationOptions(data []byte) (workspace.CompilationOptions, error) {
	var options CompilationOptions
	if err := codec.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("python: decoding compilation options: %w", err)
	}
	return &options, nil
}

func (Codec) MarshalParseOptions(options workspace.ParseOptions) ([]byte, error) {
	typed, ok := options.(*ParseOptions)
	if !ok {
		return nil, fmt.Errorf("python: unexpected parse options %T", options)
	}
	return codec.Marshal(typed)
}

func (Codec) UnmarshalParseOptions(data []byte) (workspace.ParseOptions, error) {
	var options ParseOptions
	if err := codec.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("python: decoding parse options: %w", err)
	}
	return &options, nil
}
