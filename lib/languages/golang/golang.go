// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package golang holds the Go project options and their codec.
package golang

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/workspacesync/lib/codec"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// CompilationOptions are build settings for a Go module.
type CompilationOptions struct {
	ModulePath string   `json:"module_path" cbor:"module_path"`
	GoVersion  string   `json:"go_version" cbor:"go_version"`
	BuildTags  []string `json:"build_tags,omitempty" cbor:"build_tags,omitempty"`
	CGOEnabled bool     `json:"cgo_enabled" cbor:"cgo_enabled"`
	Trimpath   bool     `json:"trimpath" cbor:"trimpath"`
	LDFlags    []string `json:"ldflags,omitempty" cbor:"ldflags,omitempty"`
}

// Language returns workspace.LanguageGo.
func (*CompilationOptions) Language() string { return workspace.LanguageGo }

// Equal reports field-wise equality.
func (o *CompilationOptions) Equal(other *CompilationOptions) bool {
	return o.ModulePath == other.ModulePath && o.GoVersion == other.GoVersion &&
		slices.Equal(o.BuildTags, other.BuildTags) && o.CGOEnabled == other.CGOEnabled &&
		o.Trimpath == other.Trimpath && slices.Equal(o.LDFlags, other.LDFlags)
}

// ParseOptions are go/parser settings.
type ParseOptions struct {
	LanguageVersion      string `json:"language_version" cbor:"language_version"`
	ParseComments        bool   `json:"parse_comments" cbor:"parse_comments"`
	SkipObjectResolution bool   `json:"skip_object_resolution" cbor:"skip_object_resolution"`
}

// Language returns workspace.LanguageGo.
func (*ParseOptions) Language() string { return workspace.LanguageGo }

// Codec encodes Go options as deterministic CBOR.
type Codec struct{}

// Language returns workspace.LanguageGo.
func (Codec) Language() string { return workspace.LanguageGo }

func (Codec) MarshalCompilationOptions(options workspace.CompilationOptions) ([]byte, error) {
	typed, ok := options.(*CompilationOptions)
	if !ok {
		return nil, fmt.Errorf("golang: unexpected compilation options %T", options)
	}
	return codec.Marshal(typed)
}

func (Codec) UnmarshalCompilationOptions(data []byte) (workspace.CompilationOptions, error) {
	var options CompilationOptions
	if err := codec.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("golang: decoding compilation options: %w", err)
	}
	return &options, nil
}

func (Codec) MarshalParseOptions(options workspace.ParseOptions) ([]byte, error) {
	typed, ok := options.(*ParseOptions)
	if !ok {
		return nil, fmt.Errorf("golang: unexpected parse options %T", options)
	}
	return codec.Marshal(typed)
}

func (Codec) UnmarshalParseOptions(data []byte) (workspace.ParseOptions, error) {
	var options ParseOptions
	if err := codec.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("golang: decoding parse options: %w", err)
	}
	return &options, nil
}
