// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package languages registers the bundled per-language option codecs.
package languages

import (
	"github.com/bureau-foundation/workspacesync/lib/languages/golang"
	"github.com/bureau-foundation/workspacesync/lib/languages/python"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// Lookup resolves the bundled codecs by language name. It satisfies
// serialization.LanguageLookup.
func Lookup(language string) (serialization.OptionsCodec, bool) {
	switch language {
	case workspace.LanguageGo:
		return golang.Codec{}, true
	case workspace.LanguagePython:
		return python.Codec{}, true
	default:
		return nil, false
	}
}

// NewOptions returns empty compilation and parse options of the
// concrete types language uses, for decoding into.
func NewOptions(language string) (workspace.CompilationOptions, workspace.ParseOptions, bool) {
	switch language {
	case workspace.LanguageGo:
		return &golang.CompilationOptions{}, &golang.ParseOptions{}, true
	case workspace.LanguagePython:
		return &python.CompilationOptions{}, &python.ParseOptions{}, true
	default:
		return nil, nil, false
	}
}

// Names returns the languages Lookup resolves.
func Names() []string {
	return []string{workspace.LanguageGo, workspace.LanguagePython}
}
