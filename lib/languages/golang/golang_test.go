// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package golang

import (
	"bytes"
	"testing"

	"github.com/bureau-foundation/workspacesync/lib/languages/python"
)

func TestCompilationOptionsRoundtrip(t *testing.T) {
	original := &CompilationOptions{
		ModulePath: "example.com/app",
		GoVersion:  "1.25",
		BuildTags:  []string{"linux", "netgo"},
		CGOEnabled: true,
		LDFlags:    []string{"-s", "-w"},
	}
	data, err := Codec{}.MarshalCompilationOptions(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := Codec{}.MarshalCompilationOptions(original)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("encoding is not deterministic")
	}

	decoded, err := Codec{}.UnmarshalCompilationOptions(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	typed, ok := decoded.(*CompilationOptions)
	if !ok || !typed.Equal(original) {
		t.Errorf("roundtrip = %+v, want %+v", decoded, original)
	}
}

func TestParseOptionsRoundtrip(t *testing.T) {
	original := &ParseOptions{LanguageVersion: "go1.25", ParseComments: true}
	data, err := Codec{}.MarshalParseOptions(original)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Codec{}.UnmarshalParseOptions(data)
	if err != nil {
		t.Fatal(err)
	}
	if typed, ok := decoded.(*ParseOptions); !ok || *typed != *original {
		t.Errorf("roundtrip = %+v, want %+v", decoded, original)
	}
}

func TestRejectsForeignOptions(t *testing.T) {
	if _, err := (Codec{}).MarshalCompilationOptions(&python.CompilationOptions{}); err == nil {
		t.Error("Go codec accepted Python compilation options")
	}
	if _, err := (Codec{}).MarshalParseOptions(&python.ParseOptions{}); err == nil {
		t.Error("Go codec accepted Python parse options")
	}
	if _, err := (Codec{}).UnmarshalParseOptions([]byte{0xFF}); err == nil {
		t.Error("Unmarshal accepted invalid CBOR")
	}
}
