// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

// sampleOptions stands in for a language options payload.
type sampleOptions struct {
	Module     string            `cbor:"module"`
	Tags       []string          `cbor:"tags,omitempty"`
	Defines    map[string]string `cbor:"defines,omitempty"`
	Optimize   bool              `cbor:"optimize"`
	Generation int               `cbor:"generation"`
}

// sampleReport uses json tags because the CLI prints it.
type sampleReport struct {
	Checksum string `json:"checksum"`
	Kind     string `json:"kind"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleOptions{
		Module:     "example.com/app",
		Tags:       []string{"linux", "cgo"},
		Defines:    map[string]string{"DEBUG": "1"},
		Optimize:   true,
		Generation: 3,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleOptions
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Module != original.Module || decoded.Optimize != original.Optimize ||
		decoded.Generation != original.Generation || len(decoded.Tags) != 2 ||
		decoded.Defines["DEBUG"] != "1" {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministicMapOrder(t *testing.T) {
	// Map iteration order is randomized; the encoding must not be.
	defines := map[string]string{}
	for _, key := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		defines[key] = strings.ToLower(key)
	}
	first, err := Marshal(sampleOptions{Defines: defines})
	if err != nil {
		t.Fatal(err)
	}
	for range 20 {
		again, err := Marshal(sampleOptions{Defines: defines})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	reports := []sampleReport{
		{Checksum: "aa", Kind: "SolutionState"},
		{Checksum: "bb", Kind: "ProjectState"},
		{Checksum: "cc", Kind: "SourceText"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, report := range reports {
		if err := encoder.Encode(report); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range reports {
		var got sampleReport
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode report %d: %v", i, err)
		}
		if got != want {
			t.Errorf("report %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var options sampleOptions
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &options); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestRawMessageDefersDecoding(t *testing.T) {
	type envelope struct {
		Language string     `cbor:"language"`
		Payload  RawMessage `cbor:"payload"`
	}
	inner, err := Marshal(sampleOptions{Module: "m"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := Marshal(envelope{Language: "Go", Payload: inner})
	if err != nil {
		t.Fatal(err)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	var options sampleOptions
	if err := Unmarshal(decoded.Payload, &options); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if options.Module != "m" {
		t.Errorf("payload module = %q, want m", options.Module)
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"module": "example.com/app"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"module"`) || !strings.Contains(notation, `"example.com/app"`) {
		t.Errorf("notation %q missing expected strings", notation)
	}
}

func BenchmarkMarshal(b *testing.B) {
	options := sampleOptions{Module: "example.com/app", Tags: []string{"linux"}, Generation: 7}
	b.ReportAllocs()
	for b.Loop() {
		Marshal(options)
	}
}
