// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

type record struct {
	At     time.Time      `cbor:"at"`
	Name   string         `cbor:"name"`
	Fields map[string]any `cbor:"fields,omitempty"`
}

func TestMarshalIsDeterministic(t *testing.T) {
	value := map[string]any{"b": 1, "a": 2, "c": []any{"x"}}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding is not deterministic")
		}
	}
}

func TestTimePreservesNanoseconds(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 891011121, time.UTC)
	data, err := Marshal(record{At: at, Name: "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded record
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.At.Equal(at) {
		t.Errorf("At = %v, want %v", decoded.At, at)
	}
}

func TestAnyMapsDecodeWithStringKeys(t *testing.T) {
	data, err := Marshal(record{Name: "x", Fields: map[string]any{"nested": map[string]any{"ok": true}}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded record
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	nested, ok := decoded.Fields["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested decoded as %T, want map[string]any", decoded.Fields["nested"])
	}
	if nested["ok"] != true {
		t.Errorf("nested[ok] = %v", nested["ok"])
	}
}

func TestSequenceRoundTrip(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, name := range []string{"one", "two", "three"} {
		if err := encoder.Encode(record{Name: name}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	var names []string
	for {
		var decoded record
		err := decoder.Decode(&decoded)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		names = append(names, decoded.Name)
	}
	if len(names) != 3 || names[2] != "three" {
		t.Errorf("names = %v", names)
	}
}
