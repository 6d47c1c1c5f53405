// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is taskdesk's CBOR configuration, shared by everything
// that persists structured records locally (the job journal).
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// record always produces the same bytes. Times are written as RFC 3339
// strings with nanoseconds so round trips are exact. Decoding into
// any-typed targets produces map[string]any, never map[any]any.
package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder writes a CBOR sequence.
type Encoder = cbor.Encoder

// Decoder reads a CBOR sequence.
type Decoder = cbor.Decoder

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a decoder reading from r. Decode returns io.EOF
// at a clean end of sequence.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}
