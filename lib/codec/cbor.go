// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode encodes with Core Deterministic Encoding (RFC 8949 §4.2) and
// writes time.Time values as tag 0 RFC 3339 strings with nanosecond
// precision. Core Deterministic Encoding turns fractional epoch times
// into float64, which cannot hold nanoseconds exactly.
var encMode cbor.EncMode

// decMode decodes any-typed maps as map[string]any, matching what
// encoding/json and the event consumers expect. Unknown fields are
// ignored so older readers can replay newer journals.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.TimeTag = cbor.EncTagRequired
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		TimeTag:        cbor.DecTagOptional,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes one CBOR data item into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder writes a CBOR sequence (RFC 8742): one data item per Encode
// call, no framing between items.
type Encoder = cbor.Encoder

// Decoder reads a CBOR sequence one item at a time.
type Decoder = cbor.Decoder

// NewEncoder returns an Encoder writing to w with the standard
// encoding configuration.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a Decoder reading from r with the standard
// decoding configuration. Decode returns io.EOF after the last complete
// item.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}
