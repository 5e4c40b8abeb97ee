// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sample

import (
	"fmt"
	"reflect"
	"time"

	"github.com/bureau-foundation/recorder/lib/module"
)

// TimeLayout is the entry timestamp format: local date and time with
// four fractional digits (ten-thousandths of a second).
const TimeLayout = "2006-01-02 15:04:05.0000"

// Frame is one module's contribution to a Sample.
type Frame struct {
	Module string
	Data   any
}

// Sample is a timestamped snapshot of every usable module, in registry
// order. Built fresh on each tick and not retained.
type Sample struct {
	Time   time.Time
	Frames []Frame
}

// Collect polls each module once and returns the frames of those that
// are usable. The order of modules is preserved.
func Collect(now time.Time, modules []module.Module) Sample {
	sample := Sample{Time: now, Frames: make([]Frame, 0, len(modules))}
	for _, m := range modules {
		if !m.Usable() {
			continue
		}
		sample.Frames = append(sample.Frames, Frame{Module: m.Name(), Data: m.DataFrame()})
	}
	return sample
}

// Encode serializes the sample as a compact JSON envelope:
//
//	{"time":"2026-03-01 12:34:56.7890","data":{"ShimmerModule":{...},...}}
//
// Frames appear under "data" in sample order. Reference cycles inside a
// frame are dropped rather than reported (see [Marshal]).
func Encode(sample Sample) ([]byte, error) {
	e := newEncoder()
	e.buf.WriteString(`{"time":`)
	if err := e.leaf(sample.Time.Format(TimeLayout)); err != nil {
		return nil, err
	}
	e.buf.WriteString(`,"data":{`)
	for i, frame := range sample.Frames {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.leaf(frame.Module); err != nil {
			return nil, err
		}
		e.buf.WriteByte(':')
		if err := e.encode(reflect.ValueOf(frame.Data)); err != nil {
			return nil, fmt.Errorf("encoding %s frame: %w", frame.Module, err)
		}
	}
	e.buf.WriteString("}}")
	return e.buf.Bytes(), nil
}

// Marshal encodes an arbitrary value with the same rules as a frame.
//
// A pointer, map, or slice that is already being encoded further up the
// current path is omitted: as a struct field the field is dropped, as a
// map value the entry is dropped, as an array element the element is
// dropped. The same reference reached twice along different paths is
// encoded at each occurrence. Struct tags follow encoding/json
// conventions ("-", renaming, omitempty, embedded struct promotion),
// and json.Marshaler and encoding.TextMarshaler implementations are
// honored. Map keys are sorted.
//
// Non-finite floats and channel, function, or complex values produce a
// format error.
func Marshal(v any) ([]byte, error) {
	e := newEncoder()
	if err := e.encode(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}
