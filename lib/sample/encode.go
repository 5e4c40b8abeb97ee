// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sample

import (
	"bytes"
	"encoding"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/bureau-foundation/recorder/lib/fault"
)

var (
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// reference identifies a pointer, map, or slice on the encoding path.
// Slices include their length so that a subslice sharing the backing
// array is a distinct reference.
type reference struct {
	ptr    uintptr
	length int
	typ    reflect.Type
}

type encoder struct {
	buf  bytes.Buffer
	path map[reference]struct{}
}

func newEncoder() *encoder {
	return &encoder{path: make(map[reference]struct{})}
}

func referenceOf(v reflect.Value) (reference, bool) {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reference{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reference{}, false
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		if v.IsNil() {
			return reference{}, false
		}
		return reference{ptr: v.Pointer(), typ: v.Type()}, true
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return reference{}, false
		}
		return reference{ptr: v.Pointer(), length: v.Len(), typ: v.Type()}, true
	}
	return reference{}, false
}

// cyclic reports whether v refers to something already on the path.
func (e *encoder) cyclic(v reflect.Value) bool {
	ref, ok := referenceOf(v)
	if !ok {
		return false
	}
	_, onPath := e.path[ref]
	return onPath
}

// enter runs fn with v's reference on the path.
func (e *encoder) enter(v reflect.Value, fn func(reflect.Value) error) error {
	ref, ok := referenceOf(v)
	if ok {
		e.path[ref] = struct{}{}
		defer delete(e.path, ref)
	}
	return fn(v)
}

// leaf appends a scalar through go-json.
func (e *encoder) leaf(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fault.Wrap(fault.KindFormat, err, "encoding %T", v)
	}
	e.buf.Write(data)
	return nil
}

func (e *encoder) encode(v reflect.Value) error {
	if !v.IsValid() {
		e.buf.WriteString("null")
		return nil
	}
	if handled, err := e.marshaler(v); handled {
		return err
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.encode(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.enter(v, func(v reflect.Value) error { return e.encode(v.Elem()) })
	case reflect.Bool:
		return e.leaf(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.leaf(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.leaf(v.Uint())
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fault.Format("unsupported value: %v", f)
		}
		if v.Kind() == reflect.Float32 {
			return e.leaf(float32(f))
		}
		return e.leaf(f)
	case reflect.String:
		return e.leaf(v.String())
	case reflect.Struct:
		return e.object(v)
	case reflect.Map:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.enter(v, e.mapObject)
	case reflect.Slice:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 && !v.Type().Elem().Implements(marshalerType) {
			return e.leaf(v.Bytes())
		}
		return e.enter(v, e.array)
	case reflect.Array:
		return e.array(v)
	default:
		return fault.Format("unsupported type: %s", v.Type())
	}
}

// marshaler encodes v through MarshalJSON or MarshalText when the type
// (or, for addressable values, its pointer) implements one of them.
func (e *encoder) marshaler(v reflect.Value) (bool, error) {
	switch v.Kind() {
	case reflect.Interface:
		return false, nil
	case reflect.Pointer:
		if v.IsNil() {
			return false, nil
		}
	}

	typ := v.Type()
	if !typ.Implements(marshalerType) && !typ.Implements(textMarshalerType) && v.CanAddr() {
		pointer := reflect.PointerTo(typ)
		if pointer.Implements(marshalerType) || pointer.Implements(textMarshalerType) {
			v = v.Addr()
		}
	}
	if !v.CanInterface() {
		return false, nil
	}

	switch m := v.Interface().(type) {
	case json.Marshaler:
		raw, err := m.MarshalJSON()
		if err != nil {
			return true, fault.Wrap(fault.KindFormat, err, "marshaling %s", v.Type())
		}
		// go-json's Compact rewrites dst from the start, so it must be
		// given an empty buffer.
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, raw); err != nil {
			return true, fault.Wrap(fault.KindFormat, err, "marshaling %s", v.Type())
		}
		e.buf.Write(compacted.Bytes())
		return true, nil
	case encoding.TextMarshaler:
		text, err := m.MarshalText()
		if err != nil {
			return true, fault.Wrap(fault.KindFormat, err, "marshaling %s", v.Type())
		}
		return true, e.leaf(string(text))
	}
	return false, nil
}

func (e *encoder) object(v reflect.Value) error {
	e.buf.WriteByte('{')
	first := true
	for _, f := range fieldsOf(v.Type()) {
		value, ok := fieldByIndex(v, f.index)
		if !ok {
			continue
		}
		if f.omitEmpty && isEmpty(value) {
			continue
		}
		if e.cyclic(value) {
			continue
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		e.buf.Write(f.key)
		if err := e.encode(value); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) mapObject(v reflect.Value) error {
	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, entry{key: key, value: iter.Value()})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.key, b.key) })

	e.buf.WriteByte('{')
	first := true
	for _, item := range entries {
		if e.cyclic(item.value) {
			continue
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		if err := e.leaf(item.key); err != nil {
			return err
		}
		e.buf.WriteByte(':')
		if err := e.encode(item.value); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) array(v reflect.Value) error {
	e.buf.WriteByte('[')
	first := true
	for i := range v.Len() {
		item := v.Index(i)
		if e.cyclic(item) {
			continue
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		if err := e.encode(item); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func mapKey(key reflect.Value) (string, error) {
	if key.Kind() == reflect.String {
		return key.String(), nil
	}
	if key.CanInterface() {
		if m, ok := key.Interface().(encoding.TextMarshaler); ok {
			if key.Kind() == reflect.Pointer && key.IsNil() {
				return "", nil
			}
			text, err := m.MarshalText()
			if err != nil {
				return "", fault.Wrap(fault.KindFormat, err, "marshaling map key %s", key.Type())
			}
			return string(text), nil
		}
	}
	switch key.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(key.Uint(), 10), nil
	}
	return "", fault.Format("unsupported map key type: %s", key.Type())
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// fieldByIndex walks an embedded-field index path. Returns false when
// the path crosses a nil embedded pointer.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

type field struct {
	name      string
	key       []byte // `"name":`
	index     []int
	depth     int
	tagged    bool
	omitEmpty bool
}

var fieldCache sync.Map // reflect.Type -> []field

func fieldsOf(typ reflect.Type) []field {
	if cached, ok := fieldCache.Load(typ); ok {
		return cached.([]field)
	}
	fields, _ := fieldCache.LoadOrStore(typ, typeFields(typ))
	return fields.([]field)
}

// typeFields lists the encodable fields of a struct type, promoting the
// fields of untagged embedded structs. When several fields share a
// name, the shallowest wins; among equally shallow fields a single
// tagged one wins, otherwise all are dropped. The result is ordered by
// index path.
func typeFields(typ reflect.Type) []field {
	type pending struct {
		typ   reflect.Type
		index []int
	}

	var all []field
	visited := make(map[reflect.Type]bool)
	next := []pending{{typ: typ}}
	for depth := 0; len(next) > 0; depth++ {
		current := next
		next = nil
		for _, p := range current {
			if visited[p.typ] {
				continue
			}
			visited[p.typ] = true

			for i := range p.typ.NumField() {
				sf := p.typ.Field(i)
				fieldType := sf.Type
				if fieldType.Name() == "" && fieldType.Kind() == reflect.Pointer {
					fieldType = fieldType.Elem()
				}
				if sf.Anonymous {
					if !sf.IsExported() && fieldType.Kind() != reflect.Struct {
						continue
					}
				} else if !sf.IsExported() {
					continue
				}

				tag := sf.Tag.Get("json")
				if tag == "-" {
					continue
				}
				name, options, _ := strings.Cut(tag, ",")
				index := append(slices.Clone(p.index), i)

				if name == "" && sf.Anonymous && fieldType.Kind() == reflect.Struct {
					next = append(next, pending{typ: fieldType, index: index})
					continue
				}

				tagged := name != ""
				if !tagged {
					name = sf.Name
				}
				key, _ := json.Marshal(name)
				all = append(all, field{
					name:      name,
					key:       append(key, ':'),
					index:     index,
					depth:     depth,
					tagged:    tagged,
					omitEmpty: hasOption(options, "omitempty"),
				})
			}
		}
	}

	byName := make(map[string][]field)
	for _, f := range all {
		byName[f.name] = append(byName[f.name], f)
	}
	var fields []field
	for _, candidates := range byName {
		if winner, ok := dominant(candidates); ok {
			fields = append(fields, winner)
		}
	}
	slices.SortFunc(fields, func(a, b field) int { return slices.Compare(a.index, b.index) })
	return fields
}

func dominant(candidates []field) (field, bool) {
	shallowest := candidates[0].depth
	for _, f := range candidates[1:] {
		shallowest = min(shallowest, f.depth)
	}
	var atDepth []field
	for _, f := range candidates {
		if f.depth == shallowest {
			atDepth = append(atDepth, f)
		}
	}
	if len(atDepth) == 1 {
		return atDepth[0], true
	}
	var tagged []field
	for _, f := range atDepth {
		if f.tagged {
			tagged = append(tagged, f)
		}
	}
	if len(tagged) == 1 {
		return tagged[0], true
	}
	return field{}, false
}

func hasOption(options, want string) bool {
	for options != "" {
		var option string
		option, options, _ = strings.Cut(options, ",")
		if option == want {
			return true
		}
	}
	return false
}
