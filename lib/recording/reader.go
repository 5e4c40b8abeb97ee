// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/bureau-foundation/recorder/lib/fault"
)

const entrySeparator = ", "

// ReadEntries splits the contents of a write-and-stream recording into
// its stored entries. Entries are either JSON objects or base64 text.
// A file without the closing brace (an interrupted session) is accepted
// and yields every complete entry. An entry cut short by the
// interruption is reported as a format error after the complete ones.
// Base64 text is padded to a multiple of four bytes, so a trailing run
// cut at such a boundary cannot be told apart here; reversing it fails
// instead. An empty file yields no entries.
func ReadEntries(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != '{' {
		return nil, fault.Format("recording does not start with '{'")
	}

	var entries []string
	position := 1
	for position < len(data) {
		if data[position] == '}' && position == len(data)-1 {
			return entries, nil
		}
		if len(entries) > 0 {
			if len(data)-position < len(entrySeparator) || string(data[position:position+len(entrySeparator)]) != entrySeparator {
				return entries, fault.Format("expected entry separator at offset %d", position)
			}
			position += len(entrySeparator)
		}

		var end int
		var err error
		if position < len(data) && data[position] == '{' {
			end, err = objectEnd(data, position)
		} else {
			end, err = base64End(data, position)
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, string(data[position:end]))
		position = end
	}
	return entries, nil
}

// objectEnd returns the offset just past the JSON object starting at
// start.
func objectEnd(data []byte, start int) (int, error) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				if !json.Valid(data[start : i+1]) {
					return 0, fault.Format("invalid JSON entry at offset %d", start)
				}
				return i + 1, nil
			}
		}
	}
	return 0, fault.Format("truncated JSON entry at offset %d", start)
}

// base64End returns the offset just past the base64 run at start. A
// run that reaches the end of data must be whole padded base64.
func base64End(data []byte, start int) (int, error) {
	i := start
	for i < len(data) && isBase64(data[i]) {
		i++
	}
	if i == start {
		return 0, fault.Format("unexpected byte %q at offset %d", data[start], start)
	}
	if i == len(data) && (i-start)%4 != 0 {
		return 0, fault.Format("truncated base64 entry at offset %d", start)
	}
	return i, nil
}

func isBase64(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '+' || c == '/' || c == '='
}

// DecodeFile reads a write-and-stream recording and reverses every
// entry with the transformer, returning the entry JSON documents in
// order. Entries decoded before a failure are returned with the error.
func DecodeFile(path string, transformer *Transformer) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(fault.KindIO, err, "reading %s", path)
	}
	entries, readErr := ReadEntries(data)

	records := make([][]byte, 0, len(entries))
	for index, entry := range entries {
		record, err := transformer.Reverse(entry)
		if err != nil {
			return records, fmt.Errorf("entry %d: %w", index, err)
		}
		records = append(records, record)
	}
	return records, readErr
}
