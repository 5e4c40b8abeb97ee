// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the recorder's CBOR encoding configuration.
//
// The recorder uses JSON for recorded entries (the file format consumers
// read) and CBOR for its own bookkeeping: the event journal written by
// events.Journal is a CBOR sequence, one item per lifecycle event. This
// package keeps the encoder and decoder modes in one place so that
// writers and readers of the journal always agree.
//
// For buffer-oriented use:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For sequences (the journal file):
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Types that are only ever journaled use `cbor` struct tags.
package codec
