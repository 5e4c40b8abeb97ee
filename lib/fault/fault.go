// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"errors"
	"fmt"
)

// Kind classifies recorder errors so that callers can decide whether a
// failure is the operator's input, a broken key, corrupt data, the
// filesystem, or a sensor device, without parsing message text.
type Kind string

const (
	// KindConfig indicates invalid configuration: non-positive cadence,
	// unknown mode names, an unusable output directory, or encryption
	// requested without a matching cipher context.
	KindConfig Kind = "config"

	// KindCrypto indicates a key or IV of the wrong size, ciphertext that
	// is not a whole number of blocks, or invalid padding.
	KindCrypto Kind = "crypto"

	// KindFormat indicates data that does not conform to the expected
	// encoding: malformed compressed streams, bad base64, values the
	// sample encoder cannot represent as JSON.
	KindFormat Kind = "format"

	// KindIO indicates a sink open, write, flush, or close failure.
	KindIO Kind = "io"

	// KindDevice indicates a sensor connection failure. Device errors
	// are absorbed by the module's reconnect loop and never end a
	// recording session.
	KindDevice Kind = "device"
)

// Sentinel values for errors.Is. An *Error matches the sentinel of its
// Kind:
//
//	if errors.Is(err, fault.ErrCrypto) { ... }
var (
	ErrConfig = &Error{Kind: KindConfig, Err: errors.New("configuration error")}
	ErrCrypto = &Error{Kind: KindCrypto, Err: errors.New("crypto error")}
	ErrFormat = &Error{Kind: KindFormat, Err: errors.New("format error")}
	ErrIO     = &Error{Kind: KindIO, Err: errors.New("i/o error")}
	ErrDevice = &Error{Kind: KindDevice, Err: errors.New("device error")}
)

// Error is a categorized error. It wraps an inner error, preserving the
// full chain for errors.Is and errors.As while adding the Kind.
//
// Use the kind-specific constructors (Config, Crypto, ...) or Wrap
// rather than constructing Error directly.
type Error struct {
	// Kind classifies the error.
	Kind Kind

	// Err is the underlying error carrying the human-readable message.
	Err error
}

// Error returns the underlying error message. The kind is not part of
// the text; use KindOf to read it.
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. This makes
// the package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// Config creates a configuration error.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Err: fmt.Errorf(format, args...)}
}

// Crypto creates a crypto error.
func Crypto(format string, args ...any) *Error {
	return &Error{Kind: KindCrypto, Err: fmt.Errorf(format, args...)}
}

// Format creates a format error.
func Format(format string, args ...any) *Error {
	return &Error{Kind: KindFormat, Err: fmt.Errorf(format, args...)}
}

// IO creates an I/O error.
func IO(format string, args ...any) *Error {
	return &Error{Kind: KindIO, Err: fmt.Errorf(format, args...)}
}

// Device creates a device error.
func Device(format string, args ...any) *Error {
	return &Error{Kind: KindDevice, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches kind to err with a context prefix. The message reads
// "<context>: <err>". Returns nil when err is nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Err: fmt.Errorf("%s: %w", context, err)}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or ""
// if there is none.
func KindOf(err error) Kind {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Kind
	}
	return ""
}
