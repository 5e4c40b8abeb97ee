// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"strings"

	"github.com/bureau-foundation/recorder/lib/cipher"
	"github.com/bureau-foundation/recorder/lib/fault"
)

// CompressionMode selects whether entries are compressed before
// encryption and text encoding.
type CompressionMode string

const (
	// FastCompress compresses the entry JSON with the session codec and
	// stores it as base64 (encrypted first when encryption is on).
	FastCompress CompressionMode = "fast"

	// NoCompression stores the entry JSON as is, or as base64
	// ciphertext when encryption is on.
	NoCompression CompressionMode = "none"
)

// ParseCompressionMode accepts "fast" (or "fast-compress", "gzip") and
// "none" (or "no-compression"). Case-insensitive.
func ParseCompressionMode(name string) (CompressionMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fast", "fast-compress", "gzip":
		return FastCompress, nil
	case "none", "no-compression":
		return NoCompression, nil
	}
	return "", fault.Config("unknown compression mode %q (want fast or none)", name)
}

func (m CompressionMode) Valid() bool { return m == FastCompress || m == NoCompression }

func (m CompressionMode) String() string { return string(m) }

// WriteMode selects whether entries are persisted or only published.
type WriteMode string

const (
	// WriteAndStream appends every entry to the output file and
	// publishes it.
	WriteAndStream WriteMode = "write-and-stream"

	// StreamOnly publishes entries without persisting them. The output
	// file is still created and stays empty.
	StreamOnly WriteMode = "stream-only"
)

// ParseWriteMode accepts "write-and-stream" (or "write") and
// "stream-only" (or "stream"). Case-insensitive.
func ParseWriteMode(name string) (WriteMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "write-and-stream", "write":
		return WriteAndStream, nil
	case "stream-only", "stream":
		return StreamOnly, nil
	}
	return "", fault.Config("unknown write mode %q (want write-and-stream or stream-only)", name)
}

func (m WriteMode) Valid() bool { return m == WriteAndStream || m == StreamOnly }

func (m WriteMode) String() string { return string(m) }

// EncryptionMode selects AES encryption of entries.
type EncryptionMode string

const (
	EncryptionNone   EncryptionMode = "none"
	EncryptionAES128 EncryptionMode = "aes-128"
	EncryptionAES256 EncryptionMode = "aes-256"
)

// ParseEncryptionMode accepts "none", "aes-128" (or "128") and
// "aes-256" (or "256"). Case-insensitive.
func ParseEncryptionMode(name string) (EncryptionMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return EncryptionNone, nil
	case "aes-128", "aes128", "128":
		return EncryptionAES128, nil
	case "aes-256", "aes256", "256":
		return EncryptionAES256, nil
	}
	return "", fault.Config("unknown encryption mode %q (want none, aes-128, or aes-256)", name)
}

func (m EncryptionMode) Valid() bool {
	return m == EncryptionNone || m == EncryptionAES128 || m == EncryptionAES256
}

func (m EncryptionMode) String() string { return string(m) }

// Strength returns the cipher strength for the mode, or false for
// EncryptionNone.
func (m EncryptionMode) Strength() (cipher.Strength, bool) {
	switch m {
	case EncryptionAES128:
		return cipher.AES128, true
	case EncryptionAES256:
		return cipher.AES256, true
	}
	return 0, false
}
