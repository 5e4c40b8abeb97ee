// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"encoding/base64"

	"github.com/bureau-foundation/recorder/lib/cipher"
	"github.com/bureau-foundation/recorder/lib/compress"
	"github.com/bureau-foundation/recorder/lib/fault"
)

// Transformer converts an encoded entry into its stored text form and
// back. The steps are fixed by the modes:
//
//	fast, none      compress, base64
//	fast, aes-*     compress, encrypt, base64
//	none, none      JSON text unchanged
//	none, aes-*     encrypt, base64
type Transformer struct {
	compression CompressionMode
	encryption  EncryptionMode
	compressor  compress.Compressor
	cipher      *cipher.Context
}

// NewTransformer validates the mode combination. Encryption requires a
// cipher context whose strength matches the mode. The codec is ignored
// for NoCompression; an empty codec means the default.
func NewTransformer(compression CompressionMode, codec compress.Codec, encryption EncryptionMode, cipherContext *cipher.Context) (*Transformer, error) {
	if !compression.Valid() {
		return nil, fault.Config("unknown compression mode %q", compression)
	}
	if !encryption.Valid() {
		return nil, fault.Config("unknown encryption mode %q", encryption)
	}

	t := &Transformer{compression: compression, encryption: encryption}

	if compression == FastCompress {
		if codec == "" {
			codec = compress.Default
		}
		compressor, err := compress.New(codec)
		if err != nil {
			return nil, err
		}
		t.compressor = compressor
	}

	if strength, ok := encryption.Strength(); ok {
		if cipherContext == nil {
			return nil, fault.Config("encryption %s requires a cipher key and IV", encryption)
		}
		if cipherContext.Strength() != strength {
			return nil, fault.Config("encryption %s does not match the %s cipher key", encryption, cipherContext.Strength())
		}
		t.cipher = cipherContext
	}
	return t, nil
}

// Apply produces the stored text for an encoded entry.
func (t *Transformer) Apply(record []byte) (string, error) {
	data := record
	if t.compression == FastCompress {
		compressed, err := t.compressor.Compress(record)
		if err != nil {
			return "", err
		}
		data = compressed
	}

	switch {
	case t.cipher != nil:
		return t.cipher.EncryptText(data)
	case t.compression == FastCompress:
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return string(data), nil
	}
}

// Reverse recovers the encoded entry from its stored text.
func (t *Transformer) Reverse(entry string) ([]byte, error) {
	var data []byte
	switch {
	case t.cipher != nil:
		plaintext, err := t.cipher.DecryptText(entry)
		if err != nil {
			return nil, err
		}
		data = plaintext
	case t.compression == FastCompress:
		decoded, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, fault.Wrap(fault.KindFormat, err, "decoding entry")
		}
		data = decoded
	default:
		return []byte(entry), nil
	}

	if t.compression == FastCompress {
		return t.compressor.Decompress(data)
	}
	return data, nil
}
