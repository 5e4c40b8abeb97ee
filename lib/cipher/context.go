// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cipher

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/bureau-foundation/recorder/lib/fault"
)

// Context binds a strength, key, and IV. Contexts are immutable values:
// WithNewKey and WithNewIV return a new Context and leave the receiver
// untouched. A recording session captures its Context when it starts,
// so regenerating key material never changes how a running session
// encrypts.
type Context struct {
	strength Strength
	key      []byte
	iv       []byte
}

// NewContext validates key and IV against strength and returns a
// Context holding private copies of both.
func NewContext(strength Strength, key, iv []byte) (*Context, error) {
	if !strength.Valid() {
		return nil, fault.Crypto("unsupported cipher strength %v", strength)
	}
	if len(key) != strength.KeySize() {
		return nil, fault.Crypto("%v key must be %d bytes, got %d", strength, strength.KeySize(), len(key))
	}
	if len(iv) != IVSize {
		return nil, fault.Crypto("IV must be %d bytes, got %d", IVSize, len(iv))
	}
	return &Context{
		strength: strength,
		key:      bytes.Clone(key),
		iv:       bytes.Clone(iv),
	}, nil
}

// GenerateContext returns a Context with a fresh random key and IV.
func GenerateContext(strength Strength) (*Context, error) {
	key, err := GenerateKey(strength)
	if err != nil {
		return nil, err
	}
	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}
	return NewContext(strength, key, iv)
}

// ParseContext builds a Context from base64-encoded key and IV text.
// Surrounding whitespace (a trailing newline from a key file) is
// ignored.
func ParseContext(strength Strength, keyText, ivText string) (*Context, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyText))
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, err, "decoding base64 key")
	}
	iv, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ivText))
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, err, "decoding base64 IV")
	}
	return NewContext(strength, key, iv)
}

// Strength returns the context's key strength.
func (c *Context) Strength() Strength { return c.strength }

// Key returns a copy of the key.
func (c *Context) Key() []byte { return bytes.Clone(c.key) }

// IV returns a copy of the IV.
func (c *Context) IV() []byte { return bytes.Clone(c.iv) }

// KeyText returns the key as standard base64.
func (c *Context) KeyText() string { return base64.StdEncoding.EncodeToString(c.key) }

// IVText returns the IV as standard base64.
func (c *Context) IVText() string { return base64.StdEncoding.EncodeToString(c.iv) }

// WithNewKey returns a copy of the context with a freshly generated key
// of the given strength. The IV is carried over.
func (c *Context) WithNewKey(strength Strength) (*Context, error) {
	key, err := GenerateKey(strength)
	if err != nil {
		return nil, err
	}
	return NewContext(strength, key, c.iv)
}

// WithNewIV returns a copy of the context with a freshly generated IV.
func (c *Context) WithNewIV() (*Context, error) {
	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}
	return NewContext(c.strength, c.key, iv)
}

// Encrypt encrypts plaintext under the context's key and IV.
func (c *Context) Encrypt(plaintext []byte) ([]byte, error) {
	return Encrypt(plaintext, c.key, c.iv)
}

// Decrypt decrypts ciphertext under the context's key and IV.
func (c *Context) Decrypt(ciphertext []byte) ([]byte, error) {
	return Decrypt(ciphertext, c.key, c.iv)
}

// EncryptText encrypts plaintext and returns base64 text.
func (c *Context) EncryptText(plaintext []byte) (string, error) {
	return EncryptText(plaintext, c.key, c.iv)
}

// DecryptText decrypts base64 text produced by EncryptText.
func (c *Context) DecryptText(text string) ([]byte, error) {
	return DecryptText(text, c.key, c.iv)
}
