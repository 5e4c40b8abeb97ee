// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/recorder/lib/fault"
)

// IVSize is the size in bytes of every initialization vector. AES has a
// 16-byte block regardless of key length, so the IV size does not
// depend on Strength.
const IVSize = aes.BlockSize

// Strength selects the AES key length. The numeric value is the key
// size in bytes.
type Strength int

const (
	// AES128 uses a 16-byte key.
	AES128 Strength = 16

	// AES256 uses a 32-byte key.
	AES256 Strength = 32
)

// KeySize returns the key length in bytes for the strength.
func (s Strength) KeySize() int { return int(s) }

// Bits returns the key length in bits (128 or 256).
func (s Strength) Bits() int { return int(s) * 8 }

// Valid reports whether s is one of the supported strengths.
func (s Strength) Valid() bool { return s == AES128 || s == AES256 }

// String returns the human-readable name of a strength.
func (s Strength) String() string {
	switch s {
	case AES128:
		return "aes-128"
	case AES256:
		return "aes-256"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseStrength parses a strength from "aes-128", "aes-256", "128", or
// "256".
func ParseStrength(name string) (Strength, error) {
	switch strings.ToLower(name) {
	case "aes-128", "aes128", "128":
		return AES128, nil
	case "aes-256", "aes256", "256":
		return AES256, nil
	default:
		return 0, fault.Config("unknown cipher strength: %q", name)
	}
}

// GenerateKey returns a key of exactly strength.KeySize() bytes read
// from crypto/rand.
func GenerateKey(strength Strength) ([]byte, error) {
	if !strength.Valid() {
		return nil, fault.Crypto("cannot generate key for strength %v", strength)
	}
	return randomBytes(strength.KeySize())
}

// GenerateIV returns a 16-byte IV read from crypto/rand.
func GenerateIV() ([]byte, error) {
	return randomBytes(IVSize)
}

func randomBytes(size int) ([]byte, error) {
	buffer := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return nil, fault.Wrap(fault.KindCrypto, err, "reading %d random bytes", size)
	}
	return buffer, nil
}

// Encrypt encrypts plaintext with AES-CBC and PKCS#7 padding. The same
// plaintext under the same key and IV always produces the same
// ciphertext: the IV is caller state, not generated per call. Empty
// plaintext yields one block of padding.
//
// The key must be 16 or 32 bytes and the IV exactly 16 bytes.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	padded := pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// Decrypt reverses Encrypt. Fails with a crypto error if the ciphertext
// is empty, not a whole number of blocks, or carries invalid padding
// (which usually means the wrong key or IV).
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fault.Crypto("ciphertext length %d is not a positive multiple of the %d-byte block size",
			len(ciphertext), aes.BlockSize)
	}

	plaintext := make([]byte, len(ciphertext))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return unpad(plaintext, aes.BlockSize)
}

// EncryptText encrypts plaintext and returns the ciphertext as standard
// base64.
func EncryptText(plaintext, key, iv []byte) (string, error) {
	ciphertext, err := Encrypt(plaintext, key, iv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptText decodes base64 ciphertext produced by EncryptText and
// decrypts it.
func DecryptText(text string, key, iv []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, err, "decoding base64 ciphertext")
	}
	return Decrypt(ciphertext, key, iv)
}

func newBlock(key, iv []byte) (stdcipher.Block, error) {
	if !Strength(len(key)).Valid() {
		return nil, fault.Crypto("key is %d bytes, must be %d (AES-128) or %d (AES-256)",
			len(key), AES128.KeySize(), AES256.KeySize())
	}
	if len(iv) != IVSize {
		return nil, fault.Crypto("IV is %d bytes, must be %d", len(iv), IVSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, err, "creating AES cipher")
	}
	return block, nil
}

// pad appends PKCS#7 padding. A full block of padding is added when the
// input is already block-aligned, so unpad is always unambiguous.
func pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	copy(padded[len(data):], bytes.Repeat([]byte{byte(padding)}, padding))
	return padded
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fault.Crypto("invalid padding (wrong key or IV, or corrupt ciphertext)")
	}
	for _, value := range data[len(data)-padding:] {
		if int(value) != padding {
			return nil, fault.Crypto("invalid padding (wrong key or IV, or corrupt ciphertext)")
		}
	}
	return data[:len(data)-padding], nil
}
