// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cipher provides the symmetric encryption used for recorded
// entries: AES in CBC mode with PKCS#7 padding, under a 128-bit or
// 256-bit key and a 16-byte IV.
//
// Encryption is deterministic for a fixed key and IV. The IV is part of
// the recording configuration, not a per-entry nonce, because recorded
// files carry no per-entry header to hold one; rotating it is the
// operator's job (see [Context.WithNewIV]). Consumers decrypting a
// recording must be given the same key and IV out of band.
//
// Text variants ([EncryptText], [DecryptText]) wrap the ciphertext in
// standard base64 so that entries stay printable inside the recording
// file.
//
// All failures are [fault.KindCrypto] errors.
package cipher
