// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress provides the whole-buffer compression used for
// recorded entries.
//
// Each recorded entry is compressed independently, so codecs are chosen
// for per-call speed on small JSON documents rather than for ratio.
// Three codecs are available:
//
//   - gzip (default): klauspost/compress gzip at BestSpeed
//   - lz4: pierrec/lz4 frame format at the fast level
//   - zstd: klauspost/compress zstd at SpeedFastest
//
// All codecs produce self-delimiting streams with integrity checks, so
// [Compressor.Decompress] needs no out-of-band length and reports
// corruption as a [fault.KindFormat] error.
package compress
