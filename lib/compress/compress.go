// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/recorder/lib/fault"
)

// Codec identifies a compression format. Codec names appear in
// configuration files and on the command line; recorded files do not
// carry them, so a consumer must know which codec produced a recording.
type Codec string

const (
	// Gzip is the default codec: a gzip stream written at BestSpeed.
	// Readable by any gzip implementation.
	Gzip Codec = "gzip"

	// LZ4 is an LZ4 frame at the fast level. Lower ratio than gzip on
	// JSON but several times cheaper to produce.
	LZ4 Codec = "lz4"

	// Zstd is a zstd frame at the fastest encoder level.
	Zstd Codec = "zstd"
)

// Default is the codec used when none is configured.
const Default = Gzip

// String returns the codec name.
func (c Codec) String() string { return string(c) }

// ParseCodec parses a codec from its name. The empty string selects
// Default.
func ParseCodec(name string) (Codec, error) {
	switch Codec(name) {
	case "":
		return Default, nil
	case Gzip, LZ4, Zstd:
		return Codec(name), nil
	default:
		return "", fault.Config("unknown compression codec: %q", name)
	}
}

// Compressor compresses and decompresses whole byte buffers. Every
// implementation round-trips exactly, including empty input, and is safe
// for concurrent use.
type Compressor interface {
	// Codec returns the format this compressor produces.
	Codec() Codec

	// Compress returns the compressed form of data.
	Compress(data []byte) ([]byte, error)

	// Decompress reverses Compress. Input that is not a valid stream
	// in this codec fails with a format error.
	Decompress(data []byte) ([]byte, error)
}

// New returns the Compressor for codec.
func New(codec Codec) (Compressor, error) {
	switch codec {
	case Gzip, "":
		return gzipCompressor{}, nil
	case LZ4:
		return lz4Compressor{}, nil
	case Zstd:
		return zstdCompressor{}, nil
	default:
		return nil, fault.Config("unknown compression codec: %q", string(codec))
	}
}

// Compress compresses data with the default codec.
func Compress(data []byte) ([]byte, error) {
	return gzipCompressor{}.Compress(data)
}

// Decompress decompresses data produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	return gzipCompressor{}.Decompress(data)
}

// gzip: klauspost's gzip is a drop-in for compress/gzip with a much
// faster BestSpeed path.

type gzipCompressor struct{}

func (gzipCompressor) Codec() Codec { return Gzip }

func (gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buffer, gzip.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buffer.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fault.Wrap(fault.KindFormat, err, "gzip decompress")
	}
	defer reader.Close()

	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fault.Wrap(fault.KindFormat, err, "gzip decompress")
	}
	return result, nil
}

// LZ4: frame format rather than raw blocks, so the stream carries its
// own length and checksum and needs no side-channel size.

type lz4Compressor struct{}

func (lz4Compressor) Codec() Codec { return LZ4 }

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := lz4.NewWriter(&buffer)
	if err := writer.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buffer.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fault.Format("lz4 decompress: empty input")
	}
	result, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fault.Wrap(fault.KindFormat, err, "lz4 decompress")
	}
	return result, nil
}

// Zstd: the encoder and decoder are reused across calls to avoid
// repeated initialization. zstd.Encoder.EncodeAll and
// zstd.Decoder.DecodeAll are safe for concurrent use.

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

type zstdCompressor struct{}

func (zstdCompressor) Codec() Codec { return Zstd }

func (zstdCompressor) Compress(data []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(data, nil), nil
}

func (zstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fault.Format("zstd decompress: empty input")
	}
	result, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fault.Wrap(fault.KindFormat, err, "zstd decompress")
	}
	return result, nil
}
