// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/recorder/lib/fault"
)

// sink is the session's output file. Each write goes straight to the
// file (os.File is unbuffered), so a returned write is flushed to the
// kernel. With sync set, each write is also fdatasync'd. Everything
// written is hashed for the session summary. Owned by the session
// worker.
type sink struct {
	file   *os.File
	hasher *blake3.Hasher
	size   int64
	sync   bool
}

func openSink(path string, sync bool) (*sink, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fault.Wrap(fault.KindIO, err, "opening %s", path)
	}
	return &sink{file: file, hasher: blake3.New(), sync: sync}, nil
}

// write appends text as a single write call.
func (s *sink) write(text string) error {
	written, err := io.WriteString(s.file, text)
	s.size += int64(written)
	s.hasher.Write([]byte(text[:written]))
	if err != nil {
		return fault.Wrap(fault.KindIO, err, "writing %s", s.file.Name())
	}
	if s.sync {
		if err := unix.Fdatasync(int(s.file.Fd())); err != nil {
			return fault.Wrap(fault.KindIO, err, "syncing %s", s.file.Name())
		}
	}
	return nil
}

// digest is the hex BLAKE3-256 of everything written so far.
func (s *sink) digest() string {
	return hex.EncodeToString(s.hasher.Sum(nil))
}

func (s *sink) close() error {
	if err := s.file.Close(); err != nil {
		return fault.Wrap(fault.KindIO, err, "closing %s", s.file.Name())
	}
	return nil
}
