// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/recorder/lib/codec"
)

// JournalRecord is the on-disk form of one event in a journal file.
// Key and IV material and entry bodies are deliberately not recorded:
// the journal is an audit trail of what happened, not a second copy of
// the data.
type JournalRecord struct {
	Kind       Kind      `cbor:"kind" json:"kind"`
	Time       time.Time `cbor:"time" json:"time"`
	Session    string    `cbor:"session,omitempty" json:"session,omitempty"`
	Path       string    `cbor:"path,omitempty" json:"path,omitempty"`
	Index      int64     `cbor:"index,omitempty" json:"index,omitempty"`
	EntryBytes int       `cbor:"entry_bytes,omitempty" json:"entry_bytes,omitempty"`
	Module     string    `cbor:"module,omitempty" json:"module,omitempty"`
	Details    string    `cbor:"details,omitempty" json:"details,omitempty"`
	Entries    int64     `cbor:"entries,omitempty" json:"entries,omitempty"`
	Bytes      int64     `cbor:"bytes,omitempty" json:"bytes,omitempty"`
	Digest     string    `cbor:"digest,omitempty" json:"digest,omitempty"`
	Error      string    `cbor:"error,omitempty" json:"error,omitempty"`
}

// Journal is an Observer that appends every event to a file as a CBOR
// sequence, one item per event. Write failures are logged and do not
// propagate: a broken journal must never stop a recording.
type Journal struct {
	mu      sync.Mutex
	file    *os.File
	encoder *codec.Encoder
	logger  *slog.Logger
	failed  bool
}

// OpenJournal opens (creating if needed) the journal at path for
// appending.
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening event journal: %w", err)
	}
	return &Journal{
		file:    file,
		encoder: codec.NewEncoder(file),
		logger:  logger,
	}, nil
}

// Observe appends event to the journal.
func (j *Journal) Observe(event Event) {
	record := JournalRecord{
		Kind:    event.Kind,
		Time:    event.Time,
		Session: event.Session,
		Path:    event.Path,
		Module:  event.Module,
		Details: event.Details,
	}
	if event.Kind == EntryWritten {
		record.Index = event.Index
		record.EntryBytes = len(event.Entry)
	}
	if event.Summary != nil {
		record.Entries = event.Summary.Entries
		record.Bytes = event.Summary.Bytes
		record.Digest = event.Summary.Digest
	}
	if event.Err != nil {
		record.Error = event.Err.Error()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return
	}
	if err := j.encoder.Encode(record); err != nil && !j.failed {
		// Log once; a full disk would otherwise log every tick.
		j.failed = true
		j.logger.Error("event journal write failed", "error", err)
	}
}

// Close closes the journal file. Events observed after Close are
// dropped.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// ReadJournal decodes every record from a journal stream. A truncated
// final record (the process died mid-write) ends the read without an
// error.
func ReadJournal(r io.Reader) ([]JournalRecord, error) {
	decoder := codec.NewDecoder(r)
	var records []JournalRecord
	for {
		var record JournalRecord
		err := decoder.Decode(&record)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("decoding journal record %d: %w", len(records), err)
		}
		records = append(records, record)
	}
}
