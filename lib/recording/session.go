// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/module"
	"github.com/bureau-foundation/recorder/lib/sample"
)

// Session is one recording: a single worker goroutine sampling the
// registry on a ticker and appending transformed entries to the output
// file. Ticks never overlap; a tick that comes due while the previous
// one is still running is dropped.
type Session struct {
	id          string
	config      Config
	path        string
	period      time.Duration
	started     time.Time
	transformer *Transformer
	sink        *sink
	registry    *module.Registry
	publisher   events.Publisher
	clock       clock.Clock
	logger      *slog.Logger
	release     func(*Session)

	stopping atomic.Bool
	stopOnce sync.Once
	wake     chan struct{}
	done     chan struct{}

	mu         sync.Mutex
	recording  bool
	entryIndex int64
	fileSize   int64
	err        error
}

// ID is the session's UUID, carried by its events.
func (s *Session) ID() string { return s.id }

// Path is the output file.
func (s *Session) Path() string { return s.path }

// Stop asks the worker to finish. The tick in progress, if any,
// completes first. Returns immediately; use Wait or Done to learn when
// the file is closed. Safe to call more than once.
func (s *Session) Stop() {
	s.stopping.Store(true)
	s.stopOnce.Do(func() { close(s.wake) })
}

// Done is closed once the session has ended and its file is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends and returns the error that ended
// it, or nil after a clean Stop.
func (s *Session) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Status returns a snapshot of the session's counters. FileSize is the
// file size observed at the start of the latest tick.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Recording:   s.recording,
		Session:     s.id,
		EntryIndex:  s.entryIndex,
		FileSize:    s.fileSize,
		Path:        s.path,
		Cadence:     s.config.Cadence,
		Compression: s.config.Compression,
		Write:       s.config.Write,
		Encryption:  s.config.Encryption,
	}
}

func (s *Session) run() {
	defer close(s.done)
	s.finish(s.loop())
}

func (s *Session) loop() error {
	ticker := s.clock.NewTicker(s.period)
	defer ticker.Stop()

	for {
		if s.stopping.Load() {
			return nil
		}
		if err := s.tick(); err != nil {
			return err
		}
		select {
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

// tick samples, encodes, transforms, persists, and publishes one entry.
func (s *Session) tick() error {
	s.mu.Lock()
	s.fileSize = s.sink.size
	index := s.entryIndex
	s.mu.Unlock()

	now := s.clock.Now()
	record, err := sample.Encode(sample.Collect(now, s.registry.Modules()))
	if err != nil {
		return fmt.Errorf("entry %d: %w", index, err)
	}
	entry, err := s.transformer.Apply(record)
	if err != nil {
		return fmt.Errorf("entry %d: %w", index, err)
	}

	if s.config.Write == WriteAndStream {
		text := entry
		if index > 0 {
			text = entrySeparator + entry
		}
		if err := s.sink.write(text); err != nil {
			return fmt.Errorf("entry %d: %w", index, err)
		}
	}

	s.publisher.Publish(events.Event{
		Kind:    events.EntryWritten,
		Time:    now,
		Session: s.id,
		Index:   index,
		Entry:   entry,
	})

	s.mu.Lock()
	s.entryIndex++
	s.mu.Unlock()
	return nil
}

// finish closes the file, writing the closing brace only after a clean
// stop, and publishes SessionEnded.
func (s *Session) finish(loopErr error) {
	err := loopErr
	if err == nil && s.config.Write == WriteAndStream {
		err = s.sink.write("}")
	}
	if closeErr := s.sink.close(); closeErr != nil && err == nil {
		err = closeErr
	}

	ended := s.clock.Now()
	summary := &events.Summary{
		Bytes:    s.sink.size,
		Duration: ended.Sub(s.started),
	}
	if s.config.Write == WriteAndStream {
		summary.Digest = s.sink.digest()
	}

	s.mu.Lock()
	s.recording = false
	s.fileSize = s.sink.size
	s.err = err
	summary.Entries = s.entryIndex
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("recording failed",
			"path", s.path,
			"entries", summary.Entries,
			"error", err,
		)
	} else {
		s.logger.Info("recording stopped",
			"path", s.path,
			"entries", summary.Entries,
			"bytes", summary.Bytes,
			"digest", summary.Digest,
		)
	}

	s.release(s)
	s.publisher.Publish(events.Event{
		Kind:    events.SessionEnded,
		Time:    ended,
		Session: s.id,
		Path:    s.path,
		Summary: summary,
		Err:     err,
	})
}
