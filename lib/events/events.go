// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Kind identifies a lifecycle notification.
type Kind string

const (
	// SessionStarted fires once the output sink is open and the first
	// tick is about to run.
	SessionStarted Kind = "session-started"

	// EntryWritten fires after every tick with the transformed entry.
	// In stream-only mode the entry was not persisted, only produced.
	EntryWritten Kind = "entry-written"

	// SessionEnded fires after the sink is closed, whether the session
	// stopped cleanly or failed. Err is set on failure.
	SessionEnded Kind = "session-ended"

	// ModuleUsable fires when a sensor module becomes readable.
	ModuleUsable Kind = "module-usable"

	// ModuleUnusable fires when a sensor module stops being readable.
	ModuleUnusable Kind = "module-unusable"

	// KeyGenerated fires when a new cipher key is generated. Material
	// holds the base64 key.
	KeyGenerated Kind = "key-generated"

	// IVGenerated fires when a new cipher IV is generated. Material
	// holds the base64 IV.
	IVGenerated Kind = "iv-generated"
)

// Summary describes a finished session. Carried by SessionEnded.
type Summary struct {
	// Entries is the number of ticks that completed.
	Entries int64

	// Bytes is the final size of the output file.
	Bytes int64

	// Digest is the hex BLAKE3-256 of everything written to the output
	// file, including the framing braces. Empty in stream-only mode.
	Digest string

	// Duration is the wall-clock time between start and end.
	Duration time.Duration
}

// Event is a single notification. Only the fields relevant to Kind are
// set.
type Event struct {
	Kind Kind
	Time time.Time

	// Session is the recording session ID. Set for session and entry
	// events.
	Session string

	// Path is the output file path. Set for SessionStarted and
	// SessionEnded.
	Path string

	// Index is the zero-based entry index for EntryWritten.
	Index int64

	// Entry is the transformed entry text for EntryWritten: raw JSON or
	// base64, depending on the session's modes.
	Entry string

	// Module and Details identify the module for ModuleUsable and
	// ModuleUnusable.
	Module  string
	Details string

	// Material is the base64 key or IV for KeyGenerated and
	// IVGenerated.
	Material string

	// Summary is set for SessionEnded.
	Summary *Summary

	// Err is the failure that ended the session, if any.
	Err error
}

// String returns a short human-readable form, never including key
// material.
func (e Event) String() string {
	switch e.Kind {
	case EntryWritten:
		return fmt.Sprintf("%s session=%s index=%d bytes=%d", e.Kind, e.Session, e.Index, len(e.Entry))
	case ModuleUsable, ModuleUnusable:
		return fmt.Sprintf("%s module=%s", e.Kind, e.Module)
	case SessionStarted, SessionEnded:
		return fmt.Sprintf("%s session=%s path=%s", e.Kind, e.Session, e.Path)
	default:
		return string(e.Kind)
	}
}

// Observer receives events. Observe is called synchronously on the
// publishing goroutine (for entry events, the recording worker), so
// implementations must return quickly and must not publish to the same
// Bus.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(event).
func (f ObserverFunc) Observe(event Event) { f(event) }

// Publisher is the sending side of a Bus. Components that only emit
// events (sensor modules, the recorder) accept a Publisher.
type Publisher interface {
	Publish(Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Bus fans events out to subscribed observers in subscription order.
// The zero value is ready to use. Safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	observers []subscription
}

type subscription struct {
	id       uint64
	observer Observer
}

// Subscribe adds an observer and returns a function that removes it.
// The returned function is idempotent.
func (b *Bus) Subscribe(observer Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, subscription{id: id, observer: observer})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, entry := range b.observers {
		if entry.id == id {
			b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every observer. A zero Time is replaced
// with time.Now so that publishers without a clock still produce
// ordered journals.
func (b *Bus) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now() //nolint:realclock fallback for publishers without an injected clock
	}

	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()

	for _, entry := range observers {
		entry.observer.Observe(event)
	}
}

// Len returns the number of subscribed observers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// LogObserver returns an observer that writes each event to logger.
// Entry events are logged at debug level (one per tick); everything
// else at info, and failed sessions at error. Key material is never
// logged.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(event Event) {
		switch event.Kind {
		case EntryWritten:
			logger.Debug("entry written",
				"session", event.Session,
				"entry_index", event.Index,
				"entry_bytes", len(event.Entry),
			)
		case SessionStarted:
			logger.Info("recording started", "session", event.Session, "path", event.Path)
		case SessionEnded:
			attributes := []any{"session", event.Session, "path", event.Path}
			if event.Summary != nil {
				attributes = append(attributes,
					"entries", event.Summary.Entries,
					"bytes", event.Summary.Bytes,
					"digest", event.Summary.Digest,
					"duration", event.Summary.Duration,
				)
			}
			if event.Err != nil {
				logger.Error("recording failed", append(attributes, "error", event.Err)...)
				return
			}
			logger.Info("recording stopped", attributes...)
		case ModuleUsable:
			logger.Info("module usable", "module", event.Module, "details", event.Details)
		case ModuleUnusable:
			logger.Warn("module unusable", "module", event.Module, "details", event.Details)
		case KeyGenerated:
			logger.Info("cipher key generated")
		case IVGenerated:
			logger.Info("cipher IV generated")
		}
	})
}
