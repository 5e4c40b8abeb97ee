// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/recorder/lib/events"
)

// EventCollector is an observer that buffers every event for later
// inspection. Subscribe it to a Bus before starting the code under
// test. Observe never blocks: events beyond the buffer are dropped and
// counted in Dropped.
type EventCollector struct {
	events  chan events.Event
	dropped atomic.Int64
}

// NewEventCollector returns a collector buffering up to capacity events.
func NewEventCollector(capacity int) *EventCollector {
	return &EventCollector{events: make(chan events.Event, capacity)}
}

// Observe implements events.Observer.
func (c *EventCollector) Observe(event events.Event) {
	select {
	case c.events <- event:
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns the number of events lost to a full buffer.
func (c *EventCollector) Dropped() int64 { return c.dropped.Load() }

// Events is the receive side of the buffer.
func (c *EventCollector) Events() <-chan events.Event { return c.events }

// RequireKind receives events until one of the given kind arrives,
// discarding the others, and returns it. Fails the test if none arrives
// within timeout.
//
//	ended := collector.RequireKind(t, events.SessionEnded, 5*time.Second)
func (c *EventCollector) RequireKind(t TB, kind events.Kind, timeout time.Duration) events.Event {
	t.Helper()
	return c.require(t, timeout, string(kind), func(event events.Event) bool {
		return event.Kind == kind
	})
}

// RequireUsability returns the kind of the next ModuleUsable or
// ModuleUnusable event for the named module, skipping everything else.
//
//	if kind := collector.RequireUsability(t, "ShimmerModule", 5*time.Second); kind != events.ModuleUnusable {
func (c *EventCollector) RequireUsability(t TB, module string, timeout time.Duration) events.Kind {
	t.Helper()
	event := c.require(t, timeout, module+" usability", func(event events.Event) bool {
		return event.Module == module && (event.Kind == events.ModuleUsable || event.Kind == events.ModuleUnusable)
	})
	return event.Kind
}

func (c *EventCollector) require(t TB, timeout time.Duration, what string, match func(events.Event) bool) events.Event {
	t.Helper()
	deadline := time.After(timeout) //nolint:realclock test hang prevention
	for {
		select {
		case event := <-c.events:
			if match(event) {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out after %v waiting for %s event (%d dropped)", timeout, what, c.Dropped())
			return events.Event{}
		}
	}
}
