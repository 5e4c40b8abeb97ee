// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Production code takes a [Clock] instead of calling time.Now,
// time.After, time.NewTicker, or time.Sleep. [Real] wraps the time
// package; [Fake] returns a clock that stands still until the test
// calls [FakeClock.Advance].
//
// A test driving a recording session looks like:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	session, _ := recorder.Start(config)   // worker ticks once, then waits on its ticker
//	fake.WaitForTimers(1)                   // ticker registered
//	fake.Advance(500 * time.Millisecond)    // second tick
//
// [FakeClock.WaitForTimers] closes the race between a goroutine
// registering a timer and the test advancing past it.
package clock
