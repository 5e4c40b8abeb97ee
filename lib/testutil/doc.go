// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for recorder packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern so that individual tests do not need
// direct time.After calls. They are the only place tests use a real
// wall-clock timeout, and only as a hang guard: everything under test
// runs on clock.Fake.
//
// [EventCollector] is an events.Observer that buffers events so tests
// can wait for a specific lifecycle notification with
// [EventCollector.RequireKind], or for a module's next usability
// transition with [EventCollector.RequireUsability].
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
