// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package events is the recorder's notification surface.
//
// Producers (the recording session, sensor modules, key generation)
// publish [Event] values to a [Bus]; consumers subscribe an [Observer]
// and hold the returned unsubscribe function. There is no global bus:
// whoever wires the process creates one and hands it to producers as a
// [Publisher].
//
// Delivery is synchronous and in subscription order. An observer that
// needs to do slow work should hand the event to its own goroutine.
//
// Two observers ship with the package: [LogObserver] for structured
// logs and [Journal] for a CBOR audit trail on disk.
package events
