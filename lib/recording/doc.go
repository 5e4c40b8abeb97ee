// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recording runs the sampling pipeline: on every tick it polls
// the registered sensor modules, encodes the usable ones into a JSON
// entry, optionally compresses and encrypts the entry, appends it to
// the recording file, and publishes it to observers.
//
// A [Recorder] runs one [Session] at a time. Each session writes to a
// fresh file named by [NextPath]. In write-and-stream mode the file is
// framed as
//
//	{<entry>, <entry>, ...}
//
// where each entry is JSON text or base64 depending on the compression
// and encryption modes (see [Transformer]). The closing brace is
// written only when the session is stopped cleanly; a session that
// fails, or a process that dies, leaves the file unterminated.
// [ReadEntries] accepts both forms, and [DecodeFile] turns a recording
// back into its JSON entries given the modes and cipher that produced
// it.
//
// Sessions are driven by a clock.Clock ticker. The first entry is
// taken as soon as the session starts. [Session.Stop] sets a flag that
// the worker checks before each tick and wakes it; the tick in flight
// always completes.
package recording
