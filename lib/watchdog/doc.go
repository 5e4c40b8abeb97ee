// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog tracks in-progress recording sessions with an atomic
// marker file, so a process starting after a crash can tell that the
// previous session never finished.
//
// The workflow:
//
//  1. After a session opens its file: call [Write] with the session ID
//     and recording path.
//  2. When the session ends (cleanly or with an error the recorder
//     handled): call [Clear].
//  3. On startup: call [Check]. A marker that is still present means
//     the previous process died mid-session, so its recording lacks the
//     closing brace.
//
// The marker is written atomically (temporary file, fsync, rename,
// fsync parent directory) so readers never see a partial state. [Check]
// ignores markers older than a maximum age.
package watchdog
