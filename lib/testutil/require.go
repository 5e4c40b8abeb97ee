// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"time"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test with message. The timeout only catches hangs; the code under
// test runs on clock.Fake.
//
//	reading := testutil.RequireReceive(t, sim.Readings(), 5*time.Second, "waiting for reading")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, message string) T {
	t.Helper()
	var zero T
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed", message)
			return zero
		}
		return v
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("%s: nothing received after %v", message, timeout)
		return zero
	}
}

// RequireSend hands v to a device or worker reading ch, failing the
// test if nothing takes it within timeout.
//
//	testutil.RequireSend(t, device.readings, reading, 5*time.Second, "sending reading")
func RequireSend[T any](t TB, ch chan<- T, v T, timeout time.Duration, message string) {
	t.Helper()
	select {
	case ch <- v:
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("%s: not accepted after %v", message, timeout)
	}
}

// RequireClosed waits for a completion channel such as Session.Done or
// a module's Run goroutine to finish.
//
//	testutil.RequireClosed(t, session.Done(), 5*time.Second, "session done")
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, message string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("%s: not closed after %v", message, timeout)
	}
}
