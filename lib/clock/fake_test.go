// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	fake := Fake(epoch)
	if got := fake.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	fake.Advance(1500 * time.Millisecond)
	if got, want := fake.Now(), epoch.Add(1500*time.Millisecond); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeAfter(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(3 * time.Second)

	fake.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(3 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(3*time.Second))
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}

	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after one-shot fired, want 0", fake.PendingCount())
	}
}

func TestFakeAfterNonPositiveIsImmediate(t *testing.T) {
	fake := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-fake.After(d):
		default:
			t.Errorf("After(%v) should be ready immediately", d)
		}
	}
	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", fake.PendingCount())
	}
}

func TestFakeTicker(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for i := 1; i <= 3; i++ {
		fake.Advance(500 * time.Millisecond)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d did not fire", i)
		}
	}
}

func TestFakeTickerDropsWhenConsumerIsBehind(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	// Five intervals elapse with nobody reading: only one tick fits in
	// the buffer.
	fake.Advance(5 * time.Second)

	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticker queued more than one tick")
	default:
	}

	// The schedule continues from the original phase.
	fake.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker stopped firing after dropping ticks")
	}
}

func TestFakeTickerStop(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()

	fake.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired after Stop")
	default:
	}
	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after Stop, want 0", fake.PendingCount())
	}
}

func TestFakeTickerPanicsOnNonPositive(t *testing.T) {
	fake := Fake(epoch)
	defer func() {
		if recover() == nil {
			t.Fatal("NewTicker(0) should panic")
		}
	}()
	fake.NewTicker(0)
}

func TestFakeSleep(t *testing.T) {
	fake := Fake(epoch)

	done := make(chan struct{})
	go func() {
		fake.Sleep(3 * time.Second)
		close(done)
	}()

	fake.WaitForTimers(1)
	fake.Advance(3 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeSleepNonPositiveReturns(t *testing.T) {
	fake := Fake(epoch)
	fake.Sleep(0)
	fake.Sleep(-time.Second)
}

func TestFakeWaitForTimers(t *testing.T) {
	fake := Fake(epoch)
	for range 3 {
		go fake.Sleep(5 * time.Second)
	}

	fake.WaitForTimers(3)
	if got := fake.PendingCount(); got != 3 {
		t.Fatalf("PendingCount() = %d, want 3", got)
	}
	fake.Advance(5 * time.Second)
}

func TestClockImplementations(t *testing.T) {
	var _ Clock = (*FakeClock)(nil)
	var _ Clock = Real()
}

func TestRealTicker(t *testing.T) {
	ticker := Real().NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("real ticker did not fire")
	}
}
