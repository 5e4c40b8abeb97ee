// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biosignal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/sample"
	"github.com/bureau-foundation/recorder/lib/testutil"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// scriptedDevice fails Connect according to results and otherwise
// moves straight to Connected.
type scriptedDevice struct {
	mu       sync.Mutex
	state    DeviceState
	results  []error
	connects int
	streams  int
	readings chan Reading
}

func (d *scriptedDevice) Connect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	attempt := d.connects
	d.connects++
	if attempt < len(d.results) && d.results[attempt] != nil {
		d.state = Disconnected
		return d.results[attempt]
	}
	d.state = Connected
	return nil
}

func (d *scriptedDevice) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *scriptedDevice) StartStreaming() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Streaming
	d.streams++
	return nil
}

func (d *scriptedDevice) Readings() <-chan Reading { return d.readings }
func (d *scriptedDevice) Details() string          { return "Scripted GSR+" }

func (d *scriptedDevice) disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Disconnected
}

func (d *scriptedDevice) counts() (connects, streams int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects, d.streams
}

func TestNewRequiresDevice(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); !errors.Is(err, fault.ErrConfig) {
		t.Fatalf("New without device = %v, want config error", err)
	}
}

func TestInitialFrame(t *testing.T) {
	t.Parallel()

	m, err := New(Options{Device: &scriptedDevice{}})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != DefaultName {
		t.Errorf("Name = %q, want %q", m.Name(), DefaultName)
	}
	if m.Details() != "Scripted GSR+" {
		t.Errorf("Details = %q", m.Details())
	}
	if m.Usable() {
		t.Error("module should start unusable")
	}

	data, err := sample.Marshal(m.DataFrame())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"gsr":0,"gsrConductance":0,"ppg":0,"ppgToHR":0}`
	if string(data) != want {
		t.Errorf("frame = %s, want %s", data, want)
	}
}

func TestRunRetriesUntilConnected(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(epoch)
	device := &scriptedDevice{
		results:  []error{errors.New("port busy"), errors.New("port busy")},
		readings: make(chan Reading),
	}

	var bus events.Bus
	collector := testutil.NewEventCollector(8)
	bus.Subscribe(collector)

	m, err := New(Options{Device: device, Clock: fake, Publisher: &bus})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// Two failed attempts: each is a poll followed by the retry delay.
	for _, step := range []time.Duration{
		DefaultPollInterval, DefaultRetryDelay,
		DefaultPollInterval, DefaultRetryDelay,
	} {
		fake.WaitForTimers(1)
		fake.Advance(step)
	}

	if kind := collector.RequireUsability(t, DefaultName, 5*time.Second); kind != events.ModuleUsable {
		t.Fatalf("first event = %s, want %s", kind, events.ModuleUsable)
	}
	if connects, streams := device.counts(); connects != 3 || streams != 1 {
		t.Errorf("connects=%d streams=%d, want 3 and 1", connects, streams)
	}

	device.disconnect()
	fake.WaitForTimers(1)
	fake.Advance(DefaultPollInterval)

	if kind := collector.RequireUsability(t, DefaultName, 5*time.Second); kind != events.ModuleUnusable {
		t.Fatalf("event after disconnect = %s, want %s", kind, events.ModuleUnusable)
	}
	if kind := collector.RequireUsability(t, DefaultName, 5*time.Second); kind != events.ModuleUsable {
		t.Fatalf("event after reconnect = %s, want %s", kind, events.ModuleUsable)
	}
	if connects, streams := device.counts(); connects != 4 || streams != 2 {
		t.Errorf("connects=%d streams=%d, want 4 and 2", connects, streams)
	}

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "waiting for Run to return")
	if m.Usable() {
		t.Error("module should be unusable after Run returns")
	}
}

func TestRunRecordsReadings(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(epoch)
	device := &scriptedDevice{readings: make(chan Reading)}
	m, err := New(Options{Device: device, Clock: fake})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	reading := Reading{Time: epoch, GSR: 250, GSRConductance: 4, PPG: 1800}
	// The consumer handles readings one at a time, so once the second
	// send is accepted the first has been recorded.
	testutil.RequireSend(t, device.readings, reading, 5*time.Second, "sending reading")
	testutil.RequireSend(t, device.readings, reading, 5*time.Second, "sending reading")

	frame, ok := m.DataFrame().(Frame)
	if !ok {
		t.Fatalf("DataFrame type = %T, want Frame", m.DataFrame())
	}
	if frame.GSR != 250 || frame.GSRConductance != 4 || frame.PPG != 1800 {
		t.Errorf("frame = %+v", frame)
	}

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "waiting for Run to return")
}
