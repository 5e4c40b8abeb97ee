// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biosignal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/module"
)

const (
	// DefaultName is the registry key used when Options.Name is empty.
	DefaultName = "ShimmerModule"

	// DefaultPollInterval is how often the connection state is checked.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultRetryDelay is the pause before reconnecting a disconnected
	// device.
	DefaultRetryDelay = 3 * time.Second
)

// Frame is the data frame recorded for the module. All values are zero
// until the first reading arrives.
type Frame struct {
	GSR            float64 `json:"gsr"`
	GSRConductance float64 `json:"gsrConductance"`
	PPG            float64 `json:"ppg"`
	PPGToHR        float64 `json:"ppgToHR"`
}

// Options configures a Module.
type Options struct {
	// Name is the registry key. Defaults to DefaultName.
	Name string

	// Device is the sensor driver. Required.
	Device Device

	// Estimator derives heart rate from PPG. Defaults to a
	// PeakEstimator.
	Estimator HeartRateEstimator

	Clock     clock.Clock
	Logger    *slog.Logger
	Publisher events.Publisher

	PollInterval time.Duration
	RetryDelay   time.Duration
}

// Module records GSR and PPG readings from a Device. Run owns the
// connection lifecycle; the module is usable only while the device is
// streaming.
type Module struct {
	module.State

	name      string
	device    Device
	estimator HeartRateEstimator
	clock     clock.Clock
	logger    *slog.Logger
	poll      time.Duration
	retry     time.Duration

	mu    sync.Mutex
	frame Frame
}

// New returns an unusable module for the device. Call Run to connect.
func New(options Options) (*Module, error) {
	if options.Device == nil {
		return nil, fault.Config("biosignal module requires a device")
	}
	if options.Name == "" {
		options.Name = DefaultName
	}
	if options.Estimator == nil {
		options.Estimator = NewPeakEstimator()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.RetryDelay <= 0 {
		options.RetryDelay = DefaultRetryDelay
	}

	m := &Module{
		name:      options.Name,
		device:    options.Device,
		estimator: options.Estimator,
		clock:     options.Clock,
		logger:    options.Logger.With("module", options.Name),
		poll:      options.PollInterval,
		retry:     options.RetryDelay,
	}
	m.Bind(m.name, m.device.Details(), options.Publisher, options.Clock)
	return m, nil
}

// Name returns the registry key.
func (m *Module) Name() string { return m.name }

// Details returns the device's hardware description.
func (m *Module) Details() string { return m.device.Details() }

// DataFrame returns a copy of the latest Frame.
func (m *Module) DataFrame() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

// Run connects to the device and keeps it connected until ctx is
// cancelled. Connection failures are logged and retried indefinitely.
// Blocks until ctx is done and the reading consumer has exited.
func (m *Module) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.consume(ctx)
	}()
	defer wg.Wait()

	for {
		m.SetUsable(false)
		if !m.connect(ctx) {
			return
		}
		if err := m.device.StartStreaming(); err != nil {
			m.logger.Warn("starting stream failed",
				"error", fault.Wrap(fault.KindDevice, err, "starting stream"))
			if !m.sleep(ctx, m.retry) {
				return
			}
			continue
		}
		m.logger.Info("device streaming", "details", m.device.Details())
		m.SetUsable(true)

		if !m.monitor(ctx) {
			m.SetUsable(false)
			return
		}
		m.logger.Warn("device disconnected")
	}
}

// connect issues a connection attempt and polls until the device
// reports Connected or Streaming. A device that falls back to
// Disconnected is retried after the retry delay. Returns false when ctx
// is cancelled.
func (m *Module) connect(ctx context.Context) bool {
	m.logger.Info("connecting to device")
	m.attempt(ctx)
	for {
		switch m.device.State() {
		case Connected, Streaming:
			return true
		}
		if !m.sleep(ctx, m.poll) {
			return false
		}
		if m.device.State() == Disconnected {
			m.logger.Info("retrying device connection", "delay", m.retry)
			if !m.sleep(ctx, m.retry) {
				return false
			}
			m.attempt(ctx)
		}
	}
}

func (m *Module) attempt(ctx context.Context) {
	if err := m.device.Connect(ctx); err != nil {
		m.logger.Warn("device connection failed",
			"error", fault.Wrap(fault.KindDevice, err, "connecting"))
	}
}

// monitor polls the device state while streaming. Returns true when
// the device disconnects, false when ctx is cancelled.
func (m *Module) monitor(ctx context.Context) bool {
	for {
		if !m.sleep(ctx, m.poll) {
			return false
		}
		if m.device.State() == Disconnected {
			return true
		}
	}
}

func (m *Module) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.clock.After(d):
		return true
	}
}

func (m *Module) consume(ctx context.Context) {
	readings := m.device.Readings()
	for {
		select {
		case <-ctx.Done():
			return
		case reading, ok := <-readings:
			if !ok {
				return
			}
			m.record(reading)
		}
	}
}

func (m *Module) record(reading Reading) {
	at := reading.Time
	if at.IsZero() {
		at = m.clock.Now()
	}
	heartRate := m.estimator.Estimate(reading.PPG, at)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = Frame{
		GSR:            reading.GSR,
		GSRConductance: reading.GSRConductance,
		PPG:            reading.PPG,
		PPGToHR:        heartRate,
	}
}
