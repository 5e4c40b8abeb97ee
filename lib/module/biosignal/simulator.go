// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biosignal

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/fault"
)

// SimulatorOptions configures a Simulator.
type SimulatorOptions struct {
	Clock clock.Clock

	// SampleInterval is the reading period while streaming. Defaults
	// to 20 ms (50 Hz).
	SampleInterval time.Duration

	// HeartRate is the pulse rate of the synthetic PPG wave in beats
	// per minute. Defaults to 72.
	HeartRate float64

	// ConnectFailures is how many Connect calls fail before one
	// succeeds.
	ConnectFailures int

	// Details defaults to "Simulated GSR+".
	Details string
}

// Simulator is a Device producing a synthetic skin response and pulse
// wave. Useful for unattended runs and for exercising the reconnect
// path via ConnectFailures and Disconnect.
type Simulator struct {
	clock     clock.Clock
	interval  time.Duration
	heartRate float64
	details   string
	readings  chan Reading

	mu       sync.Mutex
	state    DeviceState
	failures int
	stop     chan struct{}
	done     chan struct{}
}

// NewSimulator returns a disconnected simulator.
func NewSimulator(options SimulatorOptions) *Simulator {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.SampleInterval <= 0 {
		options.SampleInterval = 20 * time.Millisecond
	}
	if options.HeartRate <= 0 {
		options.HeartRate = 72
	}
	if options.Details == "" {
		options.Details = "Simulated GSR+"
	}
	return &Simulator{
		clock:     options.Clock,
		interval:  options.SampleInterval,
		heartRate: options.HeartRate,
		details:   options.Details,
		readings:  make(chan Reading, 64),
		failures:  options.ConnectFailures,
	}
}

// Connect succeeds immediately unless failures remain.
func (s *Simulator) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Disconnected {
		return nil
	}
	if s.failures > 0 {
		s.failures--
		return fault.Device("simulated connection failure")
	}
	s.state = Connected
	return nil
}

func (s *Simulator) State() DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartStreaming starts the sample generator.
func (s *Simulator) StartStreaming() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected {
		return fault.Device("cannot stream while %s", s.state)
	}
	s.state = Streaming
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.generate(s.clock.NewTicker(s.interval), s.stop, s.done)
	return nil
}

func (s *Simulator) Readings() <-chan Reading { return s.readings }

func (s *Simulator) Details() string { return s.details }

// Disconnect drops the connection and waits for the generator to stop.
func (s *Simulator) Disconnect() {
	s.mu.Lock()
	s.state = Disconnected
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (s *Simulator) generate(ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	start := s.clock.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			reading := s.reading(now.Sub(start).Seconds())
			reading.Time = now
			select {
			case s.readings <- reading:
			default:
			}
		}
	}
}

// reading synthesizes values at elapsed seconds: resistance drifting
// around 250 kΩ on a 20 s cycle and a pulse wave around 1.8 V.
func (s *Simulator) reading(elapsed float64) Reading {
	resistance := 250 + 25*math.Sin(2*math.Pi*elapsed/20)
	pulse := 1800 + 120*math.Sin(2*math.Pi*s.heartRate/60*elapsed)
	return Reading{
		GSR:            resistance,
		GSRConductance: 1000 / resistance,
		PPG:            pulse,
	}
}
