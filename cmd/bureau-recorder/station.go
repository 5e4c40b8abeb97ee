// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/config"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/metrics"
	"github.com/bureau-foundation/recorder/lib/module"
	"github.com/bureau-foundation/recorder/lib/module/biosignal"
)

// shutdownTimeout bounds how long the metrics listener waits for
// in-flight scrapes on exit.
const shutdownTimeout = 5 * time.Second

// station is everything a recorder process runs around the recording
// session: the event bus and its observers, the metrics listener, and
// the sensor modules with their connection loops.
type station struct {
	bus      *events.Bus
	registry *module.Registry
	clock    clock.Clock
	logger   *slog.Logger

	journal   *events.Journal
	collector *metrics.Collector
	server    *http.Server
	address   string

	simulators    []*biosignal.Simulator
	cancelModules context.CancelFunc
	modules       sync.WaitGroup

	mu    sync.Mutex
	ended map[string]events.Event
}

// openStation subscribes the configured observers, then any extra
// observers, and starts the configured modules. Observers are
// subscribed before any module runs so no usability transition is
// missed.
func openStation(ctx context.Context, cfg *config.Config, logger *slog.Logger, clk clock.Clock, observers ...events.Observer) (*station, error) {
	s := &station{
		bus:      &events.Bus{},
		registry: module.NewRegistry(),
		clock:    clk,
		logger:   logger,
		ended:    make(map[string]events.Event),
	}
	s.bus.Subscribe(events.ObserverFunc(s.observe))

	if cfg.Events.Log {
		s.bus.Subscribe(events.LogObserver(logger))
	}

	if cfg.Events.Journal != "" {
		journal, err := events.OpenJournal(cfg.Events.Journal, logger)
		if err != nil {
			return nil, fault.Wrap(fault.KindIO, err, "event journal")
		}
		s.journal = journal
		s.bus.Subscribe(journal)
	}

	if cfg.Metrics.Listen != "" {
		if err := s.serveMetrics(cfg.Metrics.Listen); err != nil {
			s.Close()
			return nil, err
		}
	}

	for _, observer := range observers {
		s.bus.Subscribe(observer)
	}

	moduleContext, cancel := context.WithCancel(ctx)
	s.cancelModules = cancel
	if cfg.Modules.Biosignal.Enabled {
		if err := s.startBiosignal(moduleContext, cfg.Modules.Biosignal); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *station) serveMetrics(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fault.Wrap(fault.KindConfig, err, "metrics listener")
	}

	s.collector = metrics.New()
	s.bus.Subscribe(s.collector)

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.collector.Handler())
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.address = listener.Addr().String()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics listener failed", "error", err)
		}
	}()
	s.logger.Info("serving metrics", "address", s.address)
	return nil
}

func (s *station) startBiosignal(ctx context.Context, cfg config.BiosignalConfig) error {
	simulator := biosignal.NewSimulator(biosignal.SimulatorOptions{
		Clock:           s.clock,
		HeartRate:       cfg.HeartRate,
		ConnectFailures: cfg.ConnectFailures,
	})
	sensor, err := biosignal.New(biosignal.Options{
		Name:         cfg.Name,
		Device:       simulator,
		Clock:        s.clock,
		Logger:       s.logger,
		Publisher:    s.bus,
		PollInterval: cfg.PollInterval,
		RetryDelay:   cfg.RetryDelay,
	})
	if err != nil {
		return err
	}
	if err := s.registry.Register(sensor); err != nil {
		return err
	}
	s.simulators = append(s.simulators, simulator)

	s.modules.Add(1)
	go func() {
		defer s.modules.Done()
		sensor.Run(ctx)
	}()
	return nil
}

// observe keeps the SessionEnded event of every session so the command
// can report its summary.
func (s *station) observe(event events.Event) {
	if event.Kind != events.SessionEnded {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended[event.Session] = event
}

// sessionEnded returns the SessionEnded event for session, if it was seen.
func (s *station) sessionEnded(session string) (events.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.ended[session]
	return event, ok
}

// Close stops the modules, the metrics listener, and the journal.
func (s *station) Close() error {
	if s.cancelModules != nil {
		s.cancelModules()
	}
	s.modules.Wait()
	for _, simulator := range s.simulators {
		simulator.Disconnect()
	}

	var errs []error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
