// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/config"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/testutil"
)

func TestStationServesMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Listen = "127.0.0.1:0"

	station, err := openStation(context.Background(), cfg, slog.New(slog.DiscardHandler), clock.Real())
	if err != nil {
		t.Fatalf("openStation: %v", err)
	}
	defer station.Close()

	station.bus.Publish(events.Event{Kind: events.SessionStarted, Session: "s1", Path: "/tmp/recording_1.json"})

	response, err := http.Get("http://" + station.address + "/metrics")
	if err != nil {
		t.Fatalf("scraping metrics: %v", err)
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "recorder_sessions_started_total 1") {
		t.Errorf("metrics output missing started session:\n%s", body)
	}
}

func TestStationStartsBiosignalModule(t *testing.T) {
	cfg := config.Default()
	cfg.Modules.Biosignal.Enabled = true
	cfg.Modules.Biosignal.PollInterval = 10 * time.Millisecond

	collector := testutil.NewEventCollector(16)
	station, err := openStation(context.Background(), cfg, slog.New(slog.DiscardHandler), clock.Real(), collector)
	if err != nil {
		t.Fatalf("openStation: %v", err)
	}

	event := collector.RequireKind(t, events.ModuleUsable, 5*time.Second)
	if event.Module != "ShimmerModule" {
		t.Errorf("usable module = %q, want ShimmerModule", event.Module)
	}
	sensor, ok := station.registry.Get("ShimmerModule")
	if !ok || !sensor.Usable() {
		t.Fatalf("registry module = %v, usable %v", sensor, ok && sensor.Usable())
	}

	if err := station.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	collector.RequireKind(t, events.ModuleUnusable, 5*time.Second)
}

func TestStationRecordsSessionSummary(t *testing.T) {
	station, err := openStation(context.Background(), config.Default(), slog.New(slog.DiscardHandler), clock.Real())
	if err != nil {
		t.Fatalf("openStation: %v", err)
	}
	defer station.Close()

	summary := &events.Summary{Entries: 3, Bytes: 120}
	station.bus.Publish(events.Event{Kind: events.SessionEnded, Session: "s1", Summary: summary})

	ended, ok := station.sessionEnded("s1")
	if !ok || ended.Summary != summary {
		t.Errorf("sessionEnded(s1) = %+v, %v", ended, ok)
	}
	if _, ok := station.sessionEnded("s2"); ok {
		t.Error("sessionEnded(s2) found an unknown session")
	}
}
