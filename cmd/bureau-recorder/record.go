// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/recorder/cmd/bureau-recorder/cli"
	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/config"
	"github.com/bureau-foundation/recorder/lib/recording"
	"github.com/bureau-foundation/recorder/lib/version"
	"github.com/bureau-foundation/recorder/lib/watchdog"
)

type recordParams struct {
	settings

	duration      time.Duration
	simulate      bool
	sync          bool
	metricsListen string
	eventJournal  string
}

func recordCommand(stdout io.Writer) *cli.Command {
	var params recordParams

	return &cli.Command{
		Name:    "record",
		Summary: "Record sensor samples to a file",
		Description: `Run one recording session.

The first entry is sampled immediately, then one per 1/cadence seconds,
until SIGINT or SIGTERM arrives or --duration elapses. The recording is
written to <directory>/recording_<n>_<timestamp>.json, where n is one
more than the highest sequence number already in the directory. A
session stopped cleanly gets its closing brace; an interrupted one is
left unterminated and still decodes.

On exit a one-line summary (entries, bytes, BLAKE3 digest) is printed
to stdout.`,
		Usage: "bureau-recorder record [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("record", pflag.ContinueOnError)
			params.bind(flagSet)
			flagSet.StringVar(&params.directory, "directory", "", "directory receiving recordings")
			flagSet.Float64Var(&params.cadence, "cadence", 2, "entries per second")
			flagSet.StringVar(&params.writeMode, "write-mode", "write-and-stream", "write-and-stream or stream-only")
			flagSet.DurationVar(&params.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
			flagSet.BoolVar(&params.simulate, "simulate", false, "register the biosignal module on a simulated device")
			flagSet.BoolVar(&params.sync, "sync", false, "fdatasync the recording after every entry")
			flagSet.StringVar(&params.metricsListen, "metrics-listen", "", "serve Prometheus /metrics on this address")
			flagSet.StringVar(&params.eventJournal, "event-journal", "", "append every event to this CBOR journal")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Record the simulated biosignal module at 10 Hz for five minutes",
				Command:     "bureau-recorder record --simulate --cadence 10 --duration 5m",
			},
			{
				Description: "Record encrypted with zstd and expose metrics",
				Command:     "bureau-recorder record --config station.yaml --codec zstd --metrics-listen 127.0.0.1:9464",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRecord(ctx, &params, clock.Real(), stdout)
		},
	}
}

// config loads the settings and applies the record-only flags.
func (p *recordParams) config() (*config.Config, error) {
	cfg, err := p.load()
	if err != nil {
		return nil, err
	}
	if p.changed("simulate") {
		cfg.Modules.Biosignal.Enabled = p.simulate
		if p.simulate {
			cfg.Modules.Biosignal.Device = "simulator"
		}
	}
	if p.changed("sync") {
		cfg.Recording.Sync = p.sync
	}
	if p.changed("metrics-listen") {
		cfg.Metrics.Listen = p.metricsListen
	}
	if p.changed("event-journal") {
		cfg.Events.Journal = p.eventJournal
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRecord(ctx context.Context, params *recordParams, clk clock.Clock, stdout io.Writer) error {
	cfg, err := params.config()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logger = logger.With("command", "record")

	sessionConfig, err := cfg.Recording.Session()
	if err != nil {
		return err
	}
	cipherContext, err := loadCipher(cfg)
	if err != nil {
		return err
	}

	station, err := openStation(ctx, cfg, logger, clk)
	if err != nil {
		return err
	}
	defer func() {
		if err := station.Close(); err != nil {
			logger.Warn("shutting down", "error", err)
		}
	}()

	recorder := recording.NewRecorder(recording.Options{
		Registry:  station.registry,
		Publisher: station.bus,
		Clock:     clk,
		Logger:    logger,
		Cipher:    cipherContext,
	})

	markerPath := filepath.Join(sessionConfig.Directory, watchdog.FileName)
	checkInterruptedSession(markerPath, clk, logger)

	logger.Info("recorder starting", version.LogAttr(), "modules", station.registry.Len())
	session, err := recorder.Start(sessionConfig)
	if err != nil {
		return err
	}
	marker := watchdog.State{
		Session: session.ID(),
		Path:    session.Path(),
		PID:     os.Getpid(),
		Started: clk.Now(),
	}
	if err := watchdog.Write(markerPath, marker); err != nil {
		logger.Warn("writing session marker", "error", err)
	}

	var deadline <-chan time.Time
	if params.duration > 0 {
		deadline = clk.After(params.duration)
	}
	select {
	case <-ctx.Done():
		logger.Info("interrupted, stopping")
	case <-deadline:
		logger.Info("duration elapsed, stopping", "duration", params.duration)
	case <-session.Done():
	}

	session.Stop()
	sessionErr := session.Wait()
	if err := watchdog.Clear(markerPath); err != nil {
		logger.Warn("clearing session marker", "error", err)
	}
	if ended, ok := station.sessionEnded(session.ID()); ok && ended.Summary != nil {
		summary := ended.Summary
		fmt.Fprintf(stdout, "%s: %d entries, %d bytes", session.Path(), summary.Entries, summary.Bytes)
		if summary.Digest != "" {
			fmt.Fprintf(stdout, ", blake3 %s", summary.Digest)
		}
		fmt.Fprintln(stdout)
	}
	if sessionErr != nil {
		return fmt.Errorf("recording %s: %w", session.Path(), sessionErr)
	}
	return nil
}

// markerMaxAge is how old a leftover session marker may be and still be
// reported.
const markerMaxAge = 30 * 24 * time.Hour

// checkInterruptedSession reports a session whose process died before
// it could finish, then removes its marker.
func checkInterruptedSession(markerPath string, clk clock.Clock, logger *slog.Logger) {
	state, found, err := watchdog.Check(markerPath, clk.Now(), markerMaxAge)
	if err != nil {
		logger.Warn("reading session marker", "path", markerPath, "error", err)
	}
	if found {
		logger.Warn("previous session was interrupted; its recording has no closing brace",
			"session", state.Session,
			"path", state.Path,
			"pid", state.PID,
			"started", state.Started,
		)
	}
	if err := watchdog.Clear(markerPath); err != nil {
		logger.Warn("clearing session marker", "error", err)
	}
}
