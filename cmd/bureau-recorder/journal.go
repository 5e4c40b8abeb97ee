// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/recorder/cmd/bureau-recorder/cli"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
)

func journalCommand(stdout io.Writer) *cli.Command {
	var file string
	var kind string

	return &cli.Command{
		Name:    "journal",
		Summary: "Print an event journal",
		Description: `Print the records of an event journal written by "record
--event-journal", one JSON object per line. A record cut short by a
crash ends the listing without an error.`,
		Usage: "bureau-recorder journal --file <path> [--kind <kind>]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("journal", pflag.ContinueOnError)
			flagSet.StringVar(&file, "file", "", "journal to read")
			flagSet.StringVar(&kind, "kind", "", "only print records of this kind (e.g. session-ended)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if file == "" {
				return fault.Config("--file is required")
			}
			return printJournal(file, events.Kind(kind), stdout)
		},
	}
}

func printJournal(path string, kind events.Kind, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fault.Wrap(fault.KindIO, err, "opening journal")
	}
	defer f.Close()

	records, readErr := events.ReadJournal(f)
	for _, record := range records {
		if kind != "" && record.Kind != kind {
			continue
		}
		line, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(stdout, "%s\n", line); err != nil {
			return err
		}
	}
	return readErr
}
