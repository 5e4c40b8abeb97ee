// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/recorder/cmd/bureau-recorder/cli"
	"github.com/bureau-foundation/recorder/lib/process"
	"github.com/bureau-foundation/recorder/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	return rootCommand(os.Stdout).Execute(args)
}

// rootCommand builds the command tree. Command output (decoded entries,
// session summaries) goes to stdout; logs go to stderr.
func rootCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "bureau-recorder",
		Description: `bureau-recorder: periodic sensor recording.

Samples sensor modules at a fixed cadence, writes each sample as a
timestamped JSON entry, optionally compressed and AES-encrypted, to an
append-only recording file, and mirrors every entry to observers
(logs, an event journal, Prometheus metrics).`,
		Subcommands: []*cli.Command{
			recordCommand(stdout),
			keygenCommand(stdout),
			decodeCommand(stdout),
			journalCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(stdout, "bureau-recorder %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Record from the simulated biosignal device for one minute",
				Command:     "bureau-recorder record --simulate --duration 1m --directory ./recordings",
			},
			{
				Description: "Generate an AES-256 key and record encrypted",
				Command:     "bureau-recorder keygen --strength aes-256 --key-file key.b64 --iv-file iv.b64 && bureau-recorder record --encryption aes-256 --key-file key.b64 --iv-file iv.b64",
			},
			{
				Description: "Print the entries of a recording",
				Command:     "bureau-recorder decode --file recordings/recording_1_2026-10-19-09-30-00.json",
			},
		},
	}
}
