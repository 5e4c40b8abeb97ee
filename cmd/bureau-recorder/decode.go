// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/recorder/cmd/bureau-recorder/cli"
	"github.com/bureau-foundation/recorder/lib/compress"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/recording"
)

// exitPartialDecode is the exit status when decoding stops at a bad
// entry. Entries before it have been printed.
const exitPartialDecode = 2

type decodeParams struct {
	settings
	file string
}

func decodeCommand(stdout io.Writer) *cli.Command {
	var params decodeParams

	return &cli.Command{
		Name:    "decode",
		Summary: "Print the entries of a recording",
		Description: `Read a write-and-stream recording and print each entry as one line of
JSON, reversing base64, encryption, and compression according to the
mode flags (or the config file's recording section).

An unterminated recording (the recorder was killed) decodes up to its
last complete entry. If an entry fails to decode, the entries before it
are printed, the failure is logged, and the command exits with status 2.`,
		Usage: "bureau-recorder decode --file <path> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
			params.bind(flagSet)
			flagSet.StringVar(&params.file, "file", "", "recording to decode")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Decode an AES-256, zstd recording",
				Command:     "bureau-recorder decode --file recording_3_2026-10-19-09-30-00.json --codec zstd --encryption aes-256 --key-file key.b64 --iv-file iv.b64",
			},
		},
		Run: func(args []string) error {
			if params.file == "" && len(args) == 1 {
				params.file = args[0]
				args = nil
			}
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			return runDecode(&params, stdout)
		},
	}
}

func runDecode(params *decodeParams, stdout io.Writer) error {
	if params.file == "" {
		return fault.Config("--file is required")
	}
	cfg, err := params.load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	compression, err := recording.ParseCompressionMode(cfg.Recording.Compression)
	if err != nil {
		return err
	}
	codec, err := compress.ParseCodec(cfg.Recording.Codec)
	if err != nil {
		return err
	}
	encryption, err := recording.ParseEncryptionMode(cfg.Recording.Encryption)
	if err != nil {
		return err
	}
	cipherContext, err := loadCipher(cfg)
	if err != nil {
		return err
	}
	transformer, err := recording.NewTransformer(compression, codec, encryption, cipherContext)
	if err != nil {
		return err
	}

	records, decodeErr := recording.DecodeFile(params.file, transformer)
	for _, record := range records {
		if _, err := fmt.Fprintf(stdout, "%s\n", record); err != nil {
			return err
		}
	}
	if decodeErr != nil {
		logger.Error("decoding stopped", "path", params.file, "entries", len(records), "error", decodeErr)
		return &cli.ExitError{Code: exitPartialDecode}
	}
	logger.Debug("decoded recording", "path", params.file, "entries", len(records))
	return nil
}
