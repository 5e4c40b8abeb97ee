// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/recorder/cmd/bureau-recorder/cli"
	"github.com/bureau-foundation/recorder/lib/cipher"
	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/recording"
)

type keygenParams struct {
	strength  string
	keyFile   string
	ivFile    string
	ivOnly    bool
	force     bool
	logFormat string
}

func keygenCommand(stdout io.Writer) *cli.Command {
	var params keygenParams

	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an AES key and IV",
		Description: `Write a fresh random AES key and IV, base64-encoded, to two files
(mode 0600). With --iv-only the existing key file is kept and only a
new IV is written over --iv-file.

Otherwise existing files are not overwritten without --force.`,
		Usage: "bureau-recorder keygen --key-file <path> --iv-file <path> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVar(&params.strength, "strength", "aes-256", "key strength: aes-128 or aes-256")
			flagSet.StringVar(&params.keyFile, "key-file", "", "file receiving the base64 key")
			flagSet.StringVar(&params.ivFile, "iv-file", "", "file receiving the base64 IV")
			flagSet.BoolVar(&params.ivOnly, "iv-only", false, "keep the key in --key-file and write a new IV")
			flagSet.BoolVar(&params.force, "force", false, "overwrite existing files")
			flagSet.StringVar(&params.logFormat, "log-format", "auto", "log format: auto, text, or json")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Generate an AES-128 key pair",
				Command:     "bureau-recorder keygen --strength aes-128 --key-file key.b64 --iv-file iv.b64",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			return runKeygen(&params, stdout)
		},
	}
}

func runKeygen(params *keygenParams, stdout io.Writer) error {
	if params.keyFile == "" || params.ivFile == "" {
		return fault.Config("--key-file and --iv-file are required")
	}
	strength, err := cipher.ParseStrength(params.strength)
	if err != nil {
		return err
	}

	logger, err := cli.NewCommandLogger(params.logFormat, slog.LevelInfo)
	if err != nil {
		return err
	}
	logger = logger.With("command", "keygen")

	bus := &events.Bus{}
	bus.Subscribe(events.LogObserver(logger))
	recorder := recording.NewRecorder(recording.Options{
		Publisher: bus,
		Clock:     clock.Real(),
		Logger:    logger,
	})

	var generated *cipher.Context
	if params.ivOnly {
		keyText, err := os.ReadFile(params.keyFile)
		if err != nil {
			return fault.Wrap(fault.KindConfig, err, "reading key file")
		}
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(keyText)))
		if err != nil {
			return fault.Wrap(fault.KindCrypto, err, "decoding %s", params.keyFile)
		}
		// The strength follows the stored key. GenerateIV replaces the
		// zero IV.
		existing, err := cipher.NewContext(cipher.Strength(len(key)), key, make([]byte, cipher.IVSize))
		if err != nil {
			return err
		}
		recorder.SetCipher(existing)
		if generated, err = recorder.GenerateIV(); err != nil {
			return err
		}
	} else {
		for _, path := range []string{params.keyFile, params.ivFile} {
			if err := writeSecret(path, "", params.force); err != nil {
				return err
			}
		}
		if generated, err = recorder.GenerateKey(strength); err != nil {
			return err
		}
		if err := writeSecret(params.keyFile, generated.KeyText(), true); err != nil {
			return err
		}
	}

	if err := writeSecret(params.ivFile, generated.IVText(), true); err != nil {
		return err
	}
	if params.ivOnly {
		fmt.Fprintf(stdout, "wrote IV for the %s key in %s to %s\n", generated.Strength(), params.keyFile, params.ivFile)
	} else {
		fmt.Fprintf(stdout, "wrote %s key to %s and IV to %s\n", generated.Strength(), params.keyFile, params.ivFile)
	}
	return nil
}

// writeSecret writes text and a trailing newline to path with mode
// 0600. An empty text only checks that path may be written, so a
// refusal happens before any key material is generated.
func writeSecret(path, text string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fault.Config("%s exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fault.Wrap(fault.KindIO, err, "checking %s", path)
		}
	}
	if text == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o600); err != nil {
		return fault.Wrap(fault.KindIO, err, "writing %s", path)
	}
	return nil
}
