// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/recorder/cmd/bureau-recorder/cli"
	"github.com/bureau-foundation/recorder/lib/cipher"
	"github.com/bureau-foundation/recorder/lib/config"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/recording"
)

// settings binds the flags shared by record and decode. A flag only
// overrides the config file when it was given on the command line.
type settings struct {
	configPath  string
	directory   string
	cadence     float64
	compression string
	codec       string
	writeMode   string
	encryption  string
	keyFile     string
	ivFile      string
	logLevel    string
	logFormat   string

	flagSet *pflag.FlagSet
}

func (s *settings) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&s.configPath, "config", "", "config file (YAML, or JSONC for .json/.jsonc); defaults to $"+config.EnvironmentVariable)
	flagSet.StringVar(&s.compression, "compression", "fast", "entry compression: fast or none")
	flagSet.StringVar(&s.codec, "codec", "gzip", "compression codec: gzip, lz4, or zstd")
	flagSet.StringVar(&s.encryption, "encryption", "none", "entry encryption: none, aes-128, or aes-256")
	flagSet.StringVar(&s.keyFile, "key-file", "", "file holding the base64 AES key")
	flagSet.StringVar(&s.ivFile, "iv-file", "", "file holding the base64 AES IV")
	flagSet.StringVar(&s.logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flagSet.StringVar(&s.logFormat, "log-format", "auto", "log format: auto, text, or json")
	s.flagSet = flagSet
}

func (s *settings) changed(name string) bool {
	return s.flagSet != nil && s.flagSet.Changed(name)
}

// load reads the config file (or defaults) and applies explicit flags.
func (s *settings) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case s.configPath != "":
		cfg, err = config.LoadFile(s.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag   string
		target *string
		value  string
	}{
		{"directory", &cfg.Recording.Directory, s.directory},
		{"compression", &cfg.Recording.Compression, s.compression},
		{"codec", &cfg.Recording.Codec, s.codec},
		{"write-mode", &cfg.Recording.WriteMode, s.writeMode},
		{"encryption", &cfg.Recording.Encryption, s.encryption},
		{"key-file", &cfg.Cipher.KeyFile, s.keyFile},
		{"iv-file", &cfg.Cipher.IVFile, s.ivFile},
		{"log-level", &cfg.Logging.Level, s.logLevel},
		{"log-format", &cfg.Logging.Format, s.logFormat},
	}
	for _, override := range overrides {
		if s.changed(override.flag) {
			*override.target = override.value
		}
	}
	if s.changed("cadence") {
		cfg.Recording.Cadence = s.cadence
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, fault.Wrap(fault.KindConfig, err, "logging")
	}
	logger, err := cli.NewCommandLogger(cfg.Logging.Format, level)
	if err != nil {
		return nil, fault.Wrap(fault.KindConfig, err, "logging")
	}
	return logger, nil
}

// loadCipher reads the key and IV files named in the config. Returns
// nil when the session is unencrypted.
func loadCipher(cfg *config.Config) (*cipher.Context, error) {
	encryption, err := recording.ParseEncryptionMode(cfg.Recording.Encryption)
	if err != nil {
		return nil, err
	}
	strength, ok := encryption.Strength()
	if !ok {
		return nil, nil
	}
	if cfg.Cipher.KeyFile == "" || cfg.Cipher.IVFile == "" {
		return nil, fault.Config("encryption %s requires --key-file and --iv-file", encryption)
	}

	keyText, err := os.ReadFile(cfg.Cipher.KeyFile)
	if err != nil {
		return nil, fault.Wrap(fault.KindConfig, err, "reading key file")
	}
	ivText, err := os.ReadFile(cfg.Cipher.IVFile)
	if err != nil {
		return nil, fault.Wrap(fault.KindConfig, err, "reading IV file")
	}
	return cipher.ParseContext(strength, string(keyText), string(ivText))
}
