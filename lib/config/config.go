// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/recorder/lib/compress"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/recording"
)

// EnvironmentVariable names the variable read by Load.
const EnvironmentVariable = "BUREAU_RECORDER_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for desks and demos.
	Development Environment = "development"
	// Production is for unattended recording stations.
	Production Environment = "production"
)

// Config is the recorder configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Recording configures the sampling session.
	Recording RecordingConfig `yaml:"recording"`

	// Cipher locates the key material for encrypted sessions.
	Cipher CipherConfig `yaml:"cipher"`

	// Modules configures the sensor modules to register.
	Modules ModulesConfig `yaml:"modules"`

	// Events configures event observers.
	Events EventsConfig `yaml:"events"`

	// Metrics configures the Prometheus listener.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains fields that can be overridden per environment.
type Overrides struct {
	Recording *RecordingOverrides `yaml:"recording,omitempty"`
	Logging   *LoggingConfig      `yaml:"logging,omitempty"`
}

// RecordingOverrides is the overridable subset of RecordingConfig.
type RecordingOverrides struct {
	Directory string `yaml:"directory,omitempty"`
	Sync      *bool  `yaml:"sync,omitempty"`
}

// RecordingConfig configures the sampling session.
type RecordingConfig struct {
	// Directory receives recording files.
	Directory string `yaml:"directory"`

	// Cadence is the sampling rate in entries per second.
	// Default: 2
	Cadence float64 `yaml:"cadence"`

	// Compression is "fast" or "none".
	// Default: fast
	Compression string `yaml:"compression"`

	// Codec is the compression codec: gzip, lz4, or zstd.
	// Default: gzip
	Codec string `yaml:"codec"`

	// WriteMode is "write-and-stream" or "stream-only".
	// Default: write-and-stream
	WriteMode string `yaml:"write_mode"`

	// Encryption is "none", "aes-128", or "aes-256".
	// Default: none
	Encryption string `yaml:"encryption"`

	// Sync fdatasyncs the recording after every entry.
	// Default: false (development), true (production)
	Sync bool `yaml:"sync"`
}

// CipherConfig locates the base64 key and IV files.
type CipherConfig struct {
	KeyFile string `yaml:"key_file"`
	IVFile  string `yaml:"iv_file"`
}

// ModulesConfig configures the sensor modules.
type ModulesConfig struct {
	Biosignal BiosignalConfig `yaml:"biosignal"`
}

// BiosignalConfig configures the GSR/PPG module.
type BiosignalConfig struct {
	// Enabled registers the module. Default: false
	Enabled bool `yaml:"enabled"`

	// Name is the key of the module's frame in each entry.
	// Default: ShimmerModule
	Name string `yaml:"name"`

	// Device selects the driver. Only "simulator" is built in.
	Device string `yaml:"device"`

	// HeartRate is the simulator's pulse in beats per minute.
	HeartRate float64 `yaml:"heart_rate"`

	// ConnectFailures makes the simulator fail its first connection
	// attempts, exercising the retry loop.
	ConnectFailures int `yaml:"connect_failures"`

	// PollInterval and RetryDelay tune the connection loop.
	// Default: 100ms and 3s
	PollInterval time.Duration `yaml:"poll_interval"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// EventsConfig configures event observers.
type EventsConfig struct {
	// Journal is a file that receives every event as CBOR. Empty
	// disables the journal.
	Journal string `yaml:"journal"`

	// Log writes every event to the process log at debug level.
	Log bool `yaml:"log"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	// Listen is the address serving /metrics, e.g. "127.0.0.1:9464".
	// Empty disables the listener.
	Listen string `yaml:"listen"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level,omitempty"`

	// Format is auto, text, or json. Auto uses text on a terminal.
	// Default: auto (development), json (production)
	Format string `yaml:"format,omitempty"`
}

// Default returns the default configuration. These defaults are the
// base the config file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "bureau-recorder")

	return &Config{
		Environment: Development,
		Recording: RecordingConfig{
			Directory:   filepath.Join(defaultRoot, "recordings"),
			Cadence:     2,
			Compression: string(recording.FastCompress),
			Codec:       string(compress.Default),
			WriteMode:   string(recording.WriteAndStream),
			Encryption:  string(recording.EncryptionNone),
		},
		Modules: ModulesConfig{
			Biosignal: BiosignalConfig{
				Name:         "ShimmerModule",
				Device:       "simulator",
				HeartRate:    72,
				PollInterval: 100 * time.Millisecond,
				RetryDelay:   3 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by
// BUREAU_RECORDER_CONFIG. Fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fault.Config("%s environment variable not set; "+
			"set it to the path of your recorder config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Files ending
// in .json or .jsonc are read as JSON with comments; anything else as
// YAML. Path fields have ${VAR} and ${VAR:-default} expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// loadFile merges a single configuration file into the config. JSON is
// a subset of YAML, so JSONC files are stripped of comments and
// trailing commas and then decoded with the same yaml tags.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fault.Wrap(fault.KindConfig, err, "reading config")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fault.Wrap(fault.KindConfig, err, "parsing %s", path)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production defaults: durable writes, machine-readable logs.
		if overrides == nil {
			sync := true
			overrides = &Overrides{
				Recording: &RecordingOverrides{Sync: &sync},
				Logging:   &LoggingConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Recording != nil {
		if overrides.Recording.Directory != "" {
			c.Recording.Directory = overrides.Recording.Directory
		}
		if overrides.Recording.Sync != nil {
			c.Recording.Sync = *overrides.Recording.Sync
		}
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Recording.Directory = expandVars(c.Recording.Directory, vars)
	c.Cipher.KeyFile = expandVars(c.Cipher.KeyFile, vars)
	c.Cipher.IVFile = expandVars(c.Cipher.IVFile, vars)
	c.Events.Journal = expandVars(c.Events.Journal, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if _, err := c.Recording.Session(); err != nil {
		errs = append(errs, err)
	}

	encryption, _ := recording.ParseEncryptionMode(c.Recording.Encryption)
	if encryption != recording.EncryptionNone && (c.Cipher.KeyFile == "" || c.Cipher.IVFile == "") {
		errs = append(errs, fmt.Errorf("recording.encryption %s requires cipher.key_file and cipher.iv_file", encryption))
	}

	if biosignal := c.Modules.Biosignal; biosignal.Enabled {
		if biosignal.Name == "" {
			errs = append(errs, fmt.Errorf("modules.biosignal.name is required"))
		}
		if biosignal.Device != "simulator" {
			errs = append(errs, fmt.Errorf("modules.biosignal.device %q is not available (built-in: simulator)", biosignal.Device))
		}
		if biosignal.PollInterval <= 0 || biosignal.RetryDelay <= 0 {
			errs = append(errs, fmt.Errorf("modules.biosignal poll_interval and retry_delay must be positive"))
		}
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of: auto, text, json"))
	}

	if len(errs) > 0 {
		return fault.Wrap(fault.KindConfig, errors.Join(errs...), "invalid configuration")
	}
	return nil
}

// Session converts the recording section into a session config.
func (r RecordingConfig) Session() (recording.Config, error) {
	var errs []error

	if r.Directory == "" {
		errs = append(errs, fmt.Errorf("recording.directory is required"))
	}
	if r.Cadence <= 0 || math.IsNaN(r.Cadence) || math.IsInf(r.Cadence, 0) {
		errs = append(errs, fmt.Errorf("recording.cadence must be a positive number, got %v", r.Cadence))
	}
	compression, err := recording.ParseCompressionMode(r.Compression)
	if err != nil {
		errs = append(errs, err)
	}
	codec, err := compress.ParseCodec(r.Codec)
	if err != nil {
		errs = append(errs, err)
	}
	write, err := recording.ParseWriteMode(r.WriteMode)
	if err != nil {
		errs = append(errs, err)
	}
	encryption, err := recording.ParseEncryptionMode(r.Encryption)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return recording.Config{}, fault.Wrap(fault.KindConfig, errors.Join(errs...), "recording")
	}
	return recording.Config{
		Directory:   r.Directory,
		Cadence:     r.Cadence,
		Compression: compression,
		Codec:       codec,
		Write:       write,
		Encryption:  encryption,
		Sync:        r.Sync,
	}, nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
