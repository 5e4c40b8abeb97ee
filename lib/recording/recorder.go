// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/recorder/lib/cipher"
	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/compress"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/module"
)

// Config describes one recording session.
type Config struct {
	// Directory receives the recording file. Created if missing.
	Directory string

	// Cadence is the sampling rate in entries per second. Must be
	// positive and finite.
	Cadence float64

	// Compression defaults to FastCompress.
	Compression CompressionMode

	// Codec is the compression codec for FastCompress. Defaults to
	// gzip.
	Codec compress.Codec

	// Write defaults to WriteAndStream.
	Write WriteMode

	// Encryption defaults to EncryptionNone.
	Encryption EncryptionMode

	// Sync issues fdatasync after every write.
	Sync bool
}

func (c Config) withDefaults() Config {
	if c.Compression == "" {
		c.Compression = FastCompress
	}
	if c.Codec == "" {
		c.Codec = compress.Default
	}
	if c.Write == "" {
		c.Write = WriteAndStream
	}
	if c.Encryption == "" {
		c.Encryption = EncryptionNone
	}
	return c
}

// period converts the cadence to a tick interval.
func (c Config) period() (time.Duration, error) {
	if c.Cadence <= 0 || math.IsNaN(c.Cadence) || math.IsInf(c.Cadence, 0) {
		return 0, fault.Config("cadence must be a positive number of samples per second, got %v", c.Cadence)
	}
	period := time.Duration(float64(time.Second) / c.Cadence)
	if period <= 0 {
		return 0, fault.Config("cadence %v is too high", c.Cadence)
	}
	return period, nil
}

// Status is a snapshot of the recorder or a session.
type Status struct {
	Recording   bool
	Session     string
	EntryIndex  int64
	FileSize    int64
	Path        string
	Cadence     float64
	Compression CompressionMode
	Write       WriteMode
	Encryption  EncryptionMode
}

// Options configures a Recorder.
type Options struct {
	// Registry supplies the modules sampled on each tick. Defaults to
	// an empty registry.
	Registry *module.Registry

	// Publisher receives lifecycle and entry events. Defaults to
	// events.Discard.
	Publisher events.Publisher

	Clock  clock.Clock
	Logger *slog.Logger

	// Cipher is the key and IV used by encrypted sessions.
	Cipher *cipher.Context
}

// Recorder runs at most one recording session at a time. It holds the
// cipher context for the next session; a running session keeps the
// context it started with.
type Recorder struct {
	registry  *module.Registry
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	cipher  *cipher.Context
	session *Session
}

// NewRecorder returns an idle recorder.
func NewRecorder(options Options) *Recorder {
	if options.Registry == nil {
		options.Registry = module.NewRegistry()
	}
	if options.Publisher == nil {
		options.Publisher = events.Discard
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		registry:  options.Registry,
		publisher: options.Publisher,
		clock:     options.Clock,
		logger:    options.Logger,
		cipher:    options.Cipher,
	}
}

// Registry returns the module registry sampled by sessions.
func (r *Recorder) Registry() *module.Registry { return r.registry }

// Start opens a new recording file and starts sampling. The first
// entry is taken immediately and then one per cadence period until
// Stop. Fails if a session is already running or the configuration is
// invalid.
func (r *Recorder) Start(config Config) (*Session, error) {
	config = config.withDefaults()
	period, err := config.period()
	if err != nil {
		return nil, err
	}
	if !config.Write.Valid() {
		return nil, fault.Config("unknown write mode %q", config.Write)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return nil, fault.Config("already recording to %s", r.session.path)
	}
	transformer, err := NewTransformer(config.Compression, config.Codec, config.Encryption, r.cipher)
	if err != nil {
		return nil, err
	}

	started := r.clock.Now()
	path, err := NextPath(config.Directory, started)
	if err != nil {
		return nil, err
	}
	output, err := openSink(path, config.Sync)
	if err != nil {
		return nil, err
	}
	if config.Write == WriteAndStream {
		if err := output.write("{"); err != nil {
			_ = output.close()
			return nil, err
		}
	}

	session := &Session{
		id:          uuid.NewString(),
		config:      config,
		path:        path,
		period:      period,
		started:     started,
		transformer: transformer,
		sink:        output,
		registry:    r.registry,
		publisher:   r.publisher,
		clock:       r.clock,
		wake:        make(chan struct{}),
		done:        make(chan struct{}),
		recording:   true,
		release:     r.release,
	}
	session.logger = r.logger.With("session", session.id)
	r.session = session

	session.logger.Info("recording started",
		"path", path,
		"cadence", config.Cadence,
		"compression", config.Compression,
		"codec", config.Codec,
		"write_mode", config.Write,
		"encryption", config.Encryption,
	)
	r.publisher.Publish(events.Event{
		Kind:    events.SessionStarted,
		Time:    started,
		Session: session.id,
		Path:    path,
	})

	go session.run()
	return session, nil
}

// release returns the recorder to idle once session has ended.
func (r *Recorder) release(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == session {
		r.session = nil
	}
}

// Session returns the running session, or nil when idle.
func (r *Recorder) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Stop stops the running session and waits for it to close its file.
// Returns the session's error. A no-op when idle.
func (r *Recorder) Stop() error {
	session := r.Session()
	if session == nil {
		return nil
	}
	session.Stop()
	return session.Wait()
}

// Status describes the running session, or reports idle.
func (r *Recorder) Status() Status {
	if session := r.Session(); session != nil {
		return session.Status()
	}
	return Status{}
}

// Cipher returns the context used by the next encrypted session.
func (r *Recorder) Cipher() *cipher.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cipher
}

// SetCipher replaces the context used by later sessions.
func (r *Recorder) SetCipher(context *cipher.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cipher = context
}

// GenerateKey replaces the cipher key with a fresh random key of the
// given strength, keeping the current IV. With no cipher configured, an
// IV is generated as well. Publishes KeyGenerated (and IVGenerated for
// a new IV). A running session is unaffected.
func (r *Recorder) GenerateKey(strength cipher.Strength) (*cipher.Context, error) {
	r.mu.Lock()
	current := r.cipher
	var next *cipher.Context
	var err error
	if current == nil {
		next, err = cipher.GenerateContext(strength)
	} else {
		next, err = current.WithNewKey(strength)
	}
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.cipher = next
	r.mu.Unlock()

	now := r.clock.Now()
	r.publisher.Publish(events.Event{Kind: events.KeyGenerated, Time: now, Material: next.KeyText()})
	if current == nil {
		r.publisher.Publish(events.Event{Kind: events.IVGenerated, Time: now, Material: next.IVText()})
	}
	r.logger.Info("cipher key generated", "strength", strength)
	return next, nil
}

// GenerateIV replaces the cipher IV with fresh random bytes. Requires a
// cipher key. Publishes IVGenerated. A running session is unaffected.
func (r *Recorder) GenerateIV() (*cipher.Context, error) {
	r.mu.Lock()
	current := r.cipher
	if current == nil {
		r.mu.Unlock()
		return nil, fault.Config("no cipher key configured; generate a key first")
	}
	next, err := current.WithNewIV()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.cipher = next
	r.mu.Unlock()

	r.publisher.Publish(events.Event{Kind: events.IVGenerated, Time: r.clock.Now(), Material: next.IVText()})
	r.logger.Info("cipher IV generated")
	return next, nil
}
