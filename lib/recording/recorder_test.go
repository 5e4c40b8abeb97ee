// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"encoding/hex"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/recorder/lib/cipher"
	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/module"
	"github.com/bureau-foundation/recorder/lib/testutil"
)

const waitTimeout = 5 * time.Second

var startTime = time.Date(2026, 3, 1, 12, 34, 56, 0, time.UTC)

// counterModule returns {"v": n} with n counting up from 1 on each
// DataFrame call.
type counterModule struct {
	module.State
	name string

	mu    sync.Mutex
	calls int
}

func newCounterModule(name string) *counterModule {
	m := &counterModule{name: name}
	m.SetUsable(true)
	return m
}

func (m *counterModule) Name() string    { return m.name }
func (m *counterModule) Details() string { return "counter" }

func (m *counterModule) DataFrame() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return map[string]int{"v": m.calls}
}

// valueModule returns a fixed frame.
type valueModule struct {
	module.State
	name  string
	frame any
}

func (m *valueModule) Name() string    { return m.name }
func (m *valueModule) Details() string { return "value" }
func (m *valueModule) DataFrame() any  { return m.frame }

type harness struct {
	fake      *clock.FakeClock
	registry  *module.Registry
	bus       *events.Bus
	collector *testutil.EventCollector
	recorder  *Recorder
	directory string
}

func newHarness(t *testing.T, modules ...module.Module) *harness {
	t.Helper()
	h := &harness{
		fake:      clock.Fake(startTime),
		registry:  module.NewRegistry(),
		bus:       &events.Bus{},
		collector: testutil.NewEventCollector(256),
		directory: filepath.Join(t.TempDir(), "Recordings"),
	}
	for _, m := range modules {
		if err := h.registry.Register(m); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	h.bus.Subscribe(h.collector)
	h.recorder = NewRecorder(Options{
		Registry:  h.registry,
		Publisher: h.bus,
		Clock:     h.fake,
	})
	return h
}

func (h *harness) config(compression CompressionMode, encryption EncryptionMode) Config {
	return Config{
		Directory:   h.directory,
		Cadence:     2,
		Compression: compression,
		Write:       WriteAndStream,
		Encryption:  encryption,
	}
}

// nextEntry advances the fake clock by one period and waits for the
// resulting entry.
func (h *harness) nextEntry(t *testing.T, period time.Duration) events.Event {
	t.Helper()
	h.fake.WaitForTimers(1)
	h.fake.Advance(period)
	return h.collector.RequireKind(t, events.EntryWritten, waitTimeout)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRecordEndToEnd(t *testing.T) {
	t.Parallel()

	h := newHarness(t, newCounterModule("Mock"))
	session, err := h.recorder.Start(h.config(NoCompression, EncryptionNone))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if filepath.Base(session.Path()) != "recording_1_20260301_123456.json" {
		t.Errorf("path = %s", session.Path())
	}

	started := h.collector.RequireKind(t, events.SessionStarted, waitTimeout)
	if started.Session != session.ID() || started.Path != session.Path() {
		t.Errorf("session-started = %+v", started)
	}

	first := h.collector.RequireKind(t, events.EntryWritten, waitTimeout)
	second := h.nextEntry(t, 500*time.Millisecond)
	if first.Index != 0 || second.Index != 1 {
		t.Errorf("indexes = %d, %d; want 0, 1", first.Index, second.Index)
	}

	session.Stop()
	if err := session.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	entry0 := `{"time":"2026-03-01 12:34:56.0000","data":{"Mock":{"v":1}}}`
	entry1 := `{"time":"2026-03-01 12:34:56.5000","data":{"Mock":{"v":2}}}`
	if first.Entry != entry0 || second.Entry != entry1 {
		t.Errorf("published entries = %s, %s", first.Entry, second.Entry)
	}

	content := readFile(t, session.Path())
	want := "{" + entry0 + ", " + entry1 + "}"
	if content != want {
		t.Errorf("file = %s\nwant   %s", content, want)
	}

	ended := h.collector.RequireKind(t, events.SessionEnded, waitTimeout)
	if ended.Err != nil {
		t.Errorf("session-ended error = %v", ended.Err)
	}
	if ended.Summary == nil {
		t.Fatal("session-ended without summary")
	}
	hasher := blake3.New()
	hasher.Write([]byte(content))
	if ended.Summary.Entries != 2 || ended.Summary.Bytes != int64(len(content)) {
		t.Errorf("summary = %+v", ended.Summary)
	}
	if ended.Summary.Digest != hex.EncodeToString(hasher.Sum(nil)) {
		t.Errorf("digest = %s, does not match file content", ended.Summary.Digest)
	}
	if ended.Summary.Duration != 500*time.Millisecond {
		t.Errorf("duration = %v, want 500ms", ended.Summary.Duration)
	}

	if status := h.recorder.Status(); status.Recording {
		t.Errorf("recorder still recording after stop: %+v", status)
	}
}

func TestStopLetsTickFinish(t *testing.T) {
	t.Parallel()

	h := newHarness(t, newCounterModule("Mock"))
	session, err := h.recorder.Start(h.config(FastCompress, EncryptionNone))
	if err != nil {
		t.Fatal(err)
	}
	h.collector.RequireKind(t, events.EntryWritten, waitTimeout)

	// Stop without advancing the clock: the worker is parked between
	// ticks and must still close the file with the brace.
	if err := h.recorder.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	testutil.RequireClosed(t, session.Done(), waitTimeout, "session done")

	content := readFile(t, session.Path())
	if !strings.HasPrefix(content, "{") || !strings.HasSuffix(content, "}") {
		t.Errorf("file not framed: %q", content)
	}
	entries, err := ReadEntries([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if strings.Contains(entries[0], ", ") {
		t.Errorf("first entry has a separator: %q", entries[0])
	}
}

func TestEncryptedRecordingDecodes(t *testing.T) {
	t.Parallel()

	context, err := cipher.GenerateContext(cipher.AES256)
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, newCounterModule("Mock"))
	h.recorder.SetCipher(context)

	config := h.config(FastCompress, EncryptionAES256)
	config.Codec = "zstd"
	session, err := h.recorder.Start(config)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.collector.RequireKind(t, events.EntryWritten, waitTimeout)
	h.nextEntry(t, 500*time.Millisecond)
	h.nextEntry(t, 500*time.Millisecond)
	if err := h.recorder.Stop(); err != nil {
		t.Fatal(err)
	}

	transformer, err := NewTransformer(FastCompress, "zstd", EncryptionAES256, context)
	if err != nil {
		t.Fatal(err)
	}
	records, err := DecodeFile(session.Path(), transformer)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	for i, record := range records {
		want := `"data":{"Mock":{"v":` + string(rune('1'+i)) + `}}`
		if !strings.Contains(string(record), want) {
			t.Errorf("record %d = %s, want it to contain %s", i, record, want)
		}
	}
}

func TestStreamOnly(t *testing.T) {
	t.Parallel()

	h := newHarness(t, newCounterModule("Mock"))
	config := h.config(NoCompression, EncryptionNone)
	config.Write = StreamOnly
	session, err := h.recorder.Start(config)
	if err != nil {
		t.Fatal(err)
	}
	entry := h.collector.RequireKind(t, events.EntryWritten, waitTimeout)
	if !strings.Contains(entry.Entry, `"Mock":{"v":1}`) {
		t.Errorf("entry = %s", entry.Entry)
	}
	if err := h.recorder.Stop(); err != nil {
		t.Fatal(err)
	}
	if content := readFile(t, session.Path()); content != "" {
		t.Errorf("stream-only file = %q, want empty", content)
	}
	ended := h.collector.RequireKind(t, events.SessionEnded, waitTimeout)
	if ended.Summary.Digest != "" {
		t.Errorf("stream-only digest = %q, want empty", ended.Summary.Digest)
	}
}

func TestUnusableModulesSkipped(t *testing.T) {
	t.Parallel()

	idle := &valueModule{name: "Idle", frame: 1}
	h := newHarness(t, newCounterModule("Mock"), idle)
	if _, err := h.recorder.Start(h.config(NoCompression, EncryptionNone)); err != nil {
		t.Fatal(err)
	}
	first := h.collector.RequireKind(t, events.EntryWritten, waitTimeout)
	if strings.Contains(first.Entry, "Idle") {
		t.Errorf("unusable module recorded: %s", first.Entry)
	}

	idle.SetUsable(true)
	second := h.nextEntry(t, 500*time.Millisecond)
	if !strings.HasSuffix(second.Entry, `"data":{"Mock":{"v":2},"Idle":1}}`) {
		t.Errorf("entry = %s, want Mock then Idle", second.Entry)
	}
	if err := h.recorder.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestTickFailureLeavesFileUnterminated(t *testing.T) {
	t.Parallel()

	broken := &valueModule{name: "Broken", frame: map[string]float64{"gsr": math.NaN()}}
	broken.SetUsable(true)
	h := newHarness(t, broken)

	session, err := h.recorder.Start(h.config(NoCompression, EncryptionNone))
	if err != nil {
		t.Fatal(err)
	}
	err = session.Wait()
	if !errors.Is(err, fault.ErrFormat) {
		t.Fatalf("Wait = %v, want format error", err)
	}

	if content := readFile(t, session.Path()); content != "{" {
		t.Errorf("file = %q, want only the opening brace", content)
	}
	ended := h.collector.RequireKind(t, events.SessionEnded, waitTimeout)
	if !errors.Is(ended.Err, fault.ErrFormat) {
		t.Errorf("session-ended error = %v", ended.Err)
	}
	if ended.Summary.Entries != 0 {
		t.Errorf("entries = %d, want 0", ended.Summary.Entries)
	}

	// The recorder is idle again and numbers the next file after the
	// failed one.
	if h.recorder.Session() != nil {
		t.Fatal("recorder should be idle after a failed session")
	}
	broken.SetUsable(false)
	next, err := h.recorder.Start(h.config(NoCompression, EncryptionNone))
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if sequence, _ := Sequence(next.Path()); sequence != 2 {
		t.Errorf("next sequence = %d, want 2", sequence)
	}
	if err := h.recorder.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestStartRejects(t *testing.T) {
	t.Parallel()

	aes128, err := cipher.GenerateContext(cipher.AES128)
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t)
	h.recorder.SetCipher(aes128)

	base := h.config(NoCompression, EncryptionNone)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cadence", func(c *Config) { c.Cadence = 0 }},
		{"negative cadence", func(c *Config) { c.Cadence = -1 }},
		{"NaN cadence", func(c *Config) { c.Cadence = math.NaN() }},
		{"infinite cadence", func(c *Config) { c.Cadence = math.Inf(1) }},
		{"empty directory", func(c *Config) { c.Directory = "" }},
		{"strength mismatch", func(c *Config) { c.Encryption = EncryptionAES256 }},
		{"unknown write mode", func(c *Config) { c.Write = "append" }},
		{"unknown codec", func(c *Config) { c.Compression = FastCompress; c.Codec = "snappy" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := base
			test.mutate(&config)
			if _, err := h.recorder.Start(config); !errors.Is(err, fault.ErrConfig) {
				t.Errorf("Start = %v, want config error", err)
			}
		})
	}
	if _, err := os.Stat(h.directory); !os.IsNotExist(err) {
		t.Errorf("rejected starts should not create the directory: %v", err)
	}
}

func TestStartWhileRecording(t *testing.T) {
	t.Parallel()

	h := newHarness(t, newCounterModule("Mock"))
	session, err := h.recorder.Start(h.config(NoCompression, EncryptionNone))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.recorder.Start(h.config(NoCompression, EncryptionNone)); !errors.Is(err, fault.ErrConfig) {
		t.Errorf("second Start = %v, want config error", err)
	}

	h.collector.RequireKind(t, events.EntryWritten, waitTimeout)
	status := h.recorder.Status()
	if !status.Recording || status.Session != session.ID() || status.Path != session.Path() {
		t.Errorf("status = %+v", status)
	}
	if status.Cadence != 2 || status.Compression != NoCompression || status.Write != WriteAndStream {
		t.Errorf("status modes = %+v", status)
	}

	if err := h.recorder.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := h.recorder.Stop(); err != nil {
		t.Errorf("Stop while idle = %v", err)
	}
}

func TestFileSizeTracksPreviousTick(t *testing.T) {
	t.Parallel()

	h := newHarness(t, newCounterModule("Mock"))
	session, err := h.recorder.Start(h.config(NoCompression, EncryptionNone))
	if err != nil {
		t.Fatal(err)
	}
	first := h.collector.RequireKind(t, events.EntryWritten, waitTimeout)
	h.nextEntry(t, 500*time.Millisecond)

	// At the start of the second tick the file held the brace and the
	// first entry.
	if got, want := session.Status().FileSize, int64(1+len(first.Entry)); got != want {
		t.Errorf("FileSize = %d, want %d", got, want)
	}
	if err := h.recorder.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateCipher(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if _, err := h.recorder.GenerateIV(); !errors.Is(err, fault.ErrConfig) {
		t.Errorf("GenerateIV without key = %v, want config error", err)
	}

	context, err := h.recorder.GenerateKey(cipher.AES128)
	if err != nil {
		t.Fatal(err)
	}
	key := h.collector.RequireKind(t, events.KeyGenerated, waitTimeout)
	iv := h.collector.RequireKind(t, events.IVGenerated, waitTimeout)
	if key.Material != context.KeyText() || iv.Material != context.IVText() {
		t.Error("events should carry the generated material")
	}

	rotated, err := h.recorder.GenerateIV()
	if err != nil {
		t.Fatal(err)
	}
	if rotated.KeyText() != context.KeyText() {
		t.Error("GenerateIV changed the key")
	}
	if rotated.IVText() == context.IVText() {
		t.Error("GenerateIV kept the IV")
	}
	if h.recorder.Cipher() != rotated {
		t.Error("recorder should hold the rotated context")
	}

	upgraded, err := h.recorder.GenerateKey(cipher.AES256)
	if err != nil {
		t.Fatal(err)
	}
	if upgraded.Strength() != cipher.AES256 || upgraded.IVText() != rotated.IVText() {
		t.Error("GenerateKey should change strength and keep the IV")
	}
}

func TestSessionKeepsStartingCipher(t *testing.T) {
	t.Parallel()

	h := newHarness(t, newCounterModule("Mock"))
	original, err := h.recorder.GenerateKey(cipher.AES128)
	if err != nil {
		t.Fatal(err)
	}
	session, err := h.recorder.Start(h.config(NoCompression, EncryptionAES128))
	if err != nil {
		t.Fatal(err)
	}
	h.collector.RequireKind(t, events.EntryWritten, waitTimeout)

	if _, err := h.recorder.GenerateKey(cipher.AES128); err != nil {
		t.Fatal(err)
	}
	h.nextEntry(t, 500*time.Millisecond)
	if err := h.recorder.Stop(); err != nil {
		t.Fatal(err)
	}

	transformer, err := NewTransformer(NoCompression, "", EncryptionAES128, original)
	if err != nil {
		t.Fatal(err)
	}
	records, err := DecodeFile(session.Path(), transformer)
	if err != nil {
		t.Fatalf("DecodeFile with the starting key: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
}
