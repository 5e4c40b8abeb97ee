// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/bureau-foundation/recorder/cmd/bureau-recorder/cli"
	"github.com/bureau-foundation/recorder/lib/config"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
	"github.com/bureau-foundation/recorder/lib/watchdog"
)

// record runs the record command for a short session and returns the
// recording's path and the command's stdout.
func record(t *testing.T, directory string, args ...string) (string, string) {
	t.Helper()
	t.Setenv(config.EnvironmentVariable, "")

	var stdout bytes.Buffer
	args = append([]string{
		"--directory", directory,
		"--cadence", "20",
		"--duration", "250ms",
		"--log-level", "error",
	}, args...)
	if err := recordCommand(&stdout).Execute(args); err != nil {
		t.Fatalf("record %v: %v", args, err)
	}

	matches, err := filepath.Glob(filepath.Join(directory, "recording_*.json"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no recording in %s (glob error %v)", directory, err)
	}
	return matches[len(matches)-1], stdout.String()
}

// decode runs the decode command and returns the printed entries.
func decode(t *testing.T, args ...string) []map[string]any {
	t.Helper()
	var stdout bytes.Buffer
	if err := decodeCommand(&stdout).Execute(append(args, "--log-level", "error")); err != nil {
		t.Fatalf("decode %v: %v", args, err)
	}

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decoded line %q is not JSON: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func requireEnvelopes(t *testing.T, entries []map[string]any) {
	t.Helper()
	if len(entries) == 0 {
		t.Fatal("no entries decoded")
	}
	for index, entry := range entries {
		if _, ok := entry["time"].(string); !ok {
			t.Errorf("entry %d has no time: %v", index, entry)
		}
		if _, ok := entry["data"].(map[string]any); !ok {
			t.Errorf("entry %d has no data object: %v", index, entry)
		}
	}
}

func TestRecordAndDecode(t *testing.T) {
	directory := t.TempDir()
	journalPath := filepath.Join(directory, "events.cbor")

	path, output := record(t, directory, "--simulate", "--event-journal", journalPath)
	if !strings.HasPrefix(filepath.Base(path), "recording_1_") {
		t.Errorf("first recording = %s, want sequence 1", path)
	}
	if !strings.Contains(output, "entries") || !strings.Contains(output, "blake3 ") {
		t.Errorf("summary = %q", output)
	}

	requireEnvelopes(t, decode(t, "--file", path))

	var journal bytes.Buffer
	if err := printJournal(journalPath, events.SessionEnded, &journal); err != nil {
		t.Fatalf("printJournal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(journal.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("session-ended records = %d, want 1:\n%s", len(lines), journal.String())
	}
	var ended map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ended); err != nil {
		t.Fatalf("journal line is not JSON: %v", err)
	}
	if ended["path"] != path {
		t.Errorf("journal path = %v, want %s", ended["path"], path)
	}
	if _, hasError := ended["error"]; hasError {
		t.Errorf("clean session journaled an error: %v", ended)
	}
}

func TestRecordSequenceIncrements(t *testing.T) {
	directory := t.TempDir()
	first, _ := record(t, directory)
	second, _ := record(t, directory)
	if first == second {
		t.Fatalf("second session reused %s", first)
	}
	if !strings.HasPrefix(filepath.Base(second), "recording_2_") {
		t.Errorf("second recording = %s, want sequence 2", second)
	}
}

func TestRecordEncryptedAndDecode(t *testing.T) {
	directory := t.TempDir()
	keyFile := filepath.Join(directory, "key.b64")
	ivFile := filepath.Join(directory, "iv.b64")
	if _, err := keygen(t, "--strength", "aes-256", "--key-file", keyFile, "--iv-file", ivFile); err != nil {
		t.Fatalf("keygen: %v", err)
	}

	recordings := filepath.Join(directory, "recordings")
	modes := []string{"--codec", "zstd", "--encryption", "aes-256", "--key-file", keyFile, "--iv-file", ivFile}
	path, _ := record(t, recordings, modes...)

	requireEnvelopes(t, decode(t, append([]string{"--file", path}, modes...)...))

	var stdout bytes.Buffer
	err := decodeCommand(&stdout).Execute([]string{"--file", path, "--log-level", "error"})
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitPartialDecode {
		t.Fatalf("decoding an encrypted recording without a key = %v, want exit status 2", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("failed decode printed %q", stdout.String())
	}
}

func TestRecordStreamOnly(t *testing.T) {
	directory := t.TempDir()
	path, output := record(t, directory, "--write-mode", "stream-only")
	if strings.Contains(output, "blake3") {
		t.Errorf("stream-only summary has a digest: %q", output)
	}
	var stdout bytes.Buffer
	if err := decodeCommand(&stdout).Execute([]string{"--file", path, "--log-level", "error"}); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stream-only recording decoded to %q", stdout.String())
	}
}

func TestRecordRejectsBadSettings(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	tests := []struct {
		name string
		args []string
	}{
		{"zero cadence", []string{"--cadence", "0"}},
		{"unknown codec", []string{"--codec", "brotli"}},
		{"encryption without key", []string{"--encryption", "aes-128"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--directory", t.TempDir(), "--log-level", "error"}, tt.args...)
			err := recordCommand(&bytes.Buffer{}).Execute(args)
			if fault.KindOf(err) != fault.KindConfig {
				t.Errorf("record %v = %v, want config error", tt.args, err)
			}
		})
	}
}

func TestRecordUsesConfigFile(t *testing.T) {
	directory := t.TempDir()
	configPath := filepath.Join(directory, "station.jsonc")
	recordings := filepath.Join(directory, "from-config")
	content := `{
  // Written by the test.
  "recording": {"directory": "` + recordings + `", "compression": "none"},
}`
	if err := writeFile(configPath, content); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvironmentVariable, configPath)

	var stdout bytes.Buffer
	if err := recordCommand(&stdout).Execute([]string{"--duration", "100ms", "--log-level", "error"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.Contains(stdout.String(), recordings) {
		t.Errorf("summary %q does not name a recording under %s", stdout.String(), recordings)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestRecordClearsInterruptedMarker(t *testing.T) {
	directory := t.TempDir()
	markerPath := filepath.Join(directory, watchdog.FileName)
	leftover := watchdog.State{
		Session: "crashed",
		Path:    filepath.Join(directory, "recording_1_2026-10-19-09-30-00.json"),
		Started: time.Now(),
	}
	if err := watchdog.Write(markerPath, leftover); err != nil {
		t.Fatalf("writing marker: %v", err)
	}
	if err := writeFile(leftover.Path, `{{"time":"2026-10-19 09:30:00.0000","data":{}}`); err != nil {
		t.Fatal(err)
	}

	path, _ := record(t, directory)
	if !strings.HasPrefix(filepath.Base(path), "recording_2_") {
		t.Errorf("recording after crash = %s, want sequence 2", path)
	}
	if _, err := os.Stat(markerPath); !os.IsNotExist(err) {
		t.Errorf("marker left after a clean session (stat error %v)", err)
	}
}
