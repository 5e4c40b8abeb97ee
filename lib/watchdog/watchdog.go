// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// FileName is the marker's name inside a recording directory. It does
// not match the recording file pattern, so it never affects sequence
// numbering.
const FileName = ".recording.watchdog"

// State describes the session a marker was written for.
type State struct {
	// Session is the recording session ID.
	Session string `json:"session"`

	// Path is the recording file the session writes.
	Path string `json:"path"`

	// PID is the recorder process. Diagnostics only.
	PID int `json:"pid"`

	// Started is when the session opened its file. Check compares it
	// against maxAge.
	Started time.Time `json:"started"`
}

// Write atomically writes a marker file with mode 0600. The parent
// directory must already exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling watchdog state: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary watchdog file: %w", err)
	}

	// On any failure, remove the temporary file and report the first
	// error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary watchdog file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary watchdog file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary watchdog file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming watchdog file into place: %w", err)
	}

	// The rename is only durable once the directory entry is flushed.
	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// Read parses a marker file. A missing file returns an error wrapping
// fs.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing watchdog file %s: %w", path, err)
	}
	return state, nil
}

// Check reads a marker and returns it with true when it exists and was
// started within maxAge of now. A missing or stale marker returns false
// and no error. Other failures (permissions, corrupt JSON) are returned
// so the caller can tell "no marker" from "unreadable marker".
func Check(path string, now time.Time, maxAge time.Duration) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	if now.Sub(state.Started) > maxAge {
		return State{}, false, nil
	}
	return state, true, nil
}

// Clear removes a marker. Returns nil when it does not exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing watchdog file: %w", err)
	}
	return nil
}
