// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/bureau-foundation/recorder/lib/fault"
)

var recordingName = regexp.MustCompile(`^recording_(\d+)_.*\.json$`)

// NextPath returns the path for a new recording in directory, creating
// the directory if needed. The name is
// recording_<sequence>_<yyyyMMdd>_<HHmmss>.json where sequence is one
// more than the highest sequence already present. Other files are
// ignored.
func NextPath(directory string, now time.Time) (string, error) {
	if directory == "" {
		return "", fault.Config("output directory must not be empty")
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fault.Wrap(fault.KindConfig, err, "creating output directory")
	}
	entries, err := os.ReadDir(directory)
	if err != nil {
		return "", fault.Wrap(fault.KindIO, err, "listing output directory")
	}

	highest := 0
	for _, entry := range entries {
		if sequence, ok := Sequence(entry.Name()); ok && !entry.IsDir() {
			highest = max(highest, sequence)
		}
	}

	name := fmt.Sprintf("recording_%d_%s_%s.json",
		highest+1, now.Format("20060102"), now.Format("150405"))
	return filepath.Join(directory, name), nil
}

// Sequence extracts the sequence number from a recording file name.
func Sequence(name string) (int, bool) {
	match := recordingName.FindStringSubmatch(filepath.Base(name))
	if match == nil {
		return 0, false
	}
	sequence, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return sequence, true
}
