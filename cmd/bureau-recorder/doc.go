// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-recorder samples sensor modules at a fixed cadence and writes
// each sample to an append-only recording file.
//
// Subcommands:
//
//   - record: run a recording session until SIGINT/SIGTERM or
//     --duration. With --simulate the biosignal module reads from a
//     simulated GSR/PPG device.
//   - keygen: write a fresh base64 AES key and IV to files.
//   - decode: print the JSON entries of a recording, one per line,
//     reversing compression and encryption.
//   - journal: print an event journal written by record
//     --event-journal.
//   - version: print build information.
//
// Settings come from a YAML or JSONC file (--config or
// BUREAU_RECORDER_CONFIG, see lib/config); flags given explicitly
// override the file.
package main
