// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sample collects module frames into a timestamped sample and
// encodes it as the JSON entry envelope persisted by the recorder.
//
// Encoding walks frames with reflection so that reference cycles in
// module data are tolerated: a reference already on the current path is
// left out instead of failing the entry. Scalars are written with
// go-json.
package sample
