// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handler. [Fatal]
// is the one place a failed run() is turned into stderr output and an
// exit status, before or after the structured logger exists.
package process
