// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the recorder
// binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/recorder/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit is not injected, the commit is read from the VCS stamp
// in the binary's build info.
package version
