// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the recorder.
//
// Configuration is loaded from a single file specified by either the
// BUREAU_RECORDER_CONFIG environment variable (via [Load]) or a
// --config flag (via [LoadFile]). The file is YAML, or JSON with
// comments when its name ends in .json or .jsonc. There is no automatic
// file search; without a file the command uses [Default] plus flags.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. Production
// defaults to fdatasync after every entry and JSON logs.
//
// ${HOME} and ${VAR:-default} patterns are expanded in path fields
// after loading.
package config
