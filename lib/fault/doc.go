// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault defines the recorder's error taxonomy.
//
// Every error that crosses a package boundary in the recorder is either
// a plain wrapped error or an [*Error] carrying one of five kinds:
// [KindConfig], [KindCrypto], [KindFormat], [KindIO], or [KindDevice].
// The recording session treats every kind except device errors as fatal
// to the session; sensor modules absorb device errors in their reconnect
// loops.
//
// Callers test the kind with errors.Is against the package sentinels,
// which keeps the check working through any number of fmt.Errorf("%w")
// layers added on the way up:
//
//	if errors.Is(err, fault.ErrConfig) {
//	    // operator input problem
//	}
package fault
