// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status
// and have already reported themselves (cli.ExitError).
type exitCoder interface {
	ExitCode() int
}

// Fatal reports err and exits. An error carrying an exit code exits
// with that code silently; anything else prints "error: err" to stderr
// and exits 1. Use it in main() for errors from run(), where the
// structured logger may not exist yet.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes the error line for err, if any, and returns the exit
// code.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
