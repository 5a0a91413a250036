// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ColorEnabled reports whether styled output should be written to f:
// f is a terminal and NO_COLOR is not set.
func ColorEnabled(f *os.File) bool {
	return IsTerminal(f) && !termenv.EnvNoColor()
}

// TerminalWidth returns the column count of the terminal f is attached
// to, or 0 when it is not a terminal.
func TerminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
