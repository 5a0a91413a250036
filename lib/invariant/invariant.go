// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package invariant

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
)

// Violation is the panic value raised by Fail. It implements error so a
// recovering test can inspect it with errors.As.
type Violation struct {
	// Message describes the broken invariant.
	Message string

	// Caller is "file:line" of the code that called Fail.
	Caller string
}

func (v *Violation) Error() string {
	return "invariant violation: " + v.Message
}

// Fail reports a broken invariant and panics. It never returns.
func Fail(format string, args ...any) {
	violation := &Violation{Message: fmt.Sprintf(format, args...)}
	if _, file, line, ok := runtime.Caller(1); ok {
		violation.Caller = fmt.Sprintf("%s:%d", file, line)
	}
	slog.Default().Log(context.Background(), slog.LevelError, "invariant violation",
		"message", violation.Message,
		"caller", violation.Caller,
	)
	panic(violation)
}

// UnexpectedValue fails with a message naming a value that falls
// outside a closed set: an unknown kind, an unknown reference variant.
func UnexpectedValue(value any) {
	Fail("unexpected value %v (%T)", value, value)
}

// Check fails with the formatted message when condition is false.
func Check(condition bool, format string, args ...any) {
	if !condition {
		Fail(format, args...)
	}
}
