// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package invariant

import (
	"errors"
	"strings"
	"testing"
)

func capture(fn func()) (violation *Violation) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		if err, ok := recovered.(error); ok {
			errors.As(err, &violation)
		}
	}()
	fn()
	return nil
}

func TestFailPanicsWithViolation(t *testing.T) {
	violation := capture(func() { Fail("checksum %s mismatch", "abc") })
	if violation == nil {
		t.Fatal("Fail did not panic with a *Violation")
	}
	if violation.Message != "checksum abc mismatch" {
		t.Errorf("Message = %q", violation.Message)
	}
	if !strings.Contains(violation.Caller, "invariant_test.go") {
		t.Errorf("Caller = %q, want this test file", violation.Caller)
	}
	if !strings.HasPrefix(violation.Error(), "invariant violation: ") {
		t.Errorf("Error() = %q", violation.Error())
	}
}

func TestUnexpectedValueNamesType(t *testing.T) {
	violation := capture(func() { UnexpectedValue(int32(7)) })
	if violation == nil {
		t.Fatal("UnexpectedValue did not panic")
	}
	if !strings.Contains(violation.Message, "int32") {
		t.Errorf("Message = %q, want the value's type", violation.Message)
	}
}

func TestCheck(t *testing.T) {
	if violation := capture(func() { Check(true, "unused") }); violation != nil {
		t.Errorf("Check(true) panicked: %v", violation)
	}
	if violation := capture(func() { Check(false, "count %d", 3) }); violation == nil || violation.Message != "count 3" {
		t.Errorf("Check(false) = %v", violation)
	}
}
