// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package invariant reports broken invariants: an unrecognized kind tag,
// a checksum that does not match the bytes it arrived with, a scope
// registered twice, a checksum that no live scope can resolve. These
// are not conditions a caller can retry, so they are not returned as
// errors. [Fail] logs the violation at Error level and panics with a
// [*Violation].
//
// Production code never recovers a Violation. Tests that exercise the
// fatal paths capture it with testutil.RequireViolation.
package invariant
