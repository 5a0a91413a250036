// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] creates a short-named temporary directory in /tmp for
// Unix domain sockets, whose paths are limited to 108 bytes.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests do not call time.After directly.
//
// [RequireViolation] runs a function that must hit a fatal invariant
// check and returns the recovered violation.
//
// All helpers call t.Fatalf on failure.
package testutil
