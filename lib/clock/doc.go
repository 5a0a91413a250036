// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The snapshot service reads time in two places: scope creation stamps
// (for leak reporting) and the periodic leak sweep. Both take a Clock
// so tests can drive them with [Fake] instead of sleeping:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	service := snapshot.NewService(snapshot.Options{Clock: c})
//	c.WaitForTimers(1)          // sweep goroutine registered its ticker
//	c.Advance(time.Minute)      // fire it deterministically
package clock
