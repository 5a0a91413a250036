// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"math"
	"time"
)

// zeroNanos is the wire form of the zero time, which UnixNano cannot
// represent.
const zeroNanos = math.MinInt64

// VersionStamp orders successive versions of an entity. UTC carries
// nanosecond precision so that it survives the wire unchanged. Local
// and Global break ties between stamps minted in the same instant.
type VersionStamp struct {
	UTC    time.Time
	Local  int32
	Global int32
}

// NewVersionStamp returns a stamp at now.
func NewVersionStamp(now time.Time) VersionStamp {
	return VersionStamp{UTC: now.UTC()}
}

// VersionStampFromNanos rebuilds a stamp from its wire form.
func VersionStampFromNanos(nanos int64, local, global int32) VersionStamp {
	if nanos == zeroNanos {
		return VersionStamp{Local: local, Global: global}
	}
	return VersionStamp{UTC: time.Unix(0, nanos).UTC(), Local: local, Global: global}
}

// UnixNano returns UTC as nanoseconds since the epoch. The zero time
// maps to math.MinInt64.
func (v VersionStamp) UnixNano() int64 {
	if v.UTC.IsZero() {
		return zeroNanos
	}
	return v.UTC.UnixNano()
}

// Next returns a stamp newer than v. If now is not after v.UTC, the
// local counter is bumped instead.
func (v VersionStamp) Next(now time.Time) VersionStamp {
	now = now.UTC()
	if now.After(v.UTC) {
		return VersionStamp{UTC: now, Global: v.Global + 1}
	}
	return VersionStamp{UTC: v.UTC, Local: v.Local + 1, Global: v.Global + 1}
}

// Equal reports whether two stamps are identical.
func (v VersionStamp) Equal(other VersionStamp) bool {
	return v.UTC.Equal(other.UTC) && v.Local == other.Local && v.Global == other.Global
}

func (v VersionStamp) String() string {
	return fmt.Sprintf("%s#%d.%d", v.UTC.Format(time.RFC3339Nano), v.Local, v.Global)
}
