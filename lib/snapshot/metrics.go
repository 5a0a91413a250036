// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
)

// instrumentationName names the meter and tracer of this package.
const instrumentationName = "github.com/bureau-foundation/workspacesync/lib/snapshot"

// instruments are the cache counters. Each counter carries the kind of
// the object as the "kind" attribute.
type instruments struct {
	// hits counts lookups answered by the cache's own entry.
	hits metric.Int64Counter
	// shared counts objects reused from another live scope.
	shared metric.Int64Counter
	// builds counts factory runs whose result was stored.
	builds metric.Int64Counter
	// liveScopes is the number of registered scopes.
	liveScopes metric.Int64UpDownCounter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	var result instruments
	var err error
	if result.hits, err = meter.Int64Counter("workspacesync.cache.hits",
		metric.WithDescription("Checksum objects found in the requesting cache")); err != nil {
		return nil, err
	}
	if result.shared, err = meter.Int64Counter("workspacesync.cache.shared",
		metric.WithDescription("Checksum objects reused from another live scope")); err != nil {
		return nil, err
	}
	if result.builds, err = meter.Int64Counter("workspacesync.cache.builds",
		metric.WithDescription("Checksum objects built by a factory")); err != nil {
		return nil, err
	}
	if result.liveScopes, err = meter.Int64UpDownCounter("workspacesync.scopes.live",
		metric.WithDescription("Registered snapshot scopes")); err != nil {
		return nil, err
	}
	return &result, nil
}

func kindAttribute(kind checksum.Kind) metric.AddOption {
	return metric.WithAttributes(attribute.String("kind", string(kind)))
}

func (i *instruments) hit(ctx context.Context, kind checksum.Kind) {
	i.hits.Add(ctx, 1, kindAttribute(kind))
}

func (i *instruments) share(ctx context.Context, kind checksum.Kind) {
	i.shared.Add(ctx, 1, kindAttribute(kind))
}

func (i *instruments) build(ctx context.Context, kind checksum.Kind) {
	i.builds.Add(ctx, 1, kindAttribute(kind))
}
