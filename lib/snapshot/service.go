// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/clock"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/wire"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// Options configures a Service.
type Options struct {
	// Serializer is required.
	Serializer *serialization.Serializer

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Clock defaults to clock.Real.
	Clock clock.Clock

	// MeterProvider and TracerProvider default to the otel globals.
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider

	// Concurrency bounds sibling builds per collection. Zero means
	// GOMAXPROCS.
	Concurrency int
}

// Service is the host side of snapshot synchronization: it creates
// scopes over solution states and writes the objects of live scopes
// for remote readers.
type Service struct {
	serializer *serialization.Serializer
	collection *Collection
	builder    *Builder
	tracer     trace.Tracer
	logger     *slog.Logger
	clock      clock.Clock
}

// NewService returns a Service with an empty collection.
func NewService(options Options) (*Service, error) {
	if options.Serializer == nil {
		return nil, fmt.Errorf("snapshot: serializer is required")
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.MeterProvider == nil {
		options.MeterProvider = otel.GetMeterProvider()
	}
	if options.TracerProvider == nil {
		options.TracerProvider = otel.GetTracerProvider()
	}

	collection, err := NewCollection(CollectionOptions{
		Logger: options.Logger,
		Clock:  options.Clock,
		Meter:  options.MeterProvider.Meter(instrumentationName),
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		serializer: options.Serializer,
		collection: collection,
		builder:    NewBuilder(NewAssetBuilder(options.Serializer), options.Concurrency),
		tracer:     options.TracerProvider.Tracer(instrumentationName),
		logger:     options.Logger,
		clock:      options.Clock,
	}, nil
}

func (s *Service) Collection() *Collection               { return s.collection }
func (s *Service) Serializer() *serialization.Serializer { return s.serializer }
func (s *Service) Builder() *Builder                     { return s.builder }

// CreateScope builds the checksum tree of solution and pins it. The
// caller must Close the scope once remote readers no longer need its
// checksums.
func (s *Service) CreateScope(ctx context.Context, solution *workspace.SolutionState) (*Scope, error) {
	ctx, span := s.tracer.Start(ctx, "snapshot.CreateScope", trace.WithAttributes(
		attribute.String("workspacesync.solution", solution.ID().String()),
		attribute.Int("workspacesync.projects", len(solution.Projects())),
	))
	defer span.End()

	start := s.clock.Now()
	cache := s.collection.CreateRootTreeNodeCache(solution)
	root, err := s.builder.BuildSolution(ctx, cache, solution)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("building snapshot of %s: %w", solution.ID(), err)
	}
	scope := NewScope(s.collection, cache, root)
	span.SetAttributes(attribute.String("workspacesync.checksum", root.Checksum().String()))
	s.logger.Info("snapshot scope created",
		"solution", solution.ID(),
		"checksum", root.Checksum().Short(),
		"duration", s.clock.Now().Sub(start),
	)
	return scope, nil
}

// AddGlobalAsset checksums value as kind and registers it as a global
// asset under key.
func (s *Service) AddGlobalAsset(ctx context.Context, key, value any, kind checksum.Kind) (ChecksumObject, error) {
	asset, err := NewAsset(ctx, s.serializer, value, kind)
	if err != nil {
		return nil, err
	}
	return s.collection.AddGlobalAsset(key, asset), nil
}

// FindObjects resolves sums against the live scopes and global assets.
// objects is parallel to sums, with nil where missing lists a checksum
// that did not resolve.
func (s *Service) FindObjects(sums []checksum.Checksum) (objects []ChecksumObject, missing []checksum.Checksum) {
	found := s.collection.FindChecksumObjects(sums)
	objects = make([]ChecksumObject, len(sums))
	for index, sum := range sums {
		object, ok := found[sum]
		if !ok {
			missing = append(missing, sum)
			continue
		}
		objects[index] = object
	}
	return objects, missing
}

// GetObject returns the object for a checksum that must resolve. See
// Collection.GetChecksumObject.
func (s *Service) GetObject(sum checksum.Checksum) ChecksumObject {
	return s.collection.GetChecksumObject(sum)
}

// WriteObjects writes objects as [int32 count][object]*.
func (s *Service) WriteObjects(ctx context.Context, w *wire.Writer, objects []ChecksumObject) error {
	ctx, span := s.tracer.Start(ctx, "snapshot.WriteObjects", trace.WithAttributes(
		attribute.Int("workspacesync.objects", len(objects)),
	))
	defer span.End()

	w.WriteCount(len(objects))
	for _, object := range objects {
		if err := object.WriteObjectTo(ctx, w); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("writing %s %s: %w", object.Kind(), object.Checksum().Short(), err)
		}
	}
	return w.Err()
}

// WriteObjectsWithin writes the longest prefix of objects whose framed
// size fits in budget bytes, in the same layout as WriteObjects, and
// returns its length. The first object is always written, so a single
// object larger than budget still goes out on its own.
func (s *Service) WriteObjectsWithin(ctx context.Context, w *wire.Writer, objects []ChecksumObject, budget int) (int, error) {
	ctx, span := s.tracer.Start(ctx, "snapshot.WriteObjectsWithin", trace.WithAttributes(
		attribute.Int("workspacesync.objects", len(objects)),
		attribute.Int("workspacesync.budget", budget),
	))
	defer span.End()

	var body bytes.Buffer
	bodyWriter := wire.NewWriter(&body)
	written := 0
	for _, object := range objects {
		if written > 0 && body.Len() >= budget {
			break
		}
		mark := body.Len()
		if err := object.WriteObjectTo(ctx, bodyWriter); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("writing %s %s: %w", object.Kind(), object.Checksum().Short(), err)
		}
		if written > 0 && body.Len() > budget {
			body.Truncate(mark)
			break
		}
		written++
	}
	span.SetAttributes(attribute.Int("workspacesync.written", written))

	w.WriteCount(written)
	w.WriteRaw(body.Bytes())
	return written, w.Err()
}

// WatchScopes reports long-lived scopes every interval until ctx is
// done.
func (s *Service) WatchScopes(ctx context.Context, interval, threshold time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collection.ReportLongLivedScopes(threshold)
		}
	}
}
