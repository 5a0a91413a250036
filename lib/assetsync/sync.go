// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
)

// DefaultBatchSize is used when a Synchronizer is given no batch size.
const DefaultBatchSize = 256

// ObjectSource fetches objects by checksum. *Client implements it.
type ObjectSource interface {
	GetObjects(ctx context.Context, sums []checksum.Checksum) ([]serialization.Object, []checksum.Checksum, error)
}

// SyncStats summarizes one Sync.
type SyncStats struct {
	// Fetched counts objects received from the source.
	Fetched int
	// Reused counts objects already present in the replica.
	Reused int
	// Requests counts GetObjects calls. A client may split one call
	// into several round trips when the server defers part of a batch.
	Requests int
}

// Synchronizer brings a Replica up to date with a remote tree.
type Synchronizer struct {
	source    ObjectSource
	replica   *Replica
	batchSize int
	logger    *slog.Logger
}

// NewSynchronizer returns a synchronizer filling replica from source.
// A batchSize of zero or less selects DefaultBatchSize; values above
// MaxBatch are clamped.
func NewSynchronizer(source ObjectSource, replica *Replica, batchSize int, logger *slog.Logger) *Synchronizer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchSize = min(batchSize, MaxBatch)
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{source: source, replica: replica, batchSize: batchSize, logger: logger}
}

// Replica returns the replica being filled.
func (s *Synchronizer) Replica() *Replica { return s.replica }

// Sync makes every object reachable from root present in the replica.
// The tree is walked level by level; objects already in the replica
// are not requested again, but their children are still visited so an
// earlier interrupted sync is completed. A checksum the source cannot
// resolve fails with ErrMissingObject: the remote scope was probably
// closed mid-sync.
func (s *Synchronizer) Sync(ctx context.Context, root checksum.Checksum) (SyncStats, error) {
	var stats SyncStats
	visited := make(map[checksum.Checksum]struct{})
	level := []checksum.Checksum{root}

	for len(level) > 0 {
		var next, fetch []checksum.Checksum
		for _, sum := range level {
			if _, seen := visited[sum]; seen {
				continue
			}
			visited[sum] = struct{}{}
			if object, ok := s.replica.Get(sum); ok {
				stats.Reused++
				next = appendChildren(next, object)
				continue
			}
			fetch = append(fetch, sum)
		}

		for start := 0; start < len(fetch); start += s.batchSize {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			batch := fetch[start:min(start+s.batchSize, len(fetch))]
			objects, missing, err := s.source.GetObjects(ctx, batch)
			stats.Requests++
			if err != nil {
				return stats, fmt.Errorf("fetching %d objects: %w", len(batch), err)
			}
			if len(missing) > 0 {
				closeObjects(objects)
				return stats, fmt.Errorf("%w: %d of %d requested checksums, first %s",
					ErrMissingObject, len(missing), len(batch), missing[0].Short())
			}
			for _, object := range objects {
				if s.replica.Put(object) {
					stats.Fetched++
				}
				next = appendChildren(next, object)
			}
		}
		level = next
	}

	s.logger.Debug("replica synchronized",
		"root", root.Short(),
		"fetched", stats.Fetched,
		"reused", stats.Reused,
		"requests", stats.Requests,
	)
	return stats, nil
}

func appendChildren(sums []checksum.Checksum, object serialization.Object) []checksum.Checksum {
	if node, ok := object.Value.(serialization.Node); ok {
		return append(sums, node.Children()...)
	}
	return sums
}
