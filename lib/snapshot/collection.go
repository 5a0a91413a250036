// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/clock"
	"github.com/bureau-foundation/workspacesync/lib/invariant"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// CollectionOptions configures a Collection.
type CollectionOptions struct {
	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Clock stamps scope creation for leak reporting. Defaults to
	// clock.Real.
	Clock clock.Clock

	// Meter records cache and scope metrics. Defaults to the global
	// meter provider's meter for this package.
	Meter metric.Meter
}

// Collection is the registry of live snapshot scopes and the owner of
// the global assets. Lookups by checksum fan out over both.
type Collection struct {
	logger  *slog.Logger
	clock   clock.Clock
	metrics *instruments

	// mu serializes registration. Readers load scopes without it.
	mu     sync.Mutex
	scopes atomic.Pointer[[]*Scope]

	globals sync.Map // key -> ChecksumObject
}

// NewCollection returns an empty collection.
func NewCollection(options CollectionOptions) (*Collection, error) {
	metrics, err := newInstruments(options.Meter)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot metrics: %w", err)
	}
	collection := &Collection{
		logger:  options.Logger,
		clock:   options.Clock,
		metrics: metrics,
	}
	if collection.logger == nil {
		collection.logger = slog.Default()
	}
	if collection.clock == nil {
		collection.clock = clock.Real()
	}
	collection.scopes.Store(new([]*Scope))
	return collection, nil
}

// CreateRootTreeNodeCache returns an empty cache for building a
// snapshot of solution. It takes part in cross-scope lookups only once
// a Scope registers it.
func (c *Collection) CreateRootTreeNodeCache(solution *workspace.SolutionState) *TreeNodeCache {
	return newRootCache(c, solution)
}

// Scopes returns the live scopes in registration order.
func (c *Collection) Scopes() []*Scope {
	return slices.Clone(*c.scopes.Load())
}

func (c *Collection) live() []*Scope {
	return *c.scopes.Load()
}

func (c *Collection) register(scope *Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.live()
	for _, existing := range current {
		if existing == scope {
			invariant.Fail("snapshot scope %s registered twice", scope)
		}
		if existing.cache == scope.cache {
			invariant.Fail("cache of snapshot scope %s is already registered by %s", scope, existing)
		}
	}
	next := append(slices.Clone(current), scope)
	c.scopes.Store(&next)
	c.metrics.liveScopes.Add(context.Background(), 1)
}

func (c *Collection) unregister(scope *Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.live()
	index := slices.Index(current, scope)
	if index < 0 {
		invariant.Fail("snapshot scope %s is not registered", scope)
	}
	next := slices.Delete(slices.Clone(current), index, index+1)
	c.scopes.Store(&next)
	c.metrics.liveScopes.Add(context.Background(), -1)
}

// findShared looks for an object built for (key, kind) by any live
// scope other than the one whose tree uses exclude as its index.
func (c *Collection) findShared(exclude *sync.Map, key any, kind checksum.Kind) (ChecksumObject, *TreeNodeCache, bool) {
	for _, scope := range c.live() {
		index := scope.cache.index
		if index == exclude {
			continue
		}
		found, ok := index.Load(indexKey{key: key, kind: kind})
		if !ok {
			continue
		}
		shared := found.(*entry)
		if object, ok := shared.lookup(kind); ok {
			return object, shared.subtree.Load(), true
		}
	}
	return nil, nil, false
}

// TryGetChecksumObject searches every live scope, then the global
// assets.
func (c *Collection) TryGetChecksumObject(sum checksum.Checksum) (ChecksumObject, bool) {
	visited := make(map[*TreeNodeCache]struct{})
	for _, scope := range c.live() {
		if object, ok := scope.cache.find(sum, visited); ok {
			return object, true
		}
	}
	var found ChecksumObject
	c.globals.Range(func(_, value any) bool {
		if object := value.(ChecksumObject); object.Checksum() == sum {
			found = object
			return false
		}
		return true
	})
	return found, found != nil
}

// GetChecksumObject is TryGetChecksumObject for checksums that must
// resolve: ones handed out by a scope that the caller still holds. A
// miss means a scope was closed too early or the checksum never came
// from this process, and is an invariant violation.
func (c *Collection) GetChecksumObject(sum checksum.Checksum) ChecksumObject {
	object, ok := c.TryGetChecksumObject(sum)
	if !ok {
		invariant.UnexpectedValue(sum)
	}
	return object
}

// FindChecksumObjects resolves as many of sums as the live scopes and
// global assets can. Each shared sub-cache is walked at most once.
func (c *Collection) FindChecksumObjects(sums []checksum.Checksum) map[checksum.Checksum]ChecksumObject {
	pending := make(map[checksum.Checksum]struct{}, len(sums))
	for _, sum := range sums {
		pending[sum] = struct{}{}
	}
	found := make(map[checksum.Checksum]ChecksumObject, len(sums))
	visited := make(map[*TreeNodeCache]struct{})
	for _, scope := range c.live() {
		if len(pending) == 0 {
			break
		}
		scope.cache.collect(pending, found, visited)
	}
	if len(pending) > 0 {
		c.globals.Range(func(_, value any) bool {
			object := value.(ChecksumObject)
			if _, wanted := pending[object.Checksum()]; wanted {
				found[object.Checksum()] = object
				delete(pending, object.Checksum())
			}
			return len(pending) > 0
		})
	}
	return found
}

// AddGlobalAsset registers object under key for the life of the
// process, or until RemoveGlobalAsset. Adding the same key again is
// allowed only with the same checksum; the object already stored is
// returned.
func (c *Collection) AddGlobalAsset(key any, object ChecksumObject) ChecksumObject {
	actual, loaded := c.globals.LoadOrStore(key, object)
	existing := actual.(ChecksumObject)
	if loaded && existing.Checksum() != object.Checksum() {
		invariant.Fail("global asset %v changed content: %s was %s, now %s",
			key, existing.Kind(), existing.Checksum(), object.Checksum())
	}
	if !loaded {
		c.logger.Debug("global asset added", "kind", object.Kind(), "checksum", object.Checksum().Short())
	}
	return existing
}

// GetGlobalAsset returns the global asset stored under key.
func (c *Collection) GetGlobalAsset(key any) (ChecksumObject, bool) {
	object, ok := c.globals.Load(key)
	if !ok {
		return nil, false
	}
	return object.(ChecksumObject), true
}

// RemoveGlobalAsset removes the global asset stored under key, if any.
func (c *Collection) RemoveGlobalAsset(key any) {
	c.globals.Delete(key)
}

// ReportLongLivedScopes logs and returns every live scope created at
// least threshold ago. Long-lived scopes are usually leaks: a caller
// that never closed its scope pins the whole snapshot.
func (c *Collection) ReportLongLivedScopes(threshold time.Duration) []*Scope {
	now := c.clock.Now()
	var old []*Scope
	for _, scope := range c.live() {
		age := now.Sub(scope.created)
		if age < threshold {
			continue
		}
		old = append(old, scope)
		c.logger.Warn("snapshot scope is long-lived",
			"solution", scope.cache.solution.ID(),
			"checksum", scope.Checksum().Short(),
			"age", age,
		)
	}
	return old
}

// Scope pins a snapshot: while it is registered, every checksum in its
// tree resolves through the collection. Close releases it.
type Scope struct {
	collection *Collection
	cache      *TreeNodeCache
	root       *serialization.SolutionStateChecksums
	created    time.Time
}

// NewScope registers cache, whose tree has root at its top, with
// collection.
func NewScope(collection *Collection, cache *TreeNodeCache, root *serialization.SolutionStateChecksums) *Scope {
	scope := &Scope{
		collection: collection,
		cache:      cache,
		root:       root,
		created:    collection.clock.Now(),
	}
	collection.register(scope)
	return scope
}

// Root returns the solution node.
func (s *Scope) Root() *serialization.SolutionStateChecksums { return s.root }

// Checksum returns the checksum of the solution node.
func (s *Scope) Checksum() checksum.Checksum { return s.root.Checksum() }

// Cache returns the scope's root cache.
func (s *Scope) Cache() *TreeNodeCache { return s.cache }

// Created returns when the scope was registered.
func (s *Scope) Created() time.Time { return s.created }

// Close unregisters the scope. Closing twice is an invariant violation.
func (s *Scope) Close() error {
	s.collection.unregister(s)
	return nil
}

func (s *Scope) String() string {
	return "scope(" + s.root.Checksum().Short() + ")"
}
