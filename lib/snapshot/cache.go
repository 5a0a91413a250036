// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/invariant"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// Factory builds a checksum object on a cache miss. Factories must be
// pure: under contention the same factory can run more than once and
// all but one result is discarded.
type Factory func(ctx context.Context) (ChecksumObject, error)

// TreeNodeCache memoizes checksum objects by (key, kind). Keys are the
// identities of workspace values and must be comparable; the builders
// use pointers. Each entry can carry a sub-cache for the children of
// the value it was built from.
//
// Entries are only ever added. A cancelled build leaves the cache
// partially populated but consistent.
type TreeNodeCache struct {
	owner *Collection

	// solution is set on root caches only.
	solution *workspace.SolutionState

	// index maps each (key, kind) stored anywhere in this cache's
	// tree to the entry holding it. It is shared by the root and all
	// of its sub-caches and lets other scopes find an object without
	// walking the tree. One key may live in several entries, a node
	// in the parent and its info in the node's own sub-cache.
	index *sync.Map // indexKey -> *entry

	entries    sync.Map // key -> *entry
	additional sync.Map // checksum.Checksum -> ChecksumObject
}

type indexKey struct {
	key  any
	kind checksum.Kind
}

func newRootCache(owner *Collection, solution *workspace.SolutionState) *TreeNodeCache {
	return &TreeNodeCache{owner: owner, solution: solution, index: new(sync.Map)}
}

func (c *TreeNodeCache) child() *TreeNodeCache {
	return &TreeNodeCache{owner: c.owner, index: c.index}
}

// Solution returns the solution a root cache was created for, or nil
// for a sub-cache.
func (c *TreeNodeCache) Solution() *workspace.SolutionState { return c.solution }

func (c *TreeNodeCache) entry(key any) *entry {
	if existing, ok := c.entries.Load(key); ok {
		return existing.(*entry)
	}
	actual, _ := c.entries.LoadOrStore(key, new(entry))
	return actual.(*entry)
}

// record stores object in local and indexes it under (key, kind).
func (c *TreeNodeCache) record(local *entry, key any, object ChecksumObject) ChecksumObject {
	winner := local.store(object)
	c.index.LoadOrStore(indexKey{key: key, kind: winner.Kind()}, local)
	return winner
}

// GetOrCreateAsset returns the leaf object for (key, kind), building it
// with factory if neither this cache nor any other live scope has one.
func (c *TreeNodeCache) GetOrCreateAsset(ctx context.Context, key any, kind checksum.Kind, factory Factory) (ChecksumObject, error) {
	invariant.Check(kind.IsLeaf(), "GetOrCreateAsset with non-leaf kind %s", kind)
	return c.getOrCreate(ctx, key, kind, factory)
}

// GetOrCreateNode is GetOrCreateAsset for hierarchical kinds. A node
// reused from another scope brings that scope's sub-cache for key
// along with it.
func (c *TreeNodeCache) GetOrCreateNode(ctx context.Context, key any, kind checksum.Kind, factory Factory) (ChecksumObject, error) {
	invariant.Check(kind.HasChildren(), "GetOrCreateNode with leaf kind %s", kind)
	return c.getOrCreate(ctx, key, kind, factory)
}

func (c *TreeNodeCache) getOrCreate(ctx context.Context, key any, kind checksum.Kind, factory Factory) (ChecksumObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	local := c.entry(key)
	if object, ok := local.lookup(kind); ok {
		c.owner.metrics.hit(ctx, kind)
		return object, nil
	}

	if object, subtree, ok := c.owner.findShared(c.index, key, kind); ok {
		winner := c.record(local, key, object)
		local.adopt(subtree)
		c.owner.metrics.share(ctx, kind)
		return winner, nil
	}

	object, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	if object.Kind() != kind {
		invariant.Fail("factory for %s built a %s", kind, object.Kind())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	winner := c.record(local, key, object)
	if winner == object {
		c.owner.metrics.build(ctx, kind)
	}
	return winner, nil
}

// SubCache returns the cache for the children of the value identified
// by key, creating it on first use.
func (c *TreeNodeCache) SubCache(key any) *TreeNodeCache {
	return c.entry(key).subCache(c)
}

// AddAdditionalAsset attaches an object that is not part of the
// solution's tree but must resolve through this cache.
func (c *TreeNodeCache) AddAdditionalAsset(object ChecksumObject) {
	c.additional.LoadOrStore(object.Checksum(), object)
}

// TryGetChecksumObject searches this cache and its sub-caches, then the
// additional assets, for an object with the given checksum.
func (c *TreeNodeCache) TryGetChecksumObject(sum checksum.Checksum) (ChecksumObject, bool) {
	return c.find(sum, make(map[*TreeNodeCache]struct{}))
}

func (c *TreeNodeCache) find(sum checksum.Checksum, visited map[*TreeNodeCache]struct{}) (ChecksumObject, bool) {
	if _, seen := visited[c]; seen {
		return nil, false
	}
	visited[c] = struct{}{}

	var found ChecksumObject
	var subtrees []*TreeNodeCache
	c.entries.Range(func(_, value any) bool {
		local := value.(*entry)
		if object, ok := local.findChecksum(sum); ok {
			found = object
			return false
		}
		subtrees = local.appendSubtrees(subtrees)
		return true
	})
	if found != nil {
		return found, true
	}
	for _, subtree := range subtrees {
		if object, ok := subtree.find(sum, visited); ok {
			return object, true
		}
	}
	if object, ok := c.additional.Load(sum); ok {
		return object.(ChecksumObject), true
	}
	return nil, false
}

// FindChecksumObjects resolves as many of sums as this cache can in a
// single walk. Checksums it cannot resolve are absent from the result.
func (c *TreeNodeCache) FindChecksumObjects(sums []checksum.Checksum) map[checksum.Checksum]ChecksumObject {
	pending := make(map[checksum.Checksum]struct{}, len(sums))
	for _, sum := range sums {
		pending[sum] = struct{}{}
	}
	found := make(map[checksum.Checksum]ChecksumObject, len(sums))
	c.collect(pending, found, make(map[*TreeNodeCache]struct{}))
	return found
}

// collect moves every checksum it resolves from pending to found.
func (c *TreeNodeCache) collect(pending map[checksum.Checksum]struct{}, found map[checksum.Checksum]ChecksumObject, visited map[*TreeNodeCache]struct{}) {
	if len(pending) == 0 {
		return
	}
	if _, seen := visited[c]; seen {
		return
	}
	visited[c] = struct{}{}

	var subtrees []*TreeNodeCache
	c.entries.Range(func(_, value any) bool {
		local := value.(*entry)
		local.each(func(object ChecksumObject) {
			if _, wanted := pending[object.Checksum()]; wanted {
				found[object.Checksum()] = object
				delete(pending, object.Checksum())
			}
		})
		subtrees = local.appendSubtrees(subtrees)
		return len(pending) > 0
	})
	for _, subtree := range subtrees {
		subtree.collect(pending, found, visited)
	}
	for sum := range pending {
		if object, ok := c.additional.Load(sum); ok {
			found[sum] = object.(ChecksumObject)
			delete(pending, sum)
		}
	}
}

// entry holds the objects built for one key. Almost every key is built
// under a single kind, which lives in first; the maps are only
// allocated when the same key is built under a second kind (a
// document's info and its text, a project's info and its collections).
type entry struct {
	first  atomic.Pointer[slot]
	others atomic.Pointer[kindMaps]

	subtree atomic.Pointer[TreeNodeCache]
	// adopted is a sub-cache taken from another scope after this
	// entry already had one of its own.
	adopted atomic.Pointer[TreeNodeCache]
}

type slot struct {
	object ChecksumObject
}

type kindMaps struct {
	byKind     sync.Map // checksum.Kind -> ChecksumObject
	byChecksum sync.Map // checksum.Checksum -> ChecksumObject
}

func (e *entry) maps() *kindMaps {
	if existing := e.others.Load(); existing != nil {
		return existing
	}
	e.others.CompareAndSwap(nil, new(kindMaps))
	return e.others.Load()
}

func (e *entry) lookup(kind checksum.Kind) (ChecksumObject, bool) {
	if first := e.first.Load(); first != nil && first.object.Kind() == kind {
		return first.object, true
	}
	if maps := e.others.Load(); maps != nil {
		if object, ok := maps.byKind.Load(kind); ok {
			return object.(ChecksumObject), true
		}
	}
	return nil, false
}

// store records object unless an object of the same kind is already
// present, and returns whichever one is stored.
func (e *entry) store(object ChecksumObject) ChecksumObject {
	if e.first.CompareAndSwap(nil, &slot{object: object}) {
		return object
	}
	if first := e.first.Load(); first.object.Kind() == object.Kind() {
		return first.object
	}
	maps := e.maps()
	actual, loaded := maps.byKind.LoadOrStore(object.Kind(), object)
	winner := actual.(ChecksumObject)
	if !loaded {
		maps.byChecksum.Store(winner.Checksum(), winner)
	}
	return winner
}

func (e *entry) findChecksum(sum checksum.Checksum) (ChecksumObject, bool) {
	if first := e.first.Load(); first != nil && first.object.Checksum() == sum {
		return first.object, true
	}
	if maps := e.others.Load(); maps != nil {
		if object, ok := maps.byChecksum.Load(sum); ok {
			return object.(ChecksumObject), true
		}
	}
	return nil, false
}

func (e *entry) each(visit func(ChecksumObject)) {
	if first := e.first.Load(); first != nil {
		visit(first.object)
	}
	if maps := e.others.Load(); maps != nil {
		maps.byKind.Range(func(_, object any) bool {
			visit(object.(ChecksumObject))
			return true
		})
	}
}

func (e *entry) subCache(parent *TreeNodeCache) *TreeNodeCache {
	if existing := e.subtree.Load(); existing != nil {
		return existing
	}
	e.subtree.CompareAndSwap(nil, parent.child())
	return e.subtree.Load()
}

// adopt links a sub-cache from another scope so that the children of a
// shared node stay resolvable through this entry.
func (e *entry) adopt(subtree *TreeNodeCache) {
	if subtree == nil || e.subtree.CompareAndSwap(nil, subtree) {
		return
	}
	if e.subtree.Load() != subtree {
		e.adopted.CompareAndSwap(nil, subtree)
	}
}

func (e *entry) appendSubtrees(subtrees []*TreeNodeCache) []*TreeNodeCache {
	if subtree := e.subtree.Load(); subtree != nil {
		subtrees = append(subtrees, subtree)
	}
	if adopted := e.adopted.Load(); adopted != nil {
		subtrees = append(subtrees, adopted)
	}
	return subtrees
}
