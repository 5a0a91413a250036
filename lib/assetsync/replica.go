// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetsync

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
)

// Replica is a local store of verified objects keyed by checksum. It is
// safe for concurrent use. Objects are never replaced: the content of a
// checksum cannot change.
type Replica struct {
	mu      sync.RWMutex
	objects map[checksum.Checksum]serialization.Object
}

// NewReplica returns an empty replica.
func NewReplica() *Replica {
	return &Replica{objects: make(map[checksum.Checksum]serialization.Object)}
}

// Put stores object and reports whether it was new. A duplicate is
// closed if it holds resources.
func (r *Replica) Put(object serialization.Object) bool {
	r.mu.Lock()
	_, exists := r.objects[object.Checksum]
	if !exists {
		r.objects[object.Checksum] = object
	}
	r.mu.Unlock()
	if exists {
		closeObjects([]serialization.Object{object})
	}
	return !exists
}

// Get returns the object stored for sum.
func (r *Replica) Get(sum checksum.Checksum) (serialization.Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	object, ok := r.objects[sum]
	return object, ok
}

// Has reports whether sum is stored.
func (r *Replica) Has(sum checksum.Checksum) bool {
	_, ok := r.Get(sum)
	return ok
}

// Len returns the number of stored objects.
func (r *Replica) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Close releases every stored object that holds resources (metadata
// images attached to temporary storage) and empties the replica.
func (r *Replica) Close() error {
	r.mu.Lock()
	objects := r.objects
	r.objects = make(map[checksum.Checksum]serialization.Object)
	r.mu.Unlock()

	var errs []error
	for _, object := range objects {
		if closer, ok := object.Value.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s %s: %w", object.Kind, object.Checksum.Short(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the value stored for sum, which must be of kind and
// decode to T.
func Lookup[T any](r *Replica, sum checksum.Checksum, kind checksum.Kind) (T, error) {
	var zero T
	object, ok := r.Get(sum)
	if !ok {
		return zero, fmt.Errorf("%w: %s %s", ErrMissingObject, kind, sum.Short())
	}
	if object.Kind != kind {
		return zero, fmt.Errorf("replica object %s is a %s, expected %s", sum.Short(), object.Kind, kind)
	}
	value, ok := object.Value.(T)
	if !ok {
		return zero, fmt.Errorf("replica %s %s holds %T", kind, sum.Short(), object.Value)
	}
	return value, nil
}
