// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"maps"
	"slices"
)

// OptionSet is an immutable string-to-string map of host-wide options.
// It is the value type of the global option asset shared by every
// snapshot.
type OptionSet struct {
	values map[string]string
}

// NewOptionSet copies values into a new OptionSet.
func NewOptionSet(values map[string]string) *OptionSet {
	return &OptionSet{values: maps.Clone(values)}
}

// Get returns the value for key.
func (o *OptionSet) Get(key string) (string, bool) {
	value, ok := o.values[key]
	return value, ok
}

// With returns a copy of o with key set to value.
func (o *OptionSet) With(key, value string) *OptionSet {
	values := maps.Clone(o.values)
	if values == nil {
		values = make(map[string]string, 1)
	}
	values[key] = value
	return &OptionSet{values: values}
}

// Keys returns the keys in sorted order.
func (o *OptionSet) Keys() []string {
	return slices.Sorted(maps.Keys(o.values))
}

// Len returns the number of options.
func (o *OptionSet) Len() int {
	return len(o.values)
}

// Equal reports whether two option sets hold the same entries.
func (o *OptionSet) Equal(other *OptionSet) bool {
	return maps.Equal(o.values, other.values)
}
