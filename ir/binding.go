// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import "gopkg.in/src-d/go-errors.v1"

// ErrDuplicateKey is raised when a binding tuple would otherwise gain two
// entries for the same Key (§7 Resolution family).
var ErrDuplicateKey = errors.NewKind("cannot create binding tuple with duplicate key: %v")

// BindingTuple is an ordered mapping from Key to a value of type V. It is
// immutable value-style: With and Merge return a new tuple rather than
// mutating the receiver, so that SchemaEnvironment (BindingTuple[Schema])
// can be cloned cheaply at subquery scope boundaries (§3.5, §9).
type BindingTuple[V any] struct {
	order []Key
	vals  map[Key]V
}

// NewBindingTuple builds an empty binding tuple.
func NewBindingTuple[V any]() *BindingTuple[V] {
	return &BindingTuple[V]{vals: map[Key]V{}}
}

// Len returns the number of bindings.
func (b *BindingTuple[V]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

// Keys returns the bound keys in insertion order.
func (b *BindingTuple[V]) Keys() []Key {
	if b == nil {
		return nil
	}
	out := make([]Key, len(b.order))
	copy(out, b.order)
	return out
}

// Get looks up the value bound to k.
func (b *BindingTuple[V]) Get(k Key) (V, bool) {
	var zero V
	if b == nil {
		return zero, false
	}
	v, ok := b.vals[k]
	return v, ok
}

// NearestScope returns the highest scope <= maxScope at which datasource is
// bound, used by qualified-identifier resolution (§4.3).
func (b *BindingTuple[V]) NearestScope(datasource string, maxScope int) (int, bool) {
	best, found := -1, false
	for _, k := range b.Keys() {
		if k.Datasource == datasource && k.Scope <= maxScope && k.Scope > best {
			best, found = k.Scope, true
		}
	}
	return best, found
}

// With returns a new binding tuple with k bound to v appended. It errors if
// k is already bound (binding tuple keys are unique, §3.1).
func (b *BindingTuple[V]) With(k Key, v V) (*BindingTuple[V], error) {
	clone := b.Clone()
	if _, exists := clone.vals[k]; exists {
		return nil, ErrDuplicateKey.New(k)
	}
	clone.order = append(clone.order, k)
	clone.vals[k] = v
	return clone, nil
}

// Clone returns a deep-enough copy (new order slice and map; values are
// copied by assignment, as with any Go map/slice clone).
func (b *BindingTuple[V]) Clone() *BindingTuple[V] {
	clone := NewBindingTuple[V]()
	if b == nil {
		return clone
	}
	clone.order = append(clone.order, b.order...)
	for k, v := range b.vals {
		clone.vals[k] = v
	}
	return clone
}

// Merge returns a new binding tuple containing every binding of b followed
// by every binding of other. It errors with ErrDuplicateKey if the two
// tuples share a key (used by Join schema merging, §4.2).
func (b *BindingTuple[V]) Merge(other *BindingTuple[V]) (*BindingTuple[V], error) {
	out := b.Clone()
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		var err error
		out, err = out.With(k, v)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Each calls fn for every binding in insertion order.
func (b *BindingTuple[V]) Each(fn func(Key, V)) {
	if b == nil {
		return
	}
	for _, k := range b.order {
		fn(k, b.vals[k])
	}
}
