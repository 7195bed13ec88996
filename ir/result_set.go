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

import "github.com/mongosql/compiler/schema"

// SchemaEnvironment is the immutable binding-tuple-of-schemas threaded
// through inference (§3.5). It is extended by cloning and incrementing
// scope at subquery boundaries, never mutated in place.
type SchemaEnvironment = BindingTuple[schema.Schema]

// ResultSet is the inferred shape of a stage's output: the schema of each
// binding it produces, plus a cardinality range (§3.5, §4.2).
type ResultSet struct {
	SchemaEnv *SchemaEnvironment
	MinSize   uint64
	MaxSize   *uint64 // nil means unbounded
}

// capMax returns the smaller of a and b, treating nil as +Inf.
func capMax(a, b *uint64) *uint64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a < *b:
		return a
	default:
		return b
	}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func satSub(a uint64, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}

func subMax(a *uint64, b uint64) *uint64 {
	if a == nil {
		return nil
	}
	v := satSub(*a, b)
	return &v
}

func u64(v uint64) *uint64 { return &v }
