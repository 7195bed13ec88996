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

// Package schema implements the structural type lattice used for name
// resolution, type checking and cardinality propagation over the IR.
package schema

// Satisfaction is the three-valued result of a containment question: does a
// schema (or a field within it) definitely, possibly, or never hold.
type Satisfaction int

const (
	// Not means the schema definitely does not satisfy the question asked.
	Not Satisfaction = iota
	// May means the schema might satisfy the question asked.
	May
	// Must means the schema definitely satisfies the question asked.
	Must
)

func (s Satisfaction) String() string {
	switch s {
	case Must:
		return "Must"
	case May:
		return "May"
	default:
		return "Not"
	}
}

// combineBranches folds the per-branch satisfactions of an AnyOf into the
// satisfaction of the whole: Must only if every branch is Must, Not only if
// every branch is Not, May otherwise. An empty branch list (AnyOf([]), the
// element schema of an empty array) satisfies nothing it is asked about.
func combineBranches(branches []Satisfaction) Satisfaction {
	if len(branches) == 0 {
		return Not
	}
	allMust, allNot := true, true
	for _, b := range branches {
		if b != Must {
			allMust = false
		}
		if b != Not {
			allNot = false
		}
	}
	switch {
	case allMust:
		return Must
	case allNot:
		return Not
	default:
		return May
	}
}
