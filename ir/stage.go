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

// Stage is a relational-algebra node (§3.3). Stages and expressions form a
// strict tree: subtrees are moved, not shared, during rewrites (§3.5, §9).
type Stage interface {
	isStage()
	// Source returns the stage's single input stage, or nil for a leaf
	// stage (Collection, Array).
	Source() Stage
}

// Collection is a named catalog collection.
type Collection struct {
	DB         string
	Collection string
}

func (Collection) isStage()     {}
func (Collection) Source() Stage { return nil }

// ArrayStage is a literal array-of-documents datasource.
type ArrayStage struct {
	Elements []Expression
	Alias    string
}

func (ArrayStage) isStage()     {}
func (ArrayStage) Source() Stage { return nil }

// Project replaces the source's binding tuple with new bindings.
type Project struct {
	Src        Stage
	Expression *BindingTuple[Expression]
}

func (Project) isStage()       {}
func (p Project) Source() Stage { return p.Src }

// Filter keeps only rows for which Condition is truthy.
type Filter struct {
	Src       Stage
	Condition Expression
}

func (Filter) isStage()       {}
func (f Filter) Source() Stage { return f.Src }

// OptionallyAliased is a GROUP BY key: an expression with an optional
// explicit alias (empty string means unaliased).
type OptionallyAliased struct {
	Alias string
	Expr  Expression
}

// AggregationFunction enumerates the GROUP BY aggregation functions.
type AggregationFunction int

const (
	AddToArray AggregationFunction = iota
	Avg
	Count
	CountStar
	First
	Last
	Max
	MergeDocuments
	Min
	StddevPop
	StddevSamp
	Sum
)

// Aggregation is one aggregation function application; Arg is nil only for
// CountStar.
type Aggregation struct {
	Function AggregationFunction
	Distinct bool
	Arg      Expression
}

// AliasedAggregation names the result of one aggregation.
type AliasedAggregation struct {
	Alias       string
	Aggregation Aggregation
}

// Group partitions the source by Keys and computes Aggregations per group.
type Group struct {
	Src          Stage
	Keys         []OptionallyAliased
	Aggregations []AliasedAggregation
}

func (Group) isStage()       {}
func (g Group) Source() Stage { return g.Src }

// SortDirection is ascending or descending.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// SortSpecification is one ORDER BY key.
type SortSpecification struct {
	Expr      Expression
	Direction SortDirection
}

// Sort orders the source's rows.
type Sort struct {
	Src   Stage
	Specs []SortSpecification
}

func (Sort) isStage()       {}
func (s Sort) Source() Stage { return s.Src }

// Limit keeps at most N rows.
type Limit struct {
	Src   Stage
	Limit uint64
}

func (Limit) isStage()       {}
func (l Limit) Source() Stage { return l.Src }

// Offset skips the first N rows.
type Offset struct {
	Src    Stage
	Offset uint64
}

func (Offset) isStage()       {}
func (o Offset) Source() Stage { return o.Src }

// JoinType is Inner or Left; Right and Cross are lowered away by the
// algebrizer before IR is built (§4.3, §9 open question (b)).
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

// Join combines two stages; Left requires a non-nil Condition.
type Join struct {
	JoinType  JoinType
	Left      Stage
	Right     Stage
	Condition Expression // nil for Inner joins without an explicit ON
}

func (Join) isStage() {}
func (j Join) Source() Stage {
	// Join has two inputs; Source() returns the left per the single-source
	// Stage contract used by stages that only have one child. Callers that
	// need both operands type-switch on Join directly.
	return j.Left
}

// SetOperation enumerates supported Set stage operations. Only UnionAll is
// representable in IR; plain UNION is rejected by the algebrizer with
// DistinctUnion (§4.3, SPEC_FULL §2).
type SetOperation int

const (
	UnionAll SetOperation = iota
)

// Set combines two stages' rows.
type Set struct {
	Operation SetOperation
	Left      Stage
	Right     Stage
}

func (Set) isStage() {}
func (s Set) Source() Stage {
	return s.Left
}
