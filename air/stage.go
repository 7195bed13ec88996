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

// Package air is the executor-shaped tree that sits between the relational
// ir and the emitted aggregation pipeline: one Stage per pipeline stage
// the target database actually executes, one Expression per operator it
// actually evaluates (§3.4).
package air

import "go.mongodb.org/mongo-driver/bson"

// Stage is one node of the executor-shaped pipeline tree. Unlike ir.Stage,
// Air stages do not share one input shape: Collection and Documents have no
// Source, Join carries only a nested Pipeline, and Lookup and Union carry a
// nested Pipeline beside their Source, so there is no shared Source() accessor.
type Stage interface {
	isStage()
}

// Documents is a literal array-of-documents datasource, emitted for an IR
// ArrayStage.
type Documents struct {
	Docs []bson.D
}

func (Documents) isStage() {}

// ProjectItem is one field's treatment within a Project stage.
type ProjectItem interface {
	isProjectItem()
}

// Inclusion keeps the field unchanged (`1`).
type Inclusion struct{}

func (Inclusion) isProjectItem() {}

// Exclusion drops the field (`0`).
type Exclusion struct{}

func (Exclusion) isProjectItem() {}

// Assignment computes the field's new value from Expr.
type Assignment struct {
	Expr Expression
}

func (Assignment) isProjectItem() {}

// Project is `$project`, keyed by dotted field path.
type Project struct {
	Source Stage
	Items  map[string]ProjectItem
}

func (Project) isStage() {}

// ReplaceWith is `$replaceWith`, replacing the whole document.
type ReplaceWith struct {
	Source Stage
	Expr   Expression
}

func (ReplaceWith) isStage() {}

// MatchExpression is either a raw predicate document or an `$expr`-wrapped
// Air expression; exactly one of the two fields is non-nil/non-empty.
type MatchExpression struct {
	Predicate bson.D
	Expr      Expression
}

// Match is `$match`.
type Match struct {
	Source Stage
	Expr   MatchExpression
}

func (Match) isStage() {}

// Limit is `$limit`.
type Limit struct {
	Source Stage
	Limit  int64
}

func (Limit) isStage() {}

// Skip is `$skip`.
type Skip struct {
	Source Stage
	Skip   int64
}

func (Skip) isStage() {}

// Sort is `$sort`; Specs maps field path to +1 (ascending) or -1
// (descending), preserving key order.
type Sort struct {
	Source Stage
	Specs  []SortField
}

func (Sort) isStage() {}

// SortField is one field in a Sort's key order.
type SortField struct {
	Field     string
	Direction int // +1 or -1
}

// Unwind is `$unwind`.
type Unwind struct {
	Source                    Stage
	Path                      string
	IncludeArrayIndex         string // empty means omit
	PreserveNullAndEmptyArrays bool
}

func (Unwind) isStage() {}

// JoinType mirrors ir.JoinType at the Air level.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

// Join is a SQL join expressed as a single semantic node: a $lookup against
// Right's source collection (or a correlated sub-pipeline) followed by an
// $unwind, optionally preserving unmatched rows for LEFT joins. codegen
// never constructs one directly — it emits the equivalent Lookup+Unwind
// pair itself (§4.3) — so this type is kept only as the Air grammar's
// documented join shape (§3.4) for any future codegen path that prefers to
// emit the semantic node and desugar it later.
type Join struct {
	Database   string
	Collection string
	LetBody    map[string]Expression
	JoinType   JoinType
	Pipeline   []Stage
	Condition  Expression
}

func (Join) isStage() {}

// Lookup is `$lookup` with a sub-pipeline (the general correlated form).
type Lookup struct {
	Source  Stage
	From    string
	LetBody map[string]Expression
	Pipeline []Stage
	As      string
}

func (Lookup) isStage() {}

// GroupAccumulator is one named accumulator expression within a Group stage.
type GroupAccumulator struct {
	Function string // base MQL accumulator operator, e.g. "$sum", "$avg"
	Expr     Expression
}

// Group is `$group`.
type Group struct {
	Source       Stage
	Keys         Expression // the _id expression (often a Document)
	Aggregations map[string]GroupAccumulator
}

func (Group) isStage() {}

// Union is `$unionWith`: Source's pipeline continues, with From's collection
// (run through its own independently-translated Pipeline) appended beneath
// it. It codegens ir.Set{Operation: UnionAll}, which has no other Air
// representation.
type Union struct {
	Source   Stage
	From     string
	Pipeline []Stage
}

func (Union) isStage() {}

// Collection is the pipeline's entry point against a named collection; it
// is not itself an aggregation stage but the (db, collection) a pipeline
// runs against, alongside the $project that binds $$ROOT under an alias.
type Collection struct {
	DB         string
	Collection string
}

func (Collection) isStage() {}
