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

package algebrizer

import (
	"github.com/mongosql/compiler/ast"
	"github.com/mongosql/compiler/ir"
	"github.com/mongosql/compiler/schema"
)

// Algebrizer carries the context threaded through AST-to-IR lowering: the
// current database (for unqualified collection references), the schema
// environment visible to the node being built, the catalog, and the
// nesting depth (§4.3). It is cloned, never mutated, as lowering descends
// into nested scopes or independent sibling branches.
type Algebrizer struct {
	CurrentDB string
	Env       *ir.SchemaEnvironment
	Catalog   ir.Catalog
	Scope     int
}

// New builds a top-level Algebrizer with an empty schema environment.
func New(currentDB string, catalog ir.Catalog) *Algebrizer {
	return &Algebrizer{
		CurrentDB: currentDB,
		Env:       ir.NewBindingTuple[schema.Schema](),
		Catalog:   catalog,
		Scope:     0,
	}
}

// state builds the ir.SchemaInferenceState matching this algebrizer's
// current position, for calling ir.InferExpression/ir.InferStage.
func (a *Algebrizer) state() ir.SchemaInferenceState {
	return ir.SchemaInferenceState{Env: a.Env, Catalog: a.Catalog, Scope: a.Scope}
}

// withEnv returns a clone of a bound to a different schema environment.
func (a *Algebrizer) withEnv(env *ir.SchemaEnvironment) *Algebrizer {
	clone := *a
	clone.Env = env
	return &clone
}

// nested returns a clone of a one scope deeper, for algebrizing a subquery
// expression: the outer environment stays visible for correlation, but the
// nested algebrizer's own bindings are introduced at scope+1. Derived tables
// do not go through nested; they are algebrized at the enclosing scope.
func (a *Algebrizer) nested() *Algebrizer {
	clone := *a
	clone.Scope = a.Scope + 1
	return &clone
}

// AlgebrizeQuery lowers any top-level query (SELECT or set operation) into
// an IR stage, running schema inference on the final result.
func AlgebrizeQuery(a *Algebrizer, q ast.Query) (ir.Stage, *ir.ResultSet, error) {
	switch t := q.(type) {
	case *ast.SelectQuery:
		return AlgebrizeSelect(a, t)
	case *ast.SetQuery:
		return algebrizeSet(a, t)
	}
	return nil, nil, ErrCannotBeAlgebrized.New("unknown query form")
}

func algebrizeSet(a *Algebrizer, q *ast.SetQuery) (ir.Stage, *ir.ResultSet, error) {
	if q.Op != ast.UnionAll {
		return nil, nil, ErrDistinctUnion.New()
	}
	left, _, err := AlgebrizeQuery(a, q.Left)
	if err != nil {
		return nil, nil, err
	}
	right, _, err := AlgebrizeQuery(a, q.Right)
	if err != nil {
		return nil, nil, err
	}
	stage := ir.Set{Operation: ir.UnionAll, Left: left, Right: right}
	rs, err := ir.InferStage(a.state(), stage)
	if err != nil {
		return nil, nil, err
	}
	return stage, rs, nil
}
