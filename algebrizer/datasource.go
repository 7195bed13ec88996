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

// AlgebrizeDatasource lowers a FROM-clause operand into an ir.Stage, binding
// its rows under the operand's alias at the current scope (§4.3).
func (a *Algebrizer) AlgebrizeDatasource(ds ast.Datasource) (ir.Stage, *ir.ResultSet, error) {
	switch t := ds.(type) {
	case ast.ArraySource:
		return a.algebrizeArraySource(t)
	case ast.CollectionSource:
		return a.algebrizeCollectionSource(t)
	case ast.JoinSource:
		return a.algebrizeJoinSource(t)
	case ast.DerivedSource:
		return a.algebrizeDerivedSource(t)
	}
	return nil, nil, ErrCannotBeAlgebrized.New("unknown datasource form")
}

// renameBinding wraps src in a Project that re-binds its from key under to;
// used to rename a collection's or derived table's natural binding to its
// FROM-clause alias.
func (a *Algebrizer) renameBinding(src ir.Stage, from, to ir.Key) (ir.Stage, error) {
	expr := ir.NewBindingTuple[ir.Expression]()
	expr, err := expr.With(to, ir.Reference{Key: from})
	if err != nil {
		return nil, err
	}
	return ir.Project{Src: src, Expression: expr}, nil
}

func (a *Algebrizer) algebrizeCollectionSource(c ast.CollectionSource) (ir.Stage, *ir.ResultSet, error) {
	if c.Alias == "" {
		return nil, nil, ErrCollectionMustHaveAlias.New(c.Collection)
	}
	db := c.DB
	if db == "" {
		db = a.CurrentDB
	}
	coll := ir.Collection{DB: db, Collection: c.Collection}
	fromKey := ir.Key{Datasource: c.Collection, Scope: a.Scope}
	toKey := ir.Key{Datasource: c.Alias, Scope: a.Scope}
	proj, err := a.renameBinding(coll, fromKey, toKey)
	if err != nil {
		return nil, nil, err
	}
	rs, err := ir.InferStage(a.state(), proj)
	if err != nil {
		return nil, nil, err
	}
	return proj, rs, nil
}

// isConstantExpr reports whether e can appear as an array-datasource
// element: a literal value, or an array/document built entirely from
// constants, or a unary sign applied to one (§4.3 "array datasources").
func isConstantExpr(e ast.Expression) bool {
	switch t := e.(type) {
	case ast.Literal:
		return true
	case ast.Unary:
		return (t.Op == ast.Pos || t.Op == ast.Neg) && isConstantExpr(t.Expr)
	case ast.ArrayLiteral:
		for _, el := range t.Elements {
			if !isConstantExpr(el) {
				return false
			}
		}
		return true
	case ast.DocumentLiteral:
		for _, v := range t.Values {
			if !isConstantExpr(v) {
				return false
			}
		}
		return true
	}
	return false
}

func (a *Algebrizer) algebrizeArraySource(arr ast.ArraySource) (ir.Stage, *ir.ResultSet, error) {
	elems := make([]ir.Expression, len(arr.Array))
	for i, e := range arr.Array {
		if !isConstantExpr(e) {
			return nil, nil, ErrArrayDatasourceMustBeLiteral.New()
		}
		expr, err := a.AlgebrizeExpression(e)
		if err != nil {
			return nil, nil, err
		}
		elems[i] = expr
	}
	stage := ir.ArrayStage{Elements: elems, Alias: arr.Alias}
	rs, err := ir.InferStage(a.state(), stage)
	if err != nil {
		return nil, nil, err
	}
	return stage, rs, nil
}

// algebrizeDerivedSource algebrizes a subquery used as a FROM-clause
// operand at the enclosing query's own scope (not nested): unlike a scalar
// subquery reached through an expression, a derived table's Stage becomes a
// literal Src of the enclosing Project and is re-walked by ir.InferStage
// under the enclosing scope, so its internal bindings must already use
// that same scope. It is never correlated: algebrization starts from an
// empty schema environment.
func (a *Algebrizer) algebrizeDerivedSource(d ast.DerivedSource) (ir.Stage, *ir.ResultSet, error) {
	if d.Alias == "" {
		return nil, nil, ErrCollectionMustHaveAlias.New("derived table")
	}
	inner := a.withEnv(ir.NewBindingTuple[schema.Schema]())
	stage, rs, err := AlgebrizeQuery(inner, d.Query)
	if err != nil {
		return nil, nil, err
	}
	keys := rs.SchemaEnv.Keys()
	if len(keys) != 1 {
		return nil, nil, ErrDerivedDatasourceOverlappingKeys.New(d.Alias)
	}
	fromKey := keys[0]
	toKey := ir.Key{Datasource: d.Alias, Scope: a.Scope}
	proj, err := a.renameBinding(stage, fromKey, toKey)
	if err != nil {
		return nil, nil, err
	}
	rs2, err := ir.InferStage(a.state(), proj)
	if err != nil {
		return nil, nil, err
	}
	return proj, rs2, nil
}

func joinTypeName(t ast.JoinType) string {
	switch t {
	case ast.LeftJoin:
		return "LEFT"
	case ast.RightJoin:
		return "RIGHT"
	case ast.CrossJoin:
		return "CROSS"
	}
	return "INNER"
}

// algebrizeJoinSource lowers a join. RIGHT JOIN is normalized to LEFT JOIN
// with its operands swapped (§9 open question (b)): IR has no RightJoin
// variant, and swapping operands is semantically equivalent for the
// resulting row set, at the cost of the original left-to-right operand
// order not surviving into IR.
func (a *Algebrizer) algebrizeJoinSource(j ast.JoinSource) (ir.Stage, *ir.ResultSet, error) {
	leftStage, leftRs, err := a.AlgebrizeDatasource(j.Left)
	if err != nil {
		return nil, nil, err
	}
	rightStage, rightRs, err := a.AlgebrizeDatasource(j.Right)
	if err != nil {
		return nil, nil, err
	}

	if (j.JoinType == ast.LeftJoin || j.JoinType == ast.RightJoin) && j.Condition == nil {
		return nil, nil, ErrNoOuterJoinCondition.New(joinTypeName(j.JoinType))
	}

	irJoinType := ir.InnerJoin
	swapped := false
	switch j.JoinType {
	case ast.LeftJoin:
		irJoinType = ir.LeftJoin
	case ast.RightJoin:
		irJoinType = ir.LeftJoin
		swapped = true
	}

	left, right := leftStage, rightStage
	leftEnv, rightEnv := leftRs.SchemaEnv, rightRs.SchemaEnv
	if swapped {
		left, right = rightStage, leftStage
		leftEnv, rightEnv = rightRs.SchemaEnv, leftRs.SchemaEnv
	}

	var cond ir.Expression
	if j.Condition != nil {
		mergedEnv, err := leftEnv.Merge(rightEnv)
		if err != nil {
			return nil, nil, err
		}
		cond, err = a.withEnv(mergedEnv).AlgebrizeExpression(j.Condition)
		if err != nil {
			return nil, nil, err
		}
	}

	stage := ir.Join{JoinType: irJoinType, Left: left, Right: right, Condition: cond}
	rs, err := ir.InferStage(a.state(), stage)
	if err != nil {
		return nil, nil, err
	}
	return stage, rs, nil
}
