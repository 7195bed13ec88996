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

// Package desugarer rewrites the raw Air tree codegen produces into a form
// that only uses operators FlattenPipeline/ExpressionToBSON know how to
// emit: SQL-null-semantics operators (SqlDivide, SqlConvert, Like) are
// lowered to their base MQL equivalents, and subquery expressions (Subquery,
// SubqueryComparison, SubqueryExists) are folded into Lookup stages plus a
// replacement expression (§4.4).
package desugarer

import "github.com/mongosql/compiler/air"

// Desugar runs every pass, in order subquery extraction, match
// null-semantics, then SQL-operator lowering, over s and returns the
// pipeline ready for air.FlattenPipeline (§4.4). Subquery extraction must
// run first: it is the only pass that descends into the Pipeline embedded
// in a Subquery/SubqueryComparison/SubqueryExists expression node (the
// other two passes only ever see stage-shaped pipelines — the live Stage
// tree, and Lookup/Union.Pipeline once subquery extraction has turned
// those embedded pipelines into real Lookup stages). Running match
// null-semantics and SQL-operator lowering afterward, over the whole
// rewritten tree, then reaches every Lookup a subquery produced exactly
// once. Join, Accumulators, and Lookup lowering need no pass of their own:
// codegen already emits Lookup+Unwind and base Mongo accumulators directly
// rather than an intermediate semantic node (§4.5), so there is nothing
// left for those three passes to rewrite.
func Desugar(s air.Stage) (air.Stage, error) {
	s, err := desugarSubqueries(s)
	if err != nil {
		return nil, err
	}
	s = lowerMatchNullSemantics(s)
	s, err = lowerSQLOperators(s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// stageSource extracts the single child Stage a stage threads its pipeline
// through, for the stage kinds that have exactly one. Leaf stages
// (Collection, Documents) and the pre-desugar Join node (never produced by
// this codegen, §4.5) report ok=false.
func stageSource(s air.Stage) (air.Stage, bool) {
	switch t := s.(type) {
	case air.Project:
		return t.Source, true
	case air.ReplaceWith:
		return t.Source, true
	case air.Match:
		return t.Source, true
	case air.Limit:
		return t.Source, true
	case air.Skip:
		return t.Source, true
	case air.Sort:
		return t.Source, true
	case air.Unwind:
		return t.Source, true
	case air.Lookup:
		return t.Source, true
	case air.Group:
		return t.Source, true
	case air.Union:
		return t.Source, true
	}
	return nil, false
}

// withStageSource returns s with its single child stage replaced by src.
func withStageSource(s air.Stage, src air.Stage) air.Stage {
	switch t := s.(type) {
	case air.Project:
		t.Source = src
		return t
	case air.ReplaceWith:
		t.Source = src
		return t
	case air.Match:
		t.Source = src
		return t
	case air.Limit:
		t.Source = src
		return t
	case air.Skip:
		t.Source = src
		return t
	case air.Sort:
		t.Source = src
		return t
	case air.Unwind:
		t.Source = src
		return t
	case air.Lookup:
		t.Source = src
		return t
	case air.Group:
		t.Source = src
		return t
	case air.Union:
		t.Source = src
		return t
	}
	return s
}

// mapStageExprs rewrites only the expressions directly owned by s (not
// descending into its child Stage), applying fn to each via mapExpr.
func mapStageExprs(s air.Stage, fn func(air.Expression) air.Expression) air.Stage {
	switch t := s.(type) {
	case air.Project:
		items := make(map[string]air.ProjectItem, len(t.Items))
		for name, item := range t.Items {
			if a, ok := item.(air.Assignment); ok {
				items[name] = air.Assignment{Expr: mapExpr(a.Expr, fn)}
			} else {
				items[name] = item
			}
		}
		t.Items = items
		return t
	case air.ReplaceWith:
		t.Expr = mapExpr(t.Expr, fn)
		return t
	case air.Match:
		if t.Expr.Expr != nil {
			t.Expr.Expr = mapExpr(t.Expr.Expr, fn)
		}
		return t
	case air.Group:
		t.Keys = mapExpr(t.Keys, fn)
		aggs := make(map[string]air.GroupAccumulator, len(t.Aggregations))
		for name, acc := range t.Aggregations {
			aggs[name] = air.GroupAccumulator{Function: acc.Function, Expr: mapExpr(acc.Expr, fn)}
		}
		t.Aggregations = aggs
		return t
	case air.Lookup:
		if len(t.LetBody) > 0 {
			let := make(map[string]air.Expression, len(t.LetBody))
			for name, e := range t.LetBody {
				let[name] = mapExpr(e, fn)
			}
			t.LetBody = let
		}
		return t
	}
	return s
}

// mapExpr applies fn post-order across e's expression subtree: every
// sub-expression is rewritten first, then fn is applied to the (possibly
// already-rewritten) node itself. Nodes whose only children are embedded
// Stage pipelines (Subquery, SubqueryComparison, SubqueryExists) do not
// descend into those pipelines; desugarSubqueries recurses into them
// independently via desugarPipeline before they are materialized into a
// real Lookup stage that the other passes can reach (§4.4).
func mapExpr(e air.Expression, fn func(air.Expression) air.Expression) air.Expression {
	switch t := e.(type) {
	case air.Literal, air.FieldRef, air.Variable:
		return fn(e)

	case air.Doc:
		fields := make([]air.DocField, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = air.DocField{Key: f.Key, Value: mapExpr(f.Value, fn)}
		}
		return fn(air.Doc{Fields: fields})

	case air.ArrayExpr:
		elems := make([]air.Expression, len(t.Elements))
		for i, el := range t.Elements {
			elems[i] = mapExpr(el, fn)
		}
		return fn(air.ArrayExpr{Elements: elems})

	case air.Op:
		args := make([]air.Expression, len(t.Args))
		for i, a := range t.Args {
			args[i] = mapExpr(a, fn)
		}
		return fn(air.Op{Name: t.Name, Args: args})

	case air.GetField:
		return fn(air.GetField{Field: t.Field, Input: mapExpr(t.Input, fn)})

	case air.SetField:
		return fn(air.SetField{Field: t.Field, Input: mapExpr(t.Input, fn), Value: mapExpr(t.Value, fn)})

	case air.UnsetField:
		return fn(air.UnsetField{Field: t.Field, Input: mapExpr(t.Input, fn)})

	case air.Switch:
		branches := make([]air.SwitchCase, len(t.Branches))
		for i, b := range t.Branches {
			branches[i] = air.SwitchCase{Case: mapExpr(b.Case, fn), Then: mapExpr(b.Then, fn)}
		}
		var def air.Expression
		if t.Default != nil {
			def = mapExpr(t.Default, fn)
		}
		return fn(air.Switch{Branches: branches, Default: def})

	case air.Let:
		vars := make([]air.LetVariable, len(t.Vars))
		for i, v := range t.Vars {
			vars[i] = air.LetVariable{Name: v.Name, Expr: mapExpr(v.Expr, fn)}
		}
		return fn(air.Let{Vars: vars, In: mapExpr(t.In, fn)})

	case air.Convert:
		return fn(air.Convert{Input: mapExpr(t.Input, fn), To: t.To, OnNull: mapExprOpt(t.OnNull, fn), OnError: mapExprOpt(t.OnError, fn)})

	case air.SqlConvert:
		return fn(air.SqlConvert{Input: mapExpr(t.Input, fn), To: t.To, OnNull: mapExprOpt(t.OnNull, fn), OnError: mapExprOpt(t.OnError, fn)})

	case air.Like:
		return fn(air.Like{Input: mapExpr(t.Input, fn), Pattern: mapExpr(t.Pattern, fn), Escape: mapExprOpt(t.Escape, fn)})

	case air.SqlDivide:
		return fn(air.SqlDivide{Dividend: mapExpr(t.Dividend, fn), Divisor: mapExpr(t.Divisor, fn), OnError: mapExprOpt(t.OnError, fn)})

	case air.Reduce:
		return fn(air.Reduce{Input: mapExpr(t.Input, fn), InitialValue: mapExpr(t.InitialValue, fn), In: mapExpr(t.In, fn)})

	case air.Subquery:
		vars := mapLetVars(t.LetBody, fn)
		return fn(air.Subquery{DB: t.DB, Collection: t.Collection, LetBody: vars, Pipeline: t.Pipeline, OutputPath: t.OutputPath})

	case air.SubqueryComparison:
		vars := mapLetVars(t.LetBody, fn)
		return fn(air.SubqueryComparison{
			Operator: t.Operator, Modifier: t.Modifier, Argument: mapExpr(t.Argument, fn),
			DB: t.DB, Collection: t.Collection, LetBody: vars, Pipeline: t.Pipeline, OutputPath: t.OutputPath,
		})

	case air.SubqueryExists:
		vars := mapLetVars(t.LetBody, fn)
		return fn(air.SubqueryExists{DB: t.DB, Collection: t.Collection, LetBody: vars, Pipeline: t.Pipeline})
	}
	return fn(e)
}

func mapExprOpt(e air.Expression, fn func(air.Expression) air.Expression) air.Expression {
	if e == nil {
		return nil
	}
	return mapExpr(e, fn)
}

func mapLetVars(vars []air.LetVariable, fn func(air.Expression) air.Expression) []air.LetVariable {
	if len(vars) == 0 {
		return vars
	}
	out := make([]air.LetVariable, len(vars))
	for i, v := range vars {
		out[i] = air.LetVariable{Name: v.Name, Expr: mapExpr(v.Expr, fn)}
	}
	return out
}
