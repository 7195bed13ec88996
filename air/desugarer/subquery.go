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

package desugarer

import (
	"fmt"

	"github.com/mongosql/compiler/air"
)

// desugarSubqueries folds every Subquery/SubqueryComparison/SubqueryExists
// expression in s into a preceding Lookup stage plus a replacement
// expression, appending one trailing Project per containing stage that
// drops the Lookup "as" fields it introduced (§4.4). It processes s
// bottom-up: a stage's own child Source is fully desugared (including the
// independent sub-pipelines any Lookup/Union it contains carries) before
// this stage's own subquery expressions are extracted.
func desugarSubqueries(s air.Stage) (air.Stage, error) {
	src, hasSrc := stageSource(s)
	if hasSrc {
		newSrc, err := desugarSubqueries(src)
		if err != nil {
			return nil, err
		}
		s = withStageSource(s, newSrc)
	}

	switch t := s.(type) {
	case air.Lookup:
		pipeline, err := desugarPipeline(t.Pipeline)
		if err != nil {
			return nil, err
		}
		t.Pipeline = pipeline
		s = t
	case air.Union:
		pipeline, err := desugarPipeline(t.Pipeline)
		if err != nil {
			return nil, err
		}
		t.Pipeline = pipeline
		s = t
	}

	// The Lookup chain extraction builds must sit between this stage's own
	// (already-desugared) source and the stage itself, not replace that
	// source outright.
	root, _ := stageSource(s)
	col := &subqueryCollector{lookups: root}
	rewritten := mapStageExprs(s, col.rewrite)
	if col.err != nil {
		return nil, col.err
	}
	if col.counter == 0 {
		return rewritten, nil
	}

	// Prepend the chain of Lookup stages the extraction built, rooted at
	// this stage's original (already-desugared) source.
	rewritten = withStageSource(rewritten, col.lookups)

	items := map[string]air.ProjectItem{}
	for _, name := range col.asNames {
		items[name] = air.Exclusion{}
	}
	if _, isGroup := rewritten.(air.Group); isGroup {
		items["_id"] = air.Inclusion{}
	} else {
		items["_id"] = air.Exclusion{}
	}
	return air.Project{Source: rewritten, Items: items}, nil
}

func desugarPipeline(stages []air.Stage) ([]air.Stage, error) {
	out := make([]air.Stage, len(stages))
	for i, s := range stages {
		d, err := desugarSubqueries(s)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// subqueryCollector accumulates the Lookup chain and as-names for every
// subquery expression found directly within one containing stage's own
// expression fields, via rewrite (passed to mapStageExprs as the post-order
// callback). err records the first failure any of its desugarSubquery*
// methods hit; mapStageExprs has no error-returning callback form, so
// rewrite short-circuits to a no-op once err is set and desugarSubqueries
// checks it after the walk completes.
type subqueryCollector struct {
	counter int
	asNames []string
	lookups air.Stage
	err     error
}

func (c *subqueryCollector) rewrite(e air.Expression) air.Expression {
	if c.err != nil {
		return e
	}
	var out air.Expression
	var err error
	switch t := e.(type) {
	case air.Subquery:
		out, err = c.desugarSubquery(t)
	case air.SubqueryComparison:
		out, err = c.desugarSubqueryComparison(t)
	case air.SubqueryExists:
		out, err = c.desugarSubqueryExists(t)
	default:
		return e
	}
	if err != nil {
		c.err = err
		return e
	}
	return out
}

// process appends a Lookup for one subquery's (db, collection, let, inner
// pipeline), folded onto the lookup chain built so far, and returns the
// "as" name assigned to it.
func (c *subqueryCollector) process(letBody []air.LetVariable, pipeline []air.Stage) string {
	asName := fmt.Sprintf("__subquery_result_%d", c.counter)
	c.counter++
	c.asNames = append(c.asNames, asName)
	c.lookups = air.Lookup{
		Source:   c.lookups,
		From:     "", // set by caller once known; placeholder replaced below
		LetBody:  letVarsToMap(letBody),
		Pipeline: pipeline,
		As:       asName,
	}
	return asName
}

func letVarsToMap(vars []air.LetVariable) map[string]air.Expression {
	if len(vars) == 0 {
		return nil
	}
	out := make(map[string]air.Expression, len(vars))
	for _, v := range vars {
		out[v.Name] = v.Expr
	}
	return out
}

// appendLimitOne ensures a subquery/exists sub-pipeline is capped to its
// first result: only the first row is ever consulted for a scalar subquery
// or an existence check (§4.4). The pipeline list is the flattened form
// codegen produces for a Lookup/Subquery sub-pipeline, where each element is
// itself a fully-formed Stage chain (codegen always produces a single
// terminal Stage per translation, §4.5) — so in practice len(pipeline) == 1
// and this only ever caps that one chain's tail.
func appendLimitOne(pipeline []air.Stage) []air.Stage {
	if len(pipeline) == 0 {
		return []air.Stage{air.Limit{Limit: 1}}
	}
	last := pipeline[len(pipeline)-1]
	if lim, ok := last.(air.Limit); ok && lim.Limit == 1 {
		return pipeline
	}
	out := make([]air.Stage, len(pipeline))
	copy(out, pipeline)
	out[len(out)-1] = air.Limit{Source: last, Limit: 1}
	return out
}

func (c *subqueryCollector) desugarSubquery(sq air.Subquery) (air.Expression, error) {
	inner, err := desugarPipeline(sq.Pipeline)
	if err != nil {
		return nil, err
	}
	pipeline := appendLimitOne(inner)
	asName := c.process(sq.LetBody, pipeline)
	c.setFrom(sq.Collection)

	varName := "docExpr"
	path := varName
	for _, p := range sq.OutputPath {
		path += "." + p
	}
	return air.Let{
		Vars: []air.LetVariable{{
			Name: varName,
			Expr: air.Op{Name: "arrayElemAt", Args: []air.Expression{air.FieldRef{Name: asName}, air.Literal{Value: 0}}},
		}},
		In: air.Variable{Name: path},
	}, nil
}

var subqueryComparisonOpNames = map[air.SubqueryComparisonOp]string{
	air.CmpEq:  "eq",
	air.CmpNeq: "ne",
	air.CmpLt:  "lt",
	air.CmpLte: "lte",
	air.CmpGt:  "gt",
	air.CmpGte: "gte",
}

func (c *subqueryCollector) desugarSubqueryComparison(sc air.SubqueryComparison) (air.Expression, error) {
	inner, err := desugarPipeline(sc.Pipeline)
	if err != nil {
		return nil, err
	}
	asName := c.process(sc.LetBody, inner)
	c.setFrom(sc.Collection)

	initial := air.Expression(air.Literal{Value: false})
	combinator := "or"
	if sc.Modifier == air.SubqueryAll {
		initial = air.Literal{Value: true}
		combinator = "and"
	}
	opName, ok := subqueryComparisonOpNames[sc.Operator]
	if !ok {
		opName = "eq"
	}
	path := "this"
	for _, p := range sc.OutputPath {
		path += "." + p
	}
	return air.Reduce{
		Input:        air.FieldRef{Name: asName},
		InitialValue: initial,
		In: air.Op{Name: combinator, Args: []air.Expression{
			air.Variable{Name: "value"},
			air.Op{Name: opName, Args: []air.Expression{sc.Argument, air.Variable{Name: path}}},
		}},
	}, nil
}

func (c *subqueryCollector) desugarSubqueryExists(se air.SubqueryExists) (air.Expression, error) {
	inner, err := desugarPipeline(se.Pipeline)
	if err != nil {
		return nil, err
	}
	pipeline := appendLimitOne(inner)
	asName := c.process(se.LetBody, pipeline)
	c.setFrom(se.Collection)

	return air.Op{Name: "gt", Args: []air.Expression{
		air.Op{Name: "size", Args: []air.Expression{air.FieldRef{Name: asName}}},
		air.Literal{Value: 0},
	}}, nil
}

// setFrom fills in the From collection on the Lookup just pushed onto the
// chain by process; From isn't known until the caller (which holds the
// subquery's Collection field) runs, so process leaves it blank and this
// patches the top of the chain immediately afterward.
func (c *subqueryCollector) setFrom(collection string) {
	top, ok := c.lookups.(air.Lookup)
	if !ok {
		return
	}
	top.From = collection
	c.lookups = top
}
