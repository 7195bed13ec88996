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
	"fmt"

	"github.com/mongosql/compiler/ast"
	"github.com/mongosql/compiler/ir"
	"github.com/mongosql/compiler/schema"
)

// AlgebrizeSelect lowers a single SELECT statement, applying clauses in
// their strict evaluation order: FROM, WHERE, GROUP BY, HAVING, SELECT,
// ORDER BY, OFFSET, LIMIT (§4.3). The SELECT list itself always collapses
// into a single Document expression bound at the Bottom key, so that every
// query (at any nesting depth) exposes a uniform degree-1-or-more,
// single-binding result shape to its caller.
func AlgebrizeSelect(a *Algebrizer, sq *ast.SelectQuery) (ir.Stage, *ir.ResultSet, error) {
	if sq.From == nil {
		return nil, nil, ErrNoFromClause.New()
	}
	stage, rs, err := a.AlgebrizeDatasource(sq.From)
	if err != nil {
		return nil, nil, err
	}
	cur := a.withEnv(rs.SchemaEnv)

	if sq.Where != nil {
		cond, err := cur.AlgebrizeExpression(sq.Where)
		if err != nil {
			return nil, nil, err
		}
		stage = ir.Filter{Src: stage, Condition: cond}
		rs, err = ir.InferStage(cur.state(), stage)
		if err != nil {
			return nil, nil, err
		}
		cur = cur.withEnv(rs.SchemaEnv)
	}

	if sq.GroupBy != nil {
		stage, rs, err = algebrizeGroupBy(cur, stage, sq.GroupBy)
		if err != nil {
			return nil, nil, err
		}
		cur = cur.withEnv(rs.SchemaEnv)
	}

	if sq.Having != nil {
		cond, err := cur.AlgebrizeExpression(sq.Having)
		if err != nil {
			return nil, nil, err
		}
		stage = ir.Filter{Src: stage, Condition: cond}
		rs, err = ir.InferStage(cur.state(), stage)
		if err != nil {
			return nil, nil, err
		}
		cur = cur.withEnv(rs.SchemaEnv)
	}

	if sq.Select.Quantifier == ast.QuantifierDistinct {
		return nil, nil, ErrDistinctSelect.New()
	}
	body, ok := sq.Select.Body.(ast.StandardSelectBody)
	if !ok {
		return nil, nil, ErrNonStarStandardSelectBody.New()
	}
	keys, values, err := algebrizeSelectList(cur, body)
	if err != nil {
		return nil, nil, err
	}
	projExpr := ir.NewBindingTuple[ir.Expression]()
	projExpr, err = projExpr.With(ir.BotKey(cur.Scope), ir.Document{Keys: keys, Values: values})
	if err != nil {
		return nil, nil, err
	}
	stage = ir.Project{Src: stage, Expression: projExpr}
	rs, err = ir.InferStage(cur.state(), stage)
	if err != nil {
		return nil, nil, err
	}
	// ORDER BY resolves only against the post-SELECT result (§4.3): the
	// output document is the sole binding visible from here on.
	cur = cur.withEnv(rs.SchemaEnv)

	if sq.OrderBy != nil {
		stage, err = algebrizeOrderBy(cur, stage, sq.OrderBy, keys)
		if err != nil {
			return nil, nil, err
		}
		rs, err = ir.InferStage(cur.state(), stage)
		if err != nil {
			return nil, nil, err
		}
		cur = cur.withEnv(rs.SchemaEnv)
	}

	if sq.Offset != nil {
		stage = ir.Offset{Src: stage, Offset: uint64(*sq.Offset)}
		rs, err = ir.InferStage(cur.state(), stage)
		if err != nil {
			return nil, nil, err
		}
	}

	if sq.Limit != nil {
		stage = ir.Limit{Src: stage, Limit: uint64(*sq.Limit)}
		rs, err = ir.InferStage(cur.state(), stage)
		if err != nil {
			return nil, nil, err
		}
	}

	return stage, rs, nil
}

// algebrizeGroupBy lowers GROUP BY's keys and aggregations list into a
// single ir.Group node.
func algebrizeGroupBy(a *Algebrizer, src ir.Stage, g *ast.GroupByClause) (ir.Stage, *ir.ResultSet, error) {
	keys := make([]ir.OptionallyAliased, len(g.Keys))
	for i, k := range g.Keys {
		expr, err := a.AlgebrizeExpression(k.Expr)
		if err != nil {
			return nil, nil, err
		}
		keys[i] = ir.OptionallyAliased{Alias: k.Alias, Expr: expr}
	}
	aggs := make([]ir.AliasedAggregation, len(g.Aggregations))
	for i, agg := range g.Aggregations {
		aggregation, err := a.algebrizeAggregation(agg.Expr, i+1)
		if err != nil {
			return nil, nil, err
		}
		alias := agg.Alias
		if alias == "" {
			alias = fmt.Sprintf("_agg_%d", i+1)
		}
		aggs[i] = ir.AliasedAggregation{Alias: alias, Aggregation: aggregation}
	}
	stage := ir.Group{Src: src, Keys: keys, Aggregations: aggs}
	rs, err := ir.InferStage(a.state(), stage)
	if err != nil {
		return nil, nil, err
	}
	return stage, rs, nil
}

// outputName picks the implicit output column name for an unaliased SELECT
// expression: the field's own name for a field access (possibly nested,
// taking the last segment), or a positional fallback otherwise (§4.3).
func outputName(e ast.Expression, position int) string {
	switch t := e.(type) {
	case ast.Identifier:
		return string(t)
	case ast.Subpath:
		return t.Subpath
	}
	return fmt.Sprintf("_%d", position)
}

// algebrizeSelectList expands Star/Substar/Aliased select expressions into
// the parallel key/value slices of the final output Document.
func algebrizeSelectList(a *Algebrizer, body ast.StandardSelectBody) ([]string, []ir.Expression, error) {
	var keys []string
	var values []ir.Expression
	seen := map[string]bool{}
	addField := func(name string, expr ir.Expression) error {
		if seen[name] {
			return ErrDuplicateDocumentKey.New(name)
		}
		seen[name] = true
		keys = append(keys, name)
		values = append(values, expr)
		return nil
	}

	for i, se := range body {
		switch t := se.(type) {
		case ast.Star:
			for _, k := range a.Env.Keys() {
				if err := expandDatasourceFields(a, k, addField); err != nil {
					return nil, nil, err
				}
			}
		case ast.Substar:
			key, ok := a.resolveQualified(t.Datasource)
			if !ok {
				return nil, nil, ErrNoSuchDatasource.New(t.Datasource)
			}
			ref := key.(ir.Reference)
			if err := expandDatasourceFields(a, ref.Key, addField); err != nil {
				return nil, nil, err
			}
		case ast.Aliased:
			expr, err := a.AlgebrizeExpression(t.Expr)
			if err != nil {
				return nil, nil, err
			}
			name := t.Alias
			if name == "" {
				name = outputName(t.Expr, i+1)
			}
			if err := addField(name, expr); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, ErrCannotBeAlgebrized.New("unrecognized select-list entry")
		}
	}
	return keys, values, nil
}

// expandDatasourceFields expands all statically-known fields of the
// datasource bound at k into individual FieldAccess entries.
func expandDatasourceFields(a *Algebrizer, k ir.Key, addField func(string, ir.Expression) error) error {
	s, ok := a.Env.Get(k)
	if !ok {
		return ErrNoSuchDatasource.New(k.Datasource)
	}
	names, err := documentFieldNames(s)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := addField(name, ir.FieldAccess{Expr: ir.Reference{Key: k}, Field: name}); err != nil {
			return err
		}
	}
	return nil
}

// documentFieldNames extracts the statically-known field names of a
// datasource's schema for `*`/`alias.*` expansion. Only schemas that are
// provably documents (directly, or a union of documents, whose branches'
// field names are collected together) can be expanded this way.
func documentFieldNames(s schema.Schema) ([]string, error) {
	switch t := s.(type) {
	case schema.DocumentSchema:
		return t.SortedKeys(), nil
	case schema.AnyOfSchema:
		var names []string
		for _, branch := range t.Branches {
			n, err := documentFieldNames(branch)
			if err != nil {
				return nil, err
			}
			names = append(names, n...)
		}
		return dedupeStrings(names), nil
	}
	return nil, ErrCannotBeAlgebrized.New("cannot expand * over a non-document schema")
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// algebrizeOrderBy lowers ORDER BY. A positional key (an ordinal into the
// SELECT list) is rejected: §4.3 resolves ORDER BY only against the
// post-SELECT output document, and the IR's Sort has no ordinal-key form.
func algebrizeOrderBy(a *Algebrizer, src ir.Stage, o *ast.OrderByClause, outputKeys []string) (ir.Stage, error) {
	specs := make([]ir.SortSpecification, len(o.Specs))
	for i, spec := range o.Specs {
		simple, ok := spec.Key.(ast.SimpleSortKey)
		if !ok {
			return nil, ErrPositionalSortKey.New()
		}
		expr, err := a.AlgebrizeExpression(simple.Expr)
		if err != nil {
			return nil, err
		}
		dir := ir.Ascending
		if spec.Direction == ast.Desc {
			dir = ir.Descending
		}
		specs[i] = ir.SortSpecification{Expr: expr, Direction: dir}
	}
	return ir.Sort{Src: src, Specs: specs}, nil
}
