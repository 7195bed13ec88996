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

// subqueryBinaryOps maps the comparison operators valid on the left of
// ANY/ALL (SELECT ...) to the matching ir.ScalarFunction.
var subqueryBinaryOps = map[ast.BinaryOp]ir.ScalarFunction{
	ast.Eq:  ir.Eq,
	ast.Neq: ir.Neq,
	ast.Lt:  ir.Lt,
	ast.Lte: ir.Lte,
	ast.Gt:  ir.Gt,
	ast.Gte: ir.Gte,
}

// algebrizeSubquery lowers a correlated or uncorrelated scalar subquery: the
// subquery's own query is algebrized at scope+1, its final projection must
// bind exactly one datasource whose schema is a one-field document (a
// degree-1 result set, §4.3), and OutputExpr names that sole field so
// codegen can extract it without re-deriving the subquery's schema.
func (a *Algebrizer) algebrizeSubquery(sq ast.Subquery) (ir.SubqueryExpression, error) {
	stage, rs, err := AlgebrizeQuery(a.nested(), sq.Query)
	if err != nil {
		return ir.SubqueryExpression{}, err
	}
	key, fieldName, err := subqueryOutputField(rs)
	if err != nil {
		return ir.SubqueryExpression{}, err
	}
	outputExpr := ir.FieldAccess{Expr: ir.Reference{Key: key}, Field: fieldName}
	return ir.SubqueryExpression{OutputExpr: outputExpr, Subquery: stage}, nil
}

// subqueryOutputField finds the sole field of a subquery's degree-1 result.
func subqueryOutputField(rs *ir.ResultSet) (ir.Key, string, error) {
	keys := rs.SchemaEnv.Keys()
	if len(keys) != 1 {
		return ir.Key{}, "", ir.ErrInvalidSubqueryDegree.New(len(keys), 0)
	}
	s, _ := rs.SchemaEnv.Get(keys[0])
	doc, isDoc := s.(schema.DocumentSchema)
	if !isDoc || len(doc.Keys) != 1 {
		return ir.Key{}, "", ir.ErrInvalidSubqueryDegree.New(1, len(doc.Keys))
	}
	return keys[0], doc.SortedKeys()[0], nil
}

// algebrizeExists lowers EXISTS (SELECT ...): the inner query is algebrized
// at scope+1 with no degree restriction, since only row existence matters.
func (a *Algebrizer) algebrizeExists(e ast.Exists) (ir.Exists, error) {
	stage, _, err := AlgebrizeQuery(a.nested(), e.Query)
	if err != nil {
		return ir.Exists{}, err
	}
	return ir.Exists{Subquery: stage}, nil
}

// algebrizeSubqueryComparison lowers `argument op ANY|ALL (SELECT ...)`.
func (a *Algebrizer) algebrizeSubqueryComparison(sc ast.SubqueryComparison) (ir.Expression, error) {
	arg, err := a.AlgebrizeExpression(sc.Expr)
	if err != nil {
		return nil, err
	}
	op, ok := subqueryBinaryOps[sc.Op]
	if !ok {
		return nil, ErrCannotBeAlgebrized.New("unsupported subquery comparison operator")
	}
	modifier := ir.Any
	if sc.Quantifier == ast.QuantAll {
		modifier = ir.All
	}
	subq, err := a.algebrizeSubquery(ast.Subquery{Query: sc.Query})
	if err != nil {
		return nil, err
	}
	return ir.SubqueryComparison{
		Operator:     op,
		Modifier:     modifier,
		Argument:     arg,
		SubqueryExpr: subq,
	}, nil
}
