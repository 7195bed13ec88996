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

var unaryOps = map[ast.UnaryOp]ir.ScalarFunction{
	ast.Pos: ir.Pos,
	ast.Neg: ir.Neg,
	ast.Not: ir.Not,
}

// binaryOps maps ast.BinaryOp to the ir.ScalarFunction it lowers to. Div is
// deliberately absent: SQL division has null-on-error semantics the plain
// arithmetic ir.Div does not capture, so Binary{Op: Div} is special-cased in
// AlgebrizeExpression to produce ir.SqlDivide instead (§4.4's
// SQL-null-semantics family).
var binaryOps = map[ast.BinaryOp]ir.ScalarFunction{
	ast.Add:    ir.Add,
	ast.Sub:    ir.Sub,
	ast.Mul:    ir.Mul,
	ast.Eq:     ir.Eq,
	ast.Neq:    ir.Neq,
	ast.Lt:     ir.Lt,
	ast.Lte:    ir.Lte,
	ast.Gt:     ir.Gt,
	ast.Gte:    ir.Gte,
	ast.And:    ir.And,
	ast.Or:     ir.Or,
	ast.Concat: ir.Concat,
}

// AlgebrizeExpression lowers any scalar or subquery ast.Expression into its
// ir.Expression, resolving identifiers against a's schema environment (§4.3).
func (a *Algebrizer) AlgebrizeExpression(e ast.Expression) (ir.Expression, error) {
	switch t := e.(type) {
	case ast.Identifier:
		return a.resolveUnqualified(string(t))

	case ast.Literal:
		return astLiteralToIR(t), nil

	case ast.Unary:
		fn, ok := unaryOps[t.Op]
		if !ok {
			return nil, ErrCannotBeAlgebrized.New("unary operator")
		}
		expr, err := a.AlgebrizeExpression(t.Expr)
		if err != nil {
			return nil, err
		}
		return ir.ScalarFunctionExpr{Function: fn, Args: []ir.Expression{expr}}, nil

	case ast.Binary:
		return a.algebrizeBinary(t)

	case ast.Between:
		return a.algebrizeBetween(t)

	case ast.Case:
		return a.algebrizeCase(t)

	case ast.Function:
		return a.algebrizeScalarFunction(&t)

	case ast.Cast:
		return a.algebrizeCast(&t)

	case ast.ArrayLiteral:
		elems := make([]ir.Expression, len(t.Elements))
		for i, el := range t.Elements {
			expr, err := a.AlgebrizeExpression(el)
			if err != nil {
				return nil, err
			}
			elems[i] = expr
		}
		return ir.Array{Elements: elems}, nil

	case ast.Tuple:
		// Tuples are only meaningful on the left side of a row comparison,
		// which this grammar has no IR representation for; any Tuple that
		// reaches general expression algebrization is out of scope.
		return nil, ErrCannotBeAlgebrized.New("tuple expression")

	case ast.DocumentLiteral:
		return a.algebrizeDocumentLiteral(t)

	case ast.Subquery:
		return a.algebrizeSubquery(t)

	case ast.Exists:
		return a.algebrizeExists(t)

	case ast.SubqueryComparison:
		return a.algebrizeSubqueryComparison(t)

	case ast.Access:
		// Dynamic (computed) field/index access has no static field name
		// for schema inference to key off of.
		return nil, ErrCannotBeAlgebrized.New("dynamic field access")

	case ast.Subpath:
		return a.algebrizeSubpath(t)

	case ast.Is:
		return a.algebrizeIs(t)

	case ast.Like:
		return a.algebrizeLike(t)

	case ast.TypeAssertion:
		expr, err := a.AlgebrizeExpression(t.Expr)
		if err != nil {
			return nil, err
		}
		k, err := toSchemaKind(t.TargetType)
		if err != nil {
			return nil, err
		}
		return ir.TypeAssertion{Expr: expr, Type: k}, nil
	}
	return nil, ErrCannotBeAlgebrized.New("unrecognized expression form")
}

func astLiteralToIR(l ast.Literal) ir.Expression {
	if l.Value == nil {
		return ir.NullLiteral
	}
	return ir.Literal{Value: l.Value, Kind: literalKind(l.Value)}
}

// literalKind maps a parsed literal's Go value to its atomic schema.Kind,
// per the Go types ast.Literal.Value documents it may hold.
func literalKind(v interface{}) schema.Kind {
	switch v.(type) {
	case bool:
		return schema.Boolean
	case string:
		return schema.String
	case int32:
		return schema.Integer
	case int64:
		return schema.Long
	case float64:
		return schema.Double
	}
	return schema.String
}

func (a *Algebrizer) algebrizeBinary(b ast.Binary) (ir.Expression, error) {
	left, err := a.AlgebrizeExpression(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := a.AlgebrizeExpression(b.Right)
	if err != nil {
		return nil, err
	}
	if b.Op == ast.Div {
		return ir.ScalarFunctionExpr{Function: ir.SqlDivide, Args: []ir.Expression{left, right}}, nil
	}
	fn, ok := binaryOps[b.Op]
	if !ok {
		return nil, ErrCannotBeAlgebrized.New("binary operator " + b.Op.String())
	}
	return ir.ScalarFunctionExpr{Function: fn, Args: []ir.Expression{left, right}}, nil
}

// algebrizeBetween lowers `expr BETWEEN min AND max` into
// `expr >= min AND expr <= max` (§4.3); expr is algebrized once and shared
// across both comparisons.
func (a *Algebrizer) algebrizeBetween(b ast.Between) (ir.Expression, error) {
	expr, err := a.AlgebrizeExpression(b.Expr)
	if err != nil {
		return nil, err
	}
	min, err := a.AlgebrizeExpression(b.Min)
	if err != nil {
		return nil, err
	}
	max, err := a.AlgebrizeExpression(b.Max)
	if err != nil {
		return nil, err
	}
	lower := ir.ScalarFunctionExpr{Function: ir.Gte, Args: []ir.Expression{expr, min}}
	upper := ir.ScalarFunctionExpr{Function: ir.Lte, Args: []ir.Expression{expr, max}}
	return ir.ScalarFunctionExpr{Function: ir.And, Args: []ir.Expression{lower, upper}}, nil
}

func (a *Algebrizer) algebrizeWhenBranches(branches []ast.WhenBranch) ([]ir.WhenBranch, error) {
	out := make([]ir.WhenBranch, len(branches))
	for i, b := range branches {
		when, err := a.AlgebrizeExpression(b.When)
		if err != nil {
			return nil, err
		}
		then, err := a.AlgebrizeExpression(b.Then)
		if err != nil {
			return nil, err
		}
		out[i] = ir.WhenBranch{When: when, Then: then}
	}
	return out, nil
}

func (a *Algebrizer) algebrizeCase(c ast.Case) (ir.Expression, error) {
	branches, err := a.algebrizeWhenBranches(c.WhenBranch)
	if err != nil {
		return nil, err
	}
	var elseExpr ir.Expression
	if c.Else != nil {
		elseExpr, err = a.AlgebrizeExpression(c.Else)
		if err != nil {
			return nil, err
		}
	}
	if c.Expr != nil {
		expr, err := a.AlgebrizeExpression(c.Expr)
		if err != nil {
			return nil, err
		}
		return ir.SimpleCase{Expr: expr, Branches: branches, Else: elseExpr}, nil
	}
	return ir.SearchedCase{Branches: branches, Else: elseExpr}, nil
}

func (a *Algebrizer) algebrizeDocumentLiteral(d ast.DocumentLiteral) (ir.Expression, error) {
	seen := map[string]bool{}
	values := make([]ir.Expression, len(d.Values))
	for i, k := range d.Keys {
		if seen[k] {
			return nil, ErrDuplicateDocumentKey.New(k)
		}
		seen[k] = true
		v, err := a.AlgebrizeExpression(d.Values[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return ir.Document{Keys: append([]string(nil), d.Keys...), Values: values}, nil
}

// algebrizeSubpath resolves `expr.subpath`. If expr is a bare identifier
// naming a known datasource, this is the qualified form (§4.3 "Qualified");
// otherwise expr is algebrized on its own and subpath applied as a static
// field access on top of it.
func (a *Algebrizer) algebrizeSubpath(s ast.Subpath) (ir.Expression, error) {
	if id, ok := s.Expr.(ast.Identifier); ok {
		if ref, ok := a.resolveQualified(string(id)); ok {
			return ir.FieldAccess{Expr: ref, Field: s.Subpath}, nil
		}
	}
	inner, err := a.AlgebrizeExpression(s.Expr)
	if err != nil {
		return nil, err
	}
	return ir.FieldAccess{Expr: inner, Field: s.Subpath}, nil
}

func (a *Algebrizer) algebrizeIs(is ast.Is) (ir.Expression, error) {
	expr, err := a.AlgebrizeExpression(is.Expr)
	if err != nil {
		return nil, err
	}
	if is.TargetType.IsMissing {
		return ir.Is{Expr: expr, IsMissing: true}, nil
	}
	k, err := toSchemaKind(is.TargetType.Type)
	if err != nil {
		return nil, err
	}
	return ir.Is{Expr: expr, Target: k}, nil
}

func (a *Algebrizer) algebrizeLike(l ast.Like) (ir.Expression, error) {
	expr, err := a.AlgebrizeExpression(l.Expr)
	if err != nil {
		return nil, err
	}
	pattern, err := a.AlgebrizeExpression(l.Pattern)
	if err != nil {
		return nil, err
	}
	return ir.Like{Expr: expr, Pattern: pattern, Escape: l.Escape}, nil
}
