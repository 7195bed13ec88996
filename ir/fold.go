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

import "github.com/mongosql/compiler/schema"

// FoldExpression performs a bottom-up constant fold over expr: literal
// AND/OR/NOT applications collapse to their literal result, and a searched
// CASE whose WHEN is a literal boolean drops the branches that literal
// proves dead. Folding can change the expression's inferred schema: dropped
// branches no longer contribute to it, and a CASE cut short at a literal
// WHEN true loses its ELSE, which inference then counts as an implicit NULL.
// It removes work the codegen stage would otherwise have to emit (§2 fold).
func FoldExpression(expr Expression) Expression {
	switch e := expr.(type) {
	case ScalarFunctionExpr:
		args := make([]Expression, len(e.Args))
		for i, a := range e.Args {
			args[i] = FoldExpression(a)
		}
		folded := ScalarFunctionExpr{Function: e.Function, Args: args}
		return foldScalarFunction(folded)

	case SimpleCase:
		return foldCase(FoldExpression(e.Expr), e.Branches, e.Else, true)

	case SearchedCase:
		return foldCase(nil, e.Branches, e.Else, false)

	case Cast:
		return Cast{Expr: FoldExpression(e.Expr), To: e.To, OnNull: FoldExpression(e.OnNull), OnError: FoldExpression(e.OnError)}

	case Array:
		elems := make([]Expression, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = FoldExpression(el)
		}
		return Array{Elements: elems}

	case Document:
		vals := make([]Expression, len(e.Values))
		for i, v := range e.Values {
			vals[i] = FoldExpression(v)
		}
		return Document{Keys: e.Keys, Values: vals}

	case FieldAccess:
		return FieldAccess{Expr: FoldExpression(e.Expr), Field: e.Field}

	default:
		return expr
	}
}

func foldScalarFunction(e ScalarFunctionExpr) Expression {
	switch e.Function {
	case Not:
		if lit, ok := boolLiteral(e.Args[0]); ok {
			return boolExpr(!lit)
		}
	case And:
		allTrue := true
		for _, a := range e.Args {
			if lit, ok := boolLiteral(a); ok {
				if !lit {
					return boolExpr(false)
				}
			} else {
				allTrue = false
			}
		}
		if allTrue {
			return boolExpr(true)
		}
	case Or:
		allFalse := true
		for _, a := range e.Args {
			if lit, ok := boolLiteral(a); ok {
				if lit {
					return boolExpr(true)
				}
			} else {
				allFalse = false
			}
		}
		if allFalse {
			return boolExpr(false)
		}
	}
	return e
}

// foldCase drops WHEN branches a literal condition proves can never match.
// Only searched CASE branches (simple false) are dropped; when simple is
// true, every branch is kept, with its When and Then folded.
func foldCase(caseExpr Expression, branches []WhenBranch, elseExpr Expression, simple bool) Expression {
	folded := make([]WhenBranch, 0, len(branches))
	for _, b := range branches {
		when := FoldExpression(b.When)
		then := FoldExpression(b.Then)
		if !simple {
			if lit, ok := boolLiteral(when); ok {
				if !lit {
					continue // WHEN false is never taken
				}
				// WHEN true short-circuits every later branch and the ELSE.
				folded = append(folded, WhenBranch{When: when, Then: then})
				return rebuildCase(caseExpr, folded, nil, simple)
			}
		}
		folded = append(folded, WhenBranch{When: when, Then: then})
	}
	var foldedElse Expression
	if elseExpr != nil {
		foldedElse = FoldExpression(elseExpr)
	}
	if caseExpr != nil {
		caseExpr = FoldExpression(caseExpr)
	}
	return rebuildCase(caseExpr, folded, foldedElse, simple)
}

func rebuildCase(caseExpr Expression, branches []WhenBranch, elseExpr Expression, simple bool) Expression {
	if simple {
		return SimpleCase{Expr: caseExpr, Branches: branches, Else: elseExpr}
	}
	return SearchedCase{Branches: branches, Else: elseExpr}
}

func boolLiteral(e Expression) (bool, bool) {
	lit, ok := e.(Literal)
	if !ok || lit.Kind != schema.Boolean {
		return false, false
	}
	b, ok := lit.Value.(bool)
	return b, ok
}

func boolExpr(b bool) Expression {
	return Literal{Kind: schema.Boolean, Value: b}
}
