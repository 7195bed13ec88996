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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongosql/compiler/schema"
)

func TestInferExpressionLiteral(t *testing.T) {
	state := freshState(fakeCatalog{})
	s, err := InferExpression(state, Literal{Value: "hi", Kind: schema.String})
	require.NoError(t, err)
	assert.Equal(t, schema.Atomic(schema.String), s)
}

func TestInferExpressionReferenceUnknownKeyErrors(t *testing.T) {
	state := freshState(fakeCatalog{})
	_, err := InferExpression(state, Reference{Key: Key{Datasource: "nope", Scope: 0}})
	require.Error(t, err)
	assert.True(t, ErrDatasourceNotFoundInSchemaEnv.Is(err))
}

func bindScalar(t *testing.T, state SchemaInferenceState, k Key, s schema.Schema) SchemaInferenceState {
	env, err := state.Env.With(k, s)
	require.NoError(t, err)
	return state.WithEnv(env)
}

// Must-satisfaction: a field always present and required resolves to its
// own schema, with no Missing admitted.
func TestInferFieldAccessMustSatisfactionOmitsMissing(t *testing.T) {
	state := freshState(fakeCatalog{})
	doc := docOf(true, map[string]schema.Schema{"name": schema.Atomic(schema.String)})
	state = bindScalar(t, state, Key{Datasource: "c", Scope: 0}, doc)

	fa := FieldAccess{Expr: Reference{Key: Key{Datasource: "c", Scope: 0}}, Field: "name"}
	s, err := InferExpression(state, fa)
	require.NoError(t, err)
	assert.Equal(t, schema.Atomic(schema.String), s)
}

// May-satisfaction: an optional key's access schema admits Missing alongside
// its declared schema.
func TestInferFieldAccessMaySatisfactionAddsMissing(t *testing.T) {
	state := freshState(fakeCatalog{})
	doc := docOf(false, map[string]schema.Schema{"nickname": schema.Atomic(schema.String)})
	state = bindScalar(t, state, Key{Datasource: "c", Scope: 0}, doc)

	fa := FieldAccess{Expr: Reference{Key: Key{Datasource: "c", Scope: 0}}, Field: "nickname"}
	s, err := InferExpression(state, fa)
	require.NoError(t, err)

	anyOf, ok := s.(schema.AnyOfSchema)
	require.True(t, ok)
	var sawMissing bool
	for _, b := range anyOf.Branches {
		if _, ok := b.(schema.MissingSchema); ok {
			sawMissing = true
		}
	}
	assert.True(t, sawMissing)
}

// Not-satisfaction: accessing a field the schema rules out entirely errors.
func TestInferFieldAccessNotSatisfactionErrors(t *testing.T) {
	state := freshState(fakeCatalog{})
	doc := docOf(true, map[string]schema.Schema{"name": schema.Atomic(schema.String)})
	state = bindScalar(t, state, Key{Datasource: "c", Scope: 0}, doc)

	fa := FieldAccess{Expr: Reference{Key: Key{Datasource: "c", Scope: 0}}, Field: "age"}
	_, err := InferExpression(state, fa)
	require.Error(t, err)
	assert.True(t, ErrAccessMissingField.Is(err))
}

// Integer + Long promotes to Long (§4.2's promotion ladder).
func TestInferArithmeticPromotesNumericKind(t *testing.T) {
	state := freshState(fakeCatalog{})
	add := ScalarFunctionExpr{
		Function: Add,
		Args:     []Expression{Literal{Value: 1, Kind: schema.Integer}, Literal{Value: int64(2), Kind: schema.Long}},
	}
	s, err := InferExpression(state, add)
	require.NoError(t, err)
	assert.Equal(t, schema.Atomic(schema.Long), s)
}

// A Must-nullish (Null literal) operand forces the whole arithmetic result
// to plain Null.
func TestInferArithmeticMustNullishForcesNull(t *testing.T) {
	state := freshState(fakeCatalog{})
	add := ScalarFunctionExpr{
		Function: Add,
		Args:     []Expression{Literal{Value: 1, Kind: schema.Integer}, Literal{Value: nil, Kind: schema.Null}},
	}
	s, err := InferExpression(state, add)
	require.NoError(t, err)
	assert.Equal(t, schema.Atomic(schema.Null), s, "one Must-nullish argument forces the arithmetic result to plain Null")
}

func TestInferArithmeticRejectsNonNumericArg(t *testing.T) {
	state := freshState(fakeCatalog{})
	add := ScalarFunctionExpr{
		Function: Add,
		Args:     []Expression{Literal{Value: "a", Kind: schema.String}, Literal{Value: 1, Kind: schema.Integer}},
	}
	_, err := InferExpression(state, add)
	require.Error(t, err)
	assert.True(t, schema.ErrSchemaChecking.Is(err))
}

// A document-valued operand is outside the comparable-kinds union entirely
// (documents and arrays are never comparable, regardless of the other
// operand's type).
func TestInferComparisonRejectsIncomparableOperands(t *testing.T) {
	state := freshState(fakeCatalog{})
	doc := Document{Keys: []string{"a"}, Values: []Expression{Literal{Value: 1, Kind: schema.Integer}}}
	eq := ScalarFunctionExpr{
		Function: Eq,
		Args:     []Expression{Literal{Value: 1, Kind: schema.Integer}, doc},
	}
	_, err := InferExpression(state, eq)
	require.Error(t, err)
	assert.True(t, schema.ErrInvalidComparison.Is(err))
}

// CAST's result schema admits the ON NULL branch only when the source may
// be nullish, and the ON ERROR branch unless the source is statically known
// to already satisfy the target kind.
func TestInferCastOmitsOnErrorBranchWhenSourceAlreadyTarget(t *testing.T) {
	state := freshState(fakeCatalog{})
	cast := Cast{
		Expr:    Literal{Value: "already", Kind: schema.String},
		To:      schema.String,
		OnNull:  NullLiteral,
		OnError: Literal{Value: "fallback", Kind: schema.String},
	}
	s, err := InferExpression(state, cast)
	require.NoError(t, err)
	// The source is a non-nullish String literal already matching the
	// target, so neither ON NULL nor ON ERROR contributes a branch.
	assert.Equal(t, schema.Atomic(schema.String), s)
}

func TestInferCastIncludesBothBranchesForNullableNonMatchingSource(t *testing.T) {
	state := freshState(fakeCatalog{})
	doc := docOf(false, map[string]schema.Schema{"raw": schema.Atomic(schema.String)})
	state = bindScalar(t, state, Key{Datasource: "c", Scope: 0}, doc)

	cast := Cast{
		Expr:    FieldAccess{Expr: Reference{Key: Key{Datasource: "c", Scope: 0}}, Field: "raw"},
		To:      schema.Integer,
		OnNull:  Literal{Value: true, Kind: schema.Boolean},
		OnError: Literal{Value: "err", Kind: schema.String},
	}
	s, err := InferExpression(state, cast)
	require.NoError(t, err)

	anyOf, ok := s.(schema.AnyOfSchema)
	require.True(t, ok)
	// Integer target, plus the ON NULL branch (source may be Missing), plus
	// the ON ERROR branch (String never Must-satisfies Integer) — three
	// distinct kinds, so none collapse by dedup.
	require.Len(t, anyOf.Branches, 3)
	var kinds []schema.Kind
	for _, b := range anyOf.Branches {
		if a, ok := b.(schema.AtomicSchema); ok {
			kinds = append(kinds, a.Kind)
		}
	}
	assert.Contains(t, kinds, schema.Integer)
	assert.Contains(t, kinds, schema.Boolean)
	assert.Contains(t, kinds, schema.String)
}

func TestInferTypeAssertionErrorsOnImpossibleNarrowing(t *testing.T) {
	state := freshState(fakeCatalog{})
	ta := TypeAssertion{Expr: Literal{Value: "x", Kind: schema.String}, Type: schema.Integer}
	_, err := InferExpression(state, ta)
	require.Error(t, err)
	assert.True(t, ErrEmptyTypeIntersection.Is(err))
}

func TestInferDocumentRejectsDuplicateKeys(t *testing.T) {
	state := freshState(fakeCatalog{})
	doc := Document{
		Keys:   []string{"a", "a"},
		Values: []Expression{Literal{Value: 1, Kind: schema.Integer}, Literal{Value: 2, Kind: schema.Integer}},
	}
	_, err := InferExpression(state, doc)
	require.Error(t, err)
	assert.True(t, ErrDuplicateDocumentKey.Is(err))
}

// A subquery whose stage binds more than one datasource violates the
// exactly-one-column degree requirement for a scalar subquery.
func TestInferSubqueryExpressionRejectsMultiDatasourceDegree(t *testing.T) {
	cat := fakeCatalog{
		"test.a": docOf(true, map[string]schema.Schema{"x": schema.Atomic(schema.Integer)}),
		"test.b": docOf(true, map[string]schema.Schema{"y": schema.Atomic(schema.Integer)}),
	}
	state := freshState(cat)
	inner := Join{JoinType: InnerJoin, Left: Collection{DB: "test", Collection: "a"}, Right: Collection{DB: "test", Collection: "b"}}

	se := SubqueryExpression{Subquery: inner}
	_, err := InferExpression(state, se)
	require.Error(t, err)
	assert.True(t, ErrInvalidSubqueryDegree.Is(err))
}

// A subquery whose single datasource binding has more than one column also
// violates the degree requirement.
func TestInferSubqueryExpressionRejectsMultiColumnDegree(t *testing.T) {
	cat := fakeCatalog{
		"test.a": docOf(true, map[string]schema.Schema{"x": schema.Atomic(schema.Integer), "y": schema.Atomic(schema.Integer)}),
	}
	state := freshState(cat)
	inner := Collection{DB: "test", Collection: "a"}

	se := SubqueryExpression{Subquery: inner}
	_, err := InferExpression(state, se)
	require.Error(t, err)
	assert.True(t, ErrInvalidSubqueryDegree.Is(err))
}

// A subquery capped to at most one row by an outer Limit satisfies
// cardinality and resolves to AnyOf(field schema, Missing) for the
// zero-rows case.
func TestInferSubqueryExpressionResolvesSingleRowSingleColumn(t *testing.T) {
	cat := fakeCatalog{
		"test.a": docOf(true, map[string]schema.Schema{"x": schema.Atomic(schema.Integer)}),
	}
	state := freshState(cat)
	inner := Limit{Src: Collection{DB: "test", Collection: "a"}, Limit: 1}

	se := SubqueryExpression{Subquery: inner}
	s, err := InferExpression(state, se)
	require.NoError(t, err)

	anyOf, ok := s.(schema.AnyOfSchema)
	require.True(t, ok)
	var sawMissing, sawInt bool
	for _, b := range anyOf.Branches {
		switch v := b.(type) {
		case schema.MissingSchema:
			sawMissing = true
		case schema.AtomicSchema:
			if v.Kind == schema.Integer {
				sawInt = true
			}
		}
	}
	assert.True(t, sawMissing)
	assert.True(t, sawInt)
}

// A subquery whose statically known upper bound exceeds one row (here
// Limit 2) violates the scalar subquery's cardinality requirement even when
// its degree is fine.
func TestInferSubqueryExpressionRejectsStaticallyKnownMultiRow(t *testing.T) {
	cat := fakeCatalog{
		"test.a": docOf(true, map[string]schema.Schema{"x": schema.Atomic(schema.Integer)}),
	}
	state := freshState(cat)
	inner := Limit{Src: Collection{DB: "test", Collection: "a"}, Limit: 2}

	se := SubqueryExpression{Subquery: inner}
	_, err := InferExpression(state, se)
	require.Error(t, err)
	assert.True(t, ErrInvalidSubqueryCardinality.Is(err))
}

func TestInferExistsAlwaysReturnsBoolean(t *testing.T) {
	state := freshState(fakeCatalog{})
	inner := Collection{DB: "test", Collection: "a"}
	s, err := InferExpression(state, Exists{Subquery: inner})
	require.NoError(t, err)
	assert.Equal(t, schema.Atomic(schema.Boolean), s)
}

func TestInferLikeRequiresSubExpressionsToInfer(t *testing.T) {
	state := freshState(fakeCatalog{})
	like := Like{Expr: Literal{Value: "abc", Kind: schema.String}, Pattern: Literal{Value: "a%", Kind: schema.String}}
	s, err := InferExpression(state, like)
	require.NoError(t, err)
	assert.Equal(t, schema.Atomic(schema.Boolean), s)
}
