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

// fakeCatalog is a minimal ir.Catalog backed by a fixed map, for tests that
// only need inferCollection to resolve one or two known collections.
type fakeCatalog map[string]schema.Schema

func (f fakeCatalog) Schema(db, collection string) (schema.Schema, bool) {
	s, ok := f[db+"."+collection]
	return s, ok
}

func docOf(required bool, fields map[string]schema.Schema) schema.Schema {
	reqd := map[string]bool{}
	if required {
		for f := range fields {
			reqd[f] = true
		}
	}
	return schema.NewDocument(fields, reqd, false)
}

func freshState(cat Catalog) SchemaInferenceState {
	return SchemaInferenceState{Env: NewBindingTuple[schema.Schema](), Catalog: cat, Scope: 0}
}

func TestInferCollectionUnknownCollectionErrors(t *testing.T) {
	state := freshState(fakeCatalog{})
	_, err := InferStage(state, Collection{DB: "test", Collection: "orders"})
	require.Error(t, err)
	assert.True(t, ErrUnknownCollection.Is(err))
}

func TestInferCollectionBindsSchemaAtCurrentScope(t *testing.T) {
	docSchema := docOf(true, map[string]schema.Schema{"name": schema.Atomic(schema.String)})
	cat := fakeCatalog{"test.customers": docSchema}
	state := freshState(cat)

	rs, err := InferStage(state, Collection{DB: "test", Collection: "customers"})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rs.MinSize)
	assert.Nil(t, rs.MaxSize)

	bound, ok := rs.SchemaEnv.Get(Key{Datasource: "customers", Scope: 0})
	require.True(t, ok)
	assert.Equal(t, docSchema, bound)
}

func TestInferFilterRejectsNonBoolishCondition(t *testing.T) {
	cat := fakeCatalog{"test.customers": docOf(true, map[string]schema.Schema{"name": schema.Atomic(schema.String)})}
	state := freshState(cat)
	src := Collection{DB: "test", Collection: "customers"}

	cond := FieldAccess{Expr: Reference{Key: Key{Datasource: "customers", Scope: 0}}, Field: "name"}
	_, err := InferStage(state, Filter{Src: src, Condition: cond})
	require.Error(t, err)
	assert.True(t, schema.ErrSchemaChecking.Is(err))
}

func TestInferFilterAcceptsBoolishConditionAndResetsMinSize(t *testing.T) {
	cat := fakeCatalog{"test.customers": docOf(true, map[string]schema.Schema{"active": schema.Atomic(schema.Boolean)})}
	state := freshState(cat)
	src := Collection{DB: "test", Collection: "customers"}

	cond := FieldAccess{Expr: Reference{Key: Key{Datasource: "customers", Scope: 0}}, Field: "active"}
	rs, err := InferStage(state, Filter{Src: src, Condition: cond})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rs.MinSize)
}

// Numeric promotion (§4.2): SUM over a field known only to be Long
// promotes the aggregate's kind to Long, wrapped in AnyOf(_, Null) since
// an empty group produces SQL NULL.
func TestInferGroupSumPromotesNumericKind(t *testing.T) {
	cat := fakeCatalog{"test.orders": docOf(true, map[string]schema.Schema{"total": schema.Atomic(schema.Long)})}
	state := freshState(cat)
	src := Collection{DB: "test", Collection: "orders"}

	sumArg := FieldAccess{Expr: Reference{Key: Key{Datasource: "orders", Scope: 0}}, Field: "total"}
	group := Group{
		Src: src,
		Aggregations: []AliasedAggregation{
			{Alias: "total_sum", Aggregation: Aggregation{Function: Sum, Arg: sumArg}},
		},
	}

	rs, err := InferStage(state, group)
	require.NoError(t, err)

	botDoc, ok := rs.SchemaEnv.Get(BotKey(0))
	require.True(t, ok)
	doc, ok := botDoc.(schema.DocumentSchema)
	require.True(t, ok)

	sumSchema := doc.Keys["total_sum"]
	anyOf, ok := sumSchema.(schema.AnyOfSchema)
	require.True(t, ok)
	require.Len(t, anyOf.Branches, 2)

	var foundLong bool
	for _, b := range anyOf.Branches {
		if a, ok := b.(schema.AtomicSchema); ok && a.Kind == schema.Long {
			foundLong = true
		}
	}
	assert.True(t, foundLong, "expected the promoted Long kind among SUM's branches, got %v", anyOf.Branches)
}

// With no GROUP BY keys, the whole source collapses into exactly one output
// row regardless of the source's own cardinality bounds.
func TestInferGroupWithNoKeysCollapsesToOneRow(t *testing.T) {
	cat := fakeCatalog{"test.orders": docOf(true, map[string]schema.Schema{"total": schema.Atomic(schema.Integer)})}
	state := freshState(cat)
	src := Collection{DB: "test", Collection: "orders"}

	group := Group{
		Src: src,
		Aggregations: []AliasedAggregation{
			{Alias: "n", Aggregation: Aggregation{Function: CountStar}},
		},
	}

	rs, err := InferStage(state, group)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rs.MinSize)
	require.NotNil(t, rs.MaxSize)
	assert.EqualValues(t, 1, *rs.MaxSize)
}

// A GROUP BY with explicit keys bounds MaxSize by the source's own bound but
// leaves MinSize at zero, since every group could in principle be empty.
func TestInferGroupWithKeysBoundsBySource(t *testing.T) {
	cat := fakeCatalog{"test.orders": docOf(true, map[string]schema.Schema{"status": schema.Atomic(schema.String)})}
	state := freshState(cat)
	src := Limit{Src: Collection{DB: "test", Collection: "orders"}, Limit: 10}

	keyExpr := FieldAccess{Expr: Reference{Key: Key{Datasource: "orders", Scope: 0}}, Field: "status"}
	group := Group{Src: src, Keys: []OptionallyAliased{{Alias: "status", Expr: keyExpr}}}

	rs, err := InferStage(state, group)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rs.MinSize)
	require.NotNil(t, rs.MaxSize)
	assert.EqualValues(t, 10, *rs.MaxSize)
}

func TestInferLimitCapsMaxSizeAndMinSize(t *testing.T) {
	cat := fakeCatalog{"test.orders": docOf(true, map[string]schema.Schema{"a": schema.Atomic(schema.Integer)})}
	state := freshState(cat)
	src := Collection{DB: "test", Collection: "orders"}

	rs, err := InferStage(state, Limit{Src: src, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rs.MinSize)
	require.NotNil(t, rs.MaxSize)
	assert.EqualValues(t, 5, *rs.MaxSize)

	rs2, err := InferStage(state, Limit{Src: Limit{Src: src, Limit: 3}, Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, rs2.MaxSize)
	assert.EqualValues(t, 3, *rs2.MaxSize)
}

func TestInferOffsetSubtractsFromBothBounds(t *testing.T) {
	cat := fakeCatalog{"test.orders": docOf(true, map[string]schema.Schema{"a": schema.Atomic(schema.Integer)})}
	state := freshState(cat)
	src := Limit{Src: Collection{DB: "test", Collection: "orders"}, Limit: 5}

	rs, err := InferStage(state, Offset{Src: src, Offset: 2})
	require.NoError(t, err)
	require.NotNil(t, rs.MaxSize)
	assert.EqualValues(t, 3, *rs.MaxSize)

	// Offsetting past the known upper bound saturates at zero rather than
	// underflowing.
	rs2, err := InferStage(state, Offset{Src: src, Offset: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 0, *rs2.MaxSize)
}

// A LEFT JOIN wraps every binding the right side introduces in
// AnyOf(Missing, _), since an unmatched left row still produces output with
// the right side absent.
func TestInferJoinLeftWrapsRightSideNullable(t *testing.T) {
	cat := fakeCatalog{
		"test.customers": docOf(true, map[string]schema.Schema{"_id": schema.Atomic(schema.ObjectId)}),
		"test.orders":    docOf(true, map[string]schema.Schema{"customer_id": schema.Atomic(schema.ObjectId)}),
	}
	state := freshState(cat)
	left := Collection{DB: "test", Collection: "customers"}
	right := Collection{DB: "test", Collection: "orders"}

	join := Join{JoinType: LeftJoin, Left: left, Right: right}
	rs, err := InferStage(state, join)
	require.NoError(t, err)

	rightSchema, ok := rs.SchemaEnv.Get(Key{Datasource: "orders", Scope: 0})
	require.True(t, ok)
	anyOf, ok := rightSchema.(schema.AnyOfSchema)
	require.True(t, ok)

	var sawMissing bool
	for _, b := range anyOf.Branches {
		if _, ok := b.(schema.MissingSchema); ok {
			sawMissing = true
		}
	}
	assert.True(t, sawMissing, "LEFT JOIN must admit Missing on the right side's binding")

	leftSchema, ok := rs.SchemaEnv.Get(Key{Datasource: "customers", Scope: 0})
	require.True(t, ok)
	_, stillDoc := leftSchema.(schema.DocumentSchema)
	assert.True(t, stillDoc, "the left side of a LEFT JOIN is never wrapped nullable")
}

func TestInferJoinRejectsNonBoolishCondition(t *testing.T) {
	cat := fakeCatalog{
		"test.customers": docOf(true, map[string]schema.Schema{"name": schema.Atomic(schema.String)}),
		"test.orders":    docOf(true, map[string]schema.Schema{"status": schema.Atomic(schema.String)}),
	}
	state := freshState(cat)
	left := Collection{DB: "test", Collection: "customers"}
	right := Collection{DB: "test", Collection: "orders"}

	cond := FieldAccess{Expr: Reference{Key: Key{Datasource: "orders", Scope: 0}}, Field: "status"}
	join := Join{JoinType: InnerJoin, Left: left, Right: right, Condition: cond}
	_, err := InferStage(state, join)
	require.Error(t, err)
	assert.True(t, schema.ErrSchemaChecking.Is(err))
}

func TestInferSetRejectsArityMismatch(t *testing.T) {
	cat := fakeCatalog{
		"test.a": docOf(true, map[string]schema.Schema{"x": schema.Atomic(schema.Integer)}),
		"test.b": docOf(true, map[string]schema.Schema{"x": schema.Atomic(schema.Integer)}),
	}
	state := freshState(cat)
	// left binds two datasources (a Join), right binds one: arity mismatch.
	left := Join{JoinType: InnerJoin, Left: Collection{DB: "test", Collection: "a"}, Right: Collection{DB: "test", Collection: "b"}}
	right := Collection{DB: "test", Collection: "b"}

	_, err := InferStage(state, Set{Operation: UnionAll, Left: left, Right: right})
	require.Error(t, err)
	assert.True(t, ErrSetOperandArityMismatch.Is(err))
}

func TestInferSetUnionsCardinality(t *testing.T) {
	cat := fakeCatalog{
		"test.a": docOf(true, map[string]schema.Schema{"x": schema.Atomic(schema.Integer)}),
		"test.b": docOf(true, map[string]schema.Schema{"x": schema.Atomic(schema.Integer)}),
	}
	state := freshState(cat)
	left := Limit{Src: Collection{DB: "test", Collection: "a"}, Limit: 3}
	right := Limit{Src: Collection{DB: "test", Collection: "b"}, Limit: 4}

	rs, err := InferStage(state, Set{Operation: UnionAll, Left: left, Right: right})
	require.NoError(t, err)
	require.NotNil(t, rs.MaxSize)
	assert.EqualValues(t, 7, *rs.MaxSize)
}
