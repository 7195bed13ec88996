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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mongosql/compiler/ir"
	"github.com/mongosql/compiler/schema"
)

func docOf(required bool, fields ...string) schema.Schema {
	keys := map[string]schema.Schema{}
	reqd := map[string]bool{}
	for _, f := range fields {
		keys[f] = schema.Atomic(schema.String)
		if required {
			reqd[f] = true
		}
	}
	return schema.NewDocument(keys, reqd, false)
}

func bind(t *testing.T, a *Algebrizer, datasource string, scope int, s schema.Schema) *Algebrizer {
	env, err := a.Env.With(ir.Key{Datasource: datasource, Scope: scope}, s)
	require.NoError(t, err)
	return a.withEnv(env)
}

func TestResolveUnqualifiedSingleCandidateResolves(t *testing.T) {
	a := New("test", nil)
	a = bind(t, a, "c", 0, docOf(true, "name"))

	ref, err := a.resolveUnqualified("name")
	require.NoError(t, err)

	fa, ok := ref.(ir.FieldAccess)
	require.True(t, ok)
	require.Equal(t, "name", fa.Field)
	inner, ok := fa.Expr.(ir.Reference)
	require.True(t, ok)
	require.Equal(t, ir.Key{Datasource: "c", Scope: 0}, inner.Key)
}

func TestResolveUnqualifiedFieldNotFoundAnywhere(t *testing.T) {
	a := New("test", nil)
	a = bind(t, a, "c", 0, docOf(true, "name"))

	_, err := a.resolveUnqualified("missing")
	require.Error(t, err)
	require.True(t, ErrFieldNotFound.Is(err))
}

// Two datasources both Must-contain the field in the same scope, with no
// scope able to disambiguate: the outer scope itself carries both hits, so
// walking outward never finds a scope with exactly one Must and zero May.
func TestResolveUnqualifiedAmbiguousAcrossDatasourcesNoScopeResolves(t *testing.T) {
	a := New("test", nil)
	a = bind(t, a, "x1", 0, docOf(true, "f"))
	a = bind(t, a, "x2", 0, docOf(true, "f"))
	a.Scope = 0

	_, err := a.resolveUnqualified("f")
	require.Error(t, err)
	require.True(t, ErrAmbiguousField.Is(err))
}

// The current (innermost) scope has a unique Must hit for the field even
// though an outer scope also binds it; the current scope wins without ever
// consulting the outer one.
func TestResolveUnqualifiedDisambiguatedByCurrentScope(t *testing.T) {
	a := New("test", nil)
	a = bind(t, a, "outer", 0, docOf(true, "x"))
	a = bind(t, a, "inner", 1, docOf(true, "x"))
	a.Scope = 1

	ref, err := a.resolveUnqualified("x")
	require.NoError(t, err)

	fa, ok := ref.(ir.FieldAccess)
	require.True(t, ok)
	inner, ok := fa.Expr.(ir.Reference)
	require.True(t, ok)
	require.Equal(t, ir.Key{Datasource: "inner", Scope: 1}, inner.Key)
}

// The current scope has no binding for the field at all, so resolution
// falls back to the outer scope, where it is unambiguous.
func TestResolveUnqualifiedFallsBackToOuterScope(t *testing.T) {
	a := New("test", nil)
	a = bind(t, a, "outer", 0, docOf(true, "x"))
	a = bind(t, a, "inner", 1, docOf(true, "y"))
	a.Scope = 1

	ref, err := a.resolveUnqualified("x")
	require.NoError(t, err)

	fa, ok := ref.(ir.FieldAccess)
	require.True(t, ok)
	inner, ok := fa.Expr.(ir.Reference)
	require.True(t, ok)
	require.Equal(t, ir.Key{Datasource: "outer", Scope: 0}, inner.Key)
}

// A May-satisfaction hit (e.g. a datasource with additionalProperties, or a
// field present in an AnyOf only some branches carry) sitting alongside a
// Must in the same scope also blocks disambiguation there.
func TestResolveUnqualifiedMayHitBlocksScopeDisambiguation(t *testing.T) {
	a := New("test", nil)
	a = bind(t, a, "c", 0, docOf(true, "f"))
	a = bind(t, a, "loose", 0, schema.NewDocument(nil, nil, true))
	a.Scope = 0

	_, err := a.resolveUnqualified("f")
	require.Error(t, err)
	require.True(t, ErrAmbiguousField.Is(err))
}

func TestResolveQualifiedUsesNearestScope(t *testing.T) {
	a := New("test", nil)
	a = bind(t, a, "c", 0, docOf(true, "name"))

	ref, ok := a.resolveQualified("c")
	require.True(t, ok)
	r, ok := ref.(ir.Reference)
	require.True(t, ok)
	require.Equal(t, ir.Key{Datasource: "c", Scope: 0}, r.Key)
}

func TestResolveQualifiedUnknownDatasource(t *testing.T) {
	a := New("test", nil)

	_, ok := a.resolveQualified("nope")
	require.False(t, ok)
}
