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

func resultSetOf(t *testing.T, bindings map[ir.Key]schema.Schema) *ir.ResultSet {
	env := ir.NewBindingTuple[schema.Schema]()
	for k, s := range bindings {
		var err error
		env, err = env.With(k, s)
		require.NoError(t, err)
	}
	return &ir.ResultSet{SchemaEnv: env}
}

func TestSubqueryOutputFieldRejectsMultipleDatasources(t *testing.T) {
	rs := resultSetOf(t, map[ir.Key]schema.Schema{
		{Datasource: "a", Scope: 1}: docOf(true, "x"),
		{Datasource: "b", Scope: 1}: docOf(true, "y"),
	})
	_, _, err := subqueryOutputField(rs)
	require.Error(t, err)
	require.True(t, ir.ErrInvalidSubqueryDegree.Is(err))
}

func TestSubqueryOutputFieldRejectsMultipleColumns(t *testing.T) {
	rs := resultSetOf(t, map[ir.Key]schema.Schema{
		{Datasource: "a", Scope: 1}: docOf(true, "x", "y"),
	})
	_, _, err := subqueryOutputField(rs)
	require.Error(t, err)
	require.True(t, ir.ErrInvalidSubqueryDegree.Is(err))
}

func TestSubqueryOutputFieldResolvesSoleColumn(t *testing.T) {
	key := ir.Key{Datasource: "a", Scope: 1}
	rs := resultSetOf(t, map[ir.Key]schema.Schema{key: docOf(true, "total")})

	gotKey, field, err := subqueryOutputField(rs)
	require.NoError(t, err)
	require.Equal(t, key, gotKey)
	require.Equal(t, "total", field)
}
