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

package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongosql/compiler/air"
	"github.com/mongosql/compiler/ir"
)

func TestCodegenCollectionBindsRootDocument(t *testing.T) {
	coll := ir.Collection{DB: "test", Collection: "items"}

	tr, err := CodegenStage(coll)
	require.NoError(t, err)

	assert.Equal(t, "test", tr.DB)
	assert.Equal(t, "items", tr.Collection)

	key := ir.Key{Datasource: "items", Scope: 0}
	assert.Equal(t, "items", tr.Mapping[key])

	proj, ok := tr.Pipeline.(air.Project)
	require.True(t, ok)
	assert.Equal(t, air.Exclusion{}, proj.Items["_id"])
	assert.Equal(t, air.Assignment{Expr: air.Variable{Name: "ROOT"}}, proj.Items["items"])
}

func TestCodegenProjectBareRenameCostsNoStage(t *testing.T) {
	coll := ir.Collection{DB: "test", Collection: "items"}
	collKey := ir.Key{Datasource: "items", Scope: 0}
	outKey := ir.Key{Datasource: "i", Scope: 0}

	expr := ir.NewBindingTuple[ir.Expression]()
	expr, err := expr.With(outKey, ir.Reference{Key: collKey})
	require.NoError(t, err)

	p := ir.Project{Src: coll, Expression: expr}

	tr, err := CodegenStage(p)
	require.NoError(t, err)

	// A pure rename only updates the mapping registry; the Pipeline is
	// still the Collection's own $project, with no extra stage wrapped
	// around it.
	proj, ok := tr.Pipeline.(air.Project)
	require.True(t, ok)
	assert.Equal(t, air.Assignment{Expr: air.Variable{Name: "ROOT"}}, proj.Items["items"])
	assert.Equal(t, "items", tr.Mapping[outKey])
}

func TestCodegenFilterWrapsExprMatch(t *testing.T) {
	coll := ir.Collection{DB: "test", Collection: "items"}
	collKey := ir.Key{Datasource: "items", Scope: 0}

	cond := ir.ScalarFunctionExpr{
		Function: ir.Eq,
		Args:     []ir.Expression{ir.Reference{Key: collKey}, ir.Literal{Value: int32(1)}},
	}
	f := ir.Filter{Src: coll, Condition: cond}

	tr, err := CodegenStage(f)
	require.NoError(t, err)

	match, ok := tr.Pipeline.(air.Match)
	require.True(t, ok)
	require.NotNil(t, match.Expr.Expr)

	op, ok := match.Expr.Expr.(air.Op)
	require.True(t, ok)
	assert.Equal(t, "eq", op.Name)
	require.Len(t, op.Args, 2)
	assert.Equal(t, air.FieldRef{Name: "items"}, op.Args[0])
}
