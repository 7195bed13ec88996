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

package air

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestExpressionToBSONFieldRef(t *testing.T) {
	v, err := ExpressionToBSON(FieldRef{Name: "a.b"})
	require.NoError(t, err)
	require.Equal(t, "$a.b", v)
}

func TestExpressionToBSONVariable(t *testing.T) {
	v, err := ExpressionToBSON(Variable{Name: "ROOT"})
	require.NoError(t, err)
	require.Equal(t, "$$ROOT", v)
}

func TestExpressionToBSONOpSingleArg(t *testing.T) {
	v, err := ExpressionToBSON(Op{Name: "toLower", Args: []Expression{FieldRef{Name: "x"}}})
	require.NoError(t, err)
	require.Equal(t, bson.D{{Key: "$toLower", Value: "$x"}}, v)
}

func TestExpressionToBSONOpMultiArg(t *testing.T) {
	v, err := ExpressionToBSON(Op{Name: "add", Args: []Expression{FieldRef{Name: "x"}, Literal{Value: int32(1)}}})
	require.NoError(t, err)
	require.Equal(t, bson.D{{Key: "$add", Value: []interface{}{"$x", bson.D{{Key: "$literal", Value: int32(1)}}}}}, v)
}

func TestExpressionToBSONGetField(t *testing.T) {
	v, err := ExpressionToBSON(GetField{Field: "y", Input: Variable{Name: "docExpr"}})
	require.NoError(t, err)
	require.Equal(t, bson.D{{Key: "$getField", Value: bson.D{
		{Key: "field", Value: "y"},
		{Key: "input", Value: "$$docExpr"},
	}}}, v)
}

func TestExpressionToBSONUnsugaredErrors(t *testing.T) {
	_, err := ExpressionToBSON(SqlDivide{Dividend: Literal{Value: int32(1)}, Divisor: Literal{Value: int32(2)}})
	require.Error(t, err)
}

func TestFlattenPipelineProjectOverCollection(t *testing.T) {
	stage := Project{
		Source: Collection{DB: "db", Collection: "coll"},
		Items: map[string]ProjectItem{
			"_id": Exclusion{},
			"a":   Inclusion{},
		},
	}
	docs, err := FlattenPipeline(stage)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "$project", docs[0][0].Key)
}

func TestFlattenPipelineJoinErrors(t *testing.T) {
	_, err := FlattenPipeline(Join{Collection: "c"})
	require.Error(t, err)
}
