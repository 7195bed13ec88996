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

package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func docSchema() Schema {
	return NewDocument(map[string]Schema{
		"a": Atomic(Integer),
		"b": Atomic(String),
	}, map[string]bool{"a": true}, false)
}

func TestContainsFieldDocument(t *testing.T) {
	require := require.New(t)
	d := docSchema()

	require.Equal(Must, ContainsField(d, "a"))
	require.Equal(May, ContainsField(d, "b"))
	require.Equal(Not, ContainsField(d, "c"))
}

func TestContainsFieldAdditionalProperties(t *testing.T) {
	require := require.New(t)
	d := NewDocument(map[string]Schema{"a": Atomic(Integer)}, map[string]bool{"a": true}, true)

	require.Equal(May, ContainsField(d, "anything"))
}

func TestContainsFieldAnyOf(t *testing.T) {
	require := require.New(t)

	bothRequire := NewAnyOf(
		NewDocument(map[string]Schema{"x": Atomic(Integer)}, map[string]bool{"x": true}, false),
		NewDocument(map[string]Schema{"x": Atomic(String)}, map[string]bool{"x": true}, false),
	)
	require.Equal(Must, ContainsField(bothRequire, "x"))

	oneForbids := NewAnyOf(
		NewDocument(map[string]Schema{"x": Atomic(Integer)}, map[string]bool{"x": true}, false),
		NewDocument(map[string]Schema{}, map[string]bool{}, false),
	)
	require.Equal(May, ContainsField(oneForbids, "x"))

	bothForbid := NewAnyOf(
		NewDocument(map[string]Schema{}, map[string]bool{}, false),
		NewDocument(map[string]Schema{}, map[string]bool{}, false),
	)
	require.Equal(Not, ContainsField(bothForbid, "x"))
}

func TestNewAnyOfFlattensAndDedupes(t *testing.T) {
	require := require.New(t)

	nested := NewAnyOf(
		NewAnyOf(Atomic(Integer), Atomic(String)),
		Atomic(String),
		Atomic(Integer),
	)

	anyOf, ok := nested.(AnyOfSchema)
	require.True(ok)
	require.Len(anyOf.Branches, 2)
}

func TestNewAnyOfSingleBranchCollapses(t *testing.T) {
	require := require.New(t)

	s := NewAnyOf(Atomic(Integer), Atomic(Integer))
	_, isAnyOf := s.(AnyOfSchema)
	require.False(isAnyOf)
	require.Equal(Atomic(Integer), s)
}

func TestUpconvertMissing(t *testing.T) {
	require := require.New(t)

	require.Equal(Atomic(Null), UpconvertMissing(Missing))
	require.Equal(Atomic(Integer), UpconvertMissing(Atomic(Integer)))

	u := UpconvertMissing(NewAnyOf(Missing, Atomic(Integer)))
	require.Equal(NewAnyOf(Atomic(Null), Atomic(Integer)), u)
}

func TestIsNullish(t *testing.T) {
	require := require.New(t)

	require.Equal(Must, IsNullish(Missing))
	require.Equal(Must, IsNullish(Atomic(Null)))
	require.Equal(Not, IsNullish(Atomic(Integer)))
	require.Equal(May, IsNullish(NewAnyOf(Atomic(Integer), Atomic(Null))))
}

func TestFieldSchemaMust(t *testing.T) {
	require := require.New(t)
	d := docSchema()

	s, sat := FieldSchema(d, "a")
	require.Equal(Must, sat)
	require.Equal(Atomic(Integer), s)
}

func TestFieldSchemaMay(t *testing.T) {
	require := require.New(t)
	d := docSchema()

	s, sat := FieldSchema(d, "b")
	require.Equal(May, sat)
	require.Equal(Atomic(String), s)
}

func TestFieldSchemaNot(t *testing.T) {
	require := require.New(t)
	d := docSchema()

	_, sat := FieldSchema(d, "c")
	require.Equal(Not, sat)
}

func TestHashStableAcrossKeyOrder(t *testing.T) {
	require := require.New(t)

	d1 := NewDocument(map[string]Schema{"a": Atomic(Integer), "b": Atomic(String)}, nil, false)
	d2 := NewDocument(map[string]Schema{"b": Atomic(String), "a": Atomic(Integer)}, nil, false)

	require.Equal(d1.Hash(), d2.Hash())
}
