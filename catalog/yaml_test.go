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

package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mongosql/compiler/schema"
)

const sample = `
databases:
  test:
    foo:
      type: object
      additionalProperties: false
      required: [a]
      properties:
        a:
          type: int
        b:
          type: anyOf
          anyOf:
            - type: string
            - type: "null"
`

func TestLoadYAMLCatalog(t *testing.T) {
	cat, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	s, ok := cat.Schema("test", "foo")
	require.True(t, ok)

	doc, ok := s.(schema.DocumentSchema)
	require.True(t, ok)
	require.True(t, doc.Required["a"])
	require.False(t, doc.AdditionalProperties)
}

func TestLoadYAMLCatalogUnknownCollection(t *testing.T) {
	cat, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	_, ok := cat.Schema("test", "bar")
	require.False(t, ok)
}
