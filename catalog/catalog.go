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

// Package catalog is the read-only (db, collection) -> schema.Schema lookup
// the algebrizer and schema inference consult (ir.Catalog, §6). It is
// loaded once, up front, from a YAML schema catalog file and never mutated
// afterwards, matching the "pure, synchronous" concurrency model of §5: a
// *Catalog is safe to share across concurrently-running compilations.
package catalog

import (
	"fmt"

	"github.com/mongosql/compiler/schema"
)

// Catalog is a static, read-only collection of named database schemas.
type Catalog struct {
	databases map[string]map[string]schema.Schema
}

// New builds an empty Catalog; Add populates it.
func New() *Catalog {
	return &Catalog{databases: map[string]map[string]schema.Schema{}}
}

// Add registers the schema for (db, collection), overwriting any previous
// entry.
func (c *Catalog) Add(db, collection string, s schema.Schema) {
	if c.databases[db] == nil {
		c.databases[db] = map[string]schema.Schema{}
	}
	c.databases[db][collection] = s
}

// Schema implements ir.Catalog.
func (c *Catalog) Schema(db, collection string) (schema.Schema, bool) {
	coll, ok := c.databases[db]
	if !ok {
		return nil, false
	}
	s, ok := coll[collection]
	return s, ok
}

// Databases returns the known database names, for diagnostics and tests.
func (c *Catalog) Databases() []string {
	out := make([]string, 0, len(c.databases))
	for db := range c.databases {
		out = append(out, db)
	}
	return out
}

// Collections returns the known collection names within db.
func (c *Catalog) Collections(db string) []string {
	coll, ok := c.databases[db]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(coll))
	for name := range coll {
		out = append(out, name)
	}
	return out
}

func (c *Catalog) String() string {
	return fmt.Sprintf("catalog{%d databases}", len(c.databases))
}
