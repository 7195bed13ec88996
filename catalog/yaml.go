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
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"gopkg.in/src-d/go-errors.v1"
	"gopkg.in/yaml.v2"

	"github.com/mongosql/compiler/schema"
)

// ErrUnknownSchemaType is raised when a catalog YAML document names a type
// keyword that doesn't correspond to any schema.Kind or structural schema.
var ErrUnknownSchemaType = errors.NewKind("catalog: unknown schema type %q")

// document is the top-level shape of a catalog YAML file: one entry per
// database, each holding one entry per collection.
type document struct {
	Databases map[string]map[string]schemaDef `yaml:"databases"`
}

// schemaDef mirrors schema.Schema structurally so catalogs can be authored
// by hand as plain YAML rather than Go literals.
type schemaDef struct {
	Type                 string               `yaml:"type"`
	Properties           map[string]schemaDef `yaml:"properties,omitempty"`
	Required             []string             `yaml:"required,omitempty"`
	AdditionalProperties bool                 `yaml:"additionalProperties,omitempty"`
	Items                *schemaDef           `yaml:"items,omitempty"`
	AnyOf                []schemaDef          `yaml:"anyOf,omitempty"`
}

var typeKinds = map[string]schema.Kind{
	"null":                schema.Null,
	"bool":                schema.Boolean,
	"boolean":             schema.Boolean,
	"string":              schema.String,
	"int":                 schema.Integer,
	"long":                schema.Long,
	"double":              schema.Double,
	"decimal":             schema.Decimal,
	"date":                schema.Date,
	"objectId":            schema.ObjectId,
	"binData":             schema.BinData,
	"regex":               schema.RegularExpression,
	"symbol":              schema.Symbol,
	"timestamp":           schema.Timestamp,
	"dbPointer":           schema.DbPointer,
	"javascript":          schema.Javascript,
	"javascriptWithScope": schema.JavascriptWithScope,
	"minKey":              schema.MinKey,
	"maxKey":              schema.MaxKey,
	"undefined":           schema.Undefined,
}

func (d schemaDef) toSchema() (schema.Schema, error) {
	switch d.Type {
	case "":
		return nil, ErrUnknownSchemaType.New(d.Type)
	case "any":
		return schema.Any, nil
	case "missing":
		return schema.Missing, nil
	case "array":
		if d.Items == nil {
			return schema.NewArray(schema.Any), nil
		}
		elem, err := d.Items.toSchema()
		if err != nil {
			return nil, err
		}
		return schema.NewArray(elem), nil
	case "object", "document":
		keys := map[string]schema.Schema{}
		for name, prop := range d.Properties {
			s, err := prop.toSchema()
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			keys[name] = s
		}
		required := map[string]bool{}
		for _, name := range d.Required {
			required[name] = true
		}
		return schema.NewDocument(keys, required, d.AdditionalProperties), nil
	case "anyOf":
		branches := make([]schema.Schema, len(d.AnyOf))
		for i, b := range d.AnyOf {
			s, err := b.toSchema()
			if err != nil {
				return nil, err
			}
			branches[i] = s
		}
		return schema.NewAnyOf(branches...), nil
	}
	if k, ok := typeKinds[d.Type]; ok {
		return schema.Atomic(k), nil
	}
	return nil, ErrUnknownSchemaType.New(d.Type)
}

// Load parses a catalog YAML document from r and builds a Catalog.
func Load(r io.Reader) (*Catalog, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	cat := New()
	for db, collections := range doc.Databases {
		for name, def := range collections {
			s, err := def.toSchema()
			if err != nil {
				return nil, fmt.Errorf("catalog: %s.%s: %w", db, name, err)
			}
			cat.Add(db, name, s)
		}
	}
	return cat, nil
}

// LoadFile reads and parses a catalog YAML file at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
