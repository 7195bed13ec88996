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
	"github.com/mongosql/compiler/ir"
	"github.com/mongosql/compiler/schema"
)

// resolveQualified builds a Reference to the nearest-scope binding of
// datasource name, or reports that no such datasource is bound at all
// (§4.3 "Qualified").
func (a *Algebrizer) resolveQualified(name string) (ir.Expression, bool) {
	scope, ok := a.Env.NearestScope(name, a.Scope)
	if !ok {
		return nil, false
	}
	return ir.Reference{Key: ir.Key{Datasource: name, Scope: scope}}, true
}

// candidateBinding is one datasource whose schema contains a field, used
// while resolving an unqualified identifier.
type candidateBinding struct {
	key schema.Satisfaction
	ref ir.Expression
}

// resolveUnqualified implements §4.3's unqualified-identifier rule: collect
// every bound datasource whose schema contains field with Must or May
// satisfaction; if exactly one such datasource exists across all scopes,
// use it. Otherwise, scan scope by scope from current outward; the first
// scope holding any candidate decides: it resolves the field only if it has
// a single Must and zero May, and otherwise the field is AmbiguousField
// (outer scopes are not consulted). A field found nowhere is FieldNotFound.
func (a *Algebrizer) resolveUnqualified(field string) (ir.Expression, error) {
	type hit struct {
		k   ir.Key
		sat schema.Satisfaction
	}
	var hits []hit
	for _, k := range a.Env.Keys() {
		s, _ := a.Env.Get(k)
		sat := schema.ContainsField(s, field)
		if sat != schema.Not {
			hits = append(hits, hit{k, sat})
		}
	}
	if len(hits) == 0 {
		return nil, ErrFieldNotFound.New(field)
	}
	if len(hits) == 1 {
		return ir.FieldAccess{Expr: ir.Reference{Key: hits[0].k}, Field: field}, nil
	}

	// More than one candidate: disambiguate scope by scope, current scope
	// outward, accepting a scope only if it has exactly one Must hit and no
	// May hits in that same scope.
	for scope := a.Scope; scope >= 0; scope-- {
		var musts []ir.Key
		var mays int
		for _, h := range hits {
			if h.k.Scope != scope {
				continue
			}
			switch h.sat {
			case schema.Must:
				musts = append(musts, h.k)
			case schema.May:
				mays++
			}
		}
		if len(musts) == 1 && mays == 0 {
			return ir.FieldAccess{Expr: ir.Reference{Key: musts[0]}, Field: field}, nil
		}
		if len(musts)+mays > 0 {
			return nil, ErrAmbiguousField.New(field)
		}
	}
	return nil, ErrAmbiguousField.New(field)
}
