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
	"sort"

	"github.com/mitchellh/hashstructure"
)

// Kind enumerates the atomic BSON scalar kinds.
type Kind int

const (
	Null Kind = iota
	Boolean
	String
	Integer
	Long
	Double
	Decimal
	Date
	ObjectId
	BinData
	RegularExpression
	Symbol
	Timestamp
	DbPointer
	Javascript
	JavascriptWithScope
	MinKey
	MaxKey
	Undefined
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Boolean:
		return "bool"
	case String:
		return "string"
	case Integer:
		return "int"
	case Long:
		return "long"
	case Double:
		return "double"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case ObjectId:
		return "objectId"
	case BinData:
		return "binData"
	case RegularExpression:
		return "regex"
	case Symbol:
		return "symbol"
	case Timestamp:
		return "timestamp"
	case DbPointer:
		return "dbPointer"
	case Javascript:
		return "javascript"
	case JavascriptWithScope:
		return "javascriptWithScope"
	case MinKey:
		return "minKey"
	case MaxKey:
		return "maxKey"
	case Undefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Schema is a structural type over documents, arrays, atomics, nullish, and
// union (AnyOf). It is a closed sum type; callers switch on the concrete
// type, not on a tag field.
type Schema interface {
	isSchema()
	// Hash returns a stable structural hash, used to dedupe AnyOf branches
	// (NewAnyOf) and to detect rewritten branches in UpconvertMissing.
	Hash() uint64
}

// AnySchema is the top of the lattice: any value whatsoever.
type AnySchema struct{}

func (AnySchema) isSchema() {}
func (AnySchema) Hash() uint64 {
	return mustHash("Any")
}

// Any is the canonical AnySchema value.
var Any Schema = AnySchema{}

// MissingSchema means the value is absent, not present-and-null. Only
// meaningful as a Document key's schema or an AnyOf branch; a bare Missing
// used as an expression schema is upconverted to Atomic(Null) everywhere
// except inside Document.Keys (§4.1).
type MissingSchema struct{}

func (MissingSchema) isSchema() {}
func (MissingSchema) Hash() uint64 {
	return mustHash("Missing")
}

// Missing is the canonical MissingSchema value.
var Missing Schema = MissingSchema{}

// AtomicSchema is a single scalar kind.
type AtomicSchema struct {
	Kind Kind
}

func (AtomicSchema) isSchema() {}
func (a AtomicSchema) Hash() uint64 {
	return mustHash(struct {
		T string
		K Kind
	}{"Atomic", a.Kind})
}

// Atomic constructs an AtomicSchema for kind k.
func Atomic(k Kind) Schema { return AtomicSchema{Kind: k} }

// ArraySchema is a homogeneous-by-union array: every element satisfies
// Element (normally itself an AnyOf of the distinct element schemas seen).
type ArraySchema struct {
	Element Schema
}

func (ArraySchema) isSchema() {}
func (a ArraySchema) Hash() uint64 {
	return mustHash(struct {
		T string
		E uint64
	}{"Array", a.Element.Hash()})
}

// NewArray constructs an ArraySchema.
func NewArray(element Schema) Schema { return ArraySchema{Element: element} }

// DocumentSchema is a structural object type: a fixed map of known keys, a
// subset of which are required, plus a flag for whether keys outside the
// known set may appear.
type DocumentSchema struct {
	Keys                 map[string]Schema
	Required             map[string]bool
	AdditionalProperties bool
}

func (DocumentSchema) isSchema() {}

func (d DocumentSchema) Hash() uint64 {
	type kv struct {
		K string
		V uint64
		R bool
	}
	kvs := make([]kv, 0, len(d.Keys))
	for k, v := range d.Keys {
		kvs = append(kvs, kv{k, v.Hash(), d.Required[k]})
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].K < kvs[j].K })
	return mustHash(struct {
		T  string
		KV []kv
		AP bool
	}{"Document", kvs, d.AdditionalProperties})
}

// NewDocument constructs a DocumentSchema. required and keys must agree:
// every name in required must be a key in keys.
func NewDocument(keys map[string]Schema, required map[string]bool, additionalProperties bool) Schema {
	if keys == nil {
		keys = map[string]Schema{}
	}
	if required == nil {
		required = map[string]bool{}
	}
	return DocumentSchema{Keys: keys, Required: required, AdditionalProperties: additionalProperties}
}

// SortedKeys returns the document's key names in a deterministic order, for
// callers that need stable iteration (error messages, codegen).
func (d DocumentSchema) SortedKeys() []string {
	names := make([]string, 0, len(d.Keys))
	for k := range d.Keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AnyOfSchema is a union of alternative schemas. AnyOf is associative and
// commutative; construct it with NewAnyOf, which flattens nested AnyOf and
// removes structurally duplicate branches, rather than with this struct
// literal directly.
type AnyOfSchema struct {
	Branches []Schema
}

func (AnyOfSchema) isSchema() {}

func (a AnyOfSchema) Hash() uint64 {
	hs := make([]uint64, len(a.Branches))
	for i, b := range a.Branches {
		hs[i] = b.Hash()
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return mustHash(struct {
		T string
		B []uint64
	}{"AnyOf", hs})
}

// NewAnyOf builds a simplified AnyOf: nested AnyOf branches are flattened
// and structurally-duplicate branches are removed (commutative union). A
// single remaining branch collapses to that branch; zero branches is the
// empty union (the element schema of an empty array).
func NewAnyOf(branches ...Schema) Schema {
	flat := make([]Schema, 0, len(branches))
	for _, b := range branches {
		if inner, ok := b.(AnyOfSchema); ok {
			flat = append(flat, inner.Branches...)
		} else {
			flat = append(flat, b)
		}
	}
	seen := map[uint64]bool{}
	deduped := make([]Schema, 0, len(flat))
	for _, b := range flat {
		h := b.Hash()
		if seen[h] {
			continue
		}
		seen[h] = true
		deduped = append(deduped, b)
	}
	if len(deduped) == 1 {
		return deduped[0]
	}
	return AnyOfSchema{Branches: deduped}
}

// UpconvertMissing replaces a bare Missing with Atomic(Null), per §4.1: this
// is applied to every expression schema except Document.Keys entries, where
// Missing must be preserved to signal an optional key.
func UpconvertMissing(s Schema) Schema {
	if _, ok := s.(MissingSchema); ok {
		return Atomic(Null)
	}
	if a, ok := s.(AnyOfSchema); ok {
		branches := make([]Schema, len(a.Branches))
		changed := false
		for i, b := range a.Branches {
			u := UpconvertMissing(b)
			branches[i] = u
			if u.Hash() != b.Hash() {
				changed = true
			}
		}
		if !changed {
			return s
		}
		return NewAnyOf(branches...)
	}
	return s
}

// ContainsField returns the Satisfaction with which s contains a field named
// name, per §4.1/§4.2. Only Document and AnyOf schemas can Must or May
// contain a field; every other schema kind returns Not.
func ContainsField(s Schema, name string) Satisfaction {
	switch t := s.(type) {
	case DocumentSchema:
		if t.Required[name] {
			return Must
		}
		if _, ok := t.Keys[name]; ok {
			return May
		}
		if t.AdditionalProperties {
			return May
		}
		return Not
	case AnyOfSchema:
		sats := make([]Satisfaction, len(t.Branches))
		for i, b := range t.Branches {
			sats[i] = ContainsField(b, name)
		}
		return combineBranches(sats)
	case AnySchema:
		return May
	default:
		return Not
	}
}

// IsNullish reports the Satisfaction with which s may stand in for a
// nullish value (SQL NULL or an absent field).
func IsNullish(s Schema) Satisfaction {
	switch t := s.(type) {
	case MissingSchema:
		return Must
	case AtomicSchema:
		if t.Kind == Null {
			return Must
		}
		return Not
	case AnyOfSchema:
		sats := make([]Satisfaction, len(t.Branches))
		for i, b := range t.Branches {
			sats[i] = IsNullish(b)
		}
		// Nullish is a disjunctive property across branches: Must only if
		// every branch is nullish, Not only if none is, else May.
		anyNullish, allNullish := false, true
		for _, sat := range sats {
			if sat != Not {
				anyNullish = true
			}
			if sat != Must {
				allNullish = false
			}
		}
		switch {
		case allNullish:
			return Must
		case anyNullish:
			return May
		default:
			return Not
		}
	case AnySchema:
		return May
	default:
		return Not
	}
}

// IsMissing reports the Satisfaction with which s may be the special
// Missing value (absent), as distinct from IsNullish which also considers
// Null. Used to decide whether a Document key is required (§4.2: "required
// = keys whose schema Must-not-satisfy Missing").
func IsMissing(s Schema) Satisfaction {
	switch t := s.(type) {
	case MissingSchema:
		return Must
	case AnyOfSchema:
		sats := make([]Satisfaction, len(t.Branches))
		for i, b := range t.Branches {
			sats[i] = IsMissing(b)
		}
		anyMissing, allMissing := false, true
		for _, sat := range sats {
			if sat != Not {
				anyMissing = true
			}
			if sat != Must {
				allMissing = false
			}
		}
		switch {
		case allMissing:
			return Must
		case anyMissing:
			return May
		default:
			return Not
		}
	case AnySchema:
		return May
	default:
		return Not
	}
}

// FieldSchema returns the schema of field name within s along with whether
// the field is statically known to exist at all (Must or May), per the
// FieldAccess rules of §4.2. A key absent from a document's Keys yields
// (Any, May) when the document allows additional properties, and (nil, Not)
// otherwise.
func FieldSchema(s Schema, name string) (Schema, Satisfaction) {
	switch t := s.(type) {
	case DocumentSchema:
		sat := ContainsField(t, name)
		if sat == Not {
			return nil, Not
		}
		fs, ok := t.Keys[name]
		if !ok {
			return Any, sat
		}
		return fs, sat
	case AnyOfSchema:
		var branchSchemas []Schema
		sats := make([]Satisfaction, 0, len(t.Branches))
		for _, b := range t.Branches {
			fs, sat := FieldSchema(b, name)
			sats = append(sats, sat)
			if sat != Not {
				branchSchemas = append(branchSchemas, fs)
			}
		}
		return NewAnyOf(branchSchemas...), combineBranches(sats)
	case AnySchema:
		return Any, May
	default:
		return nil, Not
	}
}

func mustHash(v interface{}) uint64 {
	h, err := hashstructure.Hash(v, nil)
	if err != nil {
		// hashstructure only errors on unsupported types (channels, funcs);
		// none of the values we hash here are ever those.
		panic(err)
	}
	return h
}
