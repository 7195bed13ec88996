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
	"fmt"

	"github.com/mongosql/compiler/air"
	"github.com/mongosql/compiler/ir"
	"go.mongodb.org/mongo-driver/bson"
)

// MappingRegistry records, for every binding currently visible, the field
// name under which that binding's row data lives in the pipeline's running
// document (§4.5). A Reference to a key codegens to a FieldAccess/FieldRef
// rooted at registry[key].
type MappingRegistry map[ir.Key]string

// MqlTranslation is the result of translating one ir.Stage tree: the base
// collection the pipeline runs against, the mapping registry its final
// stage leaves in effect, and the (still pre-desugar) Air stage tree.
type MqlTranslation struct {
	DB         string
	Collection string
	Mapping    MappingRegistry
	Pipeline   air.Stage
}

// ctx is the read-only context threaded through codegen: the current
// mapping registry, the scope new bindings are introduced at (mirroring
// the algebrizer's own scope counter, since ir.Collection/ir.Reference
// carry no scope of their own once outside SchemaInferenceState), and any
// outer-scope keys available as $let-bound correlation variables within a
// correlated subquery/join sub-pipeline.
type ctx struct {
	mapping MappingRegistry
	scope   int
	letVars map[ir.Key]string
}

func newCtx() *ctx {
	return &ctx{mapping: MappingRegistry{}, scope: 0, letVars: map[ir.Key]string{}}
}

func (c *ctx) withMapping(m MappingRegistry) *ctx {
	clone := *c
	clone.mapping = m
	return &clone
}

func (c *ctx) nested(letVars map[ir.Key]string) *ctx {
	merged := map[ir.Key]string{}
	for k, v := range c.letVars {
		merged[k] = v
	}
	for k, v := range letVars {
		merged[k] = v
	}
	return &ctx{mapping: MappingRegistry{}, scope: c.scope + 1, letVars: merged}
}

// CodegenStage translates a top-level ir.Stage into its MqlTranslation.
func CodegenStage(stage ir.Stage) (*MqlTranslation, error) {
	return codegenStage(newCtx(), stage)
}

func codegenStage(c *ctx, stage ir.Stage) (*MqlTranslation, error) {
	switch t := stage.(type) {
	case ir.Collection:
		return codegenCollection(c, t)
	case ir.ArrayStage:
		return codegenArrayStage(c, t)
	case ir.Project:
		return codegenProject(c, t)
	case ir.Filter:
		return codegenFilter(c, t)
	case ir.Group:
		return codegenGroup(c, t)
	case ir.Sort:
		return codegenSort(c, t)
	case ir.Limit:
		return codegenLimit(c, t)
	case ir.Offset:
		return codegenOffset(c, t)
	case ir.Join:
		return codegenJoin(c, t)
	case ir.Set:
		return codegenSet(c, t)
	}
	return nil, ErrUnknownStage.New(stage)
}

// rootFieldName picks the dotted-path-safe field name a Collection/ArrayStage
// binding's row data is nested under in the first $project of its
// translation (§4.5's `{$project:{_id:0,"<name>":"$$ROOT"}}` convention).
func rootFieldName(name string) (string, error) {
	if err := validateFieldName(name); err != nil {
		return "", err
	}
	return name, nil
}

func codegenCollection(c *ctx, coll ir.Collection) (*MqlTranslation, error) {
	name, err := rootFieldName(coll.Collection)
	if err != nil {
		return nil, err
	}
	base := air.Collection{DB: coll.DB, Collection: coll.Collection}
	proj := air.Project{
		Source: base,
		Items: map[string]air.ProjectItem{
			"_id": air.Exclusion{},
			name:  air.Assignment{Expr: air.Variable{Name: "ROOT"}},
		},
	}
	key := ir.Key{Datasource: coll.Collection, Scope: c.scope}
	return &MqlTranslation{
		DB:         coll.DB,
		Collection: coll.Collection,
		Mapping:    MappingRegistry{key: name},
		Pipeline:   proj,
	}, nil
}

// flattenConstantDocs evaluates each element expression to its literal BSON
// document form. ir.ArrayStage only ever admits Document-shaped elements
// (ErrArrayDatasourceElementNotDocument is raised by inference otherwise),
// so every element's ExpressionToBSON result is a bson.D.
func flattenConstantDocs(elems []air.Expression) ([]bson.D, error) {
	out := make([]bson.D, len(elems))
	for i, e := range elems {
		v, err := air.ExpressionToBSON(e)
		if err != nil {
			return nil, err
		}
		d, ok := v.(bson.D)
		if !ok {
			return nil, ErrUnknownExpression.New(e)
		}
		out[i] = d
	}
	return out, nil
}

func codegenArrayStage(c *ctx, a ir.ArrayStage) (*MqlTranslation, error) {
	elems := make([]air.Expression, len(a.Elements))
	for i, e := range a.Elements {
		expr, err := codegenExpression(c, e)
		if err != nil {
			return nil, err
		}
		elems[i] = expr
	}
	name, err := rootFieldName(a.Alias)
	if err != nil {
		return nil, err
	}
	docs, err := flattenConstantDocs(elems)
	if err != nil {
		return nil, err
	}
	proj := air.Project{
		Source: air.Documents{Docs: docs},
		Items: map[string]air.ProjectItem{
			"_id": air.Exclusion{},
			name:  air.Assignment{Expr: air.Variable{Name: "ROOT"}},
		},
	}
	key := ir.Key{Datasource: a.Alias, Scope: c.scope}
	return &MqlTranslation{
		Mapping:  MappingRegistry{key: name},
		Pipeline: proj,
	}, nil
}

func validateFieldName(name string) error {
	for _, r := range name {
		if r == '.' || r == '$' {
			return ErrDotsOrDollarsInFieldName.New(name)
		}
	}
	return nil
}

// botFieldName is the fixed synthetic field name the final SELECT-list
// Document is nested under, matching the worked codegen example (§5).
func botFieldName(scope int) string {
	if scope == 0 {
		return "__bot__"
	}
	return fmt.Sprintf("__bot__%d", scope)
}

// codegenProject translates a Project. A Project whose sole binding is a
// bare Reference to an existing key is a pure rename (built by the
// algebrizer's datasource aliasing, §4.3) and costs no pipeline stage: only
// the mapping registry changes. Any other Project emits one `$project`
// stage assigning each bound key a fresh top-level field.
func codegenProject(c *ctx, p ir.Project) (*MqlTranslation, error) {
	src, err := codegenStage(c, p.Src)
	if err != nil {
		return nil, err
	}
	srcCtx := c.withMapping(src.Mapping)

	keys := p.Expression.Keys()
	if len(keys) == 1 {
		if ref, ok := anyExpr(p.Expression, keys[0]).(ir.Reference); ok {
			prefix, ok := src.Mapping[ref.Key]
			if !ok {
				return nil, ErrReferenceNotFound.New(ref.Key)
			}
			newMapping := MappingRegistry{}
			for k, v := range src.Mapping {
				newMapping[k] = v
			}
			newMapping[keys[0]] = prefix
			return &MqlTranslation{DB: src.DB, Collection: src.Collection, Mapping: newMapping, Pipeline: src.Pipeline}, nil
		}
	}

	items := map[string]air.ProjectItem{"_id": air.Exclusion{}}
	newMapping := MappingRegistry{}
	var bindErr error
	p.Expression.Each(func(k ir.Key, e ir.Expression) {
		if bindErr != nil {
			return
		}
		expr, err := codegenExpression(srcCtx, e)
		if err != nil {
			bindErr = err
			return
		}
		name := k.Datasource
		if k.IsBottom() {
			name = botFieldName(k.Scope)
		}
		if verr := validateFieldName(name); verr != nil {
			bindErr = verr
			return
		}
		items[name] = air.Assignment{Expr: expr}
		newMapping[k] = name
	})
	if bindErr != nil {
		return nil, bindErr
	}
	proj := air.Project{Source: src.Pipeline, Items: items}
	return &MqlTranslation{DB: src.DB, Collection: src.Collection, Mapping: newMapping, Pipeline: proj}, nil
}

// anyExpr fetches the expression bound at k, used only where the caller
// already knows k is bound (from Keys()).
func anyExpr(bt *ir.BindingTuple[ir.Expression], k ir.Key) ir.Expression {
	v, _ := bt.Get(k)
	return v
}

func codegenFilter(c *ctx, f ir.Filter) (*MqlTranslation, error) {
	src, err := codegenStage(c, f.Src)
	if err != nil {
		return nil, err
	}
	expr, err := codegenExpression(c.withMapping(src.Mapping), f.Condition)
	if err != nil {
		return nil, err
	}
	match := air.Match{Source: src.Pipeline, Expr: air.MatchExpression{Expr: expr}}
	return &MqlTranslation{DB: src.DB, Collection: src.Collection, Mapping: src.Mapping, Pipeline: match}, nil
}

func codegenLimit(c *ctx, l ir.Limit) (*MqlTranslation, error) {
	src, err := codegenStage(c, l.Src)
	if err != nil {
		return nil, err
	}
	lim := air.Limit{Source: src.Pipeline, Limit: int64(l.Limit)}
	return &MqlTranslation{DB: src.DB, Collection: src.Collection, Mapping: src.Mapping, Pipeline: lim}, nil
}

func codegenOffset(c *ctx, o ir.Offset) (*MqlTranslation, error) {
	src, err := codegenStage(c, o.Src)
	if err != nil {
		return nil, err
	}
	skip := air.Skip{Source: src.Pipeline, Skip: int64(o.Offset)}
	return &MqlTranslation{DB: src.DB, Collection: src.Collection, Mapping: src.Mapping, Pipeline: skip}, nil
}

// codegenSort requires each key to be a static field reference (a bare
// Reference or FieldAccess chain rooted at one): $sort cannot order by an
// arbitrary computed expression document key, so anything else is
// InvalidSortKey.
func codegenSort(c *ctx, s ir.Sort) (*MqlTranslation, error) {
	src, err := codegenStage(c, s.Src)
	if err != nil {
		return nil, err
	}
	srcCtx := c.withMapping(src.Mapping)
	specs := make([]air.SortField, len(s.Specs))
	for i, spec := range s.Specs {
		path, err := staticFieldPath(srcCtx, spec.Expr)
		if err != nil {
			return nil, err
		}
		dir := 1
		if spec.Direction == ir.Descending {
			dir = -1
		}
		specs[i] = air.SortField{Field: path, Direction: dir}
	}
	sort := air.Sort{Source: src.Pipeline, Specs: specs}
	return &MqlTranslation{DB: src.DB, Collection: src.Collection, Mapping: src.Mapping, Pipeline: sort}, nil
}

// codegenGroup translates a Group into a `$group` stage followed by a
// `$project` that flattens the grouped _id fields and the named
// accumulators into one top-level Document, matching inferGroup's single
// Document-at-BotKey result shape (§4.2).
func codegenGroup(c *ctx, g ir.Group) (*MqlTranslation, error) {
	src, err := codegenStage(c, g.Src)
	if err != nil {
		return nil, err
	}
	srcCtx := c.withMapping(src.Mapping)

	keyNames := make([]string, len(g.Keys))
	idFields := make([]air.DocField, len(g.Keys))
	for i, k := range g.Keys {
		expr, err := codegenExpression(srcCtx, k.Expr)
		if err != nil {
			return nil, err
		}
		name := k.Alias
		if name == "" {
			name = fmt.Sprintf("_%d", i+1)
		}
		if err := validateFieldName(name); err != nil {
			return nil, err
		}
		keyNames[i] = name
		idFields[i] = air.DocField{Key: name, Value: expr}
	}

	accs := map[string]air.GroupAccumulator{}
	for _, agg := range g.Aggregations {
		if err := validateFieldName(agg.Alias); err != nil {
			return nil, err
		}
		expr, fn, err := codegenAggregation(srcCtx, agg.Aggregation)
		if err != nil {
			return nil, err
		}
		accs[agg.Alias] = air.GroupAccumulator{Function: fn, Expr: expr}
	}

	groupStage := air.Group{Source: src.Pipeline, Keys: air.Doc{Fields: idFields}, Aggregations: accs}

	botFields := make([]air.DocField, 0, len(keyNames)+len(g.Aggregations))
	for _, name := range keyNames {
		botFields = append(botFields, air.DocField{Key: name, Value: air.FieldRef{Name: "_id." + name}})
	}
	for _, agg := range g.Aggregations {
		botFields = append(botFields, air.DocField{Key: agg.Alias, Value: air.FieldRef{Name: agg.Alias}})
	}
	botName := botFieldName(c.scope)
	proj := air.Project{
		Source: groupStage,
		Items: map[string]air.ProjectItem{
			"_id":   air.Exclusion{},
			botName: air.Assignment{Expr: air.Doc{Fields: botFields}},
		},
	}
	key := ir.BotKey(c.scope)
	return &MqlTranslation{DB: src.DB, Collection: src.Collection, Mapping: MappingRegistry{key: botName}, Pipeline: proj}, nil
}

// collectionRoot finds the single catalog collection an ir.Stage tree is
// ultimately rooted in, by following Source()/Join.Left down to a leaf.
// Join's right-hand side must be collection-rooted (§4.5 simplification,
// see DESIGN.md): codegen translates it independently into its own base
// (DB, Collection, Pipeline) so it can become a $lookup's `from`.
func collectionRoot(s ir.Stage) (ir.Collection, bool) {
	switch t := s.(type) {
	case ir.Collection:
		return t, true
	case ir.Join:
		return collectionRoot(t.Left)
	}
	if src := s.Source(); src != nil {
		return collectionRoot(src)
	}
	return ir.Collection{}, false
}

// codegenJoin translates a Join by independently codegening its right-hand
// side into its own base pipeline, binding any left-side keys the ON
// condition references as $let correlation variables, and appending the
// rewritten condition as a trailing $match inside that pipeline before
// wrapping it in a Lookup (+ Unwind, to flatten the joined array back into
// a single row per the SQL join's row semantics). This is a pragmatic
// simplification of general join codegen (see DESIGN.md): it requires the
// right-hand operand to be rooted in a single catalog collection.
func codegenJoin(c *ctx, j ir.Join) (*MqlTranslation, error) {
	left, err := codegenStage(c, j.Left)
	if err != nil {
		return nil, err
	}
	rightColl, ok := collectionRoot(j.Right)
	if !ok {
		return nil, ErrJoinRightNotCollectionRooted.New()
	}
	right, err := codegenStage(c, j.Right)
	if err != nil {
		return nil, err
	}

	refs := map[ir.Key]string{}
	if j.Condition != nil {
		correlatedRefs(j.Condition, left.Mapping, refs)
	}
	names, vars := buildLetBinding(refs)

	rightCtx := &ctx{mapping: right.Mapping, scope: c.scope, letVars: names}
	var subPipeline []air.Stage
	if j.Condition != nil {
		cond, err := codegenExpression(rightCtx, j.Condition)
		if err != nil {
			return nil, err
		}
		subPipeline = []air.Stage{air.Match{Source: right.Pipeline, Expr: air.MatchExpression{Expr: cond}}}
	} else {
		subPipeline = []air.Stage{right.Pipeline}
	}

	as := "__join_" + sanitizeIdent(rightColl.Collection)
	lookup := air.Lookup{
		Source:   left.Pipeline,
		From:     rightColl.Collection,
		LetBody:  letBodyMap(vars),
		Pipeline: subPipeline,
		As:       as,
	}
	preserve := j.JoinType == ir.LeftJoin
	unwind := air.Unwind{
		Source:                     lookup,
		Path:                       as,
		PreserveNullAndEmptyArrays: preserve,
	}

	newMapping := MappingRegistry{}
	for k, v := range left.Mapping {
		newMapping[k] = v
	}
	for k, v := range right.Mapping {
		newMapping[k] = as + "." + v
	}
	return &MqlTranslation{DB: left.DB, Collection: left.Collection, Mapping: newMapping, Pipeline: unwind}, nil
}

func letBodyMap(vars []air.LetVariable) map[string]air.Expression {
	out := map[string]air.Expression{}
	for _, v := range vars {
		out[v.Name] = v.Expr
	}
	return out
}

// codegenSet translates a UNION ALL into a base pipeline for the left
// operand followed by an `$unionWith` over the right operand's
// independently-translated (DB, Collection, Pipeline), per the new
// air.Union stage this codegen introduces for it (see DESIGN.md).
func codegenSet(c *ctx, s ir.Set) (*MqlTranslation, error) {
	left, err := codegenStage(c, s.Left)
	if err != nil {
		return nil, err
	}
	right, err := codegenStage(&ctx{mapping: MappingRegistry{}, scope: c.scope}, s.Right)
	if err != nil {
		return nil, err
	}
	union := air.Union{Source: left.Pipeline, From: right.Collection, Pipeline: []air.Stage{right.Pipeline}}
	return &MqlTranslation{DB: left.DB, Collection: left.Collection, Mapping: left.Mapping, Pipeline: union}, nil
}

// staticFieldPath resolves an expression known to be a Reference or a
// FieldAccess chain rooted at one into its dotted MQL path, without the
// leading "$" ExpressionToBSON would add for a FieldRef.
func staticFieldPath(c *ctx, e ir.Expression) (string, error) {
	switch t := e.(type) {
	case ir.Reference:
		prefix, ok := c.mapping[t.Key]
		if !ok {
			return "", ErrReferenceNotFound.New(t.Key)
		}
		return prefix, nil
	case ir.FieldAccess:
		base, err := staticFieldPath(c, t.Expr)
		if err != nil {
			return "", ErrInvalidSortKey.New(e)
		}
		if err := validateFieldName(t.Field); err != nil {
			return "", err
		}
		if base == "" {
			return t.Field, nil
		}
		return base + "." + t.Field, nil
	}
	return "", ErrInvalidSortKey.New(e)
}
