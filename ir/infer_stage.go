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

package ir

import (
	"fmt"

	"github.com/mongosql/compiler/schema"
)

// boolish is the schema a Filter/Join condition must Must-satisfy: a plain
// boolean, or a nullish value (SQL's three-valued WHERE treats non-true as
// "drop the row", so Null/Missing are accepted at the type level and
// resolved at the value level, §4.2).
var boolish = schema.NewAnyOf(schema.Atomic(schema.Boolean), schema.Atomic(schema.Null), schema.Missing)

// InferStage computes the ResultSet a stage produces under state, per §4.2.
// state.Env supplies bindings visible to correlated subqueries; state.Scope
// is the nesting depth new bindings introduced by stage are keyed at.
func InferStage(state SchemaInferenceState, stage Stage) (*ResultSet, error) {
	switch t := stage.(type) {
	case Collection:
		return inferCollection(state, t)
	case ArrayStage:
		return inferArrayStage(state, t)
	case Project:
		return inferProject(state, t)
	case Filter:
		return inferFilter(state, t)
	case Group:
		return inferGroup(state, t)
	case Sort:
		return inferSort(state, t)
	case Limit:
		return inferLimit(state, t)
	case Offset:
		return inferOffset(state, t)
	case Join:
		return inferJoin(state, t)
	case Set:
		return inferSet(state, t)
	}
	return nil, fmt.Errorf("ir: unhandled stage type %T", stage)
}

func inferCollection(state SchemaInferenceState, c Collection) (*ResultSet, error) {
	s, ok := state.Catalog.Schema(c.DB, c.Collection)
	if !ok {
		return nil, ErrUnknownCollection.New(c.DB, c.Collection)
	}
	key := Key{Datasource: c.Collection, Scope: state.Scope}
	env, err := state.Env.With(key, s)
	if err != nil {
		return nil, err
	}
	return &ResultSet{SchemaEnv: env, MinSize: 0, MaxSize: nil}, nil
}

func inferArrayStage(state SchemaInferenceState, a ArrayStage) (*ResultSet, error) {
	branches := make([]schema.Schema, len(a.Elements))
	for i, elem := range a.Elements {
		s, err := InferExpression(state, elem)
		if err != nil {
			return nil, err
		}
		if _, isDoc := s.(schema.DocumentSchema); !isDoc {
			if _, isAny := s.(schema.AnySchema); !isAny {
				return nil, ErrArrayDatasourceElementNotDocument.New(s)
			}
		}
		branches[i] = s
	}
	elemSchema := schema.NewAnyOf(branches...)
	key := Key{Datasource: a.Alias, Scope: state.Scope}
	env, err := state.Env.With(key, elemSchema)
	if err != nil {
		return nil, err
	}
	size := uint64(len(a.Elements))
	return &ResultSet{SchemaEnv: env, MinSize: size, MaxSize: u64(size)}, nil
}

func inferProject(state SchemaInferenceState, p Project) (*ResultSet, error) {
	rs, err := InferStage(state, p.Src)
	if err != nil {
		return nil, err
	}
	innerState := state.WithEnv(rs.SchemaEnv)
	newEnv := NewBindingTuple[schema.Schema]()
	var bindErr error
	p.Expression.Each(func(k Key, e Expression) {
		if bindErr != nil {
			return
		}
		s, err := InferExpression(innerState, e)
		if err != nil {
			bindErr = err
			return
		}
		newEnv, bindErr = newEnv.With(k, s)
	})
	if bindErr != nil {
		return nil, bindErr
	}
	return &ResultSet{SchemaEnv: newEnv, MinSize: rs.MinSize, MaxSize: rs.MaxSize}, nil
}

func inferFilter(state SchemaInferenceState, f Filter) (*ResultSet, error) {
	rs, err := InferStage(state, f.Src)
	if err != nil {
		return nil, err
	}
	innerState := state.WithEnv(rs.SchemaEnv)
	condSchema, err := InferExpression(innerState, f.Condition)
	if err != nil {
		return nil, err
	}
	if schema.Satisfies(condSchema, boolish) != schema.Must {
		return nil, schema.ErrSchemaChecking.New("FILTER", boolish, condSchema)
	}
	// A filter condition can always be false for every row, so MinSize
	// resets to zero regardless of the source's lower bound.
	return &ResultSet{SchemaEnv: rs.SchemaEnv, MinSize: 0, MaxSize: rs.MaxSize}, nil
}

func inferGroup(state SchemaInferenceState, g Group) (*ResultSet, error) {
	rs, err := InferStage(state, g.Src)
	if err != nil {
		return nil, err
	}
	innerState := state.WithEnv(rs.SchemaEnv)

	keys := map[string]schema.Schema{}
	required := map[string]bool{}
	for i, k := range g.Keys {
		s, err := InferExpression(innerState, k.Expr)
		if err != nil {
			return nil, err
		}
		name := k.Alias
		if name == "" {
			name = fmt.Sprintf("_%d", i+1)
		}
		keys[name] = s
		if schema.IsMissing(s) == schema.Not {
			required[name] = true
		}
	}
	for _, agg := range g.Aggregations {
		s, err := inferAggregation(innerState, agg.Aggregation)
		if err != nil {
			return nil, err
		}
		keys[agg.Alias] = s
		required[agg.Alias] = true
	}

	doc := schema.NewDocument(keys, required, false)
	env, err := NewBindingTuple[schema.Schema]().With(BotKey(state.Scope), doc)
	if err != nil {
		return nil, err
	}

	// With no GROUP BY keys, the whole source collapses into exactly one
	// output row (even an empty source still yields a row of aggregate
	// defaults, e.g. COUNT(*) = 0); otherwise cardinality is bounded above
	// by the source's size and otherwise unknown.
	if len(g.Keys) == 0 {
		return &ResultSet{SchemaEnv: env, MinSize: 1, MaxSize: u64(1)}, nil
	}
	return &ResultSet{SchemaEnv: env, MinSize: 0, MaxSize: rs.MaxSize}, nil
}

// inferAggregation computes the result schema of a single aggregation
// function application. This is a judgment call where §4.2 leaves the exact
// output kind per function unspecified; the choices here follow MongoDB's
// own aggregation accumulator result types (see DESIGN.md).
func inferAggregation(state SchemaInferenceState, agg Aggregation) (schema.Schema, error) {
	if agg.Function == CountStar {
		return schema.Atomic(schema.Long), nil
	}
	argSchema, err := InferExpression(state, agg.Arg)
	if err != nil {
		return nil, err
	}
	switch agg.Function {
	case Count:
		return schema.Atomic(schema.Long), nil
	case Sum:
		kind, ok := schema.PromoteNumeric(argSchema)
		if !ok {
			kind = schema.Long
		}
		return schema.NewAnyOf(schema.Atomic(kind), schema.Atomic(schema.Null)), nil
	case Avg, StddevPop, StddevSamp:
		return schema.NewAnyOf(schema.Atomic(schema.Double), schema.Atomic(schema.Null)), nil
	case Min, Max, First, Last:
		return schema.UpconvertMissing(argSchema), nil
	case AddToArray:
		return schema.NewArray(schema.UpconvertMissing(argSchema)), nil
	case MergeDocuments:
		return schema.Any, nil
	}
	return nil, fmt.Errorf("ir: unhandled aggregation function %v", agg.Function)
}

func inferSort(state SchemaInferenceState, s Sort) (*ResultSet, error) {
	rs, err := InferStage(state, s.Src)
	if err != nil {
		return nil, err
	}
	innerState := state.WithEnv(rs.SchemaEnv)
	for _, spec := range s.Specs {
		if _, err := InferExpression(innerState, spec.Expr); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

func inferLimit(state SchemaInferenceState, l Limit) (*ResultSet, error) {
	rs, err := InferStage(state, l.Src)
	if err != nil {
		return nil, err
	}
	return &ResultSet{
		SchemaEnv: rs.SchemaEnv,
		MinSize:   min64(rs.MinSize, l.Limit),
		MaxSize:   capMax(rs.MaxSize, u64(l.Limit)),
	}, nil
}

func inferOffset(state SchemaInferenceState, o Offset) (*ResultSet, error) {
	rs, err := InferStage(state, o.Src)
	if err != nil {
		return nil, err
	}
	return &ResultSet{
		SchemaEnv: rs.SchemaEnv,
		MinSize:   satSub(rs.MinSize, o.Offset),
		MaxSize:   subMax(rs.MaxSize, o.Offset),
	}, nil
}

func inferJoin(state SchemaInferenceState, j Join) (*ResultSet, error) {
	fresh := NewBindingTuple[schema.Schema]()
	leftRs, err := InferStage(state.WithEnv(fresh), j.Left)
	if err != nil {
		return nil, err
	}
	rightRs, err := InferStage(state.WithEnv(fresh), j.Right)
	if err != nil {
		return nil, err
	}

	rightEnv := rightRs.SchemaEnv
	if j.JoinType == LeftJoin {
		wrapped := NewBindingTuple[schema.Schema]()
		var wrapErr error
		rightEnv.Each(func(k Key, s schema.Schema) {
			if wrapErr != nil {
				return
			}
			wrapped, wrapErr = wrapped.With(k, schema.NewAnyOf(schema.Missing, s))
		})
		if wrapErr != nil {
			return nil, wrapErr
		}
		rightEnv = wrapped
	}

	merged, err := leftRs.SchemaEnv.Merge(rightEnv)
	if err != nil {
		return nil, err
	}

	if j.Condition != nil {
		condState := state.WithEnv(merged)
		condSchema, err := InferExpression(condState, j.Condition)
		if err != nil {
			return nil, err
		}
		if schema.Satisfies(condSchema, boolish) != schema.Must {
			return nil, schema.ErrSchemaChecking.New("JOIN ON", boolish, condSchema)
		}
	}

	return &ResultSet{
		SchemaEnv: merged,
		MinSize:   0,
		MaxSize:   mulMax(leftRs.MaxSize, rightRs.MaxSize),
	}, nil
}

func inferSet(state SchemaInferenceState, s Set) (*ResultSet, error) {
	leftRs, err := InferStage(state, s.Left)
	if err != nil {
		return nil, err
	}
	rightRs, err := InferStage(state, s.Right)
	if err != nil {
		return nil, err
	}
	leftKeys := leftRs.SchemaEnv.Keys()
	rightKeys := rightRs.SchemaEnv.Keys()
	if len(leftKeys) != len(rightKeys) {
		return nil, ErrSetOperandArityMismatch.New(len(leftKeys), len(rightKeys))
	}

	env := NewBindingTuple[schema.Schema]()
	for i, k := range leftKeys {
		ls, _ := leftRs.SchemaEnv.Get(k)
		rs, _ := rightRs.SchemaEnv.Get(rightKeys[i])
		env, err = env.With(k, schema.NewAnyOf(ls, rs))
		if err != nil {
			return nil, err
		}
	}

	return &ResultSet{
		SchemaEnv: env,
		MinSize:   leftRs.MinSize + rightRs.MinSize,
		MaxSize:   addMax(leftRs.MaxSize, rightRs.MaxSize),
	}, nil
}

// mulMax multiplies two optional upper bounds, treating nil as +Inf.
func mulMax(a, b *uint64) *uint64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a * *b
	return &v
}

// addMax adds two optional upper bounds, treating nil as +Inf.
func addMax(a, b *uint64) *uint64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}
