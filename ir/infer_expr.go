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

// InferExpression computes the Schema of expr under state, per §4.2. It is
// idempotent and monotone in state.Env: extending the env with an unused
// key never changes the result (§8), since every expression only ever
// reads the keys its Reference nodes name.
func InferExpression(state SchemaInferenceState, expr Expression) (schema.Schema, error) {
	switch e := expr.(type) {
	case Literal:
		return schema.Atomic(e.Kind), nil

	case Reference:
		s, ok := state.Env.Get(e.Key)
		if !ok {
			return nil, ErrDatasourceNotFoundInSchemaEnv.New(e.Key)
		}
		return s, nil

	case Array:
		branches := make([]schema.Schema, len(e.Elements))
		for i, elem := range e.Elements {
			s, err := InferExpression(state, elem)
			if err != nil {
				return nil, err
			}
			branches[i] = schema.UpconvertMissing(s)
		}
		return schema.NewArray(schema.NewAnyOf(branches...)), nil

	case Document:
		return inferDocument(state, e)

	case FieldAccess:
		return inferFieldAccess(state, e)

	case ScalarFunctionExpr:
		return inferScalarFunction(state, e)

	case Cast:
		return inferCast(state, e)

	case SimpleCase:
		return inferCaseBranches(state, e.Branches, e.Else)

	case SearchedCase:
		return inferCaseBranches(state, e.Branches, e.Else)

	case TypeAssertion:
		s, err := InferExpression(state, e.Expr)
		if err != nil {
			return nil, err
		}
		target := kindSchema(e.Type)
		if schema.Satisfies(s, target) == schema.Not {
			return nil, ErrEmptyTypeIntersection.New(e.Type, s)
		}
		return target, nil

	case Is:
		if _, err := InferExpression(state, e.Expr); err != nil {
			return nil, err
		}
		return schema.Atomic(schema.Boolean), nil

	case Like:
		if _, err := InferExpression(state, e.Expr); err != nil {
			return nil, err
		}
		if _, err := InferExpression(state, e.Pattern); err != nil {
			return nil, err
		}
		return schema.Atomic(schema.Boolean), nil

	case SubqueryExpression:
		return inferSubqueryExpression(state, e)

	case SubqueryComparison:
		if _, err := InferExpression(state, e.Argument); err != nil {
			return nil, err
		}
		if _, err := inferSubqueryExpression(state, e.SubqueryExpr); err != nil {
			return nil, err
		}
		return schema.Atomic(schema.Boolean), nil

	case Exists:
		return schema.Atomic(schema.Boolean), nil
	}
	return nil, fmt.Errorf("ir: unhandled expression type %T", expr)
}

func inferDocument(state SchemaInferenceState, d Document) (schema.Schema, error) {
	keys := map[string]schema.Schema{}
	required := map[string]bool{}
	seen := map[string]bool{}
	for i, k := range d.Keys {
		if seen[k] {
			return nil, ErrDuplicateDocumentKey.New(k)
		}
		seen[k] = true
		s, err := InferExpression(state, d.Values[i])
		if err != nil {
			return nil, err
		}
		keys[k] = s
		if schema.IsMissing(s) == schema.Not {
			required[k] = true
		}
	}
	return schema.NewDocument(keys, required, false), nil
}

func inferFieldAccess(state SchemaInferenceState, fa FieldAccess) (schema.Schema, error) {
	exprSchema, err := InferExpression(state, fa.Expr)
	if err != nil {
		return nil, err
	}
	fieldSchema, sat := schema.FieldSchema(exprSchema, fa.Field)
	switch sat {
	case schema.Must:
		return fieldSchema, nil
	case schema.May:
		return schema.NewAnyOf(fieldSchema, schema.Missing), nil
	default:
		return nil, ErrAccessMissingField.New(fa.Field, exprSchema)
	}
}

func inferCaseBranches(state SchemaInferenceState, branches []WhenBranch, elseExpr Expression) (schema.Schema, error) {
	results := make([]schema.Schema, 0, len(branches)+1)
	for _, b := range branches {
		if _, err := InferExpression(state, b.When); err != nil {
			return nil, err
		}
		then, err := InferExpression(state, b.Then)
		if err != nil {
			return nil, err
		}
		results = append(results, schema.UpconvertMissing(then))
	}
	if elseExpr != nil {
		s, err := InferExpression(state, elseExpr)
		if err != nil {
			return nil, err
		}
		results = append(results, schema.UpconvertMissing(s))
	} else {
		results = append(results, schema.Atomic(schema.Null))
	}
	return schema.NewAnyOf(results...), nil
}

func inferCast(state SchemaInferenceState, c Cast) (schema.Schema, error) {
	exprSchema, err := InferExpression(state, c.Expr)
	if err != nil {
		return nil, err
	}
	onNull, err := InferExpression(state, c.OnNull)
	if err != nil {
		return nil, err
	}
	onError, err := InferExpression(state, c.OnError)
	if err != nil {
		return nil, err
	}

	branches := []schema.Schema{kindSchema(c.To)}
	if schema.IsNullish(exprSchema) != schema.Not {
		branches = append(branches, schema.UpconvertMissing(onNull))
	}
	// A cast may always fail at runtime for any non-trivial source type
	// (bad string conversions, overflow, ...), except when the source is
	// already known to satisfy the target type.
	if schema.Satisfies(exprSchema, kindSchema(c.To)) != schema.Must {
		branches = append(branches, schema.UpconvertMissing(onError))
	}
	return schema.NewAnyOf(branches...), nil
}

func inferSubqueryExpression(state SchemaInferenceState, se SubqueryExpression) (schema.Schema, error) {
	rs, err := InferStage(state.IncrementScope(), se.Subquery)
	if err != nil {
		return nil, err
	}
	keys := rs.SchemaEnv.Keys()
	if len(keys) != 1 {
		return nil, ErrInvalidSubqueryDegree.New(len(keys), 0)
	}
	outerSchema, ok := rs.SchemaEnv.Get(keys[0])
	if !ok {
		return nil, ErrDatasourceNotFoundInSchemaEnv.New(keys[0])
	}
	outerDoc, isDoc := outerSchema.(schema.DocumentSchema)
	if !isDoc || len(outerDoc.Keys) != 1 {
		return nil, ErrInvalidSubqueryDegree.New(1, len(outerDoc.Keys))
	}
	if rs.MaxSize != nil && *rs.MaxSize > 1 {
		return nil, ErrInvalidSubqueryCardinality.New()
	}
	fieldName := outerDoc.SortedKeys()[0]
	fieldSchema, _ := schema.FieldSchema(outerDoc, fieldName)
	// The field may be absent if the subquery produces zero rows, so the
	// scalar-subquery expression's schema always admits Missing regardless
	// of the field's own Satisfaction within its single-row result.
	return schema.NewAnyOf(fieldSchema, schema.Missing), nil
}

// kindSchema maps a BSON atomic kind to its Schema. CAST never narrows
// array/document element structure, so non-atomic targets are out of scope
// for the IR's Cast node (§4 SPEC_FULL).
func kindSchema(k schema.Kind) schema.Schema {
	return schema.Atomic(k)
}
