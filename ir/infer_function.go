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

import "github.com/mongosql/compiler/schema"

func inferScalarFunction(state SchemaInferenceState, sf ScalarFunctionExpr) (schema.Schema, error) {
	argSchemas := make([]schema.Schema, len(sf.Args))
	for i, arg := range sf.Args {
		s, err := InferExpression(state, arg)
		if err != nil {
			return nil, err
		}
		argSchemas[i] = s
	}

	switch sf.Function {
	case Add, Sub, Mul, Div:
		return inferArithmetic(sf.Function, argSchemas)
	case Eq, Neq, Lt, Lte, Gt, Gte:
		return inferComparison(sf.Function, argSchemas)
	case Coalesce:
		return inferCoalesce(argSchemas)
	case NullIf:
		return inferNullIf(argSchemas)
	}

	sig, ok := signatures[sf.Function]
	if !ok {
		return nil, schema.ErrIncorrectArgumentCount.New(sf.Function.String(), 0, len(argSchemas))
	}
	if len(argSchemas) < sig.MinArgs || (sig.MaxArgs >= 0 && len(argSchemas) > sig.MaxArgs) {
		return nil, schema.ErrIncorrectArgumentCount.New(sf.Function.String(), sig.MinArgs, len(argSchemas))
	}

	nullish := schema.Not
	for i, s := range argSchemas {
		required := sig.ArgSchema(i)
		if err := checkArgSatisfies(sf.Function.String(), s, required); err != nil {
			return nil, err
		}
		nullish = strongerNullish(nullish, schema.IsNullish(s))
	}

	ret := sig.Return(argSchemas)
	return applyNullish(ret, nullish), nil
}

// checkArgSatisfies is the "Each argument must Must-satisfy its required
// schema" rule of §4.2: nullish values (Null or Missing) are always allowed
// regardless of required, since nullish-in propagation (applyNullish)
// handles them; the argument's non-nullish shape is what must Must-satisfy
// required.
func checkArgSatisfies(name string, argSchema, required schema.Schema) error {
	withNullish := schema.NewAnyOf(required, schema.Atomic(schema.Null), schema.Missing)
	if schema.Satisfies(argSchema, withNullish) != schema.Must {
		return schema.ErrSchemaChecking.New(name, required, argSchema)
	}
	return nil
}

// strongerNullish keeps the most nullish of two satisfactions seen so far
// (Must beats May beats Not), since one Must-nullish argument is enough to
// force the whole function result to Null.
func strongerNullish(a, b schema.Satisfaction) schema.Satisfaction {
	if a == schema.Must || b == schema.Must {
		return schema.Must
	}
	if a == schema.May || b == schema.May {
		return schema.May
	}
	return schema.Not
}

// applyNullish implements "if any argument May be nullish, the result
// schema is AnyOf(normal result, Null); if any Must be nullish, result is
// Null" (§4.2).
func applyNullish(normal schema.Schema, nullish schema.Satisfaction) schema.Schema {
	switch nullish {
	case schema.Must:
		return schema.Atomic(schema.Null)
	case schema.May:
		return schema.NewAnyOf(normal, schema.Atomic(schema.Null))
	default:
		return normal
	}
}

func inferArithmetic(fn ScalarFunction, args []schema.Schema) (schema.Schema, error) {
	if len(args) != 2 {
		return nil, schema.ErrIncorrectArgumentCount.New(fn.String(), 2, len(args))
	}
	nullish := schema.Not
	for _, s := range args {
		if err := checkArgSatisfies(fn.String(), s, schema.Numeric); err != nil {
			return nil, err
		}
		nullish = strongerNullish(nullish, schema.IsNullish(s))
	}
	kind, found := schema.PromoteNumeric(args...)
	if !found {
		// Every argument was pure nullish (no numeric leaf kind); the
		// promotion ladder has nothing to promote, and applyNullish below
		// will already force the result to Null/AnyOf(_,Null).
		kind = schema.Integer
	}
	return applyNullish(schema.Atomic(kind), nullish), nil
}

func inferComparison(fn ScalarFunction, args []schema.Schema) (schema.Schema, error) {
	if len(args) != 2 {
		return nil, schema.ErrIncorrectArgumentCount.New(fn.String(), 2, len(args))
	}
	// Comparison accepts any comparable (non-document, non-array) operands;
	// two operands are comparable if their non-nullish shapes overlap, or
	// either is Any.
	nullish := strongerNullish(schema.IsNullish(args[0]), schema.IsNullish(args[1]))
	comparable := schema.NewAnyOf(schema.Numeric, schema.Atomic(schema.String), schema.Atomic(schema.Boolean),
		schema.Atomic(schema.Date), schema.Atomic(schema.ObjectId))
	for _, s := range args {
		if err := checkArgSatisfies(fn.String(), s, comparable); err != nil {
			return nil, schema.ErrInvalidComparison.New(args[0], args[1])
		}
	}
	return applyNullish(schema.Atomic(schema.Boolean), nullish), nil
}

func inferCoalesce(args []schema.Schema) (schema.Schema, error) {
	if len(args) == 0 {
		return nil, schema.ErrIncorrectArgumentCount.New("COALESCE", 1, 0)
	}
	branches := make([]schema.Schema, len(args))
	for i, s := range args {
		branches[i] = schema.UpconvertMissing(s)
	}
	return schema.NewAnyOf(branches...), nil
}

func inferNullIf(args []schema.Schema) (schema.Schema, error) {
	if len(args) != 2 {
		return nil, schema.ErrIncorrectArgumentCount.New("NULLIF", 2, len(args))
	}
	return schema.NewAnyOf(schema.UpconvertMissing(args[0]), schema.Atomic(schema.Null)), nil
}
