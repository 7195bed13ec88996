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

// signature describes a scalar function's arity and the schema each
// argument must Must-satisfy (nullish is handled uniformly by the caller,
// §4.2). MinArgs/MaxArgs of -1 means unbounded; ArgSchema(i) is called for
// i in [0, argCount) and may return the same schema regardless of i for
// uniform/variadic functions.
type signature struct {
	MinArgs, MaxArgs int
	ArgSchema        func(i int) schema.Schema
	Return           func(args []schema.Schema) schema.Schema
}

var anyDoc = schema.NewDocument(nil, nil, true)
var anyArray = schema.NewArray(schema.Any)

func uniform(s schema.Schema) func(int) schema.Schema {
	return func(int) schema.Schema { return s }
}

func constant(s schema.Schema) func([]schema.Schema) schema.Schema {
	return func([]schema.Schema) schema.Schema { return s }
}

// signatures is keyed by ScalarFunction for every function not given
// bespoke handling in inferScalarFunction (arithmetic and comparisons have
// their own rules because their return schema depends on the promoted
// argument kinds, not a fixed constant).
var signatures = map[ScalarFunction]signature{
	And: {MinArgs: 1, MaxArgs: -1, ArgSchema: uniform(schema.Atomic(schema.Boolean)), Return: constant(schema.Atomic(schema.Boolean))},
	Or:  {MinArgs: 1, MaxArgs: -1, ArgSchema: uniform(schema.Atomic(schema.Boolean)), Return: constant(schema.Atomic(schema.Boolean))},
	Not: {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Boolean)), Return: constant(schema.Atomic(schema.Boolean))},

	Concat: {MinArgs: 1, MaxArgs: -1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.String))},

	BitLength:   {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.Integer))},
	CharLength:  {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.Integer))},
	OctetLength: {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.Integer))},
	Lower:       {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.String))},
	Upper:       {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.String))},
	Substring:   {MinArgs: 2, MaxArgs: 3, ArgSchema: substringArg, Return: constant(schema.Atomic(schema.String))},
	Position:    {MinArgs: 2, MaxArgs: 2, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.Integer))},

	TrimLeading:  {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.String))},
	TrimTrailing: {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.String))},
	TrimBoth:     {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.String)), Return: constant(schema.Atomic(schema.String))},

	ExtractYear:            {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Date)), Return: constant(schema.Atomic(schema.Integer))},
	ExtractMonth:           {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Date)), Return: constant(schema.Atomic(schema.Integer))},
	ExtractDay:             {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Date)), Return: constant(schema.Atomic(schema.Integer))},
	ExtractHour:            {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Date)), Return: constant(schema.Atomic(schema.Integer))},
	ExtractMinute:          {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Date)), Return: constant(schema.Atomic(schema.Integer))},
	ExtractSecond:          {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Date)), Return: constant(schema.Atomic(schema.Integer))},
	ExtractTimezoneHour:    {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Date)), Return: constant(schema.Atomic(schema.Integer))},
	ExtractTimezoneMinute:  {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(schema.Atomic(schema.Date)), Return: constant(schema.Atomic(schema.Integer))},

	CurrentTimestamp: {MinArgs: 0, MaxArgs: 0, ArgSchema: uniform(schema.Any), Return: constant(schema.Atomic(schema.Date))},

	Size:  {MinArgs: 1, MaxArgs: 1, ArgSchema: uniform(anyArray), Return: constant(schema.Atomic(schema.Integer))},
	Slice: {MinArgs: 2, MaxArgs: 3, ArgSchema: sliceArg, Return: sliceReturn},

	// Coalesce and NullIf have argument-dependent return schemas computed
	// in inferScalarFunction rather than here.
}

func substringArg(i int) schema.Schema {
	if i == 0 {
		return schema.Atomic(schema.String)
	}
	return schema.Numeric
}

func sliceArg(i int) schema.Schema {
	if i == 0 {
		return anyArray
	}
	return schema.Numeric
}

func sliceReturn(args []schema.Schema) schema.Schema {
	if len(args) == 0 {
		return anyArray
	}
	return args[0]
}
