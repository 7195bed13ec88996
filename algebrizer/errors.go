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

// Package algebrizer lowers a parsed ast.Query into the typed ir.Stage tree,
// resolving names against a schema environment and catalog and running
// schema inference after every node it builds (§4.3).
package algebrizer

import "gopkg.in/src-d/go-errors.v1"

// Structural-family errors (§7): the query shape itself is unsupported.
var (
	ErrNoFromClause               = errors.NewKind("SELECT without a FROM clause is not supported")
	ErrCollectionMustHaveAlias    = errors.NewKind("collection datasource %q must have an alias")
	ErrArrayDatasourceMustBeLiteral = errors.NewKind("array datasource elements must be literal expressions")
	ErrDistinctSelect             = errors.NewKind("SELECT DISTINCT is not supported")
	ErrDistinctUnion              = errors.NewKind("UNION (without ALL) is not supported")
	ErrDistinctScalarFunction     = errors.NewKind("DISTINCT is not supported on scalar function %q")
	ErrNoOuterJoinCondition       = errors.NewKind("%s JOIN requires an ON condition")
	ErrPositionalSortKey          = errors.NewKind("positional ORDER BY keys are not supported")
	ErrNonStarStandardSelectBody  = errors.NewKind("VALUES clause is not supported")
	ErrCannotBeAlgebrized         = errors.NewKind("cannot algebrize construct: %s")
)

// Resolution-family errors: name lookup against the schema environment.
var (
	ErrNoSuchDatasource             = errors.NewKind("no such datasource %q")
	ErrFieldNotFound                = errors.NewKind("field %q not found")
	ErrAmbiguousField               = errors.NewKind("field %q is ambiguous")
	ErrDuplicateKey                 = errors.NewKind("duplicate binding for key %v")
	ErrDuplicateDocumentKey         = errors.NewKind("duplicate document key %q")
	ErrDerivedDatasourceOverlappingKeys = errors.NewKind("derived datasource %q has overlapping keys across its branches")
)

// Lowering-family errors: function and codegen-adjacent rewrites.
var (
	ErrStarInNonCount                 = errors.NewKind("* is only valid as the sole argument to COUNT")
	ErrAggregationInPlaceOfScalar     = errors.NewKind("aggregation function %q is not allowed where a scalar expression is required")
	ErrScalarInPlaceOfAggregation     = errors.NewKind("scalar function %q is not a valid aggregation function")
	ErrNonAggregationInPlaceOfAggregation = errors.NewKind("SELECT list position %d is neither a GROUP BY key nor an aggregation")
	ErrAggregationFunctionMustHaveOneArgument = errors.NewKind("aggregation function %q requires exactly one argument")
	ErrUnknownFunction                = errors.NewKind("unknown function %q")
)
