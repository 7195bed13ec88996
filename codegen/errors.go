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

// Package codegen translates a typed ir.Stage tree into the executor-shaped
// air.Stage tree: one $-stage per ir.Stage, one Air expression per
// ir.Expression (§4.5). The result still needs a desugarer pass before it
// is valid to emit as a pipeline; codegen's job is the structural
// translation (joins included, emitted directly as Lookup+Unwind), not the
// null-semantics/subquery rewrites.
package codegen

import "gopkg.in/src-d/go-errors.v1"

var (
	ErrUnknownStage               = errors.NewKind("codegen: unsupported stage type %T")
	ErrUnknownExpression          = errors.NewKind("codegen: unsupported expression type %T")
	ErrReferenceNotFound          = errors.NewKind("codegen: reference to unbound key %v")
	ErrInvalidSortKey             = errors.NewKind("codegen: ORDER BY key must be a field reference, found %T")
	ErrDotsOrDollarsInFieldName   = errors.NewKind("codegen: field name %q contains a '.' or '$', which MQL field paths cannot express")
	ErrUnknownScalarFunction      = errors.NewKind("codegen: unsupported scalar function %v")
	ErrUnknownAggregationFunction = errors.NewKind("codegen: unsupported aggregation function %v")
	ErrUnsupportedCastTarget      = errors.NewKind("codegen: unsupported CAST target kind %v")
	ErrJoinRightNotCollectionRooted = errors.NewKind("codegen: join's right-hand side must be rooted in a single catalog collection")
)
