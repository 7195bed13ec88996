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

import "gopkg.in/src-d/go-errors.v1"

// Typing-family errors raised by schema inference (§7).
var (
	ErrDatasourceNotFoundInSchemaEnv = errors.NewKind("datasource %v not found in schema environment")
	ErrAccessMissingField            = errors.NewKind("field %q is not present in schema %v and additional properties are not allowed")
	ErrInvalidSubqueryDegree         = errors.NewKind("subquery must have exactly one output field, found %d keys / %d fields")
	ErrInvalidSubqueryCardinality    = errors.NewKind("subquery used as a scalar expression must return at most one row")
	ErrDuplicateDocumentKey          = errors.NewKind("found duplicate document key %q")
	ErrEmptyTypeIntersection         = errors.NewKind("type assertion %v is never satisfied by schema %v")
	ErrUnknownCollection             = errors.NewKind("unknown collection %s.%s")
	ErrArrayDatasourceElementNotDocument = errors.NewKind("array datasource elements must be documents, found schema %v")
	ErrSetOperandArityMismatch       = errors.NewKind("set operands must have the same degree, found %d and %d")
)
