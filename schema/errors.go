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

import "gopkg.in/src-d/go-errors.v1"

// Typing-family errors raised during schema inference (§7).
var (
	ErrAccessMissingField = errors.NewKind("field %q is not present in schema %v and additional properties are not allowed")

	ErrSchemaChecking = errors.NewKind("%s required %v, found %v")

	ErrIncorrectArgumentCount = errors.NewKind("%s requires %d argument(s), found %d")

	ErrInvalidComparison = errors.NewKind("cannot compare %v and %v")
)
