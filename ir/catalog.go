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

// Catalog is the read-only mapping from (db, collection) to Schema that the
// algebrizer and Collection-stage inference consume (§6). It is the minimal
// shape ir needs; catalog.Catalog (the concrete implementation used by
// callers) satisfies it structurally.
type Catalog interface {
	Schema(db, collection string) (schema.Schema, bool)
}
