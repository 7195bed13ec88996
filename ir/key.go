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

// Package ir implements the typed relational algebra used for algebrization
// and schema inference: binding tuples, stages, and expressions (§3.1, 3.3).
package ir

import "fmt"

// Bottom is the sentinel datasource name carrying anonymous per-row
// expressions (the output of a `SELECT expr` with no alias).
const Bottom = ""

// Key identifies one binding in a binding tuple: a datasource name (or
// Bottom) paired with the syntactic nesting depth it was introduced at.
type Key struct {
	Datasource string
	Scope      int
}

// BotKey builds the Bottom key for a given scope.
func BotKey(scope int) Key { return Key{Datasource: Bottom, Scope: scope} }

// IsBottom reports whether k is the anonymous Bottom datasource.
func (k Key) IsBottom() bool { return k.Datasource == Bottom }

func (k Key) String() string {
	name := k.Datasource
	if k.IsBottom() {
		name = "<bottom>"
	}
	return fmt.Sprintf("%s@%d", name, k.Scope)
}
