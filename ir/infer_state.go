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

// SchemaInferenceState is the read-only context threaded through schema
// inference: the binding tuple of schemas currently in scope, the catalog
// consulted by Collection-stage inference, and the nesting depth new
// bindings are introduced at. It is cheap to extend (WithEnv) since Env
// itself is an immutable value (§3.5).
type SchemaInferenceState struct {
	Env     *SchemaEnvironment
	Catalog Catalog
	Scope   int
}

// WithEnv returns a copy of s with a different Env.
func (s SchemaInferenceState) WithEnv(env *SchemaEnvironment) SchemaInferenceState {
	s.Env = env
	return s
}

// IncrementScope returns a copy of s one nesting level deeper, for
// algebrizing a subquery's own stages: the outer Env stays visible for
// correlated references, but any new bindings the subquery introduces are
// keyed one scope further in, so NearestScope prefers them (§4.3).
func (s SchemaInferenceState) IncrementScope() SchemaInferenceState {
	s.Scope++
	return s
}
