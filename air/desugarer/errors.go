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

package desugarer

import "gopkg.in/src-d/go-errors.v1"

// ErrInvalidLikePattern is raised when a LIKE's pattern or ESCAPE clause
// doesn't codegen to a literal string. The algebrizer accepts any expression
// as a LIKE pattern, so a non-literal can reach the desugarer; such a
// pattern cannot be translated to a regex at desugar time.
var ErrInvalidLikePattern = errors.NewKind("LIKE pattern and ESCAPE clause must be literal strings")
