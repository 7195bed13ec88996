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

import "github.com/mongosql/compiler/air"

// lowerMatchNullSemantics rewrites every $match built from an Air expression
// (rather than a raw predicate document) so SQL WHERE-clause semantics hold:
// a condition that evaluates to null or missing excludes the row, whereas
// Mongo's native $expr null-handling would otherwise coerce it to the
// document being kept ($expr treats a non-false, non-zero, non-null value as
// true, but leaves null/missing as falsy only by accident of $cond/$switch
// defaulting — making that explicit here rather than relying on it keeps the
// rewrite robust to which operator produced the expression).
func lowerMatchNullSemantics(s air.Stage) air.Stage {
	if m, ok := s.(air.Match); ok {
		if m.Expr.Expr != nil {
			m.Expr.Expr = air.Op{Name: "eq", Args: []air.Expression{
				air.Op{Name: "ifNull", Args: []air.Expression{m.Expr.Expr, air.Literal{Value: false}}},
				air.Literal{Value: true},
			}}
		}
		s = m
	}

	if src, ok := stageSource(s); ok {
		s = withStageSource(s, lowerMatchNullSemantics(src))
	}
	switch t := s.(type) {
	case air.Lookup:
		t.Pipeline = lowerMatchNullSemanticsPipeline(t.Pipeline)
		return t
	case air.Union:
		t.Pipeline = lowerMatchNullSemanticsPipeline(t.Pipeline)
		return t
	}
	return s
}

func lowerMatchNullSemanticsPipeline(stages []air.Stage) []air.Stage {
	out := make([]air.Stage, len(stages))
	for i, st := range stages {
		out[i] = lowerMatchNullSemantics(st)
	}
	return out
}
