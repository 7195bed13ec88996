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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongosql/compiler/air"
)

func TestLowerSqlDivideBuildsSwitchOverBadDivisor(t *testing.T) {
	d := air.SqlDivide{
		Dividend: air.FieldRef{Name: "a"},
		Divisor:  air.FieldRef{Name: "b"},
	}

	out := lowerSqlDivide(d)
	sw, ok := out.(air.Switch)
	require.True(t, ok)
	require.Len(t, sw.Branches, 1)
	assert.Equal(t, air.Literal{Value: nil}, sw.Branches[0].Then)

	def, ok := sw.Default.(air.Op)
	require.True(t, ok)
	assert.Equal(t, "divide", def.Name)
}

func TestLikePatternToRegexEscapesAndTranslatesWildcards(t *testing.T) {
	assert.Equal(t, "^foo.*$", likePatternToRegex("foo%", ""))
	assert.Equal(t, "^a.b$", likePatternToRegex("a_b", ""))
	assert.Equal(t, "^100%$", likePatternToRegex("100!%", "!"))
	assert.Equal(t, `^a\.b$`, likePatternToRegex("a.b", ""))
}

func TestLowerMatchNullSemanticsWrapsExprWithIfNull(t *testing.T) {
	m := air.Match{
		Source: air.Collection{Collection: "items"},
		Expr:   air.MatchExpression{Expr: air.FieldRef{Name: "active"}},
	}

	out := lowerMatchNullSemantics(m)
	rewritten, ok := out.(air.Match)
	require.True(t, ok)

	op, ok := rewritten.Expr.Expr.(air.Op)
	require.True(t, ok)
	assert.Equal(t, "eq", op.Name)
	require.Len(t, op.Args, 2)
	assert.Equal(t, air.Literal{Value: true}, op.Args[1])
}

func TestDesugarSubqueryExistsProducesLookupAndSizeCheck(t *testing.T) {
	inner := air.Project{
		Source: air.Collection{Collection: "orders"},
		Items:  map[string]air.ProjectItem{"_id": air.Exclusion{}},
	}
	exists := air.SubqueryExists{
		DB:         "test",
		Collection: "orders",
		Pipeline:   []air.Stage{inner},
	}
	match := air.Match{
		Source: air.Collection{Collection: "customers"},
		Expr:   air.MatchExpression{Expr: exists},
	}

	out, err := Desugar(match)
	require.NoError(t, err)

	proj, ok := out.(air.Project)
	require.True(t, ok, "expected a trailing Project excluding the lookup's as-name")
	assert.Equal(t, air.Exclusion{}, proj.Items["_id"])

	rewrittenMatch, ok := proj.Source.(air.Match)
	require.True(t, ok)

	lookup, ok := rewrittenMatch.Source.(air.Lookup)
	require.True(t, ok)
	assert.Equal(t, "orders", lookup.From)

	// The subquery's own pipeline is capped to one result.
	require.Len(t, lookup.Pipeline, 1)
	lim, ok := lookup.Pipeline[0].(air.Limit)
	require.True(t, ok)
	assert.EqualValues(t, 1, lim.Limit)

	// Subquery extraction replaces the EXISTS expression with the bare
	// $gt/$size check; match null-semantics then wraps the whole rewritten
	// Match condition in ifNull/eq, so the $gt ends up nested inside it
	// either way.
	eq, ok := rewrittenMatch.Expr.Expr.(air.Op)
	require.True(t, ok)
	require.Equal(t, "eq", eq.Name)

	ifNull, ok := eq.Args[0].(air.Op)
	require.True(t, ok)
	require.Equal(t, "ifNull", ifNull.Name)

	gt, ok := ifNull.Args[0].(air.Op)
	require.True(t, ok)
	assert.Equal(t, "gt", gt.Name)
}

// TestDesugarSubqueryExistsLowersLikeInsideBody guards the ordering
// requirement directly: a LIKE inside a correlated subquery's own WHERE
// clause must be lowered to a base $regexMatch by the time Desugar returns,
// even though the subquery's pipeline doesn't exist as a real Lookup stage
// (and so isn't reachable by the stage-tree-walking passes) until subquery
// extraction materializes it.
func TestDesugarSubqueryExistsLowersLikeInsideBody(t *testing.T) {
	body := air.Project{
		Source: air.Match{
			Source: air.Collection{Collection: "orders"},
			Expr: air.MatchExpression{Expr: air.Like{
				Input:   air.FieldRef{Name: "status"},
				Pattern: air.Literal{Value: "shipped%"},
			}},
		},
		Items: map[string]air.ProjectItem{"_id": air.Exclusion{}},
	}
	exists := air.SubqueryExists{
		DB:         "test",
		Collection: "orders",
		Pipeline:   []air.Stage{body},
	}
	match := air.Match{
		Source: air.Collection{Collection: "customers"},
		Expr:   air.MatchExpression{Expr: exists},
	}

	out, err := Desugar(match)
	require.NoError(t, err)

	proj, ok := out.(air.Project)
	require.True(t, ok)
	rewrittenMatch, ok := proj.Source.(air.Match)
	require.True(t, ok)
	lookup, ok := rewrittenMatch.Source.(air.Lookup)
	require.True(t, ok)

	require.Len(t, lookup.Pipeline, 1)
	lim, ok := lookup.Pipeline[0].(air.Limit)
	require.True(t, ok)
	innerProj, ok := lim.Source.(air.Project)
	require.True(t, ok)
	innerMatch, ok := innerProj.Source.(air.Match)
	require.True(t, ok)

	eq, ok := innerMatch.Expr.Expr.(air.Op)
	require.True(t, ok)
	require.Equal(t, "eq", eq.Name)
	ifNull, ok := eq.Args[0].(air.Op)
	require.True(t, ok)
	require.Equal(t, "ifNull", ifNull.Name)
	regexMatch, ok := ifNull.Args[0].(air.Op)
	require.True(t, ok)
	assert.Equal(t, "regexMatch", regexMatch.Name)
}

func TestLowerLikeNonLiteralPatternErrors(t *testing.T) {
	l := air.Like{
		Input:   air.FieldRef{Name: "name"},
		Pattern: air.FieldRef{Name: "p"},
	}
	_, err := lowerLike(l)
	require.Error(t, err)
	assert.True(t, ErrInvalidLikePattern.Is(err))
}

func TestLowerLikeNonLiteralEscapeErrors(t *testing.T) {
	l := air.Like{
		Input:   air.FieldRef{Name: "name"},
		Pattern: air.Literal{Value: "a%"},
		Escape:  air.FieldRef{Name: "e"},
	}
	_, err := lowerLike(l)
	require.Error(t, err)
	assert.True(t, ErrInvalidLikePattern.Is(err))
}

func TestDesugarPropagatesInvalidLikePatternError(t *testing.T) {
	m := air.Match{
		Source: air.Collection{Collection: "items"},
		Expr: air.MatchExpression{Expr: air.Like{
			Input:   air.FieldRef{Name: "name"},
			Pattern: air.FieldRef{Name: "p"},
		}},
	}

	_, err := Desugar(m)
	require.Error(t, err)
	assert.True(t, ErrInvalidLikePattern.Is(err))
}
