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
	"regexp"
	"strings"

	"github.com/mongosql/compiler/air"
)

// lowerSQLOperators walks the whole stage tree rewriting the three
// SQL-null-semantics operators codegen may have produced (SqlDivide,
// SqlConvert, Like) into base MQL operators ExpressionToBSON knows how to
// emit (§4.4). It recurses into every reachable Stage, including the
// independent sub-pipelines nested inside Lookup/Union stages, since those
// were codegen'd by the same codegenExpression that can introduce these
// operators. It errors if any LIKE pattern or ESCAPE clause isn't a literal
// string (§7 InvalidLikePatternError).
func lowerSQLOperators(s air.Stage) (air.Stage, error) {
	var rewriteErr error
	s = mapStageExprs(s, func(e air.Expression) air.Expression {
		if rewriteErr != nil {
			return e
		}
		out, err := lowerSQLOperator(e)
		if err != nil {
			rewriteErr = err
			return e
		}
		return out
	})
	if rewriteErr != nil {
		return nil, rewriteErr
	}

	if src, ok := stageSource(s); ok {
		newSrc, err := lowerSQLOperators(src)
		if err != nil {
			return nil, err
		}
		s = withStageSource(s, newSrc)
	}
	switch t := s.(type) {
	case air.Lookup:
		pipeline, err := lowerSQLOperatorsPipeline(t.Pipeline)
		if err != nil {
			return nil, err
		}
		t.Pipeline = pipeline
		return t, nil
	case air.Union:
		pipeline, err := lowerSQLOperatorsPipeline(t.Pipeline)
		if err != nil {
			return nil, err
		}
		t.Pipeline = pipeline
		return t, nil
	}
	return s, nil
}

func lowerSQLOperatorsPipeline(stages []air.Stage) ([]air.Stage, error) {
	out := make([]air.Stage, len(stages))
	for i, st := range stages {
		d, err := lowerSQLOperators(st)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// lowerSQLOperator rewrites a single already-post-order-walked expression
// node. mapExpr calls this on every node bottom-up, so SqlDivide/SqlConvert/
// Like nested inside other SQL operators are already lowered by the time
// their enclosing node is visited.
func lowerSQLOperator(e air.Expression) (air.Expression, error) {
	switch t := e.(type) {
	case air.SqlDivide:
		return lowerSqlDivide(t), nil
	case air.SqlConvert:
		return air.Convert{Input: t.Input, To: t.To, OnNull: t.OnNull, OnError: t.OnError}, nil
	case air.Like:
		return lowerLike(t)
	}
	return e, nil
}

// lowerSqlDivide rewrites SQL division (divide-by-zero/null yields OnError
// rather than erroring) into a $switch over the divisor's nullness/zeroness.
func lowerSqlDivide(d air.SqlDivide) air.Expression {
	onError := d.OnError
	if onError == nil {
		onError = air.Literal{Value: nil}
	}
	badDivisor := air.Op{Name: "or", Args: []air.Expression{
		air.Op{Name: "eq", Args: []air.Expression{d.Divisor, air.Literal{Value: nil}}},
		air.Op{Name: "eq", Args: []air.Expression{d.Divisor, air.Literal{Value: 0}}},
	}}
	return air.Switch{
		Branches: []air.SwitchCase{{Case: badDivisor, Then: onError}},
		Default:  air.Op{Name: "divide", Args: []air.Expression{d.Dividend, d.Divisor}},
	}
}

// lowerLike rewrites SQL LIKE into $regexMatch. Pattern must codegen to a
// literal string (the algebrizer does not enforce this), so the SQL
// wildcard syntax can be translated to a regex at desugar time rather than
// at runtime; a non-literal pattern or escape is
// ErrInvalidLikePattern (§7).
func lowerLike(l air.Like) (air.Expression, error) {
	patternLit, ok := l.Pattern.(air.Literal)
	if !ok {
		return nil, ErrInvalidLikePattern.New()
	}
	pattern, ok := patternLit.Value.(string)
	if !ok {
		return nil, ErrInvalidLikePattern.New()
	}
	var escape string
	if l.Escape != nil {
		lit, ok := l.Escape.(air.Literal)
		if !ok {
			return nil, ErrInvalidLikePattern.New()
		}
		s, ok := lit.Value.(string)
		if !ok {
			return nil, ErrInvalidLikePattern.New()
		}
		escape = s
	}
	regex := likePatternToRegex(pattern, escape)
	doc := air.Doc{Fields: []air.DocField{
		{Key: "input", Value: l.Input},
		{Key: "regex", Value: air.Literal{Value: regex}},
		{Key: "options", Value: air.Literal{Value: "s"}},
	}}
	return air.Op{Name: "regexMatch", Args: []air.Expression{doc}}, nil
}

// likePatternToRegex translates a SQL LIKE pattern (`%` any run, `_` any
// one character, an optional ESCAPE char to take the next literally) into
// an anchored regex, quoting every other character so the pattern cannot
// smuggle in unintended regex metacharacters.
func likePatternToRegex(pattern, escape string) string {
	var esc byte
	if len(escape) > 0 {
		esc = escape[0]
	}
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if esc != 0 && c == esc && i+1 < len(pattern) {
			i++
			b.WriteString(regexp.QuoteMeta(string(pattern[i])))
			continue
		}
		switch c {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return b.String()
}
