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

package codegen

import (
	"fmt"

	"github.com/mongosql/compiler/air"
	"github.com/mongosql/compiler/ir"
	"github.com/mongosql/compiler/schema"
)

// scalarFunctionNames maps an ir.ScalarFunction to the bare MQL operator
// name (without its leading "$") that air.Op serializes as `{"$name": ...}`.
// Functions with no direct MQL equivalent, or that need more than a plain
// Op, are handled as special cases in codegenExpression instead.
var scalarFunctionNames = map[ir.ScalarFunction]string{
	ir.Add:         "add",
	ir.Sub:         "subtract",
	ir.Mul:         "multiply",
	ir.Eq:          "eq",
	ir.Neq:         "ne",
	ir.Lt:          "lt",
	ir.Lte:         "lte",
	ir.Gt:          "gt",
	ir.Gte:         "gte",
	ir.And:         "and",
	ir.Or:          "or",
	ir.Not:         "not",
	ir.Concat:      "concat",
	ir.CharLength:  "strLenCP",
	ir.OctetLength: "strLenBytes",
	ir.Lower:       "toLower",
	ir.Upper:       "toUpper",
	ir.Size:        "size",
	ir.Slice:       "slice",
	ir.Substring:   "substrCP",

	ir.ExtractYear:   "year",
	ir.ExtractMonth:  "month",
	ir.ExtractDay:    "dayOfMonth",
	ir.ExtractHour:   "hour",
	ir.ExtractMinute: "minute",
	ir.ExtractSecond: "second",
}

// convertToKind maps a schema.Kind to the string $convert's "to" argument
// expects. Only the kinds MongoDB's $convert actually accepts as a target
// are listed; anything else is ErrUnsupportedCastTarget.
var convertToKind = map[schema.Kind]string{
	schema.Boolean:  "bool",
	schema.String:   "string",
	schema.Integer:  "int",
	schema.Long:     "long",
	schema.Double:   "double",
	schema.Decimal:  "decimal",
	schema.Date:     "date",
	schema.ObjectId: "objectId",
	schema.BinData:  "binData",
}

// aggregationFunctionNames maps an ir.AggregationFunction to its base MQL
// accumulator operator name.
var aggregationFunctionNames = map[ir.AggregationFunction]string{
	ir.Avg:            "$avg",
	ir.First:          "$first",
	ir.Last:           "$last",
	ir.Max:            "$max",
	ir.Min:            "$min",
	ir.MergeDocuments: "$mergeObjects",
	ir.StddevPop:      "$stdDevPop",
	ir.StddevSamp:     "$stdDevSamp",
	ir.Sum:            "$sum",
}

// codegenExpression lowers an ir.Expression into its air.Expression under c,
// resolving Reference keys against c.mapping (locally bound) and falling
// back to c.letVars (outer, correlation-bound) (§4.5).
func codegenExpression(c *ctx, e ir.Expression) (air.Expression, error) {
	switch t := e.(type) {
	case ir.Literal:
		return air.Literal{Value: t.Value}, nil

	case ir.Reference:
		return codegenReference(c, t.Key)

	case ir.Array:
		elems := make([]air.Expression, len(t.Elements))
		for i, el := range t.Elements {
			expr, err := codegenExpression(c, el)
			if err != nil {
				return nil, err
			}
			elems[i] = expr
		}
		return air.ArrayExpr{Elements: elems}, nil

	case ir.Document:
		fields := make([]air.DocField, len(t.Keys))
		for i, k := range t.Keys {
			expr, err := codegenExpression(c, t.Values[i])
			if err != nil {
				return nil, err
			}
			fields[i] = air.DocField{Key: k, Value: expr}
		}
		return air.Doc{Fields: fields}, nil

	case ir.FieldAccess:
		return codegenFieldAccess(c, t)

	case ir.ScalarFunctionExpr:
		return codegenScalarFunction(c, t)

	case ir.Cast:
		return codegenCast(c, t)

	case ir.SimpleCase:
		return codegenSimpleCase(c, t)

	case ir.SearchedCase:
		return codegenSearchedCase(c, t)

	case ir.TypeAssertion:
		// A TypeAssertion only narrows the schema the inference layer
		// tracks; the value itself is unchanged at runtime.
		return codegenExpression(c, t.Expr)

	case ir.Is:
		return codegenIs(c, t)

	case ir.Like:
		return codegenLike(c, t)

	case ir.SubqueryExpression:
		return codegenSubqueryExpression(c, t)

	case ir.SubqueryComparison:
		return codegenSubqueryComparison(c, t)

	case ir.Exists:
		return codegenExists(c, t)
	}
	return nil, ErrUnknownExpression.New(e)
}

// codegenReference resolves a Key to either a plain field path (it is bound
// in the current pipeline's running document) or a $$-prefixed correlation
// variable (it is an outer binding captured via $let, §4.5 Join/subquery
// codegen).
func codegenReference(c *ctx, k ir.Key) (air.Expression, error) {
	if prefix, ok := c.mapping[k]; ok {
		if prefix == "" {
			return air.Variable{Name: "ROOT"}, nil
		}
		return air.FieldRef{Name: prefix}, nil
	}
	if name, ok := c.letVars[k]; ok {
		return air.Variable{Name: name}, nil
	}
	return nil, ErrReferenceNotFound.New(k)
}

// codegenFieldAccess lowers a (possibly chained) FieldAccess. A FieldAccess
// directly off a Reference/FieldAccess whose own codegen is a plain field
// path concatenates the dotted path (FieldRef); anything else uses GetField
// so the computed base expression is evaluated first (§4.5).
func codegenFieldAccess(c *ctx, fa ir.FieldAccess) (air.Expression, error) {
	if err := validateFieldName(fa.Field); err != nil {
		return nil, err
	}
	base, err := codegenExpression(c, fa.Expr)
	if err != nil {
		return nil, err
	}
	switch b := base.(type) {
	case air.FieldRef:
		return air.FieldRef{Name: b.Name + "." + fa.Field}, nil
	case air.Variable:
		return air.GetField{Field: fa.Field, Input: b}, nil
	default:
		return air.GetField{Field: fa.Field, Input: base}, nil
	}
}

func codegenArgs(c *ctx, args []ir.Expression) ([]air.Expression, error) {
	out := make([]air.Expression, len(args))
	for i, a := range args {
		expr, err := codegenExpression(c, a)
		if err != nil {
			return nil, err
		}
		out[i] = expr
	}
	return out, nil
}

// codegenScalarFunction lowers the scalar functions that need special
// handling (divide, position, current_timestamp, coalesce, nullif, pos/neg,
// bit_length, extract timezone, trim) before falling back to the plain
// one-name-per-function table.
func codegenScalarFunction(c *ctx, sf ir.ScalarFunctionExpr) (air.Expression, error) {
	args, err := codegenArgs(c, sf.Args)
	if err != nil {
		return nil, err
	}
	switch sf.Function {
	case ir.SqlDivide:
		onError := air.Expression(air.Literal{Value: nil})
		return air.SqlDivide{Dividend: args[0], Divisor: args[1], OnError: onError}, nil

	case ir.Position:
		// SQL POSITION(needle IN haystack) algebrizes args as
		// [needle, haystack]; $indexOfCP wants [haystack, needle].
		return air.Op{Name: "indexOfCP", Args: []air.Expression{args[1], args[0]}}, nil

	case ir.CurrentTimestamp:
		return air.Variable{Name: "NOW"}, nil

	case ir.Pos:
		return args[0], nil

	case ir.Neg:
		return air.Op{Name: "multiply", Args: []air.Expression{args[0], air.Literal{Value: -1}}}, nil

	case ir.BitLength:
		return air.Op{Name: "multiply", Args: []air.Expression{
			air.Op{Name: "strLenBytes", Args: []air.Expression{args[0]}},
			air.Literal{Value: 8},
		}}, nil

	case ir.Coalesce:
		return air.Op{Name: "ifNull", Args: args}, nil

	case ir.NullIf:
		return air.Switch{
			Branches: []air.SwitchCase{{
				Case: air.Op{Name: "eq", Args: []air.Expression{args[0], args[1]}},
				Then: air.Literal{Value: nil},
			}},
			Default: args[0],
		}, nil

	case ir.ExtractTimezoneHour, ir.ExtractTimezoneMinute:
		return nil, ErrUnknownScalarFunction.New(sf.Function)

	case ir.TrimLeading, ir.TrimTrailing, ir.TrimBoth:
		return codegenTrim(sf.Function, args[0]), nil
	}

	name, ok := scalarFunctionNames[sf.Function]
	if !ok {
		return nil, ErrUnknownScalarFunction.New(sf.Function)
	}
	return air.Op{Name: name, Args: args}, nil
}

// codegenTrim builds $ltrim/$rtrim/$trim, whose MQL form takes a single
// named-argument document `{input: ...}` rather than a positional arg list.
// Op's BSON emission unwraps a length-1 Args slice to its bare element, so
// wrapping that single Doc as Op's sole argument yields exactly the tagged
// document form these operators require.
func codegenTrim(fn ir.ScalarFunction, input air.Expression) air.Expression {
	name := map[ir.ScalarFunction]string{
		ir.TrimLeading:  "ltrim",
		ir.TrimTrailing: "rtrim",
		ir.TrimBoth:     "trim",
	}[fn]
	arg := air.Doc{Fields: []air.DocField{{Key: "input", Value: input}}}
	return air.Op{Name: name, Args: []air.Expression{arg}}
}

func codegenCast(c *ctx, cast ir.Cast) (air.Expression, error) {
	to, ok := convertToKind[cast.To]
	if !ok {
		return nil, ErrUnsupportedCastTarget.New(cast.To)
	}
	input, err := codegenExpression(c, cast.Expr)
	if err != nil {
		return nil, err
	}
	onNull, err := codegenExpression(c, cast.OnNull)
	if err != nil {
		return nil, err
	}
	onError, err := codegenExpression(c, cast.OnError)
	if err != nil {
		return nil, err
	}
	return air.SqlConvert{Input: input, To: to, OnNull: onNull, OnError: onError}, nil
}

func codegenWhenBranches(c *ctx, branches []ir.WhenBranch) ([]air.SwitchCase, error) {
	out := make([]air.SwitchCase, len(branches))
	for i, b := range branches {
		when, err := codegenExpression(c, b.When)
		if err != nil {
			return nil, err
		}
		then, err := codegenExpression(c, b.Then)
		if err != nil {
			return nil, err
		}
		out[i] = air.SwitchCase{Case: when, Then: then}
	}
	return out, nil
}

func codegenElse(c *ctx, elseExpr ir.Expression) (air.Expression, error) {
	if elseExpr == nil {
		return nil, nil
	}
	return codegenExpression(c, elseExpr)
}

func codegenSearchedCase(c *ctx, sc ir.SearchedCase) (air.Expression, error) {
	branches, err := codegenWhenBranches(c, sc.Branches)
	if err != nil {
		return nil, err
	}
	def, err := codegenElse(c, sc.Else)
	if err != nil {
		return nil, err
	}
	return air.Switch{Branches: branches, Default: def}, nil
}

// codegenSimpleCase rewrites `CASE expr WHEN v THEN r ... END` into the
// searched form `CASE WHEN expr = v THEN r ... END`, since Air's Switch only
// has the searched shape.
func codegenSimpleCase(c *ctx, sc ir.SimpleCase) (air.Expression, error) {
	subject, err := codegenExpression(c, sc.Expr)
	if err != nil {
		return nil, err
	}
	branches := make([]air.SwitchCase, len(sc.Branches))
	for i, b := range sc.Branches {
		when, err := codegenExpression(c, b.When)
		if err != nil {
			return nil, err
		}
		then, err := codegenExpression(c, b.Then)
		if err != nil {
			return nil, err
		}
		branches[i] = air.SwitchCase{Case: air.Op{Name: "eq", Args: []air.Expression{subject, when}}, Then: then}
	}
	def, err := codegenElse(c, sc.Else)
	if err != nil {
		return nil, err
	}
	return air.Switch{Branches: branches, Default: def}, nil
}

func codegenIs(c *ctx, is ir.Is) (air.Expression, error) {
	expr, err := codegenExpression(c, is.Expr)
	if err != nil {
		return nil, err
	}
	if is.IsMissing {
		return air.Op{Name: "eq", Args: []air.Expression{
			air.Op{Name: "type", Args: []air.Expression{expr}},
			air.Literal{Value: "missing"},
		}}, nil
	}
	to, ok := convertToKind[is.Target]
	if !ok {
		to = is.Target.String()
	}
	return air.Op{Name: "eq", Args: []air.Expression{
		air.Op{Name: "type", Args: []air.Expression{expr}},
		air.Literal{Value: to},
	}}, nil
}

func codegenLike(c *ctx, l ir.Like) (air.Expression, error) {
	expr, err := codegenExpression(c, l.Expr)
	if err != nil {
		return nil, err
	}
	pattern, err := codegenExpression(c, l.Pattern)
	if err != nil {
		return nil, err
	}
	var escape air.Expression
	if l.Escape != nil {
		escape = air.Literal{Value: *l.Escape}
	}
	return air.Like{Input: expr, Pattern: pattern, Escape: escape}, nil
}

// codegenAggregation lowers a single GROUP BY aggregation into its
// accumulator expression and base MQL operator name.
func codegenAggregation(c *ctx, agg ir.Aggregation) (air.Expression, string, error) {
	if agg.Function == ir.CountStar {
		return air.Literal{Value: 1}, "$sum", nil
	}
	arg, err := codegenExpression(c, agg.Arg)
	if err != nil {
		return nil, "", err
	}
	if agg.Function == ir.Count {
		// COUNT(expr) counts non-null/non-missing values: $sum a 1/0
		// $switch on the argument being non-nullish.
		nonNull := air.Op{Name: "ne", Args: []air.Expression{
			air.Op{Name: "ifNull", Args: []air.Expression{arg, air.Literal{Value: nil}}},
			air.Literal{Value: nil},
		}}
		cond := air.Switch{
			Branches: []air.SwitchCase{{Case: nonNull, Then: air.Literal{Value: 1}}},
			Default:  air.Literal{Value: 0},
		}
		return cond, "$sum", nil
	}
	if agg.Function == ir.AddToArray {
		if agg.Distinct {
			return arg, "$addToSet", nil
		}
		return arg, "$push", nil
	}
	name, ok := aggregationFunctionNames[agg.Function]
	if !ok {
		return nil, "", ErrUnknownAggregationFunction.New(agg.Function)
	}
	// Distinct on any aggregate besides AddToArray/AddToSet has no native
	// Mongo accumulator; it is accepted and evaluated as non-distinct,
	// a documented simplification (see DESIGN.md).
	return arg, name, nil
}

// correlatedRefs walks e looking for Reference keys bound in outer (an
// enclosing query's mapping registry), collecting them so the caller can
// bind each via $let (§4.5 Join/subquery codegen). It also descends, through
// correlatedRefsStage, into the nested ir.Stage trees reached through
// SubqueryExpression/Exists/SubqueryComparison, so outer keys referenced
// only inside such a subquery are collected too.
func correlatedRefs(e ir.Expression, outer MappingRegistry, out map[ir.Key]string) {
	switch t := e.(type) {
	case ir.Reference:
		if prefix, ok := outer[t.Key]; ok {
			out[t.Key] = prefix
		}
	case ir.Array:
		for _, el := range t.Elements {
			correlatedRefs(el, outer, out)
		}
	case ir.Document:
		for _, v := range t.Values {
			correlatedRefs(v, outer, out)
		}
	case ir.FieldAccess:
		correlatedRefs(t.Expr, outer, out)
	case ir.ScalarFunctionExpr:
		for _, a := range t.Args {
			correlatedRefs(a, outer, out)
		}
	case ir.Cast:
		correlatedRefs(t.Expr, outer, out)
		correlatedRefs(t.OnNull, outer, out)
		correlatedRefs(t.OnError, outer, out)
	case ir.SimpleCase:
		correlatedRefs(t.Expr, outer, out)
		for _, b := range t.Branches {
			correlatedRefs(b.When, outer, out)
			correlatedRefs(b.Then, outer, out)
		}
		if t.Else != nil {
			correlatedRefs(t.Else, outer, out)
		}
	case ir.SearchedCase:
		for _, b := range t.Branches {
			correlatedRefs(b.When, outer, out)
			correlatedRefs(b.Then, outer, out)
		}
		if t.Else != nil {
			correlatedRefs(t.Else, outer, out)
		}
	case ir.TypeAssertion:
		correlatedRefs(t.Expr, outer, out)
	case ir.Is:
		correlatedRefs(t.Expr, outer, out)
	case ir.Like:
		correlatedRefs(t.Expr, outer, out)
		correlatedRefs(t.Pattern, outer, out)
	case ir.SubqueryExpression:
		correlatedRefsStage(t.Subquery, outer, out)
	case ir.SubqueryComparison:
		correlatedRefs(t.Argument, outer, out)
		correlatedRefsStage(t.SubqueryExpr.Subquery, outer, out)
	case ir.Exists:
		correlatedRefsStage(t.Subquery, outer, out)
	}
}

// correlatedRefsStage walks a Stage tree's own expressions for references to
// outer-scope keys, without otherwise interpreting the stage.
func correlatedRefsStage(s ir.Stage, outer MappingRegistry, out map[ir.Key]string) {
	switch t := s.(type) {
	case ir.Collection, ir.ArrayStage:
		return
	case ir.Project:
		t.Expression.Each(func(_ ir.Key, e ir.Expression) { correlatedRefs(e, outer, out) })
		correlatedRefsStage(t.Src, outer, out)
	case ir.Filter:
		correlatedRefs(t.Condition, outer, out)
		correlatedRefsStage(t.Src, outer, out)
	case ir.Group:
		for _, k := range t.Keys {
			correlatedRefs(k.Expr, outer, out)
		}
		for _, a := range t.Aggregations {
			correlatedRefs(a.Aggregation.Arg, outer, out)
		}
		correlatedRefsStage(t.Src, outer, out)
	case ir.Sort:
		for _, sp := range t.Specs {
			correlatedRefs(sp.Expr, outer, out)
		}
		correlatedRefsStage(t.Src, outer, out)
	case ir.Limit:
		correlatedRefsStage(t.Src, outer, out)
	case ir.Offset:
		correlatedRefsStage(t.Src, outer, out)
	case ir.Join:
		if t.Condition != nil {
			correlatedRefs(t.Condition, outer, out)
		}
		correlatedRefsStage(t.Left, outer, out)
		correlatedRefsStage(t.Right, outer, out)
	case ir.Set:
		correlatedRefsStage(t.Left, outer, out)
		correlatedRefsStage(t.Right, outer, out)
	}
}

// buildLetBinding assigns each correlated outer key a $let variable name and
// translates the corresponding outer field path into an air.Expression,
// returning the variable-name map to thread into the inner ctx and the
// LetVariable list to attach to the Lookup/Subquery node.
func buildLetBinding(refs map[ir.Key]string) (map[ir.Key]string, []air.LetVariable) {
	names := map[ir.Key]string{}
	var vars []air.LetVariable
	for k, prefix := range refs {
		varName := fmt.Sprintf("var_%s_%d", sanitizeIdent(k.Datasource), k.Scope)
		names[k] = varName
		var expr air.Expression
		if prefix == "" {
			expr = air.Variable{Name: "ROOT"}
		} else {
			expr = air.FieldRef{Name: prefix}
		}
		vars = append(vars, air.LetVariable{Name: varName, Expr: expr})
	}
	return names, vars
}

func sanitizeIdent(s string) string {
	out := make([]rune, len(s))
	for i, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out[i] = r
		} else {
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "bot"
	}
	return string(out)
}

// translateSubqueryStage independently codegens a correlated subquery's
// Stage tree: correlated references to the outer mapping become $let-bound
// variables, and the inner translation otherwise starts fresh (it is its
// own base collection/array datasource, per §4.4's Lookup desugaring).
func translateSubqueryStage(c *ctx, stage ir.Stage) (*MqlTranslation, []air.LetVariable, error) {
	refs := map[ir.Key]string{}
	correlatedRefsStage(stage, c.mapping, refs)
	names, vars := buildLetBinding(refs)
	inner := c.nested(names)
	mql, err := codegenStage(inner, stage)
	if err != nil {
		return nil, nil, err
	}
	return mql, vars, nil
}

func codegenSubqueryExpression(c *ctx, se ir.SubqueryExpression) (air.Expression, error) {
	mql, vars, err := translateSubqueryStage(c, se.Subquery)
	if err != nil {
		return nil, err
	}
	fa, ok := se.OutputExpr.(ir.FieldAccess)
	if !ok {
		return nil, ErrUnknownExpression.New(se.OutputExpr)
	}
	return air.Subquery{
		DB:         mql.DB,
		Collection: mql.Collection,
		LetBody:    vars,
		Pipeline:   []air.Stage{mql.Pipeline},
		OutputPath: []string{fa.Field},
	}, nil
}

var subqueryComparisonOps = map[ir.ScalarFunction]air.SubqueryComparisonOp{
	ir.Eq:  air.CmpEq,
	ir.Neq: air.CmpNeq,
	ir.Lt:  air.CmpLt,
	ir.Lte: air.CmpLte,
	ir.Gt:  air.CmpGt,
	ir.Gte: air.CmpGte,
}

func codegenSubqueryComparison(c *ctx, sc ir.SubqueryComparison) (air.Expression, error) {
	arg, err := codegenExpression(c, sc.Argument)
	if err != nil {
		return nil, err
	}
	mql, vars, err := translateSubqueryStage(c, sc.SubqueryExpr.Subquery)
	if err != nil {
		return nil, err
	}
	fa, ok := sc.SubqueryExpr.OutputExpr.(ir.FieldAccess)
	if !ok {
		return nil, ErrUnknownExpression.New(sc.SubqueryExpr.OutputExpr)
	}
	op, ok := subqueryComparisonOps[sc.Operator]
	if !ok {
		return nil, ErrUnknownScalarFunction.New(sc.Operator)
	}
	modifier := air.SubqueryAny
	if sc.Modifier == ir.All {
		modifier = air.SubqueryAll
	}
	return air.SubqueryComparison{
		Operator:   op,
		Modifier:   modifier,
		Argument:   arg,
		DB:         mql.DB,
		Collection: mql.Collection,
		LetBody:    vars,
		Pipeline:   []air.Stage{mql.Pipeline},
		OutputPath: []string{fa.Field},
	}, nil
}

func codegenExists(c *ctx, ex ir.Exists) (air.Expression, error) {
	mql, vars, err := translateSubqueryStage(c, ex.Subquery)
	if err != nil {
		return nil, err
	}
	return air.SubqueryExists{
		DB:         mql.DB,
		Collection: mql.Collection,
		LetBody:    vars,
		Pipeline:   []air.Stage{mql.Pipeline},
	}, nil
}
