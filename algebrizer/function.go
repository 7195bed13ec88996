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

package algebrizer

import (
	"github.com/mongosql/compiler/ast"
	"github.com/mongosql/compiler/ir"
)

// aggregationFunctions is the set of FunctionNames only valid in an
// aggregation position (GROUP BY's aggregations list); every other known
// FunctionName is scalar (§4.3).
var aggregationFunctions = map[ast.FunctionName]bool{
	ast.FuncAddToArray:     true,
	ast.FuncAddToSet:       true,
	ast.FuncAvg:            true,
	ast.FuncCount:          true,
	ast.FuncFirst:          true,
	ast.FuncLast:           true,
	ast.FuncMax:            true,
	ast.FuncMergeDocuments: true,
	ast.FuncMin:            true,
	ast.FuncStddevPop:      true,
	ast.FuncStddevSamp:     true,
	ast.FuncSum:            true,
}

var scalarFunctionTable = map[ast.FunctionName]ir.ScalarFunction{
	ast.FuncBitLength:        ir.BitLength,
	ast.FuncCharLength:       ir.CharLength,
	ast.FuncCoalesce:         ir.Coalesce,
	ast.FuncCurrentTimestamp: ir.CurrentTimestamp,
	ast.FuncLower:            ir.Lower,
	ast.FuncNullIf:           ir.NullIf,
	ast.FuncOctetLength:      ir.OctetLength,
	ast.FuncPosition:         ir.Position,
	ast.FuncSize:             ir.Size,
	ast.FuncSlice:            ir.Slice,
	ast.FuncSubstring:        ir.Substring,
	ast.FuncUpper:            ir.Upper,
}

var extractFunctionTable = map[ast.ExtractSpec]ir.ScalarFunction{
	ast.ExtractYear:             ir.ExtractYear,
	ast.ExtractMonth:            ir.ExtractMonth,
	ast.ExtractDay:              ir.ExtractDay,
	ast.ExtractHour:             ir.ExtractHour,
	ast.ExtractMinute:           ir.ExtractMinute,
	ast.ExtractSecond:           ir.ExtractSecond,
	ast.ExtractTimezoneHour:     ir.ExtractTimezoneHour,
	ast.ExtractTimezoneMinute:   ir.ExtractTimezoneMinute,
}

var trimFunctionTable = map[ast.TrimSpec]ir.ScalarFunction{
	ast.TrimLeading:  ir.TrimLeading,
	ast.TrimTrailing: ir.TrimTrailing,
	ast.TrimBoth:     ir.TrimBoth,
}

var aggregationFunctionTable = map[ast.FunctionName]ir.AggregationFunction{
	ast.FuncAddToArray:     ir.AddToArray,
	ast.FuncAvg:            ir.Avg,
	ast.FuncFirst:          ir.First,
	ast.FuncLast:           ir.Last,
	ast.FuncMax:            ir.Max,
	ast.FuncMergeDocuments: ir.MergeDocuments,
	ast.FuncMin:            ir.Min,
	ast.FuncStddevPop:      ir.StddevPop,
	ast.FuncStddevSamp:     ir.StddevSamp,
	ast.FuncSum:            ir.Sum,
}

// algebrizeScalarFunction lowers a function call appearing in scalar
// position. Using an aggregation-only name here is AggregationInPlaceOfScalar.
func (a *Algebrizer) algebrizeScalarFunction(f *ast.Function) (ir.Expression, error) {
	if aggregationFunctions[f.Name] {
		return nil, ErrAggregationInPlaceOfScalar.New(string(f.Name))
	}
	if f.Quantifier != nil && *f.Quantifier == ast.QuantifierDistinct {
		return nil, ErrDistinctScalarFunction.New(string(f.Name))
	}

	if f.Name == ast.FuncExtract {
		if len(f.Args) != 1 {
			return nil, ErrCannotBeAlgebrized.New("EXTRACT requires exactly one argument")
		}
		ea, ok := f.Args[0].(ast.ExtractArg)
		if !ok {
			return nil, ErrCannotBeAlgebrized.New("EXTRACT argument")
		}
		fn, ok := extractFunctionTable[ea.Spec]
		if !ok {
			return nil, ErrCannotBeAlgebrized.New("unrecognized EXTRACT spec")
		}
		expr, err := a.algebrizeExprArg(ea.Expr)
		if err != nil {
			return nil, err
		}
		return ir.ScalarFunctionExpr{Function: fn, Args: []ir.Expression{expr}}, nil
	}

	if f.Name == ast.FuncTrim {
		if len(f.Args) != 1 {
			return nil, ErrCannotBeAlgebrized.New("TRIM requires exactly one argument")
		}
		ta, ok := f.Args[0].(ast.TrimArg)
		if !ok {
			return nil, ErrCannotBeAlgebrized.New("TRIM argument")
		}
		fn, ok := trimFunctionTable[ta.Spec]
		if !ok {
			return nil, ErrCannotBeAlgebrized.New("unrecognized TRIM spec")
		}
		expr, err := a.algebrizeExprArg(ta.Expr)
		if err != nil {
			return nil, err
		}
		return ir.ScalarFunctionExpr{Function: fn, Args: []ir.Expression{expr}}, nil
	}

	fn, ok := scalarFunctionTable[f.Name]
	if !ok {
		return nil, ErrUnknownFunction.New(string(f.Name))
	}
	args := make([]ir.Expression, len(f.Args))
	for i, arg := range f.Args {
		if _, isStar := arg.(ast.StarArg); isStar {
			return nil, ErrStarInNonCount.New()
		}
		expr, err := a.algebrizeExprArg(arg)
		if err != nil {
			return nil, err
		}
		args[i] = expr
	}
	return ir.ScalarFunctionExpr{Function: fn, Args: args}, nil
}

func (a *Algebrizer) algebrizeExprArg(arg ast.FunctionArg) (ir.Expression, error) {
	ea, ok := arg.(ast.ExprArg)
	if !ok {
		return nil, ErrCannotBeAlgebrized.New("unexpected function argument form")
	}
	return a.AlgebrizeExpression(ea.Expr)
}

// algebrizeAggregation lowers one GROUP BY aggregations-list entry. e is
// almost always an ast.Function naming an aggregation; anything else
// means the parser associated a non-aggregation expression with the
// aggregations list, which the algebrizer rejects as
// NonAggregationInPlaceOfAggregation.
func (a *Algebrizer) algebrizeAggregation(e ast.Expression, position int) (ir.Aggregation, error) {
	f, ok := e.(ast.Function)
	if !ok {
		return ir.Aggregation{}, ErrNonAggregationInPlaceOfAggregation.New(position)
	}

	distinct := f.Quantifier != nil && *f.Quantifier == ast.QuantifierDistinct

	if f.Name == ast.FuncCount {
		if len(f.Args) == 1 {
			if _, isStar := f.Args[0].(ast.StarArg); isStar {
				return ir.Aggregation{Function: ir.CountStar, Distinct: distinct}, nil
			}
		}
		if len(f.Args) != 1 {
			return ir.Aggregation{}, ErrAggregationFunctionMustHaveOneArgument.New(string(f.Name))
		}
		expr, err := a.algebrizeExprArg(f.Args[0])
		if err != nil {
			return ir.Aggregation{}, err
		}
		return ir.Aggregation{Function: ir.Count, Distinct: distinct, Arg: expr}, nil
	}

	if f.Name == ast.FuncAddToSet {
		if len(f.Args) != 1 {
			return ir.Aggregation{}, ErrAggregationFunctionMustHaveOneArgument.New(string(f.Name))
		}
		expr, err := a.algebrizeExprArg(f.Args[0])
		if err != nil {
			return ir.Aggregation{}, err
		}
		return ir.Aggregation{Function: ir.AddToArray, Distinct: true, Arg: expr}, nil
	}

	fn, ok := aggregationFunctionTable[f.Name]
	if !ok {
		if !aggregationFunctions[f.Name] {
			return ir.Aggregation{}, ErrScalarInPlaceOfAggregation.New(string(f.Name))
		}
		return ir.Aggregation{}, ErrUnknownFunction.New(string(f.Name))
	}
	for _, arg := range f.Args {
		if _, isStar := arg.(ast.StarArg); isStar {
			return ir.Aggregation{}, ErrStarInNonCount.New()
		}
	}
	if len(f.Args) != 1 {
		return ir.Aggregation{}, ErrAggregationFunctionMustHaveOneArgument.New(string(f.Name))
	}
	expr, err := a.algebrizeExprArg(f.Args[0])
	if err != nil {
		return ir.Aggregation{}, err
	}
	return ir.Aggregation{Function: fn, Distinct: distinct, Arg: expr}, nil
}

// algebrizeCast lowers CAST(expr AS to) [ON NULL n] [ON ERROR e], defaulting
// absent fallbacks to Literal(Null) (§4.3).
func (a *Algebrizer) algebrizeCast(c *ast.Cast) (ir.Expression, error) {
	expr, err := a.AlgebrizeExpression(c.Expr)
	if err != nil {
		return nil, err
	}
	to, err := toSchemaKind(c.To)
	if err != nil {
		return nil, err
	}
	onNull := ir.Expression(ir.NullLiteral)
	if c.OnNull != nil {
		onNull, err = a.AlgebrizeExpression(c.OnNull)
		if err != nil {
			return nil, err
		}
	}
	onError := ir.Expression(ir.NullLiteral)
	if c.OnError != nil {
		onError, err = a.AlgebrizeExpression(c.OnError)
		if err != nil {
			return nil, err
		}
	}
	return ir.Cast{Expr: expr, To: to, OnNull: onNull, OnError: onError}, nil
}
