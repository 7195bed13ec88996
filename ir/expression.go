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

// Expression is a scalar-valued node of the relational algebra (§3.3).
type Expression interface {
	isExpression()
}

// Literal is a constant value of a known scalar kind.
type Literal struct {
	Value interface{}
	Kind  schema.Kind
}

func (Literal) isExpression() {}

// NullLiteral is the constant SQL NULL.
var NullLiteral = Literal{Value: nil, Kind: schema.Null}

// Reference resolves to the binding of Key in the current scope.
type Reference struct {
	Key Key
}

func (Reference) isExpression() {}

// Array is an array constructor.
type Array struct {
	Elements []Expression
}

func (Array) isExpression() {}

// Document is an ordered document constructor; Keys and Values are parallel
// slices (preserving source order matters for codegen and for duplicate-key
// detection during algebrization).
type Document struct {
	Keys   []string
	Values []Expression
}

func (Document) isExpression() {}

// FieldAccess is static field projection off a document-valued expression.
type FieldAccess struct {
	Expr  Expression
	Field string
}

func (FieldAccess) isExpression() {}

// ScalarFunction enumerates the scalar (non-aggregating) functions.
type ScalarFunction int

const (
	Add ScalarFunction = iota
	Sub
	Mul
	Div
	Eq
	Neq
	Lt
	Lte
	Gt
	Gte
	And
	Or
	Not
	Concat
	Pos
	Neg
	BitLength
	CharLength
	Coalesce
	CurrentTimestamp
	Lower
	NullIf
	OctetLength
	Position
	Size
	Slice
	Substring
	Upper
	ExtractYear
	ExtractMonth
	ExtractDay
	ExtractHour
	ExtractMinute
	ExtractSecond
	ExtractTimezoneHour
	ExtractTimezoneMinute
	TrimLeading
	TrimTrailing
	TrimBoth
	// SqlDivide is the SQL-null-semantics division the algebrizer produces
	// for `/` in place of Div. Codegen translates it to air.SqlDivide, which
	// the desugarer's SQL-operators pass then lowers to base MQL (§4.4).
	SqlDivide
)

func (f ScalarFunction) String() string {
	names := map[ScalarFunction]string{
		Add: "+", Sub: "-", Mul: "*", Div: "/",
		Eq: "=", Neq: "<>", Lt: "<", Lte: "<=", Gt: ">", Gte: ">=",
		And: "AND", Or: "OR", Not: "NOT", Concat: "CONCAT",
		Pos: "POS", Neg: "NEG",
		BitLength: "BIT_LENGTH", CharLength: "CHAR_LENGTH", Coalesce: "COALESCE",
		CurrentTimestamp: "CURRENT_TIMESTAMP", Lower: "LOWER", NullIf: "NULLIF",
		OctetLength: "OCTET_LENGTH", Position: "POSITION", Size: "SIZE",
		Slice: "SLICE", Substring: "SUBSTRING", Upper: "UPPER",
		ExtractYear: "EXTRACT(YEAR)", ExtractMonth: "EXTRACT(MONTH)",
		ExtractDay: "EXTRACT(DAY)", ExtractHour: "EXTRACT(HOUR)",
		ExtractMinute: "EXTRACT(MINUTE)", ExtractSecond: "EXTRACT(SECOND)",
		ExtractTimezoneHour: "EXTRACT(TIMEZONE_HOUR)", ExtractTimezoneMinute: "EXTRACT(TIMEZONE_MINUTE)",
		TrimLeading: "TRIM(LEADING)", TrimTrailing: "TRIM(TRAILING)", TrimBoth: "TRIM(BOTH)",
		SqlDivide: "SQL_DIVIDE",
	}
	if n, ok := names[f]; ok {
		return n
	}
	return "UNKNOWN_FUNCTION"
}

// ScalarFunctionExpr applies a scalar function to its arguments.
type ScalarFunctionExpr struct {
	Function ScalarFunction
	Args     []Expression
}

func (ScalarFunctionExpr) isExpression() {}

// Cast is CAST(expr AS to) with ON NULL / ON ERROR fallbacks, both always
// present by the time IR is built (the algebrizer fills absent fallbacks
// with Literal(Null), §4.3).
type Cast struct {
	Expr    Expression
	To      schema.Kind
	OnNull  Expression
	OnError Expression
}

func (Cast) isExpression() {}

// WhenBranch is one WHEN/THEN arm of a CASE expression.
type WhenBranch struct {
	When Expression
	Then Expression
}

// SimpleCase is `CASE expr WHEN v1 THEN r1 ... [ELSE e] END`.
type SimpleCase struct {
	Expr     Expression
	Branches []WhenBranch
	Else     Expression
}

func (SimpleCase) isExpression() {}

// SearchedCase is `CASE WHEN cond1 THEN r1 ... [ELSE e] END`.
type SearchedCase struct {
	Branches []WhenBranch
	Else     Expression
}

func (SearchedCase) isExpression() {}

// TypeAssertion asserts expr has type t, narrowing the inferred schema.
// Errors during inference if the assertion is provably impossible (§4.2).
type TypeAssertion struct {
	Expr Expression
	Type schema.Kind
}

func (TypeAssertion) isExpression() {}

// Is is `expr IS <target>`; IsMissing true means the target is the
// pseudo-type MISSING rather than a schema.Kind.
type Is struct {
	Expr      Expression
	Target    schema.Kind
	IsMissing bool
}

func (Is) isExpression() {}

// Like is `expr LIKE pattern [ESCAPE escape]`. The desugarer requires
// Pattern to be a Literal string (§4.4); this is an IR-level representation
// used by the algebrizer and schema inference, not yet desugared.
type Like struct {
	Expr    Expression
	Pattern Expression
	Escape  *string
}

func (Like) isExpression() {}

// SubqueryExpression is a scalar subquery, `(SELECT ...)`.
type SubqueryExpression struct {
	OutputExpr Expression
	Subquery   Stage
}

func (SubqueryExpression) isExpression() {}

// SubqueryModifier distinguishes ANY from ALL.
type SubqueryModifier int

const (
	Any SubqueryModifier = iota
	All
)

// SubqueryComparison is `argument op ANY|ALL (subquery)`.
type SubqueryComparison struct {
	Operator    ScalarFunction
	Modifier    SubqueryModifier
	Argument    Expression
	SubqueryExpr SubqueryExpression
}

func (SubqueryComparison) isExpression() {}

// Exists is `EXISTS (subquery)`.
type Exists struct {
	Subquery Stage
}

func (Exists) isExpression() {}
