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

package air

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/src-d/go-errors.v1"
)

// ErrUnsugaredOperator is raised when ExpressionToBSON encounters an Air node that a
// desugarer pass should have already rewritten away (§4.4). Reaching one
// here means a pass was skipped or the fixed pass order was violated.
var ErrUnsugaredOperator = errors.NewKind("internal error: %T reached bson emission without being desugared")

// FlattenPipeline lowers an Air stage tree into the ordered list of
// pipeline stage documents a database executes, by walking from the tree's
// root down to its leaf (Collection or Documents) and then emitting each
// stage's own doc(s) on the way back up (§4.5).
func FlattenPipeline(s Stage) ([]bson.D, error) {
	switch t := s.(type) {
	case Collection:
		return nil, nil
	case Documents:
		arr := make([]interface{}, len(t.Docs))
		for i, d := range t.Docs {
			arr[i] = d
		}
		return []bson.D{{{Key: "$array", Value: arr}}}, nil

	case Project:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		fields := bson.D{}
		for name, item := range t.Items {
			switch it := item.(type) {
			case Inclusion:
				fields = append(fields, bson.E{Key: name, Value: 1})
			case Exclusion:
				fields = append(fields, bson.E{Key: name, Value: 0})
			case Assignment:
				v, err := ExpressionToBSON(it.Expr)
				if err != nil {
					return nil, err
				}
				fields = append(fields, bson.E{Key: name, Value: v})
			}
		}
		return append(prior, bson.D{{Key: "$project", Value: fields}}), nil

	case ReplaceWith:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		v, err := ExpressionToBSON(t.Expr)
		if err != nil {
			return nil, err
		}
		return append(prior, bson.D{{Key: "$replaceWith", Value: v}}), nil

	case Match:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		var matchDoc interface{}
		if t.Expr.Predicate != nil {
			matchDoc = t.Expr.Predicate
		} else {
			v, err := ExpressionToBSON(t.Expr.Expr)
			if err != nil {
				return nil, err
			}
			matchDoc = bson.D{{Key: "$expr", Value: v}}
		}
		return append(prior, bson.D{{Key: "$match", Value: matchDoc}}), nil

	case Limit:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		return append(prior, bson.D{{Key: "$limit", Value: t.Limit}}), nil

	case Skip:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		return append(prior, bson.D{{Key: "$skip", Value: t.Skip}}), nil

	case Sort:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		spec := bson.D{}
		for _, f := range t.Specs {
			spec = append(spec, bson.E{Key: f.Field, Value: f.Direction})
		}
		return append(prior, bson.D{{Key: "$sort", Value: spec}}), nil

	case Unwind:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		spec := bson.D{{Key: "path", Value: t.Path}}
		if t.IncludeArrayIndex != "" {
			spec = append(spec, bson.E{Key: "includeArrayIndex", Value: t.IncludeArrayIndex})
		}
		spec = append(spec, bson.E{Key: "preserveNullAndEmptyArrays", Value: t.PreserveNullAndEmptyArrays})
		return append(prior, bson.D{{Key: "$unwind", Value: spec}}), nil

	case Lookup:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		sub, err := flattenSubPipeline(t.Pipeline)
		if err != nil {
			return nil, err
		}
		spec := bson.D{{Key: "from", Value: t.From}}
		if len(t.LetBody) > 0 {
			letDoc, err := letBodyToBSON(t.LetBody)
			if err != nil {
				return nil, err
			}
			spec = append(spec, bson.E{Key: "let", Value: letDoc})
		}
		spec = append(spec, bson.E{Key: "pipeline", Value: sub}, bson.E{Key: "as", Value: t.As})
		return append(prior, bson.D{{Key: "$lookup", Value: spec}}), nil

	case Group:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		idExpr, err := ExpressionToBSON(t.Keys)
		if err != nil {
			return nil, err
		}
		spec := bson.D{{Key: "_id", Value: idExpr}}
		names := make([]string, 0, len(t.Aggregations))
		for name := range t.Aggregations {
			names = append(names, name)
		}
		sortStrings(names)
		for _, name := range names {
			acc := t.Aggregations[name]
			v, err := ExpressionToBSON(acc.Expr)
			if err != nil {
				return nil, err
			}
			spec = append(spec, bson.E{Key: name, Value: bson.D{{Key: acc.Function, Value: v}}})
		}
		return append(prior, bson.D{{Key: "$group", Value: spec}}), nil

	case Union:
		prior, err := FlattenPipeline(t.Source)
		if err != nil {
			return nil, err
		}
		sub, err := flattenSubPipeline(t.Pipeline)
		if err != nil {
			return nil, err
		}
		spec := bson.D{{Key: "coll", Value: t.From}, {Key: "pipeline", Value: sub}}
		return append(prior, bson.D{{Key: "$unionWith", Value: spec}}), nil

	case Join:
		return nil, ErrUnsugaredOperator.New(t)
	}
	return nil, fmt.Errorf("air: unhandled stage type %T", s)
}

func flattenSubPipeline(stages []Stage) ([]bson.D, error) {
	var out []bson.D
	for _, s := range stages {
		flat, err := FlattenPipeline(s)
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

func letBodyToBSON(vars []LetVariable) (bson.D, error) {
	doc := bson.D{}
	for _, v := range vars {
		val, err := ExpressionToBSON(v.Expr)
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: v.Name, Value: val})
	}
	return doc, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ExpressionToBSON lowers an Air expression to the raw value MongoDB's
// expression evaluator expects (§6 bson rules): `$field` for FieldRef,
// `$$var` for Variable, `{"$op": arg}` for untagged operators (the bare
// single-argument form when there is exactly one argument, an array
// otherwise), and a tagged document for every named-field operator.
func ExpressionToBSON(e Expression) (interface{}, error) {
	switch t := e.(type) {
	case Literal:
		return bson.D{{Key: "$literal", Value: t.Value}}, nil

	case FieldRef:
		return "$" + t.Name, nil

	case Variable:
		return "$$" + t.Name, nil

	case Doc:
		out := bson.D{}
		for _, f := range t.Fields {
			v, err := ExpressionToBSON(f.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, bson.E{Key: f.Key, Value: v})
		}
		return out, nil

	case ArrayExpr:
		out := make([]interface{}, len(t.Elements))
		for i, el := range t.Elements {
			v, err := ExpressionToBSON(el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case Op:
		args := make([]interface{}, len(t.Args))
		for i, a := range t.Args {
			v, err := ExpressionToBSON(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		var arg interface{}
		if len(args) == 1 {
			arg = args[0]
		} else {
			arg = args
		}
		return bson.D{{Key: "$" + t.Name, Value: arg}}, nil

	case GetField:
		input, err := ExpressionToBSON(t.Input)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$getField", Value: bson.D{
			{Key: "field", Value: t.Field},
			{Key: "input", Value: input},
		}}}, nil

	case SetField:
		input, err := ExpressionToBSON(t.Input)
		if err != nil {
			return nil, err
		}
		value, err := ExpressionToBSON(t.Value)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$setField", Value: bson.D{
			{Key: "field", Value: t.Field},
			{Key: "input", Value: input},
			{Key: "value", Value: value},
		}}}, nil

	case UnsetField:
		input, err := ExpressionToBSON(t.Input)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$unsetField", Value: bson.D{
			{Key: "field", Value: t.Field},
			{Key: "input", Value: input},
		}}}, nil

	case Switch:
		branches := make([]interface{}, len(t.Branches))
		for i, b := range t.Branches {
			c, err := ExpressionToBSON(b.Case)
			if err != nil {
				return nil, err
			}
			th, err := ExpressionToBSON(b.Then)
			if err != nil {
				return nil, err
			}
			branches[i] = bson.D{{Key: "case", Value: c}, {Key: "then", Value: th}}
		}
		spec := bson.D{{Key: "branches", Value: branches}}
		if t.Default != nil {
			def, err := ExpressionToBSON(t.Default)
			if err != nil {
				return nil, err
			}
			spec = append(spec, bson.E{Key: "default", Value: def})
		}
		return bson.D{{Key: "$switch", Value: spec}}, nil

	case Let:
		vars, err := letBodyToBSON(t.Vars)
		if err != nil {
			return nil, err
		}
		in, err := ExpressionToBSON(t.In)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$let", Value: bson.D{
			{Key: "vars", Value: vars},
			{Key: "in", Value: in},
		}}}, nil

	case Convert:
		return convertToBSON("$convert", t.Input, t.To, t.OnNull, t.OnError)

	case Reduce:
		input, err := ExpressionToBSON(t.Input)
		if err != nil {
			return nil, err
		}
		init, err := ExpressionToBSON(t.InitialValue)
		if err != nil {
			return nil, err
		}
		in, err := ExpressionToBSON(t.In)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$reduce", Value: bson.D{
			{Key: "input", Value: input},
			{Key: "initialValue", Value: init},
			{Key: "in", Value: in},
		}}}, nil

	case SqlConvert, Like, SqlDivide, Subquery, SubqueryComparison, SubqueryExists:
		return nil, ErrUnsugaredOperator.New(e)
	}
	return nil, fmt.Errorf("air: unhandled expression type %T", e)
}

func convertToBSON(tag string, input Expression, to string, onNull, onError Expression) (interface{}, error) {
	in, err := ExpressionToBSON(input)
	if err != nil {
		return nil, err
	}
	spec := bson.D{{Key: "input", Value: in}, {Key: "to", Value: to}}
	if onNull != nil {
		v, err := ExpressionToBSON(onNull)
		if err != nil {
			return nil, err
		}
		spec = append(spec, bson.E{Key: "onNull", Value: v})
	}
	if onError != nil {
		v, err := ExpressionToBSON(onError)
		if err != nil {
			return nil, err
		}
		spec = append(spec, bson.E{Key: "onError", Value: v})
	}
	return bson.D{{Key: tag, Value: spec}}, nil
}
