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
	"github.com/mongosql/compiler/schema"
)

var typeKinds = map[ast.Type]schema.Kind{
	ast.TypeBinData:             schema.BinData,
	ast.TypeBoolean:             schema.Boolean,
	ast.TypeDatetime:            schema.Date,
	ast.TypeDbPointer:           schema.DbPointer,
	ast.TypeDecimal128:          schema.Decimal,
	ast.TypeDouble:              schema.Double,
	ast.TypeInt32:               schema.Integer,
	ast.TypeInt64:               schema.Long,
	ast.TypeJavascript:          schema.Javascript,
	ast.TypeJavascriptWithScope: schema.JavascriptWithScope,
	ast.TypeMaxKey:              schema.MaxKey,
	ast.TypeMinKey:              schema.MinKey,
	ast.TypeNull:                schema.Null,
	ast.TypeObjectId:            schema.ObjectId,
	ast.TypeRegularExpression:   schema.RegularExpression,
	ast.TypeString:              schema.String,
	ast.TypeSymbol:              schema.Symbol,
	ast.TypeTimestamp:           schema.Timestamp,
	ast.TypeUndefined:           schema.Undefined,
}

// toSchemaKind maps an ast.Type to the atomic schema.Kind it denotes.
// TypeArray and TypeDocument have no atomic Kind counterpart: CAST and IS
// against a structural (array/document) target are out of scope (§4.2's
// Cast node only ever produces an atomic schema), reported as
// CannotBeAlgebrized rather than silently misclassified.
func toSchemaKind(t ast.Type) (schema.Kind, error) {
	if t == ast.TypeArray {
		return 0, ErrCannotBeAlgebrized.New("CAST/IS targeting ARRAY")
	}
	if t == ast.TypeDocument {
		return 0, ErrCannotBeAlgebrized.New("CAST/IS targeting OBJECT")
	}
	k, ok := typeKinds[t]
	if !ok {
		return 0, ErrCannotBeAlgebrized.New("unrecognized type")
	}
	return k, nil
}
