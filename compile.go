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

// Package compiler is the top-level entry point tying the algebrizer,
// desugarer, and codegen passes together into one SQL-query-to-aggregation-
// pipeline compilation (§5).
package compiler

import (
	"github.com/sirupsen/logrus"

	"github.com/mongosql/compiler/air"
	"github.com/mongosql/compiler/air/desugarer"
	"github.com/mongosql/compiler/algebrizer"
	"github.com/mongosql/compiler/ast"
	"github.com/mongosql/compiler/codegen"
	"github.com/mongosql/compiler/ir"
	"go.mongodb.org/mongo-driver/bson"
)

// Result is a fully compiled query: the target collection and the raw
// aggregation pipeline ready to hand to a driver's Aggregate call.
type Result struct {
	DB         string
	Collection string
	Pipeline   []bson.D
}

// Compile lowers q against catalog into a Result, running the algebrizer,
// codegen, the Air desugarer passes, and pipeline flattening in sequence.
// log receives a Debug entry after each of the first three phases naming
// the phase (plus the binding count after algebrize, and the target db and
// collection after codegen); a nil log defaults to logrus.StandardLogger().
func Compile(q ast.Query, currentDB string, cat ir.Catalog, log *logrus.Entry) (*Result, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	a := algebrizer.New(currentDB, cat)
	stage, rs, err := algebrizer.AlgebrizeQuery(a, q)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"phase": "algebrize", "bindings": rs.SchemaEnv.Len()}).Debug("algebrized query")

	translation, err := codegen.CodegenStage(stage)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"phase": "codegen", "db": translation.DB, "collection": translation.Collection}).Debug("generated pipeline")

	desugared, err := desugarer.Desugar(translation.Pipeline)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"phase": "desugar"}).Debug("desugared pipeline")

	flattened, err := air.FlattenPipeline(desugared)
	if err != nil {
		return nil, err
	}

	return &Result{DB: translation.DB, Collection: translation.Collection, Pipeline: flattened}, nil
}
