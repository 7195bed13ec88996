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

// Command mongosql-compile loads a catalog and an already-parsed query
// description and prints the resulting aggregation pipeline as JSON. It
// does not parse SQL text itself (§1): the SQL tokenizer/parser is out of
// scope, so this stub only exercises the catalog-loading and Compile
// wiring against an ast.Query built in code.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	compiler "github.com/mongosql/compiler"
	"github.com/mongosql/compiler/ast"
	"github.com/mongosql/compiler/catalog"
)

func main() {
	catalogPath := flag.String("catalog", "", "path to a YAML schema catalog file")
	db := flag.String("db", "", "current database for unqualified collection references")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(*catalogPath, *db, log); err != nil {
		log.WithError(err).Error("compilation failed")
		os.Exit(1)
	}
}

func run(catalogPath, db string, log *logrus.Logger) error {
	if catalogPath == "" {
		return fmt.Errorf("-catalog is required")
	}

	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	query := exampleQuery()

	result, err := compiler.Compile(query, db, cat, logrus.NewEntry(log))
	if err != nil {
		return fmt.Errorf("compiling query: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// exampleQuery stands in for a parsed SQL statement: a real invocation
// would receive its ast.Query from an external tokenizer/parser, which is
// out of scope here (§1).
func exampleQuery() ast.Query {
	return &ast.SelectQuery{
		Select: ast.SelectClause{
			Body: ast.StandardSelectBody{
				ast.Star{},
			},
		},
		From: ast.CollectionSource{Collection: "items", Alias: "items"},
	}
}
