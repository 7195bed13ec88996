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

package schema

// Numeric is the set of atomic kinds arithmetic operators accept, in
// promotion order: Integer < Long < Double < Decimal (§4.2).
var Numeric = NewAnyOf(Atomic(Integer), Atomic(Long), Atomic(Double), Atomic(Decimal))

var numericRank = map[Kind]int{
	Integer: 0,
	Long:    1,
	Double:  2,
	Decimal: 3,
}

// IsNumeric reports whether k is one of the arithmetic-eligible kinds.
func IsNumeric(k Kind) bool {
	_, ok := numericRank[k]
	return ok
}

// PromoteNumeric returns the highest-ranked numeric kind appearing among the
// leaf atomic kinds of the given schemas, per the Integer<Long<Double<Decimal
// promotion ladder. Schemas with no numeric leaf kind at all (e.g. pure
// Null) do not contribute a rank; if none of the schemas contribute one,
// PromoteNumeric returns (Integer, false).
func PromoteNumeric(schemas ...Schema) (Kind, bool) {
	best, found := -1, false
	for _, s := range schemas {
		ls := newLeafSet()
		flatten(s, ls)
		for k := range ls.kinds {
			if r, ok := numericRank[k]; ok {
				if r > best {
					best = r
				}
				found = true
			}
		}
	}
	if !found {
		return Integer, false
	}
	for k, r := range numericRank {
		if r == best {
			return k, true
		}
	}
	return Integer, false
}
