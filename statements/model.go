/*
 * Copyright (C) 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy of
 * the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
 * WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
 * License for the specific language governing permissions and limitations under
 * the License.
 */

package statements

import (
	"time"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
)

// Statement is one generated CQL statement with its positional bind values.
type Statement struct {
	Query  string
	Values []any
}

// Operator is a CQL relation operator usable in WHERE and IF clauses.
type Operator string

const (
	OpEq          Operator = "="
	OpLt          Operator = "<"
	OpLte         Operator = "<="
	OpGt          Operator = ">"
	OpGte         Operator = ">="
	OpIn          Operator = "IN"
	OpContains    Operator = "CONTAINS"
	OpContainsKey Operator = "CONTAINS KEY"
	OpLike        Operator = "LIKE"
)

// Criterion is a single column relation. IN criteria expect a slice value.
type Criterion struct {
	Column types.ColumnName
	Op     Operator
	Value  any
}

// Filter is a conjunction of criteria. CQL has no disjunction, so a slice
// is the whole story.
type Filter []Criterion

func Eq(column types.ColumnName, value any) Criterion {
	return Criterion{Column: column, Op: OpEq, Value: value}
}

func Lt(column types.ColumnName, value any) Criterion {
	return Criterion{Column: column, Op: OpLt, Value: value}
}

func Lte(column types.ColumnName, value any) Criterion {
	return Criterion{Column: column, Op: OpLte, Value: value}
}

func Gt(column types.ColumnName, value any) Criterion {
	return Criterion{Column: column, Op: OpGt, Value: value}
}

func Gte(column types.ColumnName, value any) Criterion {
	return Criterion{Column: column, Op: OpGte, Value: value}
}

// In matches any of the given values. The values slice binds element-wise.
func In(column types.ColumnName, values ...any) Criterion {
	return Criterion{Column: column, Op: OpIn, Value: values}
}

func Contains(column types.ColumnName, value any) Criterion {
	return Criterion{Column: column, Op: OpContains, Value: value}
}

func ContainsKey(column types.ColumnName, key any) Criterion {
	return Criterion{Column: column, Op: OpContainsKey, Value: key}
}

func Like(column types.ColumnName, pattern string) Criterion {
	return Criterion{Column: column, Op: OpLike, Value: pattern}
}

// Ordering is one ORDER BY element.
type Ordering struct {
	Column types.ColumnName
	Order  types.ClusteringOrder
}

func Asc(column types.ColumnName) Ordering {
	return Ordering{Column: column, Order: types.OrderAsc}
}

func Desc(column types.ColumnName) Ordering {
	return Ordering{Column: column, Order: types.OrderDesc}
}

// Query captures the SELECT shape: projection, filter, ordering, and limits.
type Query struct {
	Filter            Filter
	Columns           []types.ColumnName
	SortBy            []Ordering
	Limit             int
	PerPartitionLimit int
	AllowFiltering    bool
}

// WriteOptions modify generated mutation statements.
type WriteOptions struct {
	// TTL of zero means no USING TTL clause; a negative TTL emits TTL 0,
	// which removes an existing TTL in Cassandra.
	TTL time.Duration
	// Timestamp is the write timestamp in microseconds since epoch.
	Timestamp   int64
	IfNotExists bool
	IfExists    bool
	// Conditions are additional IF relations for lightweight transactions.
	Conditions Filter
}

// AssignmentOp enumerates the UPDATE SET operations.
type AssignmentOp int

const (
	AssignSet AssignmentOp = iota
	AssignSetAtIndex
	AssignSetAtKey
	AssignIncrement
	AssignDecrement
	AssignAppend
	AssignPrepend
	AssignRemove
	AssignPutAll
	AssignRemoveKeys
)

// Assignment is one UPDATE SET element.
type Assignment struct {
	Column types.ColumnName
	Op     AssignmentOp
	// Key is the bound list index or map key for the at-index/at-key forms.
	Key   any
	Value any
}

// Update is an ordered list of assignments.
type Update []Assignment

func Set(column types.ColumnName, value any) Assignment {
	return Assignment{Column: column, Op: AssignSet, Value: value}
}

func SetAtIndex(column types.ColumnName, index int, value any) Assignment {
	return Assignment{Column: column, Op: AssignSetAtIndex, Key: index, Value: value}
}

func SetAtKey(column types.ColumnName, key, value any) Assignment {
	return Assignment{Column: column, Op: AssignSetAtKey, Key: key, Value: value}
}

func Increment(column types.ColumnName, delta int64) Assignment {
	return Assignment{Column: column, Op: AssignIncrement, Value: delta}
}

func Decrement(column types.ColumnName, delta int64) Assignment {
	return Assignment{Column: column, Op: AssignDecrement, Value: delta}
}

// Append adds elements to the tail of a list or to a set.
func Append(column types.ColumnName, values ...any) Assignment {
	return Assignment{Column: column, Op: AssignAppend, Value: values}
}

// Prepend adds elements to the head of a list.
func Prepend(column types.ColumnName, values ...any) Assignment {
	return Assignment{Column: column, Op: AssignPrepend, Value: values}
}

// Remove discards the given elements from a list or set.
func Remove(column types.ColumnName, values ...any) Assignment {
	return Assignment{Column: column, Op: AssignRemove, Value: values}
}

// PutAll merges the given entries into a map column.
func PutAll(column types.ColumnName, entries map[any]any) Assignment {
	return Assignment{Column: column, Op: AssignPutAll, Value: entries}
}

// RemoveKeys discards the given keys from a map column.
func RemoveKeys(column types.ColumnName, keys ...any) Assignment {
	return Assignment{Column: column, Op: AssignRemoveKeys, Value: keys}
}
