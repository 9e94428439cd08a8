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
	"fmt"
	"strings"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/utilities"
)

// NamedValue is a (column, bind value) pair for INSERT and assignment-style
// statement generation.
type NamedValue struct {
	Column types.ColumnName
	Value  any
}

// Insert generates INSERT INTO t (cols...) VALUES (?...) with options.
func Insert(table types.QualifiedTable, values []NamedValue, opts WriteOptions) (Statement, error) {
	if len(values) == 0 {
		return Statement{}, fmt.Errorf("insert into %s requires at least one column", table)
	}
	var sb strings.Builder
	var args []any
	sb.WriteString("INSERT INTO ")
	sb.WriteString(qualifiedName(table))
	sb.WriteString(" (")
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(utilities.QuoteIdentifier(string(v.Column)))
	}
	sb.WriteString(") VALUES (")
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
		args = append(args, v.Value)
	}
	sb.WriteString(")")
	if opts.IfNotExists {
		sb.WriteString(" IF NOT EXISTS")
	}
	args = appendUsing(&sb, opts, args)
	return Statement{Query: sb.String(), Values: args}, nil
}

// BuildUpdate generates UPDATE t [USING ...] SET assignments WHERE filter [IF ...].
func BuildUpdate(table types.QualifiedTable, update Update, where Filter, opts WriteOptions) (Statement, error) {
	if len(update) == 0 {
		return Statement{}, fmt.Errorf("update of %s requires at least one assignment", table)
	}
	if len(where) == 0 {
		return Statement{}, fmt.Errorf("update of %s requires a WHERE clause", table)
	}
	var sb strings.Builder
	var args []any
	sb.WriteString("UPDATE ")
	sb.WriteString(qualifiedName(table))
	args = appendUsing(&sb, opts, args)
	sb.WriteString(" SET ")
	for i, a := range update {
		if i > 0 {
			sb.WriteString(", ")
		}
		var err error
		args, err = appendAssignment(&sb, a, args)
		if err != nil {
			return Statement{}, err
		}
	}
	var err error
	args, err = appendWhere(&sb, where, args)
	if err != nil {
		return Statement{}, err
	}
	args, err = appendConditions(&sb, opts, args)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Query: sb.String(), Values: args}, nil
}

// Delete generates DELETE [cols] FROM t WHERE filter [IF ...]. A non-empty
// columns list deletes individual cells instead of whole rows.
func Delete(table types.QualifiedTable, columns []types.ColumnName, where Filter, opts WriteOptions) (Statement, error) {
	if len(where) == 0 {
		return Statement{}, fmt.Errorf("delete from %s requires a WHERE clause", table)
	}
	var sb strings.Builder
	var args []any
	sb.WriteString("DELETE ")
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(utilities.QuoteIdentifier(string(col)))
	}
	if len(columns) > 0 {
		sb.WriteString(" ")
	}
	sb.WriteString("FROM ")
	sb.WriteString(qualifiedName(table))
	if opts.Timestamp != 0 {
		sb.WriteString(" USING TIMESTAMP ?")
		args = append(args, opts.Timestamp)
	}
	var err error
	args, err = appendWhere(&sb, where, args)
	if err != nil {
		return Statement{}, err
	}
	args, err = appendConditions(&sb, opts, args)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Query: sb.String(), Values: args}, nil
}

// Select generates SELECT cols FROM t with the query's filter, ordering,
// and limits.
func Select(table types.QualifiedTable, query Query) (Statement, error) {
	var sb strings.Builder
	var args []any
	sb.WriteString("SELECT ")
	if len(query.Columns) == 0 {
		sb.WriteString("*")
	} else {
		for i, col := range query.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(utilities.QuoteIdentifier(string(col)))
		}
	}
	sb.WriteString(" FROM ")
	sb.WriteString(qualifiedName(table))
	var err error
	if len(query.Filter) > 0 {
		args, err = appendWhere(&sb, query.Filter, args)
		if err != nil {
			return Statement{}, err
		}
	}
	if len(query.SortBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range query.SortBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(utilities.QuoteIdentifier(string(o.Column)))
			sb.WriteString(" ")
			sb.WriteString(string(o.Order))
		}
	}
	if query.PerPartitionLimit > 0 {
		sb.WriteString(" PER PARTITION LIMIT ?")
		args = append(args, query.PerPartitionLimit)
	}
	if query.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, query.Limit)
	}
	if query.AllowFiltering {
		sb.WriteString(" ALLOW FILTERING")
	}
	return Statement{Query: sb.String(), Values: args}, nil
}

// SelectCount generates SELECT COUNT(*) with the query's filter.
func SelectCount(table types.QualifiedTable, query Query) (Statement, error) {
	counting := query
	counting.Columns = nil
	counting.SortBy = nil
	st, err := Select(table, counting)
	if err != nil {
		return Statement{}, err
	}
	st.Query = strings.Replace(st.Query, "SELECT *", "SELECT COUNT(*)", 1)
	return st, nil
}

// Truncate generates TRUNCATE t.
func Truncate(table types.QualifiedTable) Statement {
	return Statement{Query: "TRUNCATE " + qualifiedName(table)}
}

func qualifiedName(table types.QualifiedTable) string {
	name := utilities.QuoteIdentifier(string(table.Table))
	if table.Keyspace == "" {
		return name
	}
	return utilities.QuoteIdentifier(string(table.Keyspace)) + "." + name
}

func appendUsing(sb *strings.Builder, opts WriteOptions, args []any) []any {
	wroteUsing := false
	using := func() {
		if wroteUsing {
			sb.WriteString(" AND ")
		} else {
			sb.WriteString(" USING ")
			wroteUsing = true
		}
	}
	if opts.TTL != 0 {
		using()
		sb.WriteString("TTL ?")
		seconds := int(opts.TTL.Seconds())
		if seconds < 0 {
			seconds = 0
		}
		args = append(args, seconds)
	}
	if opts.Timestamp != 0 {
		using()
		sb.WriteString("TIMESTAMP ?")
		args = append(args, opts.Timestamp)
	}
	return args
}

func appendWhere(sb *strings.Builder, where Filter, args []any) ([]any, error) {
	sb.WriteString(" WHERE ")
	return appendRelations(sb, where, args)
}

func appendConditions(sb *strings.Builder, opts WriteOptions, args []any) ([]any, error) {
	if opts.IfNotExists {
		sb.WriteString(" IF NOT EXISTS")
		return args, nil
	}
	if len(opts.Conditions) > 0 {
		sb.WriteString(" IF ")
		return appendRelations(sb, opts.Conditions, args)
	}
	if opts.IfExists {
		sb.WriteString(" IF EXISTS")
	}
	return args, nil
}

func appendRelations(sb *strings.Builder, relations Filter, args []any) ([]any, error) {
	for i, r := range relations {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(utilities.QuoteIdentifier(string(r.Column)))
		switch r.Op {
		case OpIn:
			values, ok := r.Value.([]any)
			if !ok {
				return nil, fmt.Errorf("IN criterion on %s requires a value slice, got %T", r.Column, r.Value)
			}
			if len(values) == 0 {
				return nil, fmt.Errorf("IN criterion on %s has no values", r.Column)
			}
			sb.WriteString(" IN (")
			for j, v := range values {
				if j > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString("?")
				args = append(args, v)
			}
			sb.WriteString(")")
		case OpEq, OpLt, OpLte, OpGt, OpGte, OpContains, OpContainsKey, OpLike:
			sb.WriteString(" ")
			sb.WriteString(string(r.Op))
			sb.WriteString(" ?")
			args = append(args, r.Value)
		default:
			return nil, fmt.Errorf("unsupported operator %q", r.Op)
		}
	}
	return args, nil
}

func appendAssignment(sb *strings.Builder, a Assignment, args []any) ([]any, error) {
	col := utilities.QuoteIdentifier(string(a.Column))
	switch a.Op {
	case AssignSet:
		sb.WriteString(col + " = ?")
		return append(args, a.Value), nil
	case AssignSetAtIndex, AssignSetAtKey:
		sb.WriteString(col + "[?] = ?")
		return append(args, a.Key, a.Value), nil
	case AssignIncrement:
		sb.WriteString(col + " = " + col + " + ?")
		return append(args, a.Value), nil
	case AssignDecrement:
		sb.WriteString(col + " = " + col + " - ?")
		return append(args, a.Value), nil
	case AssignAppend, AssignPutAll:
		sb.WriteString(col + " = " + col + " + ?")
		return append(args, a.Value), nil
	case AssignPrepend:
		sb.WriteString(col + " = ? + " + col)
		return append(args, a.Value), nil
	case AssignRemove, AssignRemoveKeys:
		sb.WriteString(col + " = " + col + " - ?")
		return append(args, a.Value), nil
	default:
		return nil, fmt.Errorf("unsupported assignment op %d on column %s", a.Op, a.Column)
	}
}
