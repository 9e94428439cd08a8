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
	"sort"
	"strings"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/utilities"
)

// TableOptions carries the WITH clause of CREATE TABLE. Values are rendered
// verbatim, so string options must arrive pre-quoted.
type TableOptions map[string]string

// CreateTable generates the CREATE TABLE statement for the given columns.
// Columns must arrive primary-key-first as produced by entity metadata;
// the primary key clause groups partition keys and orders clustering keys
// by precedence.
func CreateTable(table types.QualifiedTable, columns []*types.Column, ifNotExists bool, options TableOptions) (Statement, error) {
	var partition, clustering []*types.Column
	for _, col := range columns {
		switch col.KeyType {
		case types.KeyTypePartition:
			partition = append(partition, col)
		case types.KeyTypeClustering:
			clustering = append(clustering, col)
		}
	}
	if len(partition) == 0 {
		return Statement{}, fmt.Errorf("table %s has no partition key", table)
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(qualifiedName(table))
	sb.WriteString(" (\n")
	for _, col := range columns {
		sb.WriteString("    ")
		sb.WriteString(utilities.QuoteIdentifier(string(col.Name)))
		sb.WriteString(" ")
		sb.WriteString(col.CQLType.String())
		if col.IsStatic {
			sb.WriteString(" STATIC")
		}
		sb.WriteString(",\n")
	}
	sb.WriteString("    ")
	sb.WriteString(primaryKeyClause(partition, clustering))
	sb.WriteString("\n)")

	var withParts []string
	if order := clusteringOrderClause(clustering); order != "" {
		withParts = append(withParts, order)
	}
	for _, k := range sortedKeys(options) {
		withParts = append(withParts, fmt.Sprintf("%s = %s", k, options[k]))
	}
	if len(withParts) > 0 {
		sb.WriteString(" WITH ")
		sb.WriteString(strings.Join(withParts, " AND "))
	}
	return Statement{Query: sb.String()}, nil
}

func primaryKeyClause(partition, clustering []*types.Column) string {
	var pkCols []string
	for _, col := range partition {
		pkCols = append(pkCols, utilities.QuoteIdentifier(string(col.Name)))
	}
	var clusteringCols []string
	for _, col := range clustering {
		clusteringCols = append(clusteringCols, utilities.QuoteIdentifier(string(col.Name)))
	}

	if len(pkCols) == 1 && len(clusteringCols) == 0 {
		return fmt.Sprintf("PRIMARY KEY (%s)", pkCols[0])
	}
	if len(pkCols) == 1 {
		return fmt.Sprintf("PRIMARY KEY (%s, %s)", pkCols[0], strings.Join(clusteringCols, ", "))
	}
	if len(clusteringCols) == 0 {
		return fmt.Sprintf("PRIMARY KEY ((%s))", strings.Join(pkCols, ", "))
	}
	return fmt.Sprintf("PRIMARY KEY ((%s), %s)",
		strings.Join(pkCols, ", "),
		strings.Join(clusteringCols, ", "))
}

func clusteringOrderClause(clustering []*types.Column) string {
	needed := false
	for _, col := range clustering {
		if col.ClusteringOrder == types.OrderDesc {
			needed = true
		}
	}
	if !needed {
		return ""
	}
	var parts []string
	for _, col := range clustering {
		order := col.ClusteringOrder
		if order == "" {
			order = types.OrderAsc
		}
		parts = append(parts, fmt.Sprintf("%s %s", utilities.QuoteIdentifier(string(col.Name)), order))
	}
	return fmt.Sprintf("CLUSTERING ORDER BY (%s)", strings.Join(parts, ", "))
}

// CreateType generates CREATE TYPE for a user-defined type.
func CreateType(keyspace types.Keyspace, udt *types.UdtType, ifNotExists bool) (Statement, error) {
	if len(udt.Fields()) == 0 {
		return Statement{}, fmt.Errorf("type %s has no fields", udt.Name())
	}
	var sb strings.Builder
	sb.WriteString("CREATE TYPE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(qualifiedTypeName(keyspace, udt.Name()))
	sb.WriteString(" (\n")
	for i, f := range udt.Fields() {
		if i > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString("    ")
		sb.WriteString(utilities.QuoteIdentifier(string(f.Name)))
		sb.WriteString(" ")
		sb.WriteString(f.Type.String())
	}
	sb.WriteString("\n)")
	return Statement{Query: sb.String()}, nil
}

// CreateIndex generates CREATE INDEX on a single column.
func CreateIndex(name string, table types.QualifiedTable, column types.ColumnName, ifNotExists bool) Statement {
	var sb strings.Builder
	sb.WriteString("CREATE INDEX ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(utilities.QuoteIdentifier(name))
	sb.WriteString(" ON ")
	sb.WriteString(qualifiedName(table))
	sb.WriteString(" (")
	sb.WriteString(utilities.QuoteIdentifier(string(column)))
	sb.WriteString(")")
	return Statement{Query: sb.String()}
}

// DropTable generates DROP TABLE.
func DropTable(table types.QualifiedTable, ifExists bool) Statement {
	var sb strings.Builder
	sb.WriteString("DROP TABLE ")
	if ifExists {
		sb.WriteString("IF EXISTS ")
	}
	sb.WriteString(qualifiedName(table))
	return Statement{Query: sb.String()}
}

// DropType generates DROP TYPE.
func DropType(keyspace types.Keyspace, name types.UdtName, ifExists bool) Statement {
	var sb strings.Builder
	sb.WriteString("DROP TYPE ")
	if ifExists {
		sb.WriteString("IF EXISTS ")
	}
	sb.WriteString(qualifiedTypeName(keyspace, name))
	return Statement{Query: sb.String()}
}

// DropIndex generates DROP INDEX.
func DropIndex(keyspace types.Keyspace, name string, ifExists bool) Statement {
	var sb strings.Builder
	sb.WriteString("DROP INDEX ")
	if ifExists {
		sb.WriteString("IF EXISTS ")
	}
	if keyspace != "" {
		sb.WriteString(utilities.QuoteIdentifier(string(keyspace)))
		sb.WriteString(".")
	}
	sb.WriteString(utilities.QuoteIdentifier(name))
	return Statement{Query: sb.String()}
}

// AlterTableAddColumn generates ALTER TABLE ... ADD for schema diffs.
func AlterTableAddColumn(table types.QualifiedTable, column *types.Column) Statement {
	return Statement{Query: fmt.Sprintf("ALTER TABLE %s ADD %s %s",
		qualifiedName(table), utilities.QuoteIdentifier(string(column.Name)), column.CQLType)}
}

func qualifiedTypeName(keyspace types.Keyspace, name types.UdtName) string {
	quoted := utilities.QuoteIdentifier(string(name))
	if keyspace == "" {
		return quoted
	}
	return utilities.QuoteIdentifier(string(keyspace)) + "." + quoted
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
