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
package types

import (
	"fmt"

	"github.com/datastax/go-cassandra-native-protocol/message"
)

// Keyspace - a Cassandra keyspace name
type Keyspace string

// TableName - a Cassandra table name
type TableName string

// ColumnName - a Cassandra column or UDT field name
type ColumnName string

// UdtName - the name of a user-defined type
type UdtName string

// GoValue - a plain Golang value
type GoValue any

// KeyType classifies a column's role within the primary key.
type KeyType string

const (
	KeyTypePartition  KeyType = "partition"
	KeyTypeClustering KeyType = "clustering"
	KeyTypeRegular    KeyType = "regular"
)

// ClusteringOrder is the declared sort order of a clustering column.
type ClusteringOrder string

const (
	OrderAsc  ClusteringOrder = "ASC"
	OrderDesc ClusteringOrder = "DESC"
)

// Column describes one mapped Cassandra column.
type Column struct {
	Name    ColumnName
	CQLType CqlDataType
	KeyType KeyType
	// PkPrecedence orders the column within the whole primary key,
	// partition keys first. Zero for regular columns.
	PkPrecedence    int
	ClusteringOrder ClusteringOrder
	IsStatic        bool
	// Metadata is the native-protocol view of the column, used by schema
	// tooling and for prepared-statement metadata.
	Metadata message.ColumnMetadata
}

func (c *Column) IsPrimaryKey() bool {
	return c.KeyType == KeyTypePartition || c.KeyType == KeyTypeClustering
}

func (c *Column) IsCounter() bool {
	return c.CQLType != nil && c.CQLType.Code() == COUNTER
}

func (c *Column) String() string {
	return fmt.Sprintf("%s %s", c.Name, c.CQLType)
}

// QualifiedTable is a keyspace-qualified table name.
type QualifiedTable struct {
	Keyspace Keyspace
	Table    TableName
}

func (q QualifiedTable) String() string {
	if q.Keyspace == "" {
		return string(q.Table)
	}
	return fmt.Sprintf("%s.%s", q.Keyspace, q.Table)
}
