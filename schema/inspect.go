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

// Package schema reads live cluster metadata and reconciles it against
// entity mappings, producing executable DDL plans.
package schema

import (
	"fmt"
	"sort"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/utilities"
	"github.com/gocql/gocql"
	"go.uber.org/zap"
)

// Keyspace is a snapshot of the live schema for one keyspace.
type Keyspace struct {
	Name   types.Keyspace
	Tables map[types.TableName]*Table
	Types  map[types.UdtName]*types.UdtType
}

// Table is a live table's column layout, keyed and ordered.
type Table struct {
	Name    types.TableName
	Columns []*types.Column
	byName  map[types.ColumnName]*types.Column
}

func (t *Table) Column(name types.ColumnName) (*types.Column, bool) {
	col, ok := t.byName[name]
	return col, ok
}

// Inspector reads system schema metadata through the driver.
type Inspector struct {
	session *gocql.Session
	logger  *zap.Logger
}

func NewInspector(session *gocql.Session, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{session: session, logger: logger}
}

// Describe loads the keyspace's tables and user-defined types. Driver type
// metadata is rendered into the package type model, resolving user type
// names against the keyspace's own types.
func (i *Inspector) Describe(keyspace types.Keyspace) (*Keyspace, error) {
	meta, err := i.session.KeyspaceMetadata(string(keyspace))
	if err != nil {
		return nil, fmt.Errorf("cannot read metadata for keyspace %s: %w", keyspace, err)
	}

	result := &Keyspace{
		Name:   keyspace,
		Tables: make(map[types.TableName]*Table),
		Types:  make(map[types.UdtName]*types.UdtType),
	}

	resolver := func(name string) (types.CqlDataType, bool) {
		udt, ok := result.Types[types.UdtName(name)]
		return udt, ok
	}

	// UDTs can reference each other, so resolve them in passes until the
	// set stops growing.
	pending := make(map[string]*gocql.UserTypeMetadata, len(meta.UserTypes))
	for name, udt := range meta.UserTypes {
		pending[name] = udt
	}
	for len(pending) > 0 {
		resolved := 0
		for name, udtMeta := range pending {
			fields := make([]types.UdtField, 0, len(udtMeta.FieldNames))
			ok := true
			for idx, fieldName := range udtMeta.FieldNames {
				fieldType, err := driverType(udtMeta.FieldTypes[idx], resolver)
				if err != nil {
					ok = false
					break
				}
				fields = append(fields, types.UdtField{Name: types.ColumnName(fieldName), Type: fieldType})
			}
			if !ok {
				continue
			}
			result.Types[types.UdtName(name)] = types.NewUdtType(keyspace, types.UdtName(name), fields)
			delete(pending, name)
			resolved++
		}
		if resolved == 0 {
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			return nil, fmt.Errorf("unresolvable user types in keyspace %s: %v", keyspace, names)
		}
	}

	for tableName, tableMeta := range meta.Tables {
		table, err := i.describeTable(keyspace, tableMeta, resolver)
		if err != nil {
			return nil, err
		}
		result.Tables[types.TableName(tableName)] = table
	}
	i.logger.Debug("described keyspace",
		zap.String("keyspace", string(keyspace)),
		zap.Int("tables", len(result.Tables)),
		zap.Int("types", len(result.Types)))
	return result, nil
}

func (i *Inspector) describeTable(keyspace types.Keyspace, meta *gocql.TableMetadata, resolver utilities.UdtResolver) (*Table, error) {
	table := &Table{
		Name:   types.TableName(meta.Name),
		byName: make(map[types.ColumnName]*types.Column, len(meta.Columns)),
	}
	for _, colMeta := range meta.Columns {
		cqlType, err := driverType(colMeta.Type, resolver)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", meta.Name, colMeta.Name, err)
		}
		col := &types.Column{
			Name:    types.ColumnName(colMeta.Name),
			CQLType: cqlType,
		}
		switch colMeta.Kind {
		case gocql.ColumnPartitionKey:
			col.KeyType = types.KeyTypePartition
			col.PkPrecedence = colMeta.ComponentIndex
		case gocql.ColumnClusteringKey:
			col.KeyType = types.KeyTypeClustering
			col.PkPrecedence = colMeta.ComponentIndex
			if colMeta.ClusteringOrder == "desc" {
				col.ClusteringOrder = types.OrderDesc
			} else {
				col.ClusteringOrder = types.OrderAsc
			}
		case gocql.ColumnStatic:
			col.KeyType = types.KeyTypeRegular
			col.IsStatic = true
		default:
			col.KeyType = types.KeyTypeRegular
		}
		table.Columns = append(table.Columns, col)
		table.byName[col.Name] = col
	}
	sort.SliceStable(table.Columns, func(a, b int) bool {
		return columnRank(table.Columns[a]) < columnRank(table.Columns[b])
	})
	return table, nil
}

func columnRank(col *types.Column) int {
	switch col.KeyType {
	case types.KeyTypePartition:
		return col.PkPrecedence
	case types.KeyTypeClustering:
		return 1000 + col.PkPrecedence
	default:
		return 1000000
	}
}

// driverType renders driver type metadata into the package type model,
// walking collection, tuple, and user-type structures. User types resolve
// by name so the snapshot shares one descriptor per type. Frozenness is not
// exposed by the driver; diffing compensates by comparing unfrozen shapes.
func driverType(info gocql.TypeInfo, resolver utilities.UdtResolver) (types.CqlDataType, error) {
	switch info.Type() {
	case gocql.TypeAscii:
		return types.TypeAscii, nil
	case gocql.TypeVarchar:
		return types.TypeVarchar, nil
	case gocql.TypeText:
		return types.TypeText, nil
	case gocql.TypeBigInt:
		return types.TypeBigint, nil
	case gocql.TypeBlob:
		return types.TypeBlob, nil
	case gocql.TypeBoolean:
		return types.TypeBoolean, nil
	case gocql.TypeCounter:
		return types.TypeCounter, nil
	case gocql.TypeDate:
		return types.TypeDate, nil
	case gocql.TypeDecimal:
		return types.TypeDecimal, nil
	case gocql.TypeDouble:
		return types.TypeDouble, nil
	case gocql.TypeFloat:
		return types.TypeFloat, nil
	case gocql.TypeInet:
		return types.TypeInet, nil
	case gocql.TypeInt:
		return types.TypeInt, nil
	case gocql.TypeSmallInt:
		return types.TypeSmallint, nil
	case gocql.TypeTime:
		return types.TypeTime, nil
	case gocql.TypeTimestamp:
		return types.TypeTimestamp, nil
	case gocql.TypeTimeUUID:
		return types.TypeTimeuuid, nil
	case gocql.TypeTinyInt:
		return types.TypeTinyint, nil
	case gocql.TypeUUID:
		return types.TypeUuid, nil
	case gocql.TypeVarint:
		return types.TypeVarint, nil
	case gocql.TypeList:
		collection, ok := info.(gocql.CollectionType)
		if !ok {
			return nil, fmt.Errorf("list metadata missing element type")
		}
		elem, err := driverType(collection.Elem, resolver)
		if err != nil {
			return nil, err
		}
		return types.NewListType(elem), nil
	case gocql.TypeSet:
		collection, ok := info.(gocql.CollectionType)
		if !ok {
			return nil, fmt.Errorf("set metadata missing element type")
		}
		elem, err := driverType(collection.Elem, resolver)
		if err != nil {
			return nil, err
		}
		return types.NewSetType(elem), nil
	case gocql.TypeMap:
		collection, ok := info.(gocql.CollectionType)
		if !ok {
			return nil, fmt.Errorf("map metadata missing key/value types")
		}
		key, err := driverType(collection.Key, resolver)
		if err != nil {
			return nil, err
		}
		value, err := driverType(collection.Elem, resolver)
		if err != nil {
			return nil, err
		}
		return types.NewMapType(key, value), nil
	case gocql.TypeTuple:
		tuple, ok := info.(gocql.TupleTypeInfo)
		if !ok {
			return nil, fmt.Errorf("tuple metadata missing element types")
		}
		elems := make([]types.CqlDataType, 0, len(tuple.Elems))
		for _, elemInfo := range tuple.Elems {
			elem, err := driverType(elemInfo, resolver)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		return types.NewTupleType(elems...), nil
	case gocql.TypeUDT:
		udtInfo, ok := info.(gocql.UDTTypeInfo)
		if !ok {
			return nil, fmt.Errorf("user type metadata missing type name")
		}
		udt, ok := resolver(udtInfo.Name)
		if !ok {
			return nil, fmt.Errorf("unresolved user type %s", udtInfo.Name)
		}
		return udt, nil
	default:
		return nil, fmt.Errorf("unsupported driver type %v", info.Type())
	}
}
