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

package schema

import (
	"fmt"
	"os"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/statements"
	"github.com/cassandra-ecosystem/cql-object-mapper/utilities"
	"gopkg.in/yaml.v2"
)

// Declaration is a keyspace schema declared in YAML, independent of any
// mapped Go types. Column types use CQL syntax and may reference the
// declaration's own user-defined types.
type Declaration struct {
	Keyspace types.Keyspace      `yaml:"keyspace"`
	Types    []TypeDeclaration   `yaml:"types"`
	Tables   []TableDeclaration  `yaml:"tables"`
	Options  map[string]string   `yaml:"options"`
	resolved map[types.UdtName]*types.UdtType
}

type TypeDeclaration struct {
	Name   string              `yaml:"name"`
	Fields []FieldDeclaration  `yaml:"fields"`
}

type FieldDeclaration struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type TableDeclaration struct {
	Name    string               `yaml:"name"`
	Columns []ColumnDeclaration  `yaml:"columns"`
	Options map[string]string    `yaml:"options"`
	Indexes []IndexDeclaration   `yaml:"indexes"`
}

type ColumnDeclaration struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Key    string `yaml:"key"`
	Order  string `yaml:"order"`
	Static bool   `yaml:"static"`
}

type IndexDeclaration struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column"`
}

// LoadDeclaration reads and resolves a YAML schema file. Type references
// are resolved in declaration order, so a type must be declared before any
// table or later type that uses it.
func LoadDeclaration(path string) (*Declaration, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	var declaration Declaration
	if err = yaml.Unmarshal(fileData, &declaration); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	if declaration.Keyspace == "" {
		return nil, fmt.Errorf("schema file must declare a keyspace")
	}
	if err = declaration.resolve(); err != nil {
		return nil, err
	}
	return &declaration, nil
}

func (d *Declaration) resolve() error {
	d.resolved = make(map[types.UdtName]*types.UdtType, len(d.Types))
	resolver := func(name string) (types.CqlDataType, bool) {
		udt, ok := d.resolved[types.UdtName(name)]
		return udt, ok
	}
	for _, typeDecl := range d.Types {
		fields := make([]types.UdtField, 0, len(typeDecl.Fields))
		for _, fieldDecl := range typeDecl.Fields {
			fieldType, err := utilities.ParseCqlTypeStringWithResolver(fieldDecl.Type, resolver)
			if err != nil {
				return fmt.Errorf("type %s field %s: %w", typeDecl.Name, fieldDecl.Name, err)
			}
			fields = append(fields, types.UdtField{Name: types.ColumnName(fieldDecl.Name), Type: fieldType})
		}
		name := types.UdtName(typeDecl.Name)
		d.resolved[name] = types.NewUdtType(d.Keyspace, name, fields)
	}
	return nil
}

// UserTypes returns the resolved UDTs in declaration order.
func (d *Declaration) UserTypes() []*types.UdtType {
	result := make([]*types.UdtType, 0, len(d.Types))
	for _, typeDecl := range d.Types {
		result = append(result, d.resolved[types.UdtName(typeDecl.Name)])
	}
	return result
}

func (d *Declaration) tableColumns(tableDecl TableDeclaration) ([]*types.Column, error) {
	resolver := func(name string) (types.CqlDataType, bool) {
		udt, ok := d.resolved[types.UdtName(name)]
		return udt, ok
	}
	columns := make([]*types.Column, 0, len(tableDecl.Columns))
	partitionSeen, clusteringSeen := 0, 0
	for _, colDecl := range tableDecl.Columns {
		cqlType, err := utilities.ParseCqlTypeStringWithResolver(colDecl.Type, resolver)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", tableDecl.Name, colDecl.Name, err)
		}
		col := &types.Column{
			Name:    types.ColumnName(colDecl.Name),
			CQLType: cqlType,
		}
		switch colDecl.Key {
		case "partition":
			col.KeyType = types.KeyTypePartition
			col.PkPrecedence = partitionSeen
			partitionSeen++
		case "clustering":
			col.KeyType = types.KeyTypeClustering
			col.PkPrecedence = clusteringSeen
			clusteringSeen++
			if colDecl.Order == "desc" {
				col.ClusteringOrder = types.OrderDesc
			} else {
				col.ClusteringOrder = types.OrderAsc
			}
		case "", "regular":
			col.KeyType = types.KeyTypeRegular
			col.IsStatic = colDecl.Static
		default:
			return nil, fmt.Errorf("table %s column %s: unknown key kind %q", tableDecl.Name, colDecl.Name, colDecl.Key)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// CreateStatements generates the full DDL for the declaration: types in
// declaration order, then tables, then indexes.
func (d *Declaration) CreateStatements() ([]statements.Statement, error) {
	var result []statements.Statement
	for _, udt := range d.UserTypes() {
		st, err := statements.CreateType(d.Keyspace, udt, true)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	for _, tableDecl := range d.Tables {
		columns, err := d.tableColumns(tableDecl)
		if err != nil {
			return nil, err
		}
		table := types.QualifiedTable{Keyspace: d.Keyspace, Table: types.TableName(tableDecl.Name)}
		options := tableDecl.Options
		if options == nil {
			options = d.Options
		}
		st, err := statements.CreateTable(table, columns, true, options)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
		for _, indexDecl := range tableDecl.Indexes {
			result = append(result, statements.CreateIndex(indexDecl.Name, table, types.ColumnName(indexDecl.Column), true))
		}
	}
	return result, nil
}

// Diff plans the changes needed to bring the live keyspace in line with the
// declaration, with the same compatibility rules as entity diffing.
func (d *Declaration) Diff(live *Keyspace) (*Plan, error) {
	plan := &Plan{Keyspace: d.Keyspace}

	for _, udt := range d.UserTypes() {
		if liveType, ok := live.Types[udt.Name()]; ok {
			if err := compatibleUdt(liveType, udt); err != nil {
				return nil, fmt.Errorf("type %s: %w", udt.Name(), err)
			}
			continue
		}
		st, err := statements.CreateType(d.Keyspace, udt, false)
		if err != nil {
			return nil, err
		}
		plan.Changes = append(plan.Changes, Change{Kind: ChangeCreateType, Object: string(udt.Name()), Statement: st})
	}

	for _, tableDecl := range d.Tables {
		columns, err := d.tableColumns(tableDecl)
		if err != nil {
			return nil, err
		}
		table := types.QualifiedTable{Keyspace: d.Keyspace, Table: types.TableName(tableDecl.Name)}

		liveTable, exists := live.Tables[table.Table]
		if !exists {
			st, err := statements.CreateTable(table, columns, false, tableDecl.Options)
			if err != nil {
				return nil, err
			}
			plan.Changes = append(plan.Changes, Change{Kind: ChangeCreateTable, Object: tableDecl.Name, Statement: st})
			for _, indexDecl := range tableDecl.Indexes {
				plan.Changes = append(plan.Changes, Change{
					Kind:      ChangeCreateIndex,
					Object:    indexDecl.Name,
					Statement: statements.CreateIndex(indexDecl.Name, table, types.ColumnName(indexDecl.Column), false),
				})
			}
			continue
		}
		for _, col := range columns {
			liveCol, ok := liveTable.Column(col.Name)
			if !ok {
				if col.IsPrimaryKey() {
					return nil, fmt.Errorf("table %s: key column %s missing from live schema and keys cannot be added", tableDecl.Name, col.Name)
				}
				plan.Changes = append(plan.Changes, Change{
					Kind:      ChangeAddColumn,
					Object:    fmt.Sprintf("%s.%s", tableDecl.Name, col.Name),
					Statement: statements.AlterTableAddColumn(table, col),
				})
				continue
			}
			if liveCol.KeyType != col.KeyType {
				return nil, fmt.Errorf("table %s: column %s is %s live but declared as %s", tableDecl.Name, col.Name, liveCol.KeyType, col.KeyType)
			}
			if !sameCqlType(liveCol.CQLType, col.CQLType) {
				return nil, fmt.Errorf("table %s: column %s is %s live but declared as %s and cannot be altered", tableDecl.Name, col.Name, liveCol.CQLType, col.CQLType)
			}
		}
		for _, indexDecl := range tableDecl.Indexes {
			plan.Changes = append(plan.Changes, Change{
				Kind:      ChangeCreateIndex,
				Object:    indexDecl.Name,
				Statement: statements.CreateIndex(indexDecl.Name, table, types.ColumnName(indexDecl.Column), true),
			})
		}
	}
	return plan, nil
}
