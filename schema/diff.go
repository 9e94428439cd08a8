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
	"context"
	"fmt"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"github.com/cassandra-ecosystem/cql-object-mapper/statements"
	"github.com/gocql/gocql"
)

// ChangeKind classifies a planned schema change.
type ChangeKind string

const (
	ChangeCreateType  ChangeKind = "create type"
	ChangeCreateTable ChangeKind = "create table"
	ChangeAddColumn   ChangeKind = "add column"
	ChangeCreateIndex ChangeKind = "create index"
)

// Change is one planned DDL statement with its classification.
type Change struct {
	Kind      ChangeKind
	Object    string
	Statement statements.Statement
}

// Plan is an ordered list of schema changes that brings the live keyspace
// in line with the entity mappings. Types come before the tables that use
// them, tables before their indexes.
type Plan struct {
	Keyspace types.Keyspace
	Changes  []Change
}

func (p *Plan) IsEmpty() bool { return len(p.Changes) == 0 }

// Apply executes the plan in order. Cassandra DDL is not transactional;
// a failure leaves earlier changes in place.
func (p *Plan) Apply(ctx context.Context, session *gocql.Session) error {
	for _, change := range p.Changes {
		if err := session.Query(change.Statement.Query).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("%s %s: %w", change.Kind, change.Object, err)
		}
	}
	return nil
}

// Planner diffs entity mappings against a live keyspace snapshot.
type Planner struct {
	context *mapping.MappingContext
	options statements.TableOptions
}

func NewPlanner(mappingContext *mapping.MappingContext, options statements.TableOptions) *Planner {
	return &Planner{context: mappingContext, options: options}
}

// Diff plans the changes needed for the given entity examples. Missing
// tables and types are created, missing regular columns are added; key or
// type mismatches on existing columns are incompatible and abort planning.
func (p *Planner) Diff(live *Keyspace, examples ...any) (*Plan, error) {
	plan := &Plan{Keyspace: live.Name}
	plannedTypes := make(map[types.UdtName]bool)

	for _, example := range examples {
		entity, err := p.context.GetEntity(example)
		if err != nil {
			return nil, err
		}
		if err := p.diffEntityTypes(plan, live, entity, plannedTypes); err != nil {
			return nil, err
		}
		if err := p.diffEntityTable(plan, live, entity); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (p *Planner) diffEntityTypes(plan *Plan, live *Keyspace, entity *mapping.PersistentEntity, planned map[types.UdtName]bool) error {
	for _, udtEntity := range p.context.UserDefinedTypes(entity) {
		if planned[udtEntity.UdtName] {
			continue
		}
		udt, err := udtEntity.UdtType()
		if err != nil {
			return err
		}
		if liveType, ok := live.Types[udtEntity.UdtName]; ok {
			if err := compatibleUdt(liveType, udt); err != nil {
				return fmt.Errorf("type %s: %w", udtEntity.UdtName, err)
			}
			continue
		}
		st, err := statements.CreateType(live.Name, udt, false)
		if err != nil {
			return err
		}
		plan.Changes = append(plan.Changes, Change{
			Kind:      ChangeCreateType,
			Object:    string(udtEntity.UdtName),
			Statement: st,
		})
		planned[udtEntity.UdtName] = true
	}
	return nil
}

func (p *Planner) diffEntityTable(plan *Plan, live *Keyspace, entity *mapping.PersistentEntity) error {
	table := types.QualifiedTable{Keyspace: live.Name, Table: entity.Table}

	liveTable, exists := live.Tables[entity.Table]
	if !exists {
		st, err := statements.CreateTable(table, entity.TableColumns(), false, p.options)
		if err != nil {
			return err
		}
		plan.Changes = append(plan.Changes, Change{
			Kind:      ChangeCreateTable,
			Object:    string(entity.Table),
			Statement: st,
		})
		p.planIndexes(plan, table, entity, nil)
		return nil
	}

	for _, col := range entity.TableColumns() {
		liveCol, ok := liveTable.Column(col.Name)
		if !ok {
			if col.IsPrimaryKey() {
				return fmt.Errorf("table %s: key column %s missing from live schema and keys cannot be added", entity.Table, col.Name)
			}
			plan.Changes = append(plan.Changes, Change{
				Kind:      ChangeAddColumn,
				Object:    fmt.Sprintf("%s.%s", entity.Table, col.Name),
				Statement: statements.AlterTableAddColumn(table, col),
			})
			continue
		}
		if liveCol.KeyType != col.KeyType {
			return fmt.Errorf("table %s: column %s is %s live but mapped as %s", entity.Table, col.Name, liveCol.KeyType, col.KeyType)
		}
		if !sameCqlType(liveCol.CQLType, col.CQLType) {
			return fmt.Errorf("table %s: column %s is %s live but mapped as %s and cannot be altered", entity.Table, col.Name, liveCol.CQLType, col.CQLType)
		}
	}
	p.planIndexes(plan, table, entity, liveTable)
	return nil
}

// planIndexes adds CREATE INDEX for mapped indexes. Live index metadata is
// not exposed uniformly across server versions, so existing-table indexes
// are created with IF NOT EXISTS.
func (p *Planner) planIndexes(plan *Plan, table types.QualifiedTable, entity *mapping.PersistentEntity, liveTable *Table) {
	for _, prop := range entity.ColumnProperties() {
		if prop.IndexName == "" {
			continue
		}
		plan.Changes = append(plan.Changes, Change{
			Kind:      ChangeCreateIndex,
			Object:    prop.IndexName,
			Statement: statements.CreateIndex(prop.IndexName, table, prop.ColumnName, liveTable != nil),
		})
	}
}

func compatibleUdt(live, mapped *types.UdtType) error {
	liveFields := make(map[types.ColumnName]types.CqlDataType, len(live.Fields()))
	for _, f := range live.Fields() {
		liveFields[f.Name] = f.Type
	}
	for _, f := range mapped.Fields() {
		liveType, ok := liveFields[f.Name]
		if !ok {
			return fmt.Errorf("field %s missing from live type", f.Name)
		}
		if !sameCqlType(liveType, f.Type) {
			return fmt.Errorf("field %s is %s live but mapped as %s", f.Name, liveType, f.Type)
		}
	}
	return nil
}

// sameCqlType compares two types ignoring frozen wrappers at any depth.
// Driver metadata does not expose frozenness, and frozen is not an alterable
// property anyway.
func sameCqlType(a, b types.CqlDataType) bool {
	return unfrozenString(a) == unfrozenString(b)
}

func unfrozenString(t types.CqlDataType) string {
	switch v := t.(type) {
	case *types.FrozenType:
		return unfrozenString(v.InnerType())
	case *types.ListType:
		return fmt.Sprintf("list<%s>", unfrozenString(v.ElementType()))
	case *types.SetType:
		return fmt.Sprintf("set<%s>", unfrozenString(v.ElementType()))
	case *types.MapType:
		return fmt.Sprintf("map<%s, %s>", unfrozenString(v.KeyType()), unfrozenString(v.ValueType()))
	default:
		return t.String()
	}
}
