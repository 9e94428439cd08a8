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
	"os"
	"path/filepath"
	"testing"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declarationYaml = `
keyspace: app
types:
  - name: address
    fields:
      - name: street
        type: text
      - name: zip
        type: int
tables:
  - name: users
    columns:
      - name: user_id
        type: uuid
        key: partition
      - name: joined_at
        type: timestamp
        key: clustering
        order: desc
      - name: name
        type: text
      - name: home
        type: frozen<address>
      - name: region
        type: text
        static: true
    indexes:
      - name: users_name_idx
        column: name
`

func writeDeclaration(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTable(name types.TableName, columns ...*types.Column) *Table {
	table := &Table{Name: name, byName: make(map[types.ColumnName]*types.Column, len(columns))}
	for _, col := range columns {
		table.Columns = append(table.Columns, col)
		table.byName[col.Name] = col
	}
	return table
}

func TestLoadDeclaration(t *testing.T) {
	declaration, err := LoadDeclaration(writeDeclaration(t, declarationYaml))
	require.NoError(t, err)

	assert.Equal(t, types.Keyspace("app"), declaration.Keyspace)

	udts := declaration.UserTypes()
	require.Len(t, udts, 1)
	assert.Equal(t, types.UdtName("address"), udts[0].Name())
	require.Len(t, udts[0].Fields(), 2)
	assert.Equal(t, "int", udts[0].Fields()[1].Type.String())
}

func TestLoadDeclarationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing keyspace", "tables:\n  - name: users\n"},
		{"bad type reference", `
keyspace: app
types:
  - name: venue
    fields:
      - name: location
        type: frozen<geo_point>
`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadDeclaration(writeDeclaration(t, test.content))
			assert.Error(t, err)
		})
	}
}

func TestDeclarationCreateStatements(t *testing.T) {
	declaration, err := LoadDeclaration(writeDeclaration(t, declarationYaml))
	require.NoError(t, err)

	stmts, err := declaration.CreateStatements()
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Contains(t, stmts[0].Query, "CREATE TYPE IF NOT EXISTS app.address")
	assert.Contains(t, stmts[1].Query, "CREATE TABLE IF NOT EXISTS app.users")
	assert.Contains(t, stmts[1].Query, "home frozen<address>")
	assert.Contains(t, stmts[1].Query, "region text STATIC")
	assert.Contains(t, stmts[1].Query, "PRIMARY KEY (user_id, joined_at)")
	assert.Contains(t, stmts[1].Query, "CLUSTERING ORDER BY (joined_at DESC)")
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS users_name_idx ON app.users (name)", stmts[2].Query)
}

func TestDeclarationDiffEmptyKeyspace(t *testing.T) {
	declaration, err := LoadDeclaration(writeDeclaration(t, declarationYaml))
	require.NoError(t, err)

	live := &Keyspace{
		Name:   "app",
		Tables: map[types.TableName]*Table{},
		Types:  map[types.UdtName]*types.UdtType{},
	}
	plan, err := declaration.Diff(live)
	require.NoError(t, err)
	require.Len(t, plan.Changes, 3)
	assert.Equal(t, ChangeCreateType, plan.Changes[0].Kind)
	assert.Equal(t, ChangeCreateTable, plan.Changes[1].Kind)
	assert.Equal(t, ChangeCreateIndex, plan.Changes[2].Kind)
}

func TestDeclarationDiffAddsMissingColumn(t *testing.T) {
	declaration, err := LoadDeclaration(writeDeclaration(t, declarationYaml))
	require.NoError(t, err)

	address := types.NewUdtType("app", "address", []types.UdtField{
		{Name: "street", Type: types.TypeText},
		{Name: "zip", Type: types.TypeInt},
	})
	live := &Keyspace{
		Name: "app",
		Tables: map[types.TableName]*Table{
			"users": newTable("users",
				&types.Column{Name: "user_id", CQLType: types.TypeUuid, KeyType: types.KeyTypePartition},
				&types.Column{Name: "joined_at", CQLType: types.TypeTimestamp, KeyType: types.KeyTypeClustering, ClusteringOrder: types.OrderDesc},
				&types.Column{Name: "name", CQLType: types.TypeText, KeyType: types.KeyTypeRegular},
				&types.Column{Name: "home", CQLType: types.NewFrozenType(address), KeyType: types.KeyTypeRegular},
			),
		},
		Types: map[types.UdtName]*types.UdtType{"address": address},
	}

	plan, err := declaration.Diff(live)
	require.NoError(t, err)

	var kinds []ChangeKind
	for _, change := range plan.Changes {
		kinds = append(kinds, change.Kind)
	}
	// region is missing live, the declared index is recreated defensively
	assert.Equal(t, []ChangeKind{ChangeAddColumn, ChangeCreateIndex}, kinds)
	assert.Equal(t, "users.region", plan.Changes[0].Object)
	assert.Equal(t, "ALTER TABLE app.users ADD region text", plan.Changes[0].Statement.Query)
}

func TestDeclarationDiffIncompatibilities(t *testing.T) {
	declaration, err := LoadDeclaration(writeDeclaration(t, declarationYaml))
	require.NoError(t, err)

	t.Run("missing key column", func(t *testing.T) {
		live := &Keyspace{
			Name: "app",
			Tables: map[types.TableName]*Table{
				"users": newTable("users",
					&types.Column{Name: "user_id", CQLType: types.TypeUuid, KeyType: types.KeyTypePartition},
				),
			},
			Types: map[types.UdtName]*types.UdtType{},
		}
		_, err := declaration.Diff(live)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "joined_at")
	})

	t.Run("column type changed", func(t *testing.T) {
		live := &Keyspace{
			Name: "app",
			Tables: map[types.TableName]*Table{
				"users": newTable("users",
					&types.Column{Name: "user_id", CQLType: types.TypeUuid, KeyType: types.KeyTypePartition},
					&types.Column{Name: "joined_at", CQLType: types.TypeTimestamp, KeyType: types.KeyTypeClustering},
					&types.Column{Name: "name", CQLType: types.TypeInt, KeyType: types.KeyTypeRegular},
				),
			},
			Types: map[types.UdtName]*types.UdtType{},
		}
		_, err := declaration.Diff(live)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be altered")
	})

	t.Run("incompatible live udt", func(t *testing.T) {
		live := &Keyspace{
			Name:   "app",
			Tables: map[types.TableName]*Table{},
			Types: map[types.UdtName]*types.UdtType{
				"address": types.NewUdtType("app", "address", []types.UdtField{
					{Name: "street", Type: types.TypeText},
					{Name: "zip", Type: types.TypeText},
				}),
			},
		}
		_, err := declaration.Diff(live)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "zip")
	})
}

type invoice struct {
	ID     string `cql:"invoice_id,partitionkey"`
	Amount int64  `cql:"amount"`
	Payer  string `cql:"payer,index"`
}

func TestPlannerDiff(t *testing.T) {
	planner := NewPlanner(mapping.NewMappingContext(mapping.WithDefaultKeyspace("app")), nil)

	t.Run("missing table", func(t *testing.T) {
		live := &Keyspace{
			Name:   "app",
			Tables: map[types.TableName]*Table{},
			Types:  map[types.UdtName]*types.UdtType{},
		}
		plan, err := planner.Diff(live, &invoice{})
		require.NoError(t, err)
		require.Len(t, plan.Changes, 2)
		assert.Equal(t, ChangeCreateTable, plan.Changes[0].Kind)
		assert.Contains(t, plan.Changes[0].Statement.Query, "CREATE TABLE app.invoice")
		assert.Equal(t, ChangeCreateIndex, plan.Changes[1].Kind)
		assert.Equal(t, "invoice_payer_idx", plan.Changes[1].Object)
	})

	t.Run("in sync", func(t *testing.T) {
		live := &Keyspace{
			Name: "app",
			Tables: map[types.TableName]*Table{
				"invoice": newTable("invoice",
					&types.Column{Name: "invoice_id", CQLType: types.TypeText, KeyType: types.KeyTypePartition},
					&types.Column{Name: "amount", CQLType: types.TypeBigint, KeyType: types.KeyTypeRegular},
					&types.Column{Name: "payer", CQLType: types.TypeText, KeyType: types.KeyTypeRegular},
				),
			},
			Types: map[types.UdtName]*types.UdtType{},
		}
		plan, err := planner.Diff(live, &invoice{})
		require.NoError(t, err)
		// only the defensive IF NOT EXISTS index remains
		require.Len(t, plan.Changes, 1)
		assert.Equal(t, ChangeCreateIndex, plan.Changes[0].Kind)
		assert.Contains(t, plan.Changes[0].Statement.Query, "IF NOT EXISTS")
	})

	t.Run("key mismatch", func(t *testing.T) {
		live := &Keyspace{
			Name: "app",
			Tables: map[types.TableName]*Table{
				"invoice": newTable("invoice",
					&types.Column{Name: "invoice_id", CQLType: types.TypeText, KeyType: types.KeyTypeClustering},
					&types.Column{Name: "amount", CQLType: types.TypeBigint, KeyType: types.KeyTypeRegular},
					&types.Column{Name: "payer", CQLType: types.TypeText, KeyType: types.KeyTypeRegular},
				),
			},
			Types: map[types.UdtName]*types.UdtType{},
		}
		_, err := planner.Diff(live, &invoice{})
		assert.Error(t, err)
	})
}
