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
	"testing"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventColumns() []*types.Column {
	return []*types.Column{
		{Name: "tenant_id", CQLType: types.TypeText, KeyType: types.KeyTypePartition, PkPrecedence: 0},
		{Name: "bucket", CQLType: types.TypeInt, KeyType: types.KeyTypePartition, PkPrecedence: 1},
		{Name: "at", CQLType: types.TypeTimestamp, KeyType: types.KeyTypeClustering, PkPrecedence: 0, ClusteringOrder: types.OrderDesc},
		{Name: "payload", CQLType: types.TypeBlob, KeyType: types.KeyTypeRegular},
		{Name: "region", CQLType: types.TypeText, KeyType: types.KeyTypeRegular, IsStatic: true},
	}
}

func TestCreateTable(t *testing.T) {
	st, err := CreateTable(types.QualifiedTable{Keyspace: "app", Table: "events"}, eventColumns(), false, nil)
	require.NoError(t, err)
	want := "CREATE TABLE app.events (\n" +
		"    tenant_id text,\n" +
		"    bucket int,\n" +
		"    at timestamp,\n" +
		"    payload blob,\n" +
		"    region text STATIC,\n" +
		"    PRIMARY KEY ((tenant_id, bucket), at)\n" +
		") WITH CLUSTERING ORDER BY (at DESC)"
	assert.Equal(t, want, st.Query)
}

func TestCreateTableSimpleKey(t *testing.T) {
	columns := []*types.Column{
		{Name: "id", CQLType: types.TypeUuid, KeyType: types.KeyTypePartition},
		{Name: "name", CQLType: types.TypeText, KeyType: types.KeyTypeRegular},
	}
	st, err := CreateTable(types.QualifiedTable{Table: "users"}, columns, true, TableOptions{
		"default_time_to_live": "600",
	})
	require.NoError(t, err)
	want := "CREATE TABLE IF NOT EXISTS users (\n" +
		"    id uuid,\n" +
		"    name text,\n" +
		"    PRIMARY KEY (id)\n" +
		") WITH default_time_to_live = 600"
	assert.Equal(t, want, st.Query)
}

func TestCreateTableRequiresPartitionKey(t *testing.T) {
	columns := []*types.Column{
		{Name: "name", CQLType: types.TypeText, KeyType: types.KeyTypeRegular},
	}
	_, err := CreateTable(types.QualifiedTable{Table: "users"}, columns, false, nil)
	assert.Error(t, err)
}

func TestCreateType(t *testing.T) {
	udt := types.NewUdtType("app", "address", []types.UdtField{
		{Name: "street", Type: types.TypeText},
		{Name: "zip", Type: types.TypeInt},
	})
	st, err := CreateType("app", udt, true)
	require.NoError(t, err)
	want := "CREATE TYPE IF NOT EXISTS app.address (\n" +
		"    street text,\n" +
		"    zip int\n" +
		")"
	assert.Equal(t, want, st.Query)
}

func TestCreateTypeRequiresFields(t *testing.T) {
	udt := types.NewUdtType("app", "empty", nil)
	_, err := CreateType("app", udt, false)
	assert.Error(t, err)
}

func TestCreateIndex(t *testing.T) {
	st := CreateIndex("users_email_idx", types.QualifiedTable{Keyspace: "app", Table: "users"}, "email", true)
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS users_email_idx ON app.users (email)", st.Query)
}

func TestDropStatements(t *testing.T) {
	assert.Equal(t, "DROP TABLE IF EXISTS app.users",
		DropTable(types.QualifiedTable{Keyspace: "app", Table: "users"}, true).Query)
	assert.Equal(t, "DROP TYPE app.address",
		DropType("app", "address", false).Query)
	assert.Equal(t, "DROP INDEX IF EXISTS app.users_email_idx",
		DropIndex("app", "users_email_idx", true).Query)
}

func TestAlterTableAddColumn(t *testing.T) {
	col := &types.Column{Name: "nickname", CQLType: types.TypeText}
	st := AlterTableAddColumn(types.QualifiedTable{Keyspace: "app", Table: "users"}, col)
	assert.Equal(t, "ALTER TABLE app.users ADD nickname text", st.Query)
}

func TestBatchApplyRequiresStatements(t *testing.T) {
	batch := NewLoggedBatch()
	assert.Equal(t, 0, batch.Size())
	_, err := batch.Apply(nil)
	assert.Error(t, err)

	batch.Add(Statement{Query: "INSERT INTO t (a) VALUES (?)", Values: []any{1}})
	assert.Equal(t, 1, batch.Size())
}
