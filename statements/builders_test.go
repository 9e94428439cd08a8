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
	"time"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usersTable = types.QualifiedTable{Keyspace: "app", Table: "users"}

func TestInsert(t *testing.T) {
	st, err := Insert(usersTable, []NamedValue{
		{Column: "user_id", Value: "u1"},
		{Column: "name", Value: "ada"},
	}, WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO app.users (user_id, name) VALUES (?, ?)", st.Query)
	assert.Equal(t, []any{"u1", "ada"}, st.Values)
}

func TestInsertWithOptions(t *testing.T) {
	st, err := Insert(usersTable, []NamedValue{
		{Column: "user_id", Value: "u1"},
	}, WriteOptions{IfNotExists: true, TTL: 90 * time.Second, Timestamp: 1234})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO app.users (user_id) VALUES (?) IF NOT EXISTS USING TTL ? AND TIMESTAMP ?", st.Query)
	assert.Equal(t, []any{"u1", 90, int64(1234)}, st.Values)
}

func TestInsertRequiresColumns(t *testing.T) {
	_, err := Insert(usersTable, nil, WriteOptions{})
	assert.Error(t, err)
}

func TestBuildUpdate(t *testing.T) {
	st, err := BuildUpdate(usersTable,
		Update{Set("name", "ada"), Set("email", "ada@example.com")},
		Filter{Eq("user_id", "u1")},
		WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE app.users SET name = ?, email = ? WHERE user_id = ?", st.Query)
	assert.Equal(t, []any{"ada", "ada@example.com", "u1"}, st.Values)
}

func TestBuildUpdateWithConditionsAndUsing(t *testing.T) {
	st, err := BuildUpdate(usersTable,
		Update{Set("name", "ada")},
		Filter{Eq("user_id", "u1")},
		WriteOptions{TTL: time.Minute, Conditions: Filter{Eq("version", int64(3))}})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE app.users USING TTL ? SET name = ? WHERE user_id = ? IF version = ?", st.Query)
	assert.Equal(t, []any{60, "ada", "u1", int64(3)}, st.Values)
}

func TestBuildUpdateCollectionAssignments(t *testing.T) {
	tests := []struct {
		name       string
		assignment Assignment
		wantSet    string
		wantValues []any
	}{
		{"append", Append("tags", "x"), "tags = tags + ?", []any{[]any{"x"}, "u1"}},
		{"prepend", Prepend("tags", "x"), "tags = ? + tags", []any{[]any{"x"}, "u1"}},
		{"remove", Remove("tags", "x"), "tags = tags - ?", []any{[]any{"x"}, "u1"}},
		{"set at index", SetAtIndex("tags", 2, "x"), "tags[?] = ?", []any{2, "x", "u1"}},
		{"set at key", SetAtKey("attrs", "color", "red"), "attrs[?] = ?", []any{"color", "red", "u1"}},
		{"increment", Increment("hits", int64(2)), "hits = hits + ?", []any{int64(2), "u1"}},
		{"decrement", Decrement("hits", int64(1)), "hits = hits - ?", []any{int64(1), "u1"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			st, err := BuildUpdate(usersTable, Update{test.assignment}, Filter{Eq("user_id", "u1")}, WriteOptions{})
			require.NoError(t, err)
			assert.Equal(t, "UPDATE app.users SET "+test.wantSet+" WHERE user_id = ?", st.Query)
			assert.Equal(t, test.wantValues, st.Values)
		})
	}
}

func TestBuildUpdateValidation(t *testing.T) {
	_, err := BuildUpdate(usersTable, Update{}, Filter{Eq("user_id", "u1")}, WriteOptions{})
	assert.Error(t, err)
	_, err = BuildUpdate(usersTable, Update{Set("name", "x")}, Filter{}, WriteOptions{})
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	st, err := Delete(usersTable, nil, Filter{Eq("user_id", "u1")}, WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM app.users WHERE user_id = ?", st.Query)
	assert.Equal(t, []any{"u1"}, st.Values)
}

func TestDeleteCells(t *testing.T) {
	st, err := Delete(usersTable, []types.ColumnName{"email", "tags"}, Filter{Eq("user_id", "u1")}, WriteOptions{IfExists: true})
	require.NoError(t, err)
	assert.Equal(t, "DELETE email, tags FROM app.users WHERE user_id = ? IF EXISTS", st.Query)
}

func TestSelect(t *testing.T) {
	st, err := Select(usersTable, Query{
		Columns: []types.ColumnName{"user_id", "name"},
		Filter:  Filter{Eq("region", "emea"), Gte("age", 18)},
		SortBy:  []Ordering{Desc("age")},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT user_id, name FROM app.users WHERE region = ? AND age >= ? ORDER BY age DESC LIMIT ?", st.Query)
	assert.Equal(t, []any{"emea", 18, 10}, st.Values)
}

func TestSelectStar(t *testing.T) {
	st, err := Select(usersTable, Query{AllowFiltering: true, PerPartitionLimit: 3})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM app.users PER PARTITION LIMIT ? ALLOW FILTERING", st.Query)
	assert.Equal(t, []any{3}, st.Values)
}

func TestSelectIn(t *testing.T) {
	st, err := Select(usersTable, Query{
		Filter: Filter{In("region", "emea", "apac")},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM app.users WHERE region IN (?, ?)", st.Query)
	assert.Equal(t, []any{"emea", "apac"}, st.Values)
}

func TestSelectInRequiresValues(t *testing.T) {
	_, err := Select(usersTable, Query{Filter: Filter{In("region")}})
	assert.Error(t, err)
}

func TestSelectContains(t *testing.T) {
	st, err := Select(usersTable, Query{Filter: Filter{Contains("tags", "go"), ContainsKey("attrs", "color")}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM app.users WHERE tags CONTAINS ? AND attrs CONTAINS KEY ?", st.Query)
}

func TestSelectCount(t *testing.T) {
	st, err := SelectCount(usersTable, Query{Filter: Filter{Eq("region", "emea")}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM app.users WHERE region = ?", st.Query)
}

func TestQuotedIdentifiers(t *testing.T) {
	table := types.QualifiedTable{Table: "order"}
	st, err := Select(table, Query{Filter: Filter{Eq("Desc", "x")}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "order" WHERE "Desc" = ?`, st.Query)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "TRUNCATE app.users", Truncate(usersTable).Query)
}
