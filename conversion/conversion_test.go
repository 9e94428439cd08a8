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

package conversion

import (
	"strings"
	"testing"
	"time"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Address struct {
	Street string `cql:"street"`
	City   string `cql:"city"`
	Zip    int32  `cql:"zip"`
}

type User struct {
	ID       gocql.UUID       `cql:"user_id,partitionkey"`
	Name     string           `cql:"name"`
	JoinedAt time.Time        `cql:"joined_at"`
	Tags     []string         `cql:"tags,set"`
	Counts   map[string]int64 `cql:"counts"`
	Home     *Address         `cql:"home,udt:address,frozen"`
}

type OrderKey struct {
	Region  string `cql:"region,partitionkey"`
	OrderID int64  `cql:"order_id,clusteringkey"`
}

type Order struct {
	Key   OrderKey `cql:"key,primarykey"`
	Total float64  `cql:"total"`
}

func newTestConverter(t *testing.T) *EntityConverter {
	t.Helper()
	return NewEntityConverter(mapping.NewMappingContext(mapping.WithDefaultKeyspace("app")))
}

func TestWriteEntity(t *testing.T) {
	converter := newTestConverter(t)
	id := gocql.TimeUUID()
	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	user := &User{
		ID:       id,
		Name:     "ada",
		JoinedAt: joined,
		Tags:     []string{"a", "b"},
		Counts:   map[string]int64{"visits": 3},
		Home:     &Address{Street: "1 Main St", City: "Springfield", Zip: 12345},
	}

	entity, values, err := converter.WriteEntity(user)
	require.NoError(t, err)
	assert.Equal(t, types.TableName("user"), entity.Table)

	byColumn := make(map[types.ColumnName]any, len(values))
	for _, cv := range values {
		byColumn[cv.Column] = cv.Value
	}
	assert.Equal(t, id, byColumn["user_id"])
	assert.Equal(t, "ada", byColumn["name"])
	assert.Equal(t, joined, byColumn["joined_at"])
	assert.Equal(t, []any{"a", "b"}, byColumn["tags"])
	assert.Equal(t, map[any]any{"visits": int64(3)}, byColumn["counts"])
	assert.Equal(t, map[string]any{
		"street": "1 Main St",
		"city":   "Springfield",
		"zip":    int32(12345),
	}, byColumn["home"])
}

func TestWriteEntityNilColumns(t *testing.T) {
	converter := newTestConverter(t)
	user := &User{ID: gocql.TimeUUID(), Name: "ada"}

	_, values, err := converter.WriteEntity(user)
	require.NoError(t, err)

	byColumn := make(map[types.ColumnName]any, len(values))
	for _, cv := range values {
		byColumn[cv.Column] = cv.Value
	}
	// nil pointers surface as nil so callers can skip or tombstone them
	assert.Nil(t, byColumn["home"])
}

func TestReadEntity(t *testing.T) {
	converter := newTestConverter(t)
	id := gocql.TimeUUID()
	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	row := Row{
		"user_id":   id,
		"name":      "ada",
		"joined_at": joined,
		"tags":      []string{"a", "b"},
		"counts":    map[string]int64{"visits": 3},
		"home": map[string]any{
			"street": "1 Main St",
			"city":   "Springfield",
			"zip":    int32(12345),
		},
	}

	var user User
	require.NoError(t, converter.Read(&user, row))
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "ada", user.Name)
	assert.Equal(t, joined, user.JoinedAt)
	assert.Equal(t, []string{"a", "b"}, user.Tags)
	assert.Equal(t, map[string]int64{"visits": 3}, user.Counts)
	require.NotNil(t, user.Home)
	assert.Equal(t, "Springfield", user.Home.City)
	assert.Equal(t, int32(12345), user.Home.Zip)
}

func TestReadEntitySkipsAbsentColumns(t *testing.T) {
	converter := newTestConverter(t)
	user := User{Name: "unchanged"}
	require.NoError(t, converter.Read(&user, Row{"tags": []string{"x"}}))
	assert.Equal(t, "unchanged", user.Name)
	assert.Equal(t, []string{"x"}, user.Tags)
}

func TestRoundTripCompositeKey(t *testing.T) {
	converter := newTestConverter(t)
	order := &Order{Key: OrderKey{Region: "emea", OrderID: 42}, Total: 99.5}

	_, values, err := converter.WriteEntity(order)
	require.NoError(t, err)

	row := make(Row, len(values))
	for _, cv := range values {
		row[string(cv.Column)] = cv.Value
	}
	assert.Equal(t, "emea", row["region"])
	assert.Equal(t, int64(42), row["order_id"])

	var got Order
	require.NoError(t, converter.Read(&got, row))
	assert.Equal(t, *order, got)
}

func TestWriteWhereID(t *testing.T) {
	converter := newTestConverter(t)
	order := &Order{Key: OrderKey{Region: "emea", OrderID: 42}, Total: 99.5}

	entity, idValues, err := converter.WriteWhereID(order)
	require.NoError(t, err)
	require.NotNil(t, entity.CompositeKeyProperty)
	require.Len(t, idValues, 2)
	assert.Equal(t, types.ColumnName("region"), idValues[0].Column)
	assert.Equal(t, "emea", idValues[0].Value)
	assert.Equal(t, types.ColumnName("order_id"), idValues[1].Column)
	assert.Equal(t, int64(42), idValues[1].Value)
}

func TestWriteID(t *testing.T) {
	converter := newTestConverter(t)

	t.Run("scalar id", func(t *testing.T) {
		entity, err := converter.Context().GetEntity(&User{})
		require.NoError(t, err)
		id := gocql.TimeUUID()
		values, err := converter.WriteID(entity, id)
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Equal(t, types.ColumnName("user_id"), values[0].Column)
		assert.Equal(t, id, values[0].Value)
	})

	t.Run("key struct id", func(t *testing.T) {
		entity, err := converter.Context().GetEntity(&Order{})
		require.NoError(t, err)
		values, err := converter.WriteID(entity, OrderKey{Region: "emea", OrderID: 7})
		require.NoError(t, err)
		require.Len(t, values, 2)
		assert.Equal(t, "emea", values[0].Value)
		assert.Equal(t, int64(7), values[1].Value)
	})

	t.Run("map id", func(t *testing.T) {
		entity, err := converter.Context().GetEntity(&Order{})
		require.NoError(t, err)
		values, err := converter.WriteID(entity, map[string]any{"region": "apac", "order_id": int64(9)})
		require.NoError(t, err)
		require.Len(t, values, 2)
		assert.Equal(t, types.ColumnName("region"), values[0].Column)
		assert.Equal(t, "apac", values[0].Value)
	})

	t.Run("map id missing key column", func(t *testing.T) {
		entity, err := converter.Context().GetEntity(&Order{})
		require.NoError(t, err)
		_, err = converter.WriteID(entity, map[string]any{"region": "apac"})
		assert.Error(t, err)
	})

	t.Run("scalar id against compound key", func(t *testing.T) {
		entity, err := converter.Context().GetEntity(&Order{})
		require.NoError(t, err)
		_, err = converter.WriteID(entity, "just-one-value")
		assert.Error(t, err)
	})
}

func TestDefaultConversions(t *testing.T) {
	converter := newTestConverter(t)

	type Session struct {
		ID      uuid.UUID `cql:"session_id,partitionkey"`
		Started time.Time `cql:"started"`
	}

	id := uuid.New()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, values, err := converter.WriteEntity(&Session{ID: id, Started: started})
	require.NoError(t, err)

	byColumn := make(map[types.ColumnName]any, len(values))
	for _, cv := range values {
		byColumn[cv.Column] = cv.Value
	}
	// google UUIDs convert to the driver's UUID type
	assert.Equal(t, gocql.UUID(id), byColumn["session_id"])

	// the driver hands UUIDs back as gocql.UUID; reading restores uuid.UUID
	var got Session
	require.NoError(t, converter.Read(&got, Row{"session_id": gocql.UUID(id), "started": started}))
	assert.Equal(t, id, got.ID)
}

func TestCustomConversionOverride(t *testing.T) {
	conversions := NewCustomConversions()
	RegisterFor(conversions, func(s string) (int64, error) {
		return int64(len(s)), nil
	})
	converter := NewEntityConverter(mapping.NewMappingContext(), WithConversions(conversions))

	got, err := converter.WriteValue("c", "hello", types.TypeBigint)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
}

func TestReadRejectsRuneConversion(t *testing.T) {
	converter := newTestConverter(t)
	// int -> string would be a rune conversion; reads must fail instead
	var user User
	err := converter.Read(&user, Row{"name": 65})
	require.Error(t, err)
	var mismatch *mapping.TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
	assert.True(t, strings.Contains(err.Error(), "name"))
}

func TestNewInstance(t *testing.T) {
	converter := newTestConverter(t)
	entity, err := converter.Context().GetEntity(&User{})
	require.NoError(t, err)

	id := gocql.TimeUUID()
	instance, err := converter.NewInstance(entity, Row{"user_id": id, "name": "ada"})
	require.NoError(t, err)
	user, ok := instance.(*User)
	require.True(t, ok)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "ada", user.Name)
}
