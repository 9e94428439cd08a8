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
	"testing"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nativeInfo(typ gocql.Type) gocql.TypeInfo {
	return gocql.NewNativeType(4, typ, "")
}

func listInfo(elem gocql.TypeInfo) gocql.TypeInfo {
	return gocql.CollectionType{
		NativeType: gocql.NewNativeType(4, gocql.TypeList, ""),
		Elem:       elem,
	}
}

func TestDriverType(t *testing.T) {
	address := types.NewUdtType("app", "address", []types.UdtField{
		{Name: "street", Type: types.TypeText},
	})
	resolver := func(name string) (types.CqlDataType, bool) {
		if name == "address" {
			return address, true
		}
		return nil, false
	}

	udtInfo := gocql.UDTTypeInfo{
		NativeType: gocql.NewNativeType(4, gocql.TypeUDT, ""),
		KeySpace:   "app",
		Name:       "address",
	}

	tests := []struct {
		name string
		info gocql.TypeInfo
		want string
	}{
		{"text", nativeInfo(gocql.TypeText), "text"},
		{"bigint", nativeInfo(gocql.TypeBigInt), "bigint"},
		{"uuid", nativeInfo(gocql.TypeUUID), "uuid"},
		{"timestamp", nativeInfo(gocql.TypeTimestamp), "timestamp"},
		{"list of int", listInfo(nativeInfo(gocql.TypeInt)), "list<int>"},
		{"set of uuid", gocql.CollectionType{
			NativeType: gocql.NewNativeType(4, gocql.TypeSet, ""),
			Elem:       nativeInfo(gocql.TypeUUID),
		}, "set<uuid>"},
		{"map text to bigint", gocql.CollectionType{
			NativeType: gocql.NewNativeType(4, gocql.TypeMap, ""),
			Key:        nativeInfo(gocql.TypeText),
			Elem:       nativeInfo(gocql.TypeBigInt),
		}, "map<text, bigint>"},
		{"tuple", gocql.TupleTypeInfo{
			NativeType: gocql.NewNativeType(4, gocql.TypeTuple, ""),
			Elems:      []gocql.TypeInfo{nativeInfo(gocql.TypeInt), nativeInfo(gocql.TypeText)},
		}, "tuple<int, text>"},
		{"user type", udtInfo, "address"},
		{"list of user type", listInfo(udtInfo), "list<address>"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := driverType(test.info, resolver)
			require.NoError(t, err)
			assert.Equal(t, test.want, got.String())
		})
	}
}

func TestDriverTypeErrors(t *testing.T) {
	resolver := func(string) (types.CqlDataType, bool) { return nil, false }

	t.Run("unresolved user type", func(t *testing.T) {
		info := gocql.UDTTypeInfo{
			NativeType: gocql.NewNativeType(4, gocql.TypeUDT, ""),
			KeySpace:   "app",
			Name:       "ghost",
		}
		_, err := driverType(info, resolver)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := driverType(nativeInfo(gocql.TypeDuration), resolver)
		assert.Error(t, err)
	})

	t.Run("element error propagates", func(t *testing.T) {
		_, err := driverType(listInfo(nativeInfo(gocql.TypeDuration)), resolver)
		assert.Error(t, err)
	})
}

func TestSameCqlType(t *testing.T) {
	address := types.NewUdtType("app", "address", []types.UdtField{
		{Name: "street", Type: types.TypeText},
	})

	tests := []struct {
		name string
		a, b types.CqlDataType
		want bool
	}{
		{"identical scalars", types.TypeText, types.TypeText, true},
		{"different scalars", types.TypeText, types.TypeInt, false},
		{"frozen udt vs bare udt", types.NewFrozenType(address), address, true},
		{"frozen element in list", types.NewListType(types.NewFrozenType(address)), types.NewListType(address), true},
		{"frozen map value", types.NewMapType(types.TypeText, types.NewFrozenType(types.NewSetType(types.TypeInt))),
			types.NewMapType(types.TypeText, types.NewSetType(types.TypeInt)), true},
		{"different element types", types.NewListType(types.TypeInt), types.NewListType(types.TypeText), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, sameCqlType(test.a, test.b))
		})
	}
}
