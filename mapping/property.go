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

package mapping

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
)

// TagName is the struct tag key read by the mapper.
const TagName = "cql"

// PersistentProperty is the mapping metadata for one struct field.
type PersistentProperty struct {
	// FieldName is the Go field name; ColumnName the mapped CQL column.
	FieldName  string
	ColumnName types.ColumnName
	// FieldIndex is the reflect index chain from the entity struct to the
	// field, more than one entry deep for embedded properties.
	FieldIndex []int
	FieldType  reflect.Type
	CQLType    types.CqlDataType

	KeyType         types.KeyType
	KeyOrdinal      int
	ClusteringOrder types.ClusteringOrder

	IsVersion      bool
	IsStatic       bool
	IsCompositeKey bool
	IsUdt          bool
	IndexName      string

	// Entity is the nested entity for UDT and composite-key properties.
	Entity *PersistentEntity
}

func (p *PersistentProperty) IsPrimaryKey() bool {
	return p.KeyType == types.KeyTypePartition || p.KeyType == types.KeyTypeClustering
}

func (p *PersistentProperty) IsCollection() bool {
	return p.CQLType != nil && p.CQLType.IsCollection()
}

// Column builds the column descriptor for this property within its table.
func (p *PersistentProperty) Column() *types.Column {
	return &types.Column{
		Name:            p.ColumnName,
		CQLType:         p.CQLType,
		KeyType:         p.KeyType,
		PkPrecedence:    p.KeyOrdinal,
		ClusteringOrder: p.ClusteringOrder,
		IsStatic:        p.IsStatic,
	}
}

// Get reads the property value from an entity value, resolving the embedded
// field chain. The input must be the (possibly addressable) struct value.
func (p *PersistentProperty) Get(entity reflect.Value) reflect.Value {
	v := entity
	for _, i := range p.FieldIndex {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

// Set writes the property value into an addressable entity value, allocating
// intermediate embedded pointers as needed.
func (p *PersistentProperty) Set(entity reflect.Value, value reflect.Value) error {
	v := entity
	for _, i := range p.FieldIndex {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	if !v.CanSet() {
		return fmt.Errorf("cannot set field %s", p.FieldName)
	}
	if !value.Type().AssignableTo(v.Type()) {
		if value.Type().ConvertibleTo(v.Type()) {
			value = value.Convert(v.Type())
		} else {
			return fmt.Errorf("value of type %s is not assignable to field %s (%s)", value.Type(), p.FieldName, v.Type())
		}
	}
	v.Set(value)
	return nil
}

// propertyTag is the parsed form of a `cql:"..."` struct tag.
type propertyTag struct {
	name            string
	transient       bool
	keyType         types.KeyType
	keyOrdinal      int
	clusteringOrder types.ClusteringOrder
	compositeKey    bool
	udt             bool
	udtName         string
	embedded        bool
	embeddedPrefix  string
	version         bool
	frozen          bool
	static          bool
	counter         bool
	set             bool
	index           bool
	indexName       string
	typeOverride    string
}

// parsePropertyTag parses the supported tag grammar, e.g.
//
//	`cql:"user_id,partitionkey"`
//	`cql:"created_at,clusteringkey:0:desc"`
//	`cql:"key,primarykey"`
//	`cql:"address,udt:address"`
//	`cql:",embedded:billing_"`
//	`cql:"-"`
func parsePropertyTag(tag string) (propertyTag, error) {
	result := propertyTag{keyType: types.KeyTypeRegular, clusteringOrder: types.OrderAsc}
	if tag == "-" {
		result.transient = true
		return result, nil
	}
	parts := strings.Split(tag, ",")
	result.name = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, args := splitTagOption(opt)
		switch key {
		case "partitionkey":
			result.keyType = types.KeyTypePartition
			if len(args) > 1 {
				return result, fmt.Errorf("partitionkey takes at most one argument: %q", opt)
			}
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return result, fmt.Errorf("invalid partitionkey ordinal %q", args[0])
				}
				result.keyOrdinal = n
			}
		case "clusteringkey":
			result.keyType = types.KeyTypeClustering
			if len(args) > 2 {
				return result, fmt.Errorf("clusteringkey takes at most two arguments: %q", opt)
			}
			if len(args) >= 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return result, fmt.Errorf("invalid clusteringkey ordinal %q", args[0])
				}
				result.keyOrdinal = n
			}
			if len(args) == 2 {
				switch strings.ToLower(args[1]) {
				case "asc":
					result.clusteringOrder = types.OrderAsc
				case "desc":
					result.clusteringOrder = types.OrderDesc
				default:
					return result, fmt.Errorf("invalid clustering order %q", args[1])
				}
			}
		case "primarykey":
			result.compositeKey = true
		case "udt":
			result.udt = true
			if len(args) == 1 {
				result.udtName = args[0]
			}
		case "embedded":
			result.embedded = true
			if len(args) == 1 {
				result.embeddedPrefix = args[0]
			}
		case "version":
			result.version = true
		case "frozen":
			result.frozen = true
		case "static":
			result.static = true
		case "counter":
			result.counter = true
		case "set":
			result.set = true
		case "index":
			result.index = true
			if len(args) == 1 {
				result.indexName = args[0]
			}
		case "type":
			if len(args) != 1 {
				return result, fmt.Errorf("type option requires an argument: %q", opt)
			}
			result.typeOverride = args[0]
		default:
			return result, fmt.Errorf("unknown cql tag option %q", key)
		}
	}
	return result, nil
}

func splitTagOption(opt string) (string, []string) {
	parts := strings.Split(opt, ":")
	if len(parts) == 1 {
		return parts[0], nil
	}
	return parts[0], parts[1:]
}
