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
	"reflect"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
)

// ColumnValue is one (column, driver value) pair produced by the write
// pipeline, ready to bind into a generated statement.
type ColumnValue struct {
	Column types.ColumnName
	Value  types.GoValue
}

// WriteEntity walks all declared properties of the source value and emits
// column/value pairs for an INSERT. Composite primary keys recurse into
// their nested entity metadata; nil-valued columns are emitted with nil so
// callers can decide whether to skip them (unset vs. tombstone).
func (c *EntityConverter) WriteEntity(source any) (*mapping.PersistentEntity, []ColumnValue, error) {
	entity, err := c.context.GetEntity(source)
	if err != nil {
		return nil, nil, err
	}
	v := reflect.ValueOf(source)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil, mapping.NewMappingError(reflect.TypeOf(source), "cannot write nil entity")
		}
		v = v.Elem()
	}
	values, err := c.writeEntityValue(entity, v)
	if err != nil {
		return nil, nil, err
	}
	return entity, values, nil
}

func (c *EntityConverter) writeEntityValue(entity *mapping.PersistentEntity, value reflect.Value) ([]ColumnValue, error) {
	var result []ColumnValue
	for _, prop := range entity.Properties {
		if prop.IsCompositeKey {
			keyValue := prop.Get(value)
			if !keyValue.IsValid() {
				return nil, mapping.NewMappingError(entity.Type, "composite key %s is nil", prop.FieldName)
			}
			if keyValue.Kind() == reflect.Ptr {
				if keyValue.IsNil() {
					return nil, mapping.NewMappingError(entity.Type, "composite key %s is nil", prop.FieldName)
				}
				keyValue = keyValue.Elem()
			}
			keyColumns, err := c.writeEntityValue(prop.Entity, keyValue)
			if err != nil {
				return nil, err
			}
			result = append(result, keyColumns...)
			continue
		}
		converted, err := c.writeProperty(prop, prop.Get(value))
		if err != nil {
			return nil, err
		}
		result = append(result, ColumnValue{Column: prop.ColumnName, Value: converted})
	}
	return result, nil
}

// WriteWhereID emits the primary key column/value pairs of the source
// entity value, in partition-then-clustering order, for WHERE clauses of
// UPDATE, DELETE, and SELECT by id.
func (c *EntityConverter) WriteWhereID(source any) (*mapping.PersistentEntity, []ColumnValue, error) {
	entity, err := c.context.GetEntity(source)
	if err != nil {
		return nil, nil, err
	}
	v := reflect.ValueOf(source)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil, mapping.NewMappingError(reflect.TypeOf(source), "cannot derive id from nil entity")
		}
		v = v.Elem()
	}
	var result []ColumnValue
	for _, prop := range entity.IDProperties() {
		root := v
		if entity.CompositeKeyProperty != nil {
			root = entity.CompositeKeyProperty.Get(v)
			if root.Kind() == reflect.Ptr {
				if root.IsNil() {
					return nil, nil, mapping.NewMappingError(entity.Type, "composite key is nil")
				}
				root = root.Elem()
			}
		}
		converted, err := c.writeProperty(prop, prop.Get(root))
		if err != nil {
			return nil, nil, err
		}
		result = append(result, ColumnValue{Column: prop.ColumnName, Value: converted})
	}
	return entity, result, nil
}

// WriteID converts a standalone id value (scalar, composite key struct, or
// MapId-style ordered map) into primary key column/value pairs for entity.
func (c *EntityConverter) WriteID(entity *mapping.PersistentEntity, id any) ([]ColumnValue, error) {
	idProps := entity.IDProperties()

	if fields, ok := toColumnValueMap(id); ok {
		var result []ColumnValue
		for _, prop := range idProps {
			raw, ok := fields[prop.ColumnName]
			if !ok {
				return nil, &mapping.MissingIDError{Type: entity.Type, Column: prop.ColumnName}
			}
			converted, err := c.writeProperty(prop, reflect.ValueOf(raw))
			if err != nil {
				return nil, err
			}
			result = append(result, ColumnValue{Column: prop.ColumnName, Value: converted})
		}
		return result, nil
	}

	if entity.CompositeKeyProperty != nil {
		keyValue := reflect.ValueOf(id)
		for keyValue.Kind() == reflect.Ptr {
			if keyValue.IsNil() {
				return nil, mapping.NewMappingError(entity.Type, "id is nil")
			}
			keyValue = keyValue.Elem()
		}
		if keyValue.Type() != entity.CompositeKeyProperty.Entity.Type {
			return nil, mapping.NewMappingError(entity.Type, "id type %T does not match composite key type %s", id, entity.CompositeKeyProperty.Entity.Type)
		}
		return c.writeEntityValue(entity.CompositeKeyProperty.Entity, keyValue)
	}

	if len(idProps) != 1 {
		return nil, mapping.NewMappingError(entity.Type, "entity has a %d-column primary key; pass a key struct or id map", len(idProps))
	}
	converted, err := c.writeProperty(idProps[0], reflect.ValueOf(id))
	if err != nil {
		return nil, err
	}
	return []ColumnValue{{Column: idProps[0].ColumnName, Value: converted}}, nil
}

// ColumnValueMapper is implemented by MapId-style identifiers that expose
// their key columns as a map.
type ColumnValueMapper interface {
	ColumnValues() map[types.ColumnName]any
}

func toColumnValueMap(id any) (map[types.ColumnName]any, bool) {
	switch v := id.(type) {
	case ColumnValueMapper:
		return v.ColumnValues(), true
	case map[types.ColumnName]any:
		return v, true
	case map[string]any:
		result := make(map[types.ColumnName]any, len(v))
		for k, val := range v {
			result[types.ColumnName(k)] = val
		}
		return result, true
	default:
		return nil, false
	}
}

// WriteValue converts a single Go value to the driver representation for
// the given CQL type, recursing into collections and nested UDTs.
func (c *EntityConverter) WriteValue(column types.ColumnName, value any, cqlType types.CqlDataType) (types.GoValue, error) {
	prop := &mapping.PersistentProperty{ColumnName: column, CQLType: cqlType}
	return c.writeProperty(prop, reflect.ValueOf(value))
}

func (c *EntityConverter) writeProperty(prop *mapping.PersistentProperty, value reflect.Value) (types.GoValue, error) {
	if !value.IsValid() {
		return nil, nil
	}
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil, nil
		}
		value = value.Elem()
	}

	target := driverGoType(prop.CQLType)
	if fn, ok := c.conversions.Find(value.Type(), target); ok {
		converted, err := fn(value.Interface())
		if err != nil {
			return nil, &mapping.TypeMismatchError{Column: prop.ColumnName, Value: value.Interface(), Target: target, Cause: err}
		}
		return converted, nil
	}

	// UDT recursion: emit the driver's field-map representation
	if prop.IsUdt || isUdtType(prop.CQLType) {
		udtEntity := prop.Entity
		if udtEntity == nil {
			var err error
			udtEntity, err = c.context.GetUdtEntity(value.Type())
			if err != nil {
				return nil, err
			}
		}
		fields := make(map[string]any, len(udtEntity.Properties))
		for _, fp := range udtEntity.Properties {
			converted, err := c.writeProperty(fp, fp.Get(value))
			if err != nil {
				return nil, err
			}
			fields[string(fp.ColumnName)] = converted
		}
		return fields, nil
	}

	switch ct := unwrapFrozen(prop.CQLType).(type) {
	case *types.ListType:
		return c.writeElements(prop.ColumnName, value, ct.ElementType())
	case *types.SetType:
		return c.writeElements(prop.ColumnName, value, ct.ElementType())
	case *types.MapType:
		if value.Kind() != reflect.Map {
			return nil, &mapping.TypeMismatchError{Column: prop.ColumnName, Value: value.Interface()}
		}
		result := make(map[any]any, value.Len())
		iter := value.MapRange()
		for iter.Next() {
			key, err := c.WriteValue(prop.ColumnName, iter.Key().Interface(), ct.KeyType())
			if err != nil {
				return nil, err
			}
			val, err := c.WriteValue(prop.ColumnName, iter.Value().Interface(), ct.ValueType())
			if err != nil {
				return nil, err
			}
			result[key] = val
		}
		return result, nil
	}

	return c.writeScalar(prop.ColumnName, value, target)
}

func (c *EntityConverter) writeElements(column types.ColumnName, value reflect.Value, elementType types.CqlDataType) (types.GoValue, error) {
	if value.Kind() != reflect.Slice && value.Kind() != reflect.Array {
		return nil, &mapping.TypeMismatchError{Column: column, Value: value.Interface()}
	}
	result := make([]any, 0, value.Len())
	for i := 0; i < value.Len(); i++ {
		elem, err := c.WriteValue(column, value.Index(i).Interface(), elementType)
		if err != nil {
			return nil, err
		}
		result = append(result, elem)
	}
	return result, nil
}

func (c *EntityConverter) writeScalar(column types.ColumnName, value reflect.Value, target reflect.Type) (types.GoValue, error) {
	if value.Type().AssignableTo(target) {
		return value.Interface(), nil
	}
	if value.Type().ConvertibleTo(target) && conversionPreservesValue(value.Type(), target) {
		return value.Convert(target).Interface(), nil
	}
	// let gocql's marshaler have a try at named types and the like
	if value.Kind() != reflect.Struct {
		return value.Interface(), nil
	}
	return nil, &mapping.TypeMismatchError{Column: column, Value: value.Interface(), Target: target}
}

func isUdtType(t types.CqlDataType) bool {
	t = unwrapFrozen(t)
	return t != nil && t.Code() == types.UDT
}

func unwrapFrozen(t types.CqlDataType) types.CqlDataType {
	if ft, ok := t.(*types.FrozenType); ok {
		return ft.InnerType()
	}
	return t
}
