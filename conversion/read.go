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
	"fmt"
	"reflect"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"go.uber.org/zap"
)

// Row is the borrowed driver row representation, column name to decoded Go
// value, as produced by gocql's MapScan. The converter never retains it
// beyond a single call.
type Row map[string]any

// EntityConverter is the entity-to-row conversion engine. It is stateless
// per call beyond the shared mapping context and converter registry, so one
// instance serves all goroutines.
type EntityConverter struct {
	context     *mapping.MappingContext
	conversions *CustomConversions
	logger      *zap.Logger
}

type ConverterOption func(*EntityConverter)

func WithConversions(conversions *CustomConversions) ConverterOption {
	return func(c *EntityConverter) { c.conversions = conversions }
}

func WithLogger(logger *zap.Logger) ConverterOption {
	return func(c *EntityConverter) { c.logger = logger }
}

func NewEntityConverter(context *mapping.MappingContext, opts ...ConverterOption) *EntityConverter {
	c := &EntityConverter{
		context:     context,
		conversions: NewCustomConversions(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *EntityConverter) Context() *mapping.MappingContext { return c.context }

func (c *EntityConverter) Conversions() *CustomConversions { return c.conversions }

// Read populates target (a non-nil struct pointer) from a driver row.
func (c *EntityConverter) Read(target any, row Row) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return mapping.NewMappingError(reflect.TypeOf(target), "read target must be a non-nil pointer")
	}
	entity, err := c.context.GetEntity(target)
	if err != nil {
		return err
	}
	return c.readEntity(entity, v.Elem(), row)
}

// NewInstance reads a row into a freshly allocated value of the entity's
// type and returns the pointer to it.
func (c *EntityConverter) NewInstance(entity *mapping.PersistentEntity, row Row) (any, error) {
	v := reflect.New(entity.Type)
	if err := c.readEntity(entity, v.Elem(), row); err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (c *EntityConverter) readEntity(entity *mapping.PersistentEntity, target reflect.Value, row Row) error {
	for _, prop := range entity.Properties {
		if prop.IsCompositeKey {
			// composite keys recurse into their own entity graph; the key
			// columns live directly on the enclosing row
			keyValue := prop.Get(target)
			if keyValue.Kind() == reflect.Ptr {
				if keyValue.IsNil() {
					keyValue.Set(reflect.New(keyValue.Type().Elem()))
				}
				keyValue = keyValue.Elem()
			}
			if err := c.readEntity(prop.Entity, keyValue, row); err != nil {
				return err
			}
			continue
		}

		raw, ok := row[string(prop.ColumnName)]
		if !ok || raw == nil {
			continue
		}
		converted, err := c.readValue(prop.ColumnName, raw, prop.FieldType, prop.Entity)
		if err != nil {
			return err
		}
		if err := prop.Set(target, converted); err != nil {
			return &mapping.TypeMismatchError{Column: prop.ColumnName, Value: raw, Target: prop.FieldType, Cause: err}
		}
	}
	return nil
}

// readValue converts one driver value into the target field type, applying
// the pipeline order: custom conversions, UDT recursion, element-wise
// collection conversion, then direct assignment.
func (c *EntityConverter) readValue(column types.ColumnName, raw any, targetType reflect.Type, nested *mapping.PersistentEntity) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(targetType), nil
	}
	rawValue := reflect.ValueOf(raw)

	if fn, ok := c.conversions.Find(rawValue.Type(), targetType); ok {
		converted, err := fn(raw)
		if err != nil {
			return reflect.Value{}, &mapping.TypeMismatchError{Column: column, Value: raw, Target: targetType, Cause: err}
		}
		return reflect.ValueOf(converted), nil
	}

	if targetType.Kind() == reflect.Ptr {
		inner, err := c.readValue(column, raw, targetType.Elem(), nested)
		if err != nil {
			return reflect.Value{}, err
		}
		result := reflect.New(targetType.Elem())
		result.Elem().Set(inner)
		return result, nil
	}

	// UDT sub-object recursion: the driver hands UDTs back as a map of
	// field name to value
	if targetType.Kind() == reflect.Struct && !isScalarStruct(targetType) {
		udtEntity := nested
		if udtEntity == nil {
			var err error
			udtEntity, err = c.context.GetUdtEntity(targetType)
			if err != nil {
				return reflect.Value{}, err
			}
		}
		fields, err := toUdtFieldMap(raw)
		if err != nil {
			return reflect.Value{}, &mapping.TypeMismatchError{Column: column, Value: raw, Target: targetType, Cause: err}
		}
		result := reflect.New(targetType).Elem()
		for _, fp := range udtEntity.Properties {
			fieldRaw, ok := fields[string(fp.ColumnName)]
			if !ok || fieldRaw == nil {
				continue
			}
			fieldValue, err := c.readValue(fp.ColumnName, fieldRaw, fp.FieldType, fp.Entity)
			if err != nil {
				return reflect.Value{}, err
			}
			if err := fp.Set(result, fieldValue); err != nil {
				return reflect.Value{}, &mapping.TypeMismatchError{Column: fp.ColumnName, Value: fieldRaw, Target: fp.FieldType, Cause: err}
			}
		}
		return result, nil
	}

	// fast path: direct assignment
	if rawValue.Type().AssignableTo(targetType) {
		return rawValue, nil
	}

	switch targetType.Kind() {
	case reflect.Slice:
		if rawValue.Kind() != reflect.Slice {
			break
		}
		result := reflect.MakeSlice(targetType, 0, rawValue.Len())
		for i := 0; i < rawValue.Len(); i++ {
			elem, err := c.readValue(column, rawValue.Index(i).Interface(), targetType.Elem(), nil)
			if err != nil {
				return reflect.Value{}, err
			}
			result = reflect.Append(result, elem)
		}
		return result, nil
	case reflect.Map:
		if rawValue.Kind() != reflect.Map {
			break
		}
		result := reflect.MakeMapWithSize(targetType, rawValue.Len())
		iter := rawValue.MapRange()
		for iter.Next() {
			key, err := c.readValue(column, iter.Key().Interface(), targetType.Key(), nil)
			if err != nil {
				return reflect.Value{}, err
			}
			val, err := c.readValue(column, iter.Value().Interface(), targetType.Elem(), nil)
			if err != nil {
				return reflect.Value{}, err
			}
			result.SetMapIndex(key, val)
		}
		return result, nil
	}

	if rawValue.Type().ConvertibleTo(targetType) && conversionPreservesValue(rawValue.Type(), targetType) {
		return rawValue.Convert(targetType), nil
	}

	return reflect.Value{}, &mapping.TypeMismatchError{Column: column, Value: raw, Target: targetType}
}

// conversionPreservesValue guards reflect.Convert against surprising pairs
// like int -> string, which Go permits but treats as a rune conversion.
func conversionPreservesValue(source, target reflect.Type) bool {
	if (source.Kind() == reflect.String) != (target.Kind() == reflect.String) {
		return source == byteSliceType || target == byteSliceType
	}
	return true
}

func isScalarStruct(t reflect.Type) bool {
	switch t {
	case timeType, gocqlUUIDType, googleUUIDType:
		return true
	}
	if t == bigIntPtrType.Elem() || t == infDecPtrType.Elem() {
		return true
	}
	return false
}

// toUdtFieldMap normalizes a driver UDT value into field-name keyed form.
func toUdtFieldMap(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case Row:
		return v, nil
	default:
		return nil, fmt.Errorf("expected a UDT field map, got %T", raw)
	}
}
