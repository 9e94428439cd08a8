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
	"math/big"
	"net"
	"reflect"
	"sort"
	"time"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/utilities"
	"github.com/datastax/go-cassandra-native-protocol/message"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"gopkg.in/inf.v0"
)

// Table lets an entity type declare its table name explicitly instead of
// relying on the naming strategy.
type Table interface {
	TableName() types.TableName
}

// Keyspaced lets an entity type pin itself to a keyspace other than the
// session default.
type Keyspaced interface {
	Keyspace() types.Keyspace
}

// PersistentEntity is the mapping metadata for one Go struct type: its table
// (or UDT) identity and the ordered set of mapped properties.
type PersistentEntity struct {
	Type     reflect.Type
	Keyspace types.Keyspace
	Table    types.TableName

	IsUserDefinedType bool
	UdtName           types.UdtName

	// Properties are the column-backed properties in declaration order,
	// with embedded structs flattened. A composite primary key appears as
	// a single property whose Entity holds the nested key metadata.
	Properties []*PersistentProperty

	byColumn map[types.ColumnName]*PersistentProperty

	CompositeKeyProperty *PersistentProperty
	VersionProperty      *PersistentProperty
}

// isBuiltinStructType reports whether a struct type maps to a scalar CQL
// type rather than a user-defined type.
func isBuiltinStructType(t reflect.Type) bool {
	switch t {
	case timeType, gocqlUUIDTyp, googleUUIDTy, bigIntType, infDecType:
		return true
	default:
		return false
	}
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	gocqlUUIDTyp = reflect.TypeOf(gocql.UUID{})
	googleUUIDTy = reflect.TypeOf(uuid.UUID{})
	ipType       = reflect.TypeOf(net.IP{})
	bigIntType   = reflect.TypeOf(big.Int{})
	infDecType   = reflect.TypeOf(inf.Dec{})
	byteSliceTyp = reflect.TypeOf([]byte{})
)

func newPersistentEntity(ctx *MappingContext, t reflect.Type, asUdt bool, inProgress map[reflect.Type]bool) (*PersistentEntity, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, NewMappingError(t, "mapped types must be structs, got %s", t.Kind())
	}
	if inProgress[t] {
		return nil, NewMappingError(t, "cyclic entity reference detected")
	}
	inProgress[t] = true
	defer delete(inProgress, t)

	entity := &PersistentEntity{
		Type:              t,
		IsUserDefinedType: asUdt,
		byColumn:          make(map[types.ColumnName]*PersistentProperty),
	}

	sample := reflect.New(t).Interface()
	if tn, ok := sample.(Table); ok {
		entity.Table = tn.TableName()
	} else {
		entity.Table = types.TableName(ctx.naming.TableName(t.Name()))
	}
	if ks, ok := sample.(Keyspaced); ok {
		entity.Keyspace = ks.Keyspace()
	} else {
		entity.Keyspace = ctx.keyspace
	}
	if asUdt {
		entity.UdtName = types.UdtName(ctx.naming.UserTypeName(t.Name()))
	}

	if err := entity.addProperties(ctx, t, nil, "", inProgress); err != nil {
		return nil, err
	}
	if err := entity.validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

func (e *PersistentEntity) addProperties(ctx *MappingContext, t reflect.Type, indexPrefix []int, namePrefix string, inProgress map[reflect.Type]bool) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, err := parsePropertyTag(field.Tag.Get(TagName))
		if err != nil {
			return NewMappingError(t, "field %s: %v", field.Name, err)
		}
		if tag.transient {
			continue
		}
		index := append(append([]int(nil), indexPrefix...), i)

		if tag.embedded || (field.Anonymous && field.Tag.Get(TagName) == "") {
			embeddedType := field.Type
			if embeddedType.Kind() == reflect.Ptr {
				embeddedType = embeddedType.Elem()
			}
			if embeddedType.Kind() != reflect.Struct {
				return NewMappingError(t, "field %s: embedded properties must be structs", field.Name)
			}
			if err := e.addProperties(ctx, embeddedType, index, namePrefix+tag.embeddedPrefix, inProgress); err != nil {
				return err
			}
			continue
		}

		prop := &PersistentProperty{
			FieldName:       field.Name,
			FieldIndex:      index,
			FieldType:       field.Type,
			KeyType:         tag.keyType,
			KeyOrdinal:      tag.keyOrdinal,
			ClusteringOrder: tag.clusteringOrder,
			IsVersion:       tag.version,
			IsStatic:        tag.static,
			IndexName:       tag.indexName,
		}
		if tag.index && prop.IndexName == "" {
			prop.IndexName = fmt.Sprintf("%s_%s_idx", e.Table, ctx.naming.ColumnName(field.Name))
		}
		columnName := tag.name
		if columnName == "" {
			columnName = ctx.naming.ColumnName(field.Name)
		}
		prop.ColumnName = types.ColumnName(namePrefix + columnName)

		if tag.compositeKey {
			keyEntity, err := newPersistentEntity(ctx, field.Type, false, inProgress)
			if err != nil {
				return err
			}
			for _, kp := range keyEntity.Properties {
				if !kp.IsPrimaryKey() {
					return NewMappingError(t, "composite key type %s has non-key column %s", keyEntity.Type, kp.ColumnName)
				}
			}
			prop.IsCompositeKey = true
			prop.Entity = keyEntity
			e.CompositeKeyProperty = prop
			e.Properties = append(e.Properties, prop)
			// the key's columns surface on this entity for lookups
			for _, kp := range keyEntity.Properties {
				if _, dup := e.byColumn[kp.ColumnName]; dup {
					return NewMappingError(t, "duplicate column %s", kp.ColumnName)
				}
				e.byColumn[kp.ColumnName] = kp
			}
			continue
		}

		cqlType, nested, err := ctx.inferCqlType(field.Type, tag, inProgress)
		if err != nil {
			return &MappingError{Type: t, Message: fmt.Sprintf("field %s: %v", field.Name, err), Cause: err}
		}
		prop.CQLType = cqlType
		prop.Entity = nested
		prop.IsUdt = nested != nil

		if prop.IsVersion {
			switch field.Type.Kind() {
			case reflect.Int, reflect.Int16, reflect.Int32, reflect.Int64:
			default:
				return NewMappingError(t, "version property %s must be an integer type", field.Name)
			}
			if e.VersionProperty != nil {
				return NewMappingError(t, "multiple version properties: %s and %s", e.VersionProperty.FieldName, field.Name)
			}
			e.VersionProperty = prop
		}

		if _, dup := e.byColumn[prop.ColumnName]; dup {
			return NewMappingError(t, "duplicate column %s", prop.ColumnName)
		}
		e.byColumn[prop.ColumnName] = prop
		e.Properties = append(e.Properties, prop)
	}
	return nil
}

func (e *PersistentEntity) validate() error {
	if e.IsUserDefinedType {
		for _, p := range e.Properties {
			if p.IsPrimaryKey() || p.IsCompositeKey {
				return NewMappingError(e.Type, "user-defined type %s cannot declare key columns", e.UdtName)
			}
		}
		return nil
	}
	if e.CompositeKeyProperty != nil {
		for _, p := range e.Properties {
			if p != e.CompositeKeyProperty && p.IsPrimaryKey() {
				return NewMappingError(e.Type, "column %s declares a key outside the composite key type", p.ColumnName)
			}
		}
	}
	partition := e.PartitionKeyProperties()
	if len(partition) == 0 {
		return NewMappingError(e.Type, "entity has no partition key")
	}
	counters := 0
	for _, p := range e.keyAndColumnProperties() {
		if p.CQLType.Code() == types.COUNTER {
			if p.IsPrimaryKey() {
				return NewMappingError(e.Type, "counter column %s cannot be part of the primary key", p.ColumnName)
			}
			counters++
		}
	}
	if counters > 0 {
		// counter tables allow no regular non-counter columns
		for _, p := range e.keyAndColumnProperties() {
			if !p.IsPrimaryKey() && p.CQLType.Code() != types.COUNTER {
				return NewMappingError(e.Type, "counter table mixes counter and regular column %s", p.ColumnName)
			}
		}
	}
	return nil
}

// keyAndColumnProperties flattens the composite key (if any) into the full
// ordered column-backed property list.
func (e *PersistentEntity) keyAndColumnProperties() []*PersistentProperty {
	var result []*PersistentProperty
	for _, p := range e.Properties {
		if p.IsCompositeKey {
			result = append(result, p.Entity.Properties...)
			continue
		}
		result = append(result, p)
	}
	return result
}

// ColumnProperties returns all column-backed properties, composite key
// columns included, in table declaration order.
func (e *PersistentEntity) ColumnProperties() []*PersistentProperty {
	props := e.keyAndColumnProperties()
	sorted := make([]*PersistentProperty, len(props))
	copy(sorted, props)
	sort.SliceStable(sorted, func(i, j int) bool {
		return keyRank(sorted[i]) < keyRank(sorted[j])
	})
	return sorted
}

func keyRank(p *PersistentProperty) int {
	switch p.KeyType {
	case types.KeyTypePartition:
		return p.KeyOrdinal
	case types.KeyTypeClustering:
		return 1_000 + p.KeyOrdinal
	default:
		return 1_000_000
	}
}

// PartitionKeyProperties returns partition key properties ordered by ordinal.
func (e *PersistentEntity) PartitionKeyProperties() []*PersistentProperty {
	return e.keysOfType(types.KeyTypePartition)
}

// ClusteringKeyProperties returns clustering key properties ordered by ordinal.
func (e *PersistentEntity) ClusteringKeyProperties() []*PersistentProperty {
	return e.keysOfType(types.KeyTypeClustering)
}

func (e *PersistentEntity) keysOfType(kt types.KeyType) []*PersistentProperty {
	var keys []*PersistentProperty
	for _, p := range e.keyAndColumnProperties() {
		if p.KeyType == kt {
			keys = append(keys, p)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].KeyOrdinal < keys[j].KeyOrdinal })
	return keys
}

// IDProperties returns the full primary key, partition keys first.
func (e *PersistentEntity) IDProperties() []*PersistentProperty {
	return append(e.PartitionKeyProperties(), e.ClusteringKeyProperties()...)
}

func (e *PersistentEntity) GetProperty(column types.ColumnName) (*PersistentProperty, error) {
	p, ok := e.byColumn[column]
	if !ok {
		return nil, NewUnknownColumnError(column, e.Table)
	}
	return p, nil
}

func (e *PersistentEntity) HasColumn(column types.ColumnName) bool {
	_, ok := e.byColumn[column]
	return ok
}

// MappedColumns returns the mapped column names in no particular order.
func (e *PersistentEntity) MappedColumns() []types.ColumnName {
	return maps.Keys(e.byColumn)
}

// TableColumns builds the column descriptors for DDL and schema diffing,
// primary key columns first.
func (e *PersistentEntity) TableColumns() []*types.Column {
	props := e.ColumnProperties()
	var cols []*types.Column
	for i, p := range props {
		col := p.Column()
		col.Metadata = message.ColumnMetadata{
			Keyspace: string(e.Keyspace),
			Table:    string(e.Table),
			Name:     string(col.Name),
			Index:    int32(i),
			Type:     col.CQLType.DataType(),
		}
		cols = append(cols, col)
	}
	return cols
}

// UdtType builds the CQL user-defined type descriptor for a UDT entity.
func (e *PersistentEntity) UdtType() (*types.UdtType, error) {
	if !e.IsUserDefinedType {
		return nil, NewMappingError(e.Type, "%s is not mapped as a user-defined type", e.Type)
	}
	var fields []types.UdtField
	for _, p := range e.Properties {
		fields = append(fields, types.UdtField{Name: p.ColumnName, Type: p.CQLType})
	}
	return types.NewUdtType(e.Keyspace, e.UdtName, fields), nil
}

// inferCqlType maps a Go field type to a CQL type, recursing into
// collections and nested UDT structs. The second return value is the nested
// entity when the resolved type is a UDT.
func (ctx *MappingContext) inferCqlType(t reflect.Type, tag propertyTag, inProgress map[reflect.Type]bool) (types.CqlDataType, *PersistentEntity, error) {
	if tag.typeOverride != "" {
		parsed, err := utilities.ParseCqlTypeString(tag.typeOverride)
		if err != nil {
			return nil, nil, err
		}
		return parsed, nil, nil
	}
	if tag.counter {
		return types.TypeCounter, nil, nil
	}

	elem := t
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	if tag.udt {
		nested, err := newPersistentEntity(ctx, elem, true, inProgress)
		if err != nil {
			return nil, nil, err
		}
		if tag.udtName != "" {
			nested.UdtName = types.UdtName(tag.udtName)
		}
		udt, err := nested.UdtType()
		if err != nil {
			return nil, nil, err
		}
		var result types.CqlDataType = udt
		if tag.frozen {
			result = types.NewFrozenType(udt)
		}
		return result, nested, nil
	}

	base, err := ctx.inferScalarOrCollection(elem, tag, inProgress)
	if err != nil {
		return nil, nil, err
	}
	if tag.frozen && base.IsCollection() {
		base = types.NewFrozenType(base)
	}
	return base, nil, nil
}

func (ctx *MappingContext) inferScalarOrCollection(t reflect.Type, tag propertyTag, inProgress map[reflect.Type]bool) (types.CqlDataType, error) {
	switch t {
	case timeType:
		return types.TypeTimestamp, nil
	case gocqlUUIDTyp, googleUUIDTy:
		return types.TypeUuid, nil
	case ipType:
		return types.TypeInet, nil
	case bigIntType:
		return types.TypeVarint, nil
	case infDecType:
		return types.TypeDecimal, nil
	case byteSliceTyp:
		return types.TypeBlob, nil
	}

	switch t.Kind() {
	case reflect.String:
		return types.TypeText, nil
	case reflect.Bool:
		return types.TypeBoolean, nil
	case reflect.Int, reflect.Int64:
		return types.TypeBigint, nil
	case reflect.Int32:
		return types.TypeInt, nil
	case reflect.Int16:
		return types.TypeSmallint, nil
	case reflect.Int8:
		return types.TypeTinyint, nil
	case reflect.Float32:
		return types.TypeFloat, nil
	case reflect.Float64:
		return types.TypeDouble, nil
	case reflect.Slice:
		elemType, err := ctx.inferElementType(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		if tag.set {
			return types.NewSetType(elemType), nil
		}
		return types.NewListType(elemType), nil
	case reflect.Map:
		keyType, err := ctx.inferElementType(t.Key(), inProgress)
		if err != nil {
			return nil, err
		}
		valType, err := ctx.inferElementType(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return types.NewMapType(keyType, valType), nil
	case reflect.Struct:
		return nil, fmt.Errorf("struct type %s requires a udt, embedded, or primarykey tag", t)
	default:
		return nil, &UnsupportedTypeError{Type: t}
	}
}

// inferElementType resolves collection element types. Struct elements map to
// frozen UDTs, matching Cassandra's rule for collections of structured types.
func (ctx *MappingContext) inferElementType(t reflect.Type, inProgress map[reflect.Type]bool) (types.CqlDataType, error) {
	elem := t
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem.Kind() == reflect.Struct && !isBuiltinStructType(elem) {
		nested, err := newPersistentEntity(ctx, elem, true, inProgress)
		if err != nil {
			return nil, err
		}
		udt, err := nested.UdtType()
		if err != nil {
			return nil, err
		}
		return types.NewFrozenType(udt), nil
	}
	inner, err := ctx.inferScalarOrCollection(elem, propertyTag{}, inProgress)
	if err != nil {
		return nil, err
	}
	if inner.IsCollection() {
		return types.NewFrozenType(inner), nil
	}
	return inner, nil
}
