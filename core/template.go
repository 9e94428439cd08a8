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

package core

import (
	"context"
	"reflect"
	"time"

	"github.com/cassandra-ecosystem/cql-object-mapper/conversion"
	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"github.com/cassandra-ecosystem/cql-object-mapper/statements"
	"github.com/gocql/gocql"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const statementCacheSize = 1024

// Observer receives a callback per executed operation, for metrics and
// tracing integration.
type Observer interface {
	ObserveQuery(ctx context.Context, op string, table types.QualifiedTable, elapsed time.Duration, err error)
}

// Template is the synchronous operations layer: it converts entities,
// generates statements, and executes them on the wrapped session. All
// blocking, retry, and consistency behavior belongs to the session.
type Template struct {
	session   *gocql.Session
	converter *conversion.EntityConverter
	logger    *zap.Logger
	observer  Observer
	stmtCache *lru.Cache
}

type TemplateOption func(*Template)

func WithTemplateLogger(logger *zap.Logger) TemplateOption {
	return func(t *Template) { t.logger = logger }
}

func WithObserver(observer Observer) TemplateOption {
	return func(t *Template) { t.observer = observer }
}

func NewTemplate(session *gocql.Session, converter *conversion.EntityConverter, opts ...TemplateOption) *Template {
	cache, _ := lru.New(statementCacheSize)
	t := &Template{
		session:   session,
		converter: converter,
		logger:    zap.NewNop(),
		stmtCache: cache,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Template) Converter() *conversion.EntityConverter { return t.converter }

func (t *Template) Session() *gocql.Session { return t.session }

func tableOf(entity *mapping.PersistentEntity) types.QualifiedTable {
	return types.QualifiedTable{Keyspace: entity.Keyspace, Table: entity.Table}
}

// Insert writes all mapped columns of the entity. Nil-valued columns are
// skipped rather than written as tombstones. Entities with a version
// property are inserted with IF NOT EXISTS and version 1; a duplicate key
// surfaces as OptimisticLockError and leaves the version at 0. An explicit
// IfNotExists on an unversioned entity surfaces ErrAlreadyExists instead.
func (t *Template) Insert(ctx context.Context, entity any, opts ...statements.WriteOptions) error {
	options := oneOption(opts)
	meta, err := t.converter.Context().GetEntity(entity)
	if err != nil {
		return err
	}

	if meta.VersionProperty != nil {
		if err := t.bumpVersion(entity, meta, 1, 0); err != nil {
			return err
		}
		options.IfNotExists = true
	}

	_, values, err := t.converter.WriteEntity(entity)
	if err != nil {
		return err
	}
	var named []statements.NamedValue
	for _, cv := range values {
		if cv.Value == nil {
			continue
		}
		named = append(named, statements.NamedValue{Column: cv.Column, Value: cv.Value})
	}
	st, err := statements.Insert(tableOf(meta), named, options)
	if err != nil {
		return err
	}

	if options.IfNotExists || options.IfExists || len(options.Conditions) > 0 {
		applied, err := t.executeCAS(ctx, "insert", tableOf(meta), st)
		if err != nil {
			return err
		}
		if !applied {
			if meta.VersionProperty != nil {
				// restore the in-memory version so a retried save routes
				// back through insert
				_ = t.bumpVersion(entity, meta, 0, 1)
				return &OptimisticLockError{Table: meta.Table, ExpectedVersion: 0}
			}
			return ErrAlreadyExists
		}
		return nil
	}
	return t.execute(ctx, "insert", tableOf(meta), st)
}

// Update rewrites all non-key columns of the entity. A version property
// increments and guards the write with IF version = <old>; a stale version
// surfaces as OptimisticLockError and leaves the entity unchanged.
func (t *Template) Update(ctx context.Context, entity any, opts ...statements.WriteOptions) error {
	options := oneOption(opts)
	meta, idValues, err := t.converter.WriteWhereID(entity)
	if err != nil {
		return err
	}

	var oldVersion int64
	if meta.VersionProperty != nil {
		oldVersion, err = t.entityVersion(entity, meta)
		if err != nil {
			return err
		}
		if err := t.bumpVersion(entity, meta, oldVersion+1, oldVersion); err != nil {
			return err
		}
		options.Conditions = append(options.Conditions,
			statements.Eq(meta.VersionProperty.ColumnName, oldVersion))
	}

	_, values, err := t.converter.WriteEntity(entity)
	if err != nil {
		return err
	}
	idColumns := make(map[types.ColumnName]bool, len(idValues))
	for _, cv := range idValues {
		idColumns[cv.Column] = true
	}
	var update statements.Update
	for _, cv := range values {
		if idColumns[cv.Column] {
			continue
		}
		update = append(update, statements.Set(cv.Column, cv.Value))
	}
	where := idFilter(idValues)

	st, err := statements.BuildUpdate(tableOf(meta), update, where, options)
	if err != nil {
		return err
	}

	if meta.VersionProperty != nil || options.IfExists || len(options.Conditions) > 0 {
		applied, err := t.executeCAS(ctx, "update", tableOf(meta), st)
		if err != nil {
			return err
		}
		if !applied {
			if meta.VersionProperty != nil {
				// restore the in-memory version so the caller can reload and retry
				_ = t.bumpVersion(entity, meta, oldVersion, oldVersion+1)
				return &OptimisticLockError{Table: meta.Table, ExpectedVersion: oldVersion}
			}
			return ErrNotFound
		}
		return nil
	}
	return t.execute(ctx, "update", tableOf(meta), st)
}

// ApplyUpdate executes a partial update (SET operations, collection edits,
// counter increments) against rows matched by the filter.
func (t *Template) ApplyUpdate(ctx context.Context, example any, update statements.Update, where statements.Filter, opts ...statements.WriteOptions) error {
	options := oneOption(opts)
	meta, err := t.converter.Context().GetEntity(example)
	if err != nil {
		return err
	}
	converted, err := t.convertAssignments(meta, update)
	if err != nil {
		return err
	}
	where, err = t.convertFilter(meta, where)
	if err != nil {
		return err
	}
	st, err := statements.BuildUpdate(tableOf(meta), converted, where, options)
	if err != nil {
		return err
	}
	if options.IfExists || len(options.Conditions) > 0 {
		applied, err := t.executeCAS(ctx, "update", tableOf(meta), st)
		if err != nil {
			return err
		}
		if !applied {
			return ErrNotFound
		}
		return nil
	}
	return t.execute(ctx, "update", tableOf(meta), st)
}

// Delete removes the row identified by the entity's primary key. A version
// property guards the delete with IF version = ?.
func (t *Template) Delete(ctx context.Context, entity any, opts ...statements.WriteOptions) error {
	options := oneOption(opts)
	meta, idValues, err := t.converter.WriteWhereID(entity)
	if err != nil {
		return err
	}
	if meta.VersionProperty != nil {
		version, err := t.entityVersion(entity, meta)
		if err != nil {
			return err
		}
		options.Conditions = append(options.Conditions,
			statements.Eq(meta.VersionProperty.ColumnName, version))
	}
	return t.deleteWhere(ctx, meta, idFilter(idValues), options)
}

// DeleteByID removes the row for the given id value; see WriteID for the
// id forms accepted (scalar, key struct, MapId).
func (t *Template) DeleteByID(ctx context.Context, example any, id any, opts ...statements.WriteOptions) error {
	meta, err := t.converter.Context().GetEntity(example)
	if err != nil {
		return err
	}
	idValues, err := t.converter.WriteID(meta, id)
	if err != nil {
		return err
	}
	return t.deleteWhere(ctx, meta, idFilter(idValues), oneOption(opts))
}

func (t *Template) deleteWhere(ctx context.Context, meta *mapping.PersistentEntity, where statements.Filter, options statements.WriteOptions) error {
	st, err := statements.Delete(tableOf(meta), nil, where, options)
	if err != nil {
		return err
	}
	if options.IfExists || len(options.Conditions) > 0 {
		applied, err := t.executeCAS(ctx, "delete", tableOf(meta), st)
		if err != nil {
			return err
		}
		if !applied {
			if meta.VersionProperty != nil && len(options.Conditions) > 0 {
				return &OptimisticLockError{Table: meta.Table}
			}
			return ErrNotFound
		}
		return nil
	}
	return t.execute(ctx, "delete", tableOf(meta), st)
}

type stmtKey struct {
	entityType reflect.Type
	op         string
}

// SelectByID loads a single row into dest (a non-nil struct pointer).
// Returns ErrNotFound when no row matches. The statement text is cached per
// entity type; key column order is deterministic, so only bind values vary.
func (t *Template) SelectByID(ctx context.Context, dest any, id any) error {
	meta, err := t.converter.Context().GetEntity(dest)
	if err != nil {
		return err
	}
	idValues, err := t.converter.WriteID(meta, id)
	if err != nil {
		return err
	}
	key := stmtKey{entityType: meta.Type, op: "selectByID"}
	if cached, ok := t.stmtCache.Get(key); ok {
		st := statements.Statement{Query: cached.(string), Values: append(bindValues(idValues), 1)}
		return t.queryOneRow(ctx, dest, meta, st)
	}
	st, err := statements.Select(tableOf(meta), statements.Query{Filter: idFilter(idValues), Limit: 1})
	if err != nil {
		return err
	}
	t.stmtCache.Add(key, st.Query)
	return t.queryOneRow(ctx, dest, meta, st)
}

// SelectOne executes the query and maps the first row into dest. Returns
// ErrNotFound when the result set is empty.
func (t *Template) SelectOne(ctx context.Context, dest any, query statements.Query) error {
	meta, err := t.converter.Context().GetEntity(dest)
	if err != nil {
		return err
	}
	query.Limit = 1
	query.Filter, err = t.convertFilter(meta, query.Filter)
	if err != nil {
		return err
	}
	st, err := statements.Select(tableOf(meta), query)
	if err != nil {
		return err
	}
	return t.queryOneRow(ctx, dest, meta, st)
}

func (t *Template) queryOneRow(ctx context.Context, dest any, meta *mapping.PersistentEntity, st statements.Statement) error {
	started := time.Now()
	row := make(conversion.Row)
	iter := t.session.Query(st.Query, st.Values...).WithContext(ctx).Iter()
	found := iter.MapScan(row)
	err := iter.Close()
	t.observe(ctx, "select", tableOf(meta), started, err)
	if err != nil {
		return TranslateError(err)
	}
	if !found {
		return ErrNotFound
	}
	return t.converter.Read(dest, row)
}

// Select executes the query and appends all mapped rows to dest, which must
// be a pointer to a slice of structs or struct pointers.
func (t *Template) Select(ctx context.Context, dest any, query statements.Query) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.Elem().Kind() != reflect.Slice {
		return mapping.NewMappingError(reflect.TypeOf(dest), "select destination must be a pointer to a slice")
	}
	sliceValue := destValue.Elem()
	elemType := sliceValue.Type().Elem()
	wantPtr := elemType.Kind() == reflect.Ptr

	meta, err := t.converter.Context().GetEntity(elemType)
	if err != nil {
		return err
	}
	query.Filter, err = t.convertFilter(meta, query.Filter)
	if err != nil {
		return err
	}
	st, err := statements.Select(tableOf(meta), query)
	if err != nil {
		return err
	}

	started := time.Now()
	iter := t.session.Query(st.Query, st.Values...).WithContext(ctx).Iter()
	for {
		row := make(conversion.Row)
		if !iter.MapScan(row) {
			break
		}
		instance, err := t.converter.NewInstance(meta, row)
		if err != nil {
			_ = iter.Close()
			return err
		}
		iv := reflect.ValueOf(instance)
		if wantPtr {
			sliceValue.Set(reflect.Append(sliceValue, iv))
		} else {
			sliceValue.Set(reflect.Append(sliceValue, iv.Elem()))
		}
	}
	err = iter.Close()
	t.observe(ctx, "select", tableOf(meta), started, err)
	return TranslateError(err)
}

// Stream executes the query and delivers mapped rows one at a time to the
// consumer function. Iteration stops on the first consumer error or when
// the context is done.
func (t *Template) Stream(ctx context.Context, example any, query statements.Query, consume func(entity any) error) error {
	meta, err := t.converter.Context().GetEntity(example)
	if err != nil {
		return err
	}
	query.Filter, err = t.convertFilter(meta, query.Filter)
	if err != nil {
		return err
	}
	st, err := statements.Select(tableOf(meta), query)
	if err != nil {
		return err
	}

	started := time.Now()
	iter := t.session.Query(st.Query, st.Values...).WithContext(ctx).Iter()
	for {
		if ctx.Err() != nil {
			_ = iter.Close()
			return ctx.Err()
		}
		row := make(conversion.Row)
		if !iter.MapScan(row) {
			break
		}
		instance, err := t.converter.NewInstance(meta, row)
		if err != nil {
			_ = iter.Close()
			return err
		}
		if err := consume(instance); err != nil {
			_ = iter.Close()
			return err
		}
	}
	err = iter.Close()
	t.observe(ctx, "select", tableOf(meta), started, err)
	return TranslateError(err)
}

// Count returns the number of rows matching the query.
func (t *Template) Count(ctx context.Context, example any, query statements.Query) (int64, error) {
	meta, err := t.converter.Context().GetEntity(example)
	if err != nil {
		return 0, err
	}
	query.Filter, err = t.convertFilter(meta, query.Filter)
	if err != nil {
		return 0, err
	}
	st, err := statements.SelectCount(tableOf(meta), query)
	if err != nil {
		return 0, err
	}
	started := time.Now()
	var count int64
	err = t.session.Query(st.Query, st.Values...).WithContext(ctx).Scan(&count)
	t.observe(ctx, "count", tableOf(meta), started, err)
	if err != nil {
		return 0, TranslateError(err)
	}
	return count, nil
}

// Exists reports whether a row with the given id exists.
func (t *Template) Exists(ctx context.Context, example any, id any) (bool, error) {
	meta, err := t.converter.Context().GetEntity(example)
	if err != nil {
		return false, err
	}
	idValues, err := t.converter.WriteID(meta, id)
	if err != nil {
		return false, err
	}
	count, err := t.Count(ctx, example, statements.Query{Filter: idFilter(idValues)})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Truncate removes all rows of the entity's table.
func (t *Template) Truncate(ctx context.Context, example any) error {
	meta, err := t.converter.Context().GetEntity(example)
	if err != nil {
		return err
	}
	return t.execute(ctx, "truncate", tableOf(meta), statements.Truncate(tableOf(meta)))
}

// ExecuteBatch submits the accumulated statements as a driver batch.
func (t *Template) ExecuteBatch(ctx context.Context, batch *statements.Batch) error {
	driverBatch, err := batch.Apply(t.session)
	if err != nil {
		return err
	}
	started := time.Now()
	err = t.session.ExecuteBatch(driverBatch.WithContext(ctx))
	t.observe(ctx, "batch", types.QualifiedTable{}, started, err)
	return TranslateError(err)
}

// convertFilter runs criterion values through the write pipeline using the
// column's mapped CQL type, so domain values bind correctly.
func (t *Template) convertFilter(meta *mapping.PersistentEntity, filter statements.Filter) (statements.Filter, error) {
	if len(filter) == 0 {
		return filter, nil
	}
	result := make(statements.Filter, 0, len(filter))
	for _, criterion := range filter {
		prop, err := meta.GetProperty(criterion.Column)
		if err != nil {
			return nil, err
		}
		if criterion.Op == statements.OpIn {
			raw, ok := criterion.Value.([]any)
			if !ok {
				return nil, mapping.NewMappingError(meta.Type, "IN criterion on %s requires a value slice", criterion.Column)
			}
			converted := make([]any, 0, len(raw))
			for _, v := range raw {
				cv, err := t.converter.WriteValue(criterion.Column, v, prop.CQLType)
				if err != nil {
					return nil, err
				}
				converted = append(converted, cv)
			}
			criterion.Value = converted
		} else if criterion.Op != statements.OpContains && criterion.Op != statements.OpContainsKey {
			cv, err := t.converter.WriteValue(criterion.Column, criterion.Value, prop.CQLType)
			if err != nil {
				return nil, err
			}
			criterion.Value = cv
		}
		result = append(result, criterion)
	}
	return result, nil
}

// convertAssignments runs assignment values through the write pipeline the
// same way convertFilter does for criteria: whole values use the column's
// mapped type, collection edits use the element (or map key/value) types.
func (t *Template) convertAssignments(meta *mapping.PersistentEntity, update statements.Update) (statements.Update, error) {
	result := make(statements.Update, 0, len(update))
	for _, a := range update {
		prop, err := meta.GetProperty(a.Column)
		if err != nil {
			return nil, err
		}
		keyType, elemType := collectionTypes(prop.CQLType)
		switch a.Op {
		case statements.AssignSet:
			a.Value, err = t.converter.WriteValue(a.Column, a.Value, prop.CQLType)
		case statements.AssignSetAtIndex:
			a.Value, err = t.converter.WriteValue(a.Column, a.Value, elemType)
		case statements.AssignSetAtKey:
			if keyType == nil {
				return nil, mapping.NewMappingError(meta.Type, "column %s is not a map", a.Column)
			}
			a.Key, err = t.converter.WriteValue(a.Column, a.Key, keyType)
			if err == nil {
				a.Value, err = t.converter.WriteValue(a.Column, a.Value, elemType)
			}
		case statements.AssignAppend, statements.AssignPrepend, statements.AssignRemove:
			a.Value, err = t.convertElements(meta, a.Column, a.Value, elemType)
		case statements.AssignRemoveKeys:
			if keyType == nil {
				return nil, mapping.NewMappingError(meta.Type, "column %s is not a map", a.Column)
			}
			a.Value, err = t.convertElements(meta, a.Column, a.Value, keyType)
		case statements.AssignPutAll:
			if keyType == nil {
				return nil, mapping.NewMappingError(meta.Type, "column %s is not a map", a.Column)
			}
			a.Value, err = t.convertEntries(meta, a.Column, a.Value, keyType, elemType)
		}
		// increment/decrement deltas bind as int64 already
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (t *Template) convertElements(meta *mapping.PersistentEntity, column types.ColumnName, value any, elemType types.CqlDataType) (any, error) {
	raw, ok := value.([]any)
	if !ok {
		return nil, mapping.NewMappingError(meta.Type, "collection edit on %s requires element values", column)
	}
	converted := make([]any, 0, len(raw))
	for _, v := range raw {
		cv, err := t.converter.WriteValue(column, v, elemType)
		if err != nil {
			return nil, err
		}
		converted = append(converted, cv)
	}
	return converted, nil
}

func (t *Template) convertEntries(meta *mapping.PersistentEntity, column types.ColumnName, value any, keyType, valueType types.CqlDataType) (any, error) {
	raw, ok := value.(map[any]any)
	if !ok {
		return nil, mapping.NewMappingError(meta.Type, "map merge on %s requires a map value", column)
	}
	converted := make(map[any]any, len(raw))
	for k, v := range raw {
		ck, err := t.converter.WriteValue(column, k, keyType)
		if err != nil {
			return nil, err
		}
		cv, err := t.converter.WriteValue(column, v, valueType)
		if err != nil {
			return nil, err
		}
		converted[ck] = cv
	}
	return converted, nil
}

// collectionTypes unwraps frozen and reports the key and element types of a
// collection column. Non-collections report themselves as the element type;
// the key type is nil for anything but a map.
func collectionTypes(t types.CqlDataType) (key, elem types.CqlDataType) {
	switch v := t.(type) {
	case *types.FrozenType:
		return collectionTypes(v.InnerType())
	case *types.ListType:
		return nil, v.ElementType()
	case *types.SetType:
		return nil, v.ElementType()
	case *types.MapType:
		return v.KeyType(), v.ValueType()
	default:
		return nil, t
	}
}

func (t *Template) execute(ctx context.Context, op string, table types.QualifiedTable, st statements.Statement) error {
	started := time.Now()
	err := t.session.Query(st.Query, st.Values...).WithContext(ctx).Exec()
	t.observe(ctx, op, table, started, err)
	if err != nil {
		t.logger.Debug("statement failed", zap.String("cql", st.Query), zap.Error(err))
		return TranslateError(err)
	}
	return nil
}

func (t *Template) executeCAS(ctx context.Context, op string, table types.QualifiedTable, st statements.Statement) (bool, error) {
	started := time.Now()
	previous := make(map[string]any)
	applied, err := t.session.Query(st.Query, st.Values...).WithContext(ctx).MapScanCAS(previous)
	t.observe(ctx, op, table, started, err)
	if err != nil {
		return false, TranslateError(err)
	}
	return applied, nil
}

func (t *Template) observe(ctx context.Context, op string, table types.QualifiedTable, started time.Time, err error) {
	if t.observer == nil {
		return
	}
	t.observer.ObserveQuery(ctx, op, table, time.Since(started), err)
}

func (t *Template) entityVersion(entity any, meta *mapping.PersistentEntity) (int64, error) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	field := meta.VersionProperty.Get(v)
	if !field.IsValid() {
		return 0, mapping.NewMappingError(meta.Type, "cannot read version property")
	}
	return field.Int(), nil
}

// bumpVersion writes newVersion into the entity's version field. The entity
// must be addressable (a pointer) for versioned writes.
func (t *Template) bumpVersion(entity any, meta *mapping.PersistentEntity, newVersion, oldVersion int64) error {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr {
		return mapping.NewMappingError(meta.Type, "versioned entities must be passed as pointers")
	}
	v = v.Elem()
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	current := meta.VersionProperty.Get(v)
	if current.Int() != oldVersion && oldVersion != 0 {
		return mapping.NewMappingError(meta.Type, "version changed concurrently in memory")
	}
	return meta.VersionProperty.Set(v, reflect.ValueOf(newVersion))
}

func bindValues(idValues []conversion.ColumnValue) []any {
	values := make([]any, 0, len(idValues)+1)
	for _, cv := range idValues {
		values = append(values, cv.Value)
	}
	return values
}

func idFilter(idValues []conversion.ColumnValue) statements.Filter {
	var where statements.Filter
	for _, cv := range idValues {
		where = append(where, statements.Eq(cv.Column, cv.Value))
	}
	return where
}

func oneOption(opts []statements.WriteOptions) statements.WriteOptions {
	if len(opts) == 0 {
		return statements.WriteOptions{}
	}
	return opts[0]
}
