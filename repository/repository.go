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

// Package repository layers a typed CRUD surface over the template. The
// entity type parameter fixes the mapped table; the id type parameter is
// whatever the entity's key accepts: a scalar, a key struct, or a MapId.
package repository

import (
	"context"
	"errors"
	"reflect"

	"github.com/cassandra-ecosystem/cql-object-mapper/core"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"github.com/cassandra-ecosystem/cql-object-mapper/statements"
)

// CrudRepository provides create, read, update, and delete operations for a
// single entity type.
type CrudRepository[T any, ID any] struct {
	template *core.Template
}

func New[T any, ID any](template *core.Template) *CrudRepository[T, ID] {
	return &CrudRepository[T, ID]{template: template}
}

func (r *CrudRepository[T, ID]) Template() *core.Template { return r.template }

// Save writes the entity. Unversioned entities are upserted; versioned
// entities insert when the version is zero and otherwise update with the
// version check, surfacing OptimisticLockError on conflict.
func (r *CrudRepository[T, ID]) Save(ctx context.Context, entity *T, opts ...statements.WriteOptions) error {
	meta, err := r.template.Converter().Context().GetEntity(entity)
	if err != nil {
		return err
	}
	if meta.VersionProperty == nil {
		return r.template.Insert(ctx, entity, opts...)
	}
	version, err := currentVersion(meta, entity)
	if err != nil {
		return err
	}
	if version == 0 {
		return r.template.Insert(ctx, entity, opts...)
	}
	return r.template.Update(ctx, entity, opts...)
}

// SaveAll saves every entity, stopping at the first failure.
func (r *CrudRepository[T, ID]) SaveAll(ctx context.Context, entities []*T, opts ...statements.WriteOptions) error {
	for _, entity := range entities {
		if err := r.Save(ctx, entity, opts...); err != nil {
			return err
		}
	}
	return nil
}

// FindByID returns the entity or nil when no row matches.
func (r *CrudRepository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	entity := new(T)
	err := r.template.SelectByID(ctx, entity, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// FindAll returns every row of the entity's table.
func (r *CrudRepository[T, ID]) FindAll(ctx context.Context) ([]*T, error) {
	var result []*T
	if err := r.template.Select(ctx, &result, statements.Query{}); err != nil {
		return nil, err
	}
	return result, nil
}

// FindAllByID looks the ids up one by one, skipping ids with no row.
func (r *CrudRepository[T, ID]) FindAllByID(ctx context.Context, ids []ID) ([]*T, error) {
	result := make([]*T, 0, len(ids))
	for _, id := range ids {
		entity, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if entity != nil {
			result = append(result, entity)
		}
	}
	return result, nil
}

// FindBy returns the entities matching the query.
func (r *CrudRepository[T, ID]) FindBy(ctx context.Context, query statements.Query) ([]*T, error) {
	var result []*T
	if err := r.template.Select(ctx, &result, query); err != nil {
		return nil, err
	}
	return result, nil
}

// FindOneBy returns the first entity matching the query, or nil.
func (r *CrudRepository[T, ID]) FindOneBy(ctx context.Context, query statements.Query) (*T, error) {
	entity := new(T)
	err := r.template.SelectOne(ctx, entity, query)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ExistsByID reports whether a row with the id exists.
func (r *CrudRepository[T, ID]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	return r.template.Exists(ctx, new(T), id)
}

// Count returns the number of rows in the entity's table. On large tables
// this is a full scan on the server side.
func (r *CrudRepository[T, ID]) Count(ctx context.Context) (int64, error) {
	return r.template.Count(ctx, new(T), statements.Query{})
}

// Delete removes the row identified by the entity's key.
func (r *CrudRepository[T, ID]) Delete(ctx context.Context, entity *T, opts ...statements.WriteOptions) error {
	return r.template.Delete(ctx, entity, opts...)
}

// DeleteByID removes the row for the id.
func (r *CrudRepository[T, ID]) DeleteByID(ctx context.Context, id ID, opts ...statements.WriteOptions) error {
	return r.template.DeleteByID(ctx, new(T), id, opts...)
}

// DeleteAllByID removes the rows for all the ids, stopping at the first
// failure.
func (r *CrudRepository[T, ID]) DeleteAllByID(ctx context.Context, ids []ID, opts ...statements.WriteOptions) error {
	for _, id := range ids {
		if err := r.DeleteByID(ctx, id, opts...); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll truncates the entity's table.
func (r *CrudRepository[T, ID]) DeleteAll(ctx context.Context) error {
	return r.template.Truncate(ctx, new(T))
}

func currentVersion(meta *mapping.PersistentEntity, entity any) (int64, error) {
	field := meta.VersionProperty.Get(reflect.ValueOf(entity).Elem())
	if !field.IsValid() {
		return 0, mapping.NewMappingError(meta.Type, "cannot read version property")
	}
	return field.Int(), nil
}
