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
	"errors"

	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"github.com/cassandra-ecosystem/cql-object-mapper/statements"
	"go.uber.org/zap"
)

// CreateTable creates the user-defined types the entity references, in
// dependency order, then the table itself and any mapped secondary indexes.
// With ifNotExists set, pre-existing objects are tolerated.
func (t *Template) CreateTable(ctx context.Context, example any, ifNotExists bool, options statements.TableOptions) error {
	meta, err := t.converter.Context().GetEntity(example)
	if err != nil {
		return err
	}
	if err := t.createUserTypes(ctx, meta, ifNotExists); err != nil {
		return err
	}

	st, err := statements.CreateTable(tableOf(meta), meta.TableColumns(), ifNotExists, options)
	if err != nil {
		return err
	}
	t.logger.Info("creating table", zap.String("table", tableOf(meta).String()))
	if err := t.execute(ctx, "ddl", tableOf(meta), st); err != nil {
		return err
	}
	return t.createIndexes(ctx, meta, ifNotExists)
}

func (t *Template) createUserTypes(ctx context.Context, meta *mapping.PersistentEntity, ifNotExists bool) error {
	for _, udtEntity := range t.converter.Context().UserDefinedTypes(meta) {
		udt, err := udtEntity.UdtType()
		if err != nil {
			return err
		}
		st, err := statements.CreateType(meta.Keyspace, udt, ifNotExists)
		if err != nil {
			return err
		}
		t.logger.Info("creating type", zap.String("type", string(udtEntity.UdtName)))
		if err := t.execute(ctx, "ddl", tableOf(meta), st); err != nil {
			return err
		}
	}
	return nil
}

func (t *Template) createIndexes(ctx context.Context, meta *mapping.PersistentEntity, ifNotExists bool) error {
	for _, prop := range meta.ColumnProperties() {
		if prop.IndexName == "" {
			continue
		}
		st := statements.CreateIndex(prop.IndexName, tableOf(meta), prop.ColumnName, ifNotExists)
		if err := t.execute(ctx, "ddl", tableOf(meta), st); err != nil {
			return err
		}
	}
	return nil
}

// DropTable drops the table, then the entity's user-defined types in
// reverse dependency order. Types shared with other live tables make the
// type drops fail; those failures are surfaced unless ifExists is set and
// the cluster reports the object as still referenced or absent.
func (t *Template) DropTable(ctx context.Context, example any, ifExists bool) error {
	meta, err := t.converter.Context().GetEntity(example)
	if err != nil {
		return err
	}
	st := statements.DropTable(tableOf(meta), ifExists)
	t.logger.Info("dropping table", zap.String("table", tableOf(meta).String()))
	if err := t.execute(ctx, "ddl", tableOf(meta), st); err != nil {
		return err
	}

	udts := t.converter.Context().UserDefinedTypes(meta)
	for i := len(udts) - 1; i >= 0; i-- {
		st := statements.DropType(meta.Keyspace, udts[i].UdtName, ifExists)
		if err := t.execute(ctx, "ddl", tableOf(meta), st); err != nil {
			var invalid *InvalidQueryError
			if ifExists && errors.As(err, &invalid) {
				t.logger.Debug("skipping type drop", zap.String("type", string(udts[i].UdtName)), zap.Error(err))
				continue
			}
			return err
		}
	}
	return nil
}
