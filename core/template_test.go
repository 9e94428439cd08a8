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
	"errors"
	"testing"

	"github.com/cassandra-ecosystem/cql-object-mapper/conversion"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"github.com/cassandra-ecosystem/cql-object-mapper/statements"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	ID      gocql.UUID       `cql:"doc_id,partitionkey"`
	Owner   uuid.UUID        `cql:"owner"`
	Tags    []string         `cql:"tags,set"`
	Attrs   map[string]int64 `cql:"attrs"`
	Version int64            `cql:"version,version"`
}

func newTestTemplate(t *testing.T) *Template {
	t.Helper()
	converter := conversion.NewEntityConverter(mapping.NewMappingContext(mapping.WithDefaultKeyspace("app")))
	return NewTemplate(nil, converter)
}

func TestConvertAssignmentsAppliesConversions(t *testing.T) {
	tpl := newTestTemplate(t)
	meta, err := tpl.converter.Context().GetEntity(&document{})
	require.NoError(t, err)

	owner := uuid.New()
	converted, err := tpl.convertAssignments(meta, statements.Update{
		statements.Set("owner", owner),
		statements.Append("tags", "x"),
		statements.SetAtKey("attrs", "hits", 3),
		statements.PutAll("attrs", map[any]any{"visits": 7}),
		statements.RemoveKeys("attrs", "stale"),
	})
	require.NoError(t, err)
	require.Len(t, converted, 5)

	// registered conversions apply to assignment values, not just filters
	assert.Equal(t, gocql.UUID(owner), converted[0].Value)
	assert.Equal(t, []any{"x"}, converted[1].Value)
	assert.Equal(t, "hits", converted[2].Key)
	assert.Equal(t, int64(3), converted[2].Value)
	assert.Equal(t, map[any]any{"visits": int64(7)}, converted[3].Value)
	assert.Equal(t, []any{"stale"}, converted[4].Value)
}

func TestConvertAssignmentsValidation(t *testing.T) {
	tpl := newTestTemplate(t)
	meta, err := tpl.converter.Context().GetEntity(&document{})
	require.NoError(t, err)

	_, err = tpl.convertAssignments(meta, statements.Update{statements.Set("missing", 1)})
	assert.Error(t, err)

	_, err = tpl.convertAssignments(meta, statements.Update{statements.SetAtKey("tags", "k", "v")})
	assert.Error(t, err)

	_, err = tpl.convertAssignments(meta, statements.Update{statements.PutAll("tags", map[any]any{"k": "v"})})
	assert.Error(t, err)
}

func TestVersionBumpAndRestore(t *testing.T) {
	tpl := newTestTemplate(t)
	meta, err := tpl.converter.Context().GetEntity(&document{})
	require.NoError(t, err)
	require.NotNil(t, meta.VersionProperty)

	doc := &document{ID: gocql.TimeUUID()}
	require.NoError(t, tpl.bumpVersion(doc, meta, 1, 0))
	assert.Equal(t, int64(1), doc.Version)

	// a rejected conditional insert rolls the version back to never-persisted
	require.NoError(t, tpl.bumpVersion(doc, meta, 0, 1))
	assert.Equal(t, int64(0), doc.Version)

	version, err := tpl.entityVersion(doc, meta)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestBumpVersionRequiresPointer(t *testing.T) {
	tpl := newTestTemplate(t)
	meta, err := tpl.converter.Context().GetEntity(&document{})
	require.NoError(t, err)

	var mappingErr *mapping.MappingError
	err = tpl.bumpVersion(document{}, meta, 1, 0)
	require.Error(t, err)
	assert.ErrorAs(t, err, &mappingErr)
}

func TestAlreadyExistsDistinctFromNotFound(t *testing.T) {
	assert.False(t, errors.Is(ErrAlreadyExists, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrAlreadyExists))
}
