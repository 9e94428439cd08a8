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

package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
)

// MapId is a column-to-value identifier for compound primary keys without a
// dedicated key struct. It satisfies the id contract of the template's
// by-id operations: every key column of the entity must be present.
type MapId map[types.ColumnName]any

// NewMapId returns an empty identifier ready for With chaining.
func NewMapId() MapId { return make(MapId) }

// With sets a key column value and returns the identifier for chaining.
func (m MapId) With(column types.ColumnName, value any) MapId {
	m[column] = value
	return m
}

// ColumnValues exposes the identifier to the write pipeline.
func (m MapId) ColumnValues() map[types.ColumnName]any { return m }

func (m MapId) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[types.ColumnName(k)]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
