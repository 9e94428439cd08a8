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
	"testing"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/stretchr/testify/assert"
)

func TestMapIdWith(t *testing.T) {
	id := NewMapId().With("tenant_id", "acme").With("bucket", int32(3))
	assert.Equal(t, map[types.ColumnName]any{
		"tenant_id": "acme",
		"bucket":    int32(3),
	}, id.ColumnValues())
}

func TestMapIdString(t *testing.T) {
	id := NewMapId().With("b", 2).With("a", 1)
	// keys render sorted regardless of insertion order
	assert.Equal(t, "{a=1, b=2}", id.String())
}
