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

package otelgo

import (
	"context"
	"testing"
	"time"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/config"
	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFromConfig(t *testing.T) {
	got := FromConfig(&config.OtelConfig{
		Enabled:          true,
		ServiceName:      "mapper",
		TracerEndpoint:   "collector:4317",
		MetricEndpoint:   "collector:4317",
		TraceSampleRatio: 0.25,
	})
	assert.True(t, got.Enabled)
	assert.Equal(t, "mapper", got.ServiceName)
	assert.Equal(t, "collector:4317", got.TracerEndpoint)
	assert.Equal(t, "collector:4317", got.MetricEndpoint)
	assert.Equal(t, 0.25, got.TraceSampleRatio)

	assert.False(t, FromConfig(nil).Enabled)
}

func TestDisabledInstanceIsNoOp(t *testing.T) {
	inst, shutdown, err := NewOpenTelemetry(context.Background(), FromConfig(nil), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Nil(t, shutdown)

	// every path must be safe without providers
	inst.ObserveQuery(context.Background(), "select", types.QualifiedTable{Keyspace: "app", Table: "users"}, time.Millisecond, nil)
	ctx, span := inst.StartSpan(context.Background(), "op", nil)
	assert.Nil(t, span)
	assert.NotNil(t, ctx)
	inst.RecordError(span, nil)
	inst.EndSpan(span)
}

func TestIsValidEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"collector:4317", true},
		{"http://collector:4317", true},
		{"collector", false},
		{":4317", false},
		{"http://:4317", false},
	}
	for _, test := range tests {
		t.Run(test.endpoint, func(t *testing.T) {
			assert.Equal(t, test.want, isValidEndpoint(test.endpoint))
		})
	}
}
