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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
cluster:
  contactPoints:
    - 127.0.0.1
  keyspace: app
`))
	require.NoError(t, err)

	assert.Equal(t, 9042, cfg.Cluster.Port)
	assert.Equal(t, "quorum", cfg.Cluster.Consistency)
	assert.Equal(t, 2, cfg.Cluster.NumConns)
	assert.Equal(t, 10*time.Second, cfg.Cluster.ConnectTimeout)
	assert.Equal(t, 11*time.Second, cfg.Cluster.RequestTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.OutputType)
	require.NotNil(t, cfg.Otel)
	assert.False(t, cfg.Otel.Enabled)
}

func TestLoadExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
cluster:
  contactPoints:
    - cassandra-1
    - cassandra-2
  port: 9043
  keyspace: prod
  datacenter: dc1
  consistency: local_quorum
  numConns: 4
logger:
  outputType: file
  fileName: /var/log/mapper.log
  level: debug
otel:
  enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"cassandra-1", "cassandra-2"}, cfg.Cluster.ContactPoints)
	assert.Equal(t, 9043, cfg.Cluster.Port)
	assert.Equal(t, "local_quorum", cfg.Cluster.Consistency)
	assert.Equal(t, 4, cfg.Cluster.NumConns)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/var/log/mapper.log", cfg.Logger.Filename)
	// enabled telemetry gets a default service name
	assert.Equal(t, "cql-object-mapper", cfg.Otel.ServiceName)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing cluster", "logger:\n  level: info\n"},
		{"no contact points", "cluster:\n  keyspace: app\n"},
		{"bad output type", `
cluster:
  contactPoints:
    - 127.0.0.1
logger:
  outputType: syslog
`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
