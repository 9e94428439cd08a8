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

// Package config loads the mapper's YAML configuration: cluster contact
// points, logging, and telemetry settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	defaultPort           = 9042
	defaultConsistency    = "quorum"
	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 11 * time.Second
	defaultNumConns       = 2
)

// ClusterConfig describes how to reach the backend cluster.
type ClusterConfig struct {
	ContactPoints  []string      `yaml:"contactPoints"`
	Port           int           `yaml:"port"`
	Keyspace       string        `yaml:"keyspace"`
	Datacenter     string        `yaml:"datacenter"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Consistency    string        `yaml:"consistency"`
	NumConns       int           `yaml:"numConns"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// LoggerConfig controls log output and file rotation.
type LoggerConfig struct {
	OutputType string `yaml:"outputType"`
	Level      string `yaml:"level"`
	Filename   string `yaml:"fileName"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

// OtelConfig mirrors the telemetry package's settings in YAML form.
type OtelConfig struct {
	Enabled          bool    `yaml:"enabled"`
	ServiceName      string  `yaml:"serviceName"`
	TracerEndpoint   string  `yaml:"tracerEndpoint"`
	MetricEndpoint   string  `yaml:"metricEndpoint"`
	TraceSampleRatio float64 `yaml:"traceSampleRatio"`
}

// Config is the root of the YAML configuration file.
type Config struct {
	Cluster *ClusterConfig `yaml:"cluster"`
	Logger  *LoggerConfig  `yaml:"logger"`
	Otel    *OtelConfig    `yaml:"otel"`
}

// Load reads and validates the configuration file, applying defaults for
// omitted settings.
func Load(path string) (*Config, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config Config
	if err = yaml.Unmarshal(fileData, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = validateAndApplyDefaults(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validateAndApplyDefaults(config *Config) error {
	if config.Cluster == nil {
		return fmt.Errorf("config is missing the 'cluster' section")
	}
	cluster := config.Cluster
	if len(cluster.ContactPoints) == 0 {
		return fmt.Errorf("cluster config requires at least one contact point")
	}
	if cluster.Port == 0 {
		cluster.Port = defaultPort
	}
	if cluster.Consistency == "" {
		cluster.Consistency = defaultConsistency
	}
	if cluster.NumConns == 0 {
		cluster.NumConns = defaultNumConns
	}
	if cluster.ConnectTimeout == 0 {
		cluster.ConnectTimeout = defaultConnectTimeout
	}
	if cluster.RequestTimeout == 0 {
		cluster.RequestTimeout = defaultRequestTimeout
	}

	if config.Logger == nil {
		config.Logger = &LoggerConfig{}
	}
	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.OutputType == "" {
		config.Logger.OutputType = "console"
	}
	if config.Logger.OutputType != "console" && config.Logger.OutputType != "file" {
		return fmt.Errorf("logger outputType must be 'console' or 'file', got %q", config.Logger.OutputType)
	}

	if config.Otel == nil {
		config.Otel = &OtelConfig{Enabled: false}
	}
	if config.Otel.Enabled && config.Otel.ServiceName == "" {
		config.Otel.ServiceName = "cql-object-mapper"
	}
	return nil
}
