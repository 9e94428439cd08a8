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
	"fmt"
	"strings"

	"github.com/gocql/gocql"
)

// NewSession opens a driver session from the cluster config.
func NewSession(cluster *ClusterConfig) (*gocql.Session, error) {
	clusterConfig := gocql.NewCluster(cluster.ContactPoints...)
	clusterConfig.Port = cluster.Port
	clusterConfig.Keyspace = cluster.Keyspace
	clusterConfig.NumConns = cluster.NumConns
	clusterConfig.ConnectTimeout = cluster.ConnectTimeout
	clusterConfig.Timeout = cluster.RequestTimeout

	consistency, err := parseConsistency(cluster.Consistency)
	if err != nil {
		return nil, err
	}
	clusterConfig.Consistency = consistency

	if cluster.Datacenter != "" {
		clusterConfig.PoolConfig.HostSelectionPolicy = gocql.DCAwareRoundRobinPolicy(cluster.Datacenter)
	}
	if cluster.Username != "" {
		clusterConfig.Authenticator = gocql.PasswordAuthenticator{
			Username: cluster.Username,
			Password: cluster.Password,
		}
	}
	return clusterConfig.CreateSession()
}

func parseConsistency(name string) (gocql.Consistency, error) {
	switch strings.ToLower(name) {
	case "any":
		return gocql.Any, nil
	case "one":
		return gocql.One, nil
	case "two":
		return gocql.Two, nil
	case "three":
		return gocql.Three, nil
	case "quorum":
		return gocql.Quorum, nil
	case "all":
		return gocql.All, nil
	case "localquorum", "local_quorum":
		return gocql.LocalQuorum, nil
	case "eachquorum", "each_quorum":
		return gocql.EachQuorum, nil
	case "localone", "local_one":
		return gocql.LocalOne, nil
	default:
		return 0, fmt.Errorf("unsupported consistency level %q", name)
	}
}
