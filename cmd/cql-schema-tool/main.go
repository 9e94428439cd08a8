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

// cql-schema-tool generates and applies CQL DDL from declarative YAML
// schema files. It prints CREATE statements offline, or diffs and applies
// them against a live cluster.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/cassandra-ecosystem/cql-object-mapper/global/config"
	"github.com/cassandra-ecosystem/cql-object-mapper/schema"
	"go.uber.org/zap"
)

var cli struct {
	Print PrintCmd `cmd:"" help:"Print the CREATE statements for a schema file."`
	Diff  DiffCmd  `cmd:"" help:"Show the statements needed to bring the live keyspace up to date."`
	Apply ApplyCmd `cmd:"" help:"Execute the diff against the live cluster."`
}

type PrintCmd struct {
	Schema string `arg:"" help:"Path to the YAML schema file." type:"existingfile"`
}

type connectedCmd struct {
	Schema string `arg:"" help:"Path to the YAML schema file." type:"existingfile"`
	Config string `help:"Path to the cluster YAML config file." short:"f" required:"" type:"existingfile"`
}

type DiffCmd struct{ connectedCmd }

type ApplyCmd struct{ connectedCmd }

func (c *PrintCmd) Run() error {
	declared, err := schema.LoadDeclaration(c.Schema)
	if err != nil {
		return err
	}
	statements, err := declared.CreateStatements()
	if err != nil {
		return err
	}
	for _, st := range statements {
		fmt.Println(st.Query + ";")
		fmt.Println()
	}
	return nil
}

func (c *connectedCmd) plan(logger *zap.Logger, cfg *config.Config) (*schema.Plan, func(), error) {
	declared, err := schema.LoadDeclaration(c.Schema)
	if err != nil {
		return nil, nil, err
	}
	session, err := config.NewSession(cfg.Cluster)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to cluster: %w", err)
	}
	cleanup := func() { session.Close() }

	inspector := schema.NewInspector(session, logger)
	live, err := inspector.Describe(declared.Keyspace)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	plan, err := declared.Diff(live)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return plan, cleanup, nil
}

func (c *DiffCmd) Run(logger *zap.Logger, cfg *config.Config) error {
	plan, cleanup, err := c.plan(logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	if plan.IsEmpty() {
		fmt.Println("-- schema is up to date")
		return nil
	}
	for _, change := range plan.Changes {
		fmt.Printf("-- %s %s\n", change.Kind, change.Object)
		fmt.Println(change.Statement.Query + ";")
		fmt.Println()
	}
	return nil
}

func (c *ApplyCmd) Run(logger *zap.Logger, cfg *config.Config) error {
	declared, err := schema.LoadDeclaration(c.Schema)
	if err != nil {
		return err
	}
	session, err := config.NewSession(cfg.Cluster)
	if err != nil {
		return fmt.Errorf("cannot connect to cluster: %w", err)
	}
	defer session.Close()

	inspector := schema.NewInspector(session, logger)
	live, err := inspector.Describe(declared.Keyspace)
	if err != nil {
		return err
	}
	plan, err := declared.Diff(live)
	if err != nil {
		return err
	}
	if plan.IsEmpty() {
		logger.Info("schema is up to date", zap.String("keyspace", string(declared.Keyspace)))
		return nil
	}
	for _, change := range plan.Changes {
		logger.Info("applying change",
			zap.String("kind", string(change.Kind)),
			zap.String("object", change.Object))
	}
	if err := plan.Apply(context.Background(), session); err != nil {
		return err
	}
	logger.Info("schema applied", zap.Int("changes", len(plan.Changes)))
	return nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("cql-schema-tool"),
		kong.Description("Generate and apply CQL schema from YAML declarations."),
		kong.UsageOnError(),
	)

	var cfg *config.Config
	var logger *zap.Logger
	var err error

	switch cmd := ctx.Command(); cmd {
	case "print <schema>":
		logger = zap.NewNop()
	default:
		cfg, err = config.Load(configPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		logger, err = config.NewLogger(cfg.Logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logger.Sync() }()
	}

	err = ctx.Run(logger, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	if cli.Diff.Config != "" {
		return cli.Diff.Config
	}
	return cli.Apply.Config
}
