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

// Package cqlmapper maps Go structs onto Cassandra tables: entity metadata
// from struct tags, bidirectional value conversion, statement generation,
// and template plus repository operation layers over the gocql driver.
package cqlmapper

import (
	"github.com/cassandra-ecosystem/cql-object-mapper/conversion"
	"github.com/cassandra-ecosystem/cql-object-mapper/core"
	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/cassandra-ecosystem/cql-object-mapper/mapping"
	"github.com/gocql/gocql"
	"go.uber.org/zap"
)

// Mapper bundles the mapping context, converter, and operation layers for
// one session. Construct once and share; all components are safe for
// concurrent use after setup.
type Mapper struct {
	context   *mapping.MappingContext
	converter *conversion.EntityConverter
	template  *core.Template
	async     *core.AsyncTemplate
}

type Option func(*options)

type options struct {
	keyspace    types.Keyspace
	naming      mapping.NamingStrategy
	conversions *conversion.CustomConversions
	logger      *zap.Logger
	observer    core.Observer
}

// WithKeyspace sets the default keyspace for entities that do not declare
// their own.
func WithKeyspace(keyspace types.Keyspace) Option {
	return func(o *options) { o.keyspace = keyspace }
}

// WithNamingStrategy overrides the snake_case derivation of table, type,
// and column names.
func WithNamingStrategy(naming mapping.NamingStrategy) Option {
	return func(o *options) { o.naming = naming }
}

// WithConversions installs custom value converters alongside the built-in
// set.
func WithConversions(conversions *conversion.CustomConversions) Option {
	return func(o *options) { o.conversions = conversions }
}

// WithLogger sets the logger used across all components.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver wires an operation observer into the template.
func WithObserver(observer core.Observer) Option {
	return func(o *options) { o.observer = observer }
}

// New builds a mapper over the session.
func New(session *gocql.Session, opts ...Option) *Mapper {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	contextOpts := []mapping.ContextOption{mapping.WithLogger(o.logger)}
	if o.keyspace != "" {
		contextOpts = append(contextOpts, mapping.WithDefaultKeyspace(o.keyspace))
	}
	if o.naming != nil {
		contextOpts = append(contextOpts, mapping.WithNamingStrategy(o.naming))
	}
	mappingContext := mapping.NewMappingContext(contextOpts...)

	converterOpts := []conversion.ConverterOption{conversion.WithLogger(o.logger)}
	if o.conversions != nil {
		converterOpts = append(converterOpts, conversion.WithConversions(o.conversions))
	}
	converter := conversion.NewEntityConverter(mappingContext, converterOpts...)

	templateOpts := []core.TemplateOption{core.WithTemplateLogger(o.logger)}
	if o.observer != nil {
		templateOpts = append(templateOpts, core.WithObserver(o.observer))
	}
	template := core.NewTemplate(session, converter, templateOpts...)

	return &Mapper{
		context:   mappingContext,
		converter: converter,
		template:  template,
		async:     core.NewAsyncTemplate(template),
	}
}

// Context returns the entity metadata registry.
func (m *Mapper) Context() *mapping.MappingContext { return m.context }

// Converter returns the read/write conversion pipeline.
func (m *Mapper) Converter() *conversion.EntityConverter { return m.converter }

// Template returns the synchronous operations layer.
func (m *Mapper) Template() *core.Template { return m.template }

// Async returns the asynchronous operations layer.
func (m *Mapper) Async() *core.AsyncTemplate { return m.async }

// Register eagerly builds and validates metadata for the given entity
// examples, surfacing mapping mistakes at startup instead of first use.
func (m *Mapper) Register(examples ...any) error {
	return m.context.Register(examples...)
}
