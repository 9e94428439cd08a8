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

	"github.com/cassandra-ecosystem/cql-object-mapper/statements"
	"golang.org/x/sync/errgroup"
)

const defaultAsyncConcurrency = 16

// AsyncTemplate runs template operations off the calling goroutine. Single
// operations return a completion channel carrying the operation's error;
// bulk operations fan out across a bounded worker group and return the
// first failure.
type AsyncTemplate struct {
	template    *Template
	concurrency int
}

type AsyncOption func(*AsyncTemplate)

// WithConcurrency bounds the number of in-flight statements for bulk
// operations.
func WithConcurrency(n int) AsyncOption {
	return func(a *AsyncTemplate) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func NewAsyncTemplate(template *Template, opts ...AsyncOption) *AsyncTemplate {
	a := &AsyncTemplate{template: template, concurrency: defaultAsyncConcurrency}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AsyncTemplate) Template() *Template { return a.template }

func (a *AsyncTemplate) run(op func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- op()
		close(done)
	}()
	return done
}

func (a *AsyncTemplate) Insert(ctx context.Context, entity any, opts ...statements.WriteOptions) <-chan error {
	return a.run(func() error { return a.template.Insert(ctx, entity, opts...) })
}

func (a *AsyncTemplate) Update(ctx context.Context, entity any, opts ...statements.WriteOptions) <-chan error {
	return a.run(func() error { return a.template.Update(ctx, entity, opts...) })
}

func (a *AsyncTemplate) Delete(ctx context.Context, entity any, opts ...statements.WriteOptions) <-chan error {
	return a.run(func() error { return a.template.Delete(ctx, entity, opts...) })
}

func (a *AsyncTemplate) DeleteByID(ctx context.Context, example any, id any, opts ...statements.WriteOptions) <-chan error {
	return a.run(func() error { return a.template.DeleteByID(ctx, example, id, opts...) })
}

func (a *AsyncTemplate) Truncate(ctx context.Context, example any) <-chan error {
	return a.run(func() error { return a.template.Truncate(ctx, example) })
}

// SelectByID loads into dest in the background. The destination must not be
// touched until the returned channel delivers.
func (a *AsyncTemplate) SelectByID(ctx context.Context, dest any, id any) <-chan error {
	return a.run(func() error { return a.template.SelectByID(ctx, dest, id) })
}

func (a *AsyncTemplate) SelectOne(ctx context.Context, dest any, query statements.Query) <-chan error {
	return a.run(func() error { return a.template.SelectOne(ctx, dest, query) })
}

func (a *AsyncTemplate) Select(ctx context.Context, dest any, query statements.Query) <-chan error {
	return a.run(func() error { return a.template.Select(ctx, dest, query) })
}

// CountResult is delivered by Count.
type CountResult struct {
	Count int64
	Err   error
}

func (a *AsyncTemplate) Count(ctx context.Context, example any, query statements.Query) <-chan CountResult {
	done := make(chan CountResult, 1)
	go func() {
		count, err := a.template.Count(ctx, example, query)
		done <- CountResult{Count: count, Err: err}
		close(done)
	}()
	return done
}

// InsertAll writes the entities concurrently. Unlike a logged batch this is
// not atomic: on failure some entities may have been written.
func (a *AsyncTemplate) InsertAll(ctx context.Context, entities []any, opts ...statements.WriteOptions) error {
	return a.forAll(ctx, entities, func(ctx context.Context, entity any) error {
		return a.template.Insert(ctx, entity, opts...)
	})
}

// UpdateAll rewrites the entities concurrently.
func (a *AsyncTemplate) UpdateAll(ctx context.Context, entities []any, opts ...statements.WriteOptions) error {
	return a.forAll(ctx, entities, func(ctx context.Context, entity any) error {
		return a.template.Update(ctx, entity, opts...)
	})
}

// DeleteAll removes the entities concurrently.
func (a *AsyncTemplate) DeleteAll(ctx context.Context, entities []any, opts ...statements.WriteOptions) error {
	return a.forAll(ctx, entities, func(ctx context.Context, entity any) error {
		return a.template.Delete(ctx, entity, opts...)
	})
}

func (a *AsyncTemplate) forAll(ctx context.Context, entities []any, op func(context.Context, any) error) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(a.concurrency)
	for _, entity := range entities {
		entity := entity
		group.Go(func() error { return op(ctx, entity) })
	}
	return group.Wait()
}
