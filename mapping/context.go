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

package mapping

import (
	"reflect"
	"sync"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const defaultEntityCacheSize = 512

// MappingContext resolves and caches PersistentEntity metadata per Go type.
// Entities are built once per type and are immutable afterwards, so reads
// are safe from any goroutine.
type MappingContext struct {
	logger   *zap.Logger
	naming   NamingStrategy
	keyspace types.Keyspace

	mu       sync.Mutex
	entities *lru.Cache
}

type ContextOption func(*MappingContext)

func WithNamingStrategy(naming NamingStrategy) ContextOption {
	return func(c *MappingContext) { c.naming = naming }
}

func WithDefaultKeyspace(keyspace types.Keyspace) ContextOption {
	return func(c *MappingContext) { c.keyspace = keyspace }
}

func WithLogger(logger *zap.Logger) ContextOption {
	return func(c *MappingContext) { c.logger = logger }
}

func NewMappingContext(opts ...ContextOption) *MappingContext {
	cache, _ := lru.New(defaultEntityCacheSize)
	ctx := &MappingContext{
		logger:   zap.NewNop(),
		naming:   SnakeCaseNamingStrategy{},
		entities: cache,
	}
	for _, opt := range opts {
		opt(ctx)
	}
	return ctx
}

// GetEntity resolves the entity metadata for an example value or a
// reflect.Type, building and caching it on first use.
func (c *MappingContext) GetEntity(example any) (*PersistentEntity, error) {
	t, ok := example.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(example)
	}
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return c.getEntityByType(t, false)
}

// GetUdtEntity resolves metadata for a type mapped as a user-defined type.
func (c *MappingContext) GetUdtEntity(example any) (*PersistentEntity, error) {
	t, ok := example.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(example)
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return c.getEntityByType(t, true)
}

type entityCacheKey struct {
	t     reflect.Type
	asUdt bool
}

func (c *MappingContext) getEntityByType(t reflect.Type, asUdt bool) (*PersistentEntity, error) {
	key := entityCacheKey{t: t, asUdt: asUdt}
	if cached, ok := c.entities.Get(key); ok {
		return cached.(*PersistentEntity), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// another goroutine may have built the entity while we waited
	if cached, ok := c.entities.Get(key); ok {
		return cached.(*PersistentEntity), nil
	}

	entity, err := newPersistentEntity(c, t, asUdt, make(map[reflect.Type]bool))
	if err != nil {
		return nil, err
	}
	c.entities.Add(key, entity)
	c.logger.Debug("registered entity",
		zap.String("type", t.String()),
		zap.String("table", string(entity.Table)),
		zap.Bool("udt", asUdt))
	return entity, nil
}

// Register pre-builds metadata for the given example values, surfacing
// mapping problems at startup rather than on first use.
func (c *MappingContext) Register(examples ...any) error {
	for _, example := range examples {
		if _, err := c.GetEntity(example); err != nil {
			return err
		}
	}
	return nil
}

// UserDefinedTypes returns the distinct UDT entities reachable from the
// given entity, dependency-ordered so each type appears after the types it
// references. This is the creation order for schema generation.
func (c *MappingContext) UserDefinedTypes(entity *PersistentEntity) []*PersistentEntity {
	var ordered []*PersistentEntity
	seen := make(map[reflect.Type]bool)
	var walk func(e *PersistentEntity)
	add := func(udt *PersistentEntity) {
		walk(udt)
		if !seen[udt.Type] {
			seen[udt.Type] = true
			ordered = append(ordered, udt)
		}
	}
	walk = func(e *PersistentEntity) {
		for _, p := range e.Properties {
			if p.IsCompositeKey {
				walk(p.Entity)
				continue
			}
			if p.IsUdt {
				add(p.Entity)
				continue
			}
			// UDTs may also appear as collection elements
			for _, elem := range structElementTypes(p.FieldType) {
				if udt, err := c.GetUdtEntity(elem); err == nil {
					add(udt)
				}
			}
		}
	}
	walk(entity)
	return ordered
}

// structElementTypes collects struct element types of a collection field
// that map to UDTs rather than to built-in scalar types.
func structElementTypes(t reflect.Type) []reflect.Type {
	var result []reflect.Type
	collect := func(elem reflect.Type) {
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem.Kind() == reflect.Struct && !isBuiltinStructType(elem) {
			result = append(result, elem)
		}
	}
	switch t.Kind() {
	case reflect.Slice:
		collect(t.Elem())
	case reflect.Map:
		collect(t.Key())
		collect(t.Elem())
	}
	return result
}
