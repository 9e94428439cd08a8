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

package conversion

import (
	"fmt"
	"math/big"
	"net"
	"reflect"
	"time"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"gopkg.in/inf.v0"
)

// ConverterFunc converts a single value between a driver representation and
// a domain representation (or the reverse).
type ConverterFunc func(value any) (any, error)

type converterKey struct {
	source reflect.Type
	target reflect.Type
}

// CustomConversions is a registry of user-supplied converter functions. It
// is consulted before the built-in conversion rules in both directions, so
// callers can override how any (source, target) type pair is handled.
//
// The registry is not safe for concurrent mutation; register all converters
// before sharing the EntityConverter.
type CustomConversions struct {
	converters map[converterKey]ConverterFunc
}

func NewCustomConversions() *CustomConversions {
	c := &CustomConversions{converters: make(map[converterKey]ConverterFunc)}
	c.registerDefaults()
	return c
}

// Register installs a converter from source to target values. Registering
// the same pair twice replaces the earlier converter.
func (c *CustomConversions) Register(source, target reflect.Type, fn ConverterFunc) {
	c.converters[converterKey{source: source, target: target}] = fn
}

// RegisterFor is a generics convenience for Register.
func RegisterFor[S any, T any](c *CustomConversions, fn func(S) (T, error)) {
	var s S
	var t T
	c.Register(reflect.TypeOf(s), reflect.TypeOf(t), func(value any) (any, error) {
		typed, ok := value.(S)
		if !ok {
			return nil, fmt.Errorf("converter expected %T, got %T", s, value)
		}
		return fn(typed)
	})
}

func (c *CustomConversions) Find(source, target reflect.Type) (ConverterFunc, bool) {
	fn, ok := c.converters[converterKey{source: source, target: target}]
	return fn, ok
}

// registerDefaults installs the built-in converter pairs for types that
// reflect conversion alone cannot bridge.
func (c *CustomConversions) registerDefaults() {
	RegisterFor(c, func(u gocql.UUID) (uuid.UUID, error) {
		return uuid.UUID(u), nil
	})
	RegisterFor(c, func(u uuid.UUID) (gocql.UUID, error) {
		return gocql.UUID(u), nil
	})
	RegisterFor(c, func(s string) (gocql.UUID, error) {
		return gocql.ParseUUID(s)
	})
	RegisterFor(c, func(s string) (uuid.UUID, error) {
		return uuid.Parse(s)
	})
	RegisterFor(c, func(u gocql.UUID) (string, error) {
		return u.String(), nil
	})
	RegisterFor(c, func(t time.Time) (int64, error) {
		return t.UnixMilli(), nil
	})
	RegisterFor(c, func(ms int64) (time.Time, error) {
		return time.UnixMilli(ms).UTC(), nil
	})
	RegisterFor(c, func(ip net.IP) (string, error) {
		return ip.String(), nil
	})
	RegisterFor(c, func(s string) (net.IP, error) {
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, fmt.Errorf("invalid inet value %q", s)
		}
		return ip, nil
	})
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	gocqlUUIDType  = reflect.TypeOf(gocql.UUID{})
	googleUUIDType = reflect.TypeOf(uuid.UUID{})
	ipType         = reflect.TypeOf(net.IP{})
	bigIntPtrType  = reflect.TypeOf((*big.Int)(nil))
	infDecPtrType  = reflect.TypeOf((*inf.Dec)(nil))
	byteSliceType  = reflect.TypeOf([]byte{})
	stringType     = reflect.TypeOf("")
	int64Type      = reflect.TypeOf(int64(0))
	int32Type      = reflect.TypeOf(int32(0))
	int16Type      = reflect.TypeOf(int16(0))
	int8Type       = reflect.TypeOf(int8(0))
	float32Type    = reflect.TypeOf(float32(0))
	float64Type    = reflect.TypeOf(float64(0))
	boolType       = reflect.TypeOf(false)
	anyType        = reflect.TypeOf((*any)(nil)).Elem()
)

// driverGoType returns the Go type gocql uses for a CQL type, the target of
// the write pipeline and the source of the read pipeline.
func driverGoType(t types.CqlDataType) reflect.Type {
	switch t.Code() {
	case types.ASCII, types.VARCHAR, types.TEXT:
		return stringType
	case types.BIGINT, types.COUNTER, types.TIME:
		return int64Type
	case types.INT:
		return int32Type
	case types.SMALLINT:
		return int16Type
	case types.TINYINT:
		return int8Type
	case types.BLOB:
		return byteSliceType
	case types.BOOLEAN:
		return boolType
	case types.DATE, types.TIMESTAMP:
		return timeType
	case types.DECIMAL:
		return infDecPtrType
	case types.DOUBLE:
		return float64Type
	case types.FLOAT:
		return float32Type
	case types.INET:
		return ipType
	case types.UUID, types.TIMEUUID:
		return gocqlUUIDType
	case types.VARINT:
		return bigIntPtrType
	case types.FROZEN:
		if ft, ok := t.(*types.FrozenType); ok {
			return driverGoType(ft.InnerType())
		}
		return anyType
	case types.LIST, types.SET:
		return reflect.SliceOf(anyType)
	case types.MAP:
		return reflect.MapOf(anyType, anyType)
	case types.UDT:
		return reflect.MapOf(stringType, anyType)
	default:
		return anyType
	}
}
