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
	"fmt"
	"reflect"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
)

// MappingError reports invalid or missing entity metadata. It is recoverable
// only by fixing the mapped type or registering a custom converter.
type MappingError struct {
	Type    reflect.Type
	Message string
	Cause   error
}

func NewMappingError(t reflect.Type, format string, args ...any) *MappingError {
	return &MappingError{Type: t, Message: fmt.Sprintf(format, args...)}
}

func (e *MappingError) Error() string {
	if e.Type == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *MappingError) Unwrap() error { return e.Cause }

// UnsupportedTypeError reports a Go type with no CQL representation.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("no CQL mapping for Go type %s", e.Type)
}

// MissingIDError reports a by-id operation whose identifier does not cover
// every primary key column of the entity.
type MissingIDError struct {
	Type   reflect.Type
	Column types.ColumnName
}

func (e *MissingIDError) Error() string {
	return fmt.Sprintf("%s: id is missing key column %s", e.Type, e.Column)
}

// UnknownColumnError reports a column lookup against an entity that does not
// map it.
type UnknownColumnError struct {
	Column types.ColumnName
	Table  types.TableName
}

func NewUnknownColumnError(column types.ColumnName, table types.TableName) *UnknownColumnError {
	return &UnknownColumnError{Column: column, Table: table}
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column '%s' in table %s", e.Column, e.Table)
}

// TypeMismatchError reports a value that could not be converted between its
// Go representation and the column's CQL type.
type TypeMismatchError struct {
	Column types.ColumnName
	Value  any
	Target reflect.Type
	Cause  error
}

func (e *TypeMismatchError) Error() string {
	if e.Target != nil {
		return fmt.Sprintf("column %s: cannot convert %T to %s", e.Column, e.Value, e.Target)
	}
	return fmt.Sprintf("column %s: cannot convert value of type %T", e.Column, e.Value)
}

func (e *TypeMismatchError) Unwrap() error { return e.Cause }
