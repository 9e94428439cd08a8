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
	"errors"
	"fmt"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/gocql/gocql"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("entity not found")

// ErrAlreadyExists is returned when an INSERT ... IF NOT EXISTS finds the
// row already present.
var ErrAlreadyExists = errors.New("entity already exists")

// OptimisticLockError reports a lightweight-transaction condition that did
// not apply: the stored version no longer matches the entity's version.
type OptimisticLockError struct {
	Table           types.TableName
	ExpectedVersion int64
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("optimistic lock failure on %s: expected version %d no longer current", e.Table, e.ExpectedVersion)
}

// QueryTimeoutError wraps driver read/write timeouts.
type QueryTimeoutError struct{ Cause error }

func (e *QueryTimeoutError) Error() string { return fmt.Sprintf("query timed out: %v", e.Cause) }
func (e *QueryTimeoutError) Unwrap() error { return e.Cause }

// UnavailableError wraps driver unavailable responses: not enough replicas
// were alive to meet the requested consistency.
type UnavailableError struct{ Cause error }

func (e *UnavailableError) Error() string { return fmt.Sprintf("not enough replicas: %v", e.Cause) }
func (e *UnavailableError) Unwrap() error { return e.Cause }

// InvalidQueryError wraps syntax and validation failures reported by the
// cluster for generated statements.
type InvalidQueryError struct{ Cause error }

func (e *InvalidQueryError) Error() string { return fmt.Sprintf("invalid query: %v", e.Cause) }
func (e *InvalidQueryError) Unwrap() error { return e.Cause }

// AlreadyExistsError wraps schema collisions on CREATE statements.
type AlreadyExistsError struct{ Cause error }

func (e *AlreadyExistsError) Error() string { return fmt.Sprintf("already exists: %v", e.Cause) }
func (e *AlreadyExistsError) Unwrap() error { return e.Cause }

// ConnectionError wraps transport-level failures from the driver.
type ConnectionError struct{ Cause error }

func (e *ConnectionError) Error() string { return fmt.Sprintf("connection failure: %v", e.Cause) }
func (e *ConnectionError) Unwrap() error { return e.Cause }

// TranslateError maps driver errors into the package taxonomy. Mapping
// errors pass through untouched, and nothing is retried here; retry policy
// belongs to the driver session.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gocql.ErrNoConnections) || errors.Is(err, gocql.ErrConnectionClosed) || errors.Is(err, gocql.ErrSessionClosed) {
		return &ConnectionError{Cause: err}
	}
	if errors.Is(err, gocql.ErrTimeoutNoResponse) || errors.Is(err, gocql.ErrNoStreams) {
		return &QueryTimeoutError{Cause: err}
	}

	var requestErr gocql.RequestError
	if errors.As(err, &requestErr) {
		switch requestErr.Code() {
		case gocql.ErrCodeReadTimeout, gocql.ErrCodeWriteTimeout:
			return &QueryTimeoutError{Cause: err}
		case gocql.ErrCodeUnavailable:
			return &UnavailableError{Cause: err}
		case gocql.ErrCodeInvalid, gocql.ErrCodeSyntax, gocql.ErrCodeUnauthorized:
			return &InvalidQueryError{Cause: err}
		case gocql.ErrCodeAlreadyExists:
			return &AlreadyExistsError{Cause: err}
		case gocql.ErrCodeOverloaded:
			return &UnavailableError{Cause: err}
		}
	}
	return err
}
