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
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequestError struct {
	code    int
	message string
}

func (e fakeRequestError) Code() int       { return e.code }
func (e fakeRequestError) Message() string { return e.message }
func (e fakeRequestError) Error() string   { return e.message }

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want any
	}{
		{"read timeout", fakeRequestError{code: gocql.ErrCodeReadTimeout}, &QueryTimeoutError{}},
		{"write timeout", fakeRequestError{code: gocql.ErrCodeWriteTimeout}, &QueryTimeoutError{}},
		{"unavailable", fakeRequestError{code: gocql.ErrCodeUnavailable}, &UnavailableError{}},
		{"overloaded", fakeRequestError{code: gocql.ErrCodeOverloaded}, &UnavailableError{}},
		{"invalid", fakeRequestError{code: gocql.ErrCodeInvalid}, &InvalidQueryError{}},
		{"syntax", fakeRequestError{code: gocql.ErrCodeSyntax}, &InvalidQueryError{}},
		{"unauthorized", fakeRequestError{code: gocql.ErrCodeUnauthorized}, &InvalidQueryError{}},
		{"already exists", fakeRequestError{code: gocql.ErrCodeAlreadyExists}, &AlreadyExistsError{}},
		{"no connections", gocql.ErrNoConnections, &ConnectionError{}},
		{"session closed", gocql.ErrSessionClosed, &ConnectionError{}},
		{"timeout no response", gocql.ErrTimeoutNoResponse, &QueryTimeoutError{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := TranslateError(test.in)
			require.Error(t, got)
			switch test.want.(type) {
			case *QueryTimeoutError:
				var e *QueryTimeoutError
				assert.ErrorAs(t, got, &e)
			case *UnavailableError:
				var e *UnavailableError
				assert.ErrorAs(t, got, &e)
			case *InvalidQueryError:
				var e *InvalidQueryError
				assert.ErrorAs(t, got, &e)
			case *AlreadyExistsError:
				var e *AlreadyExistsError
				assert.ErrorAs(t, got, &e)
			case *ConnectionError:
				var e *ConnectionError
				assert.ErrorAs(t, got, &e)
			}
		})
	}
}

func TestTranslateErrorNotFound(t *testing.T) {
	assert.ErrorIs(t, TranslateError(gocql.ErrNotFound), ErrNotFound)
}

func TestTranslateErrorPassthrough(t *testing.T) {
	assert.Nil(t, TranslateError(nil))
	plain := errors.New("something else")
	assert.Equal(t, plain, TranslateError(plain))
}

func TestTranslateErrorPreservesCause(t *testing.T) {
	cause := fakeRequestError{code: gocql.ErrCodeReadTimeout, message: "read timed out"}
	got := TranslateError(cause)
	assert.ErrorIs(t, got, error(cause))
	assert.Contains(t, got.Error(), "read timed out")
}

func TestOptimisticLockError(t *testing.T) {
	err := &OptimisticLockError{Table: "users", ExpectedVersion: 4}
	assert.Contains(t, err.Error(), "users")
	assert.Contains(t, err.Error(), "4")
	wrapped := fmt.Errorf("save failed: %w", err)
	var lockErr *OptimisticLockError
	require.ErrorAs(t, wrapped, &lockErr)
	assert.Equal(t, int64(4), lockErr.ExpectedVersion)
}
