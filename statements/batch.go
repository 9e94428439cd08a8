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

package statements

import (
	"fmt"

	"github.com/gocql/gocql"
)

// Batch accumulates generated statements for atomic-ish submission through
// the driver's batch machinery. The zero value is not usable; construct with
// NewBatch.
type Batch struct {
	kind       gocql.BatchType
	statements []Statement
}

func NewBatch(kind gocql.BatchType) *Batch {
	return &Batch{kind: kind}
}

func NewLoggedBatch() *Batch   { return NewBatch(gocql.LoggedBatch) }
func NewUnloggedBatch() *Batch { return NewBatch(gocql.UnloggedBatch) }
func NewCounterBatch() *Batch  { return NewBatch(gocql.CounterBatch) }

func (b *Batch) Add(st Statement) *Batch {
	b.statements = append(b.statements, st)
	return b
}

func (b *Batch) Size() int { return len(b.statements) }

func (b *Batch) Statements() []Statement { return b.statements }

// Apply transfers the accumulated statements onto a driver batch created
// from the given session.
func (b *Batch) Apply(session *gocql.Session) (*gocql.Batch, error) {
	if len(b.statements) == 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	driverBatch := session.NewBatch(b.kind)
	for _, st := range b.statements {
		driverBatch.Query(st.Query, st.Values...)
	}
	return driverBatch, nil
}
